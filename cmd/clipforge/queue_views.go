package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"clipforge/internal/api"
	"clipforge/internal/pipeline"
)

func buildQueueStatusRows(stats map[string]int) [][]string {
	if len(stats) == 0 {
		return nil
	}
	keys := make([]string, 0, len(stats))
	for key := range stats {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{formatStatusLabel(key), fmt.Sprintf("%d", stats[key])})
	}
	return rows
}

// buildQueueListRows orders jobs newest first and renders the list columns.
func buildQueueListRows(jobs []api.Job) [][]string {
	if len(jobs) == 0 {
		return nil
	}
	sorted := make([]api.Job, len(jobs))
	copy(sorted, jobs)

	sort.Slice(sorted, func(i, j int) bool {
		ti := parseQueueTime(sorted[i].CreatedAt)
		tj := parseQueueTime(sorted[j].CreatedAt)
		if ti.Equal(tj) {
			return sorted[i].ID > sorted[j].ID
		}
		return ti.After(tj)
	})

	rows := make([][]string, 0, len(sorted))
	for _, job := range sorted {
		rows = append(rows, []string{
			fmt.Sprintf("%d", job.ID),
			jobDisplayTitle(job),
			formatStatusLabel(job.Status),
			formatDisplayTime(job.CreatedAt),
			formatJobProgress(job),
		})
	}
	return rows
}

func jobDisplayTitle(job api.Job) string {
	if title := strings.TrimSpace(job.Title); title != "" {
		return title
	}
	if vodID := strings.TrimSpace(job.VODID); vodID != "" {
		return "VOD " + vodID
	}
	return "Untitled job"
}

func formatJobProgress(job api.Job) string {
	stage := strings.TrimSpace(job.Progress.Stage)
	percent := job.Progress.Percent
	switch {
	case stage == "" && percent <= 0:
		return "-"
	case stage == "":
		return fmt.Sprintf("%.0f%%", percent)
	default:
		return fmt.Sprintf("%s %.0f%%", stage, percent)
	}
}

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return ""
	}
	parts := strings.Split(status, "_")
	for i, part := range parts {
		lower := strings.ToLower(part)
		if lower == "" {
			continue
		}
		parts[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(parts, " ")
}

func formatDisplayTime(value string) string {
	if t := parseQueueTime(value); !t.IsZero() {
		return t.UTC().Format("2006-01-02 15:04")
	}
	return strings.TrimSpace(value)
}

func parseQueueTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	return time.Time{}
}

// formatArtifactPath appends the on-disk size when the file is statable.
func formatArtifactPath(path string) string {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return path
	}
	return fmt.Sprintf("%s (%s)", path, humanize.IBytes(uint64(info.Size())))
}

func printJobClips(out io.Writer, job *api.Job) {
	if len(job.Clips) == 0 {
		return
	}
	var clips []pipeline.Clip
	if err := json.Unmarshal(job.Clips, &clips); err != nil || len(clips) == 0 {
		return
	}
	fmt.Fprintf(out, "  Clips:    %d\n", len(clips))
	for _, clip := range clips {
		target := clip.StoredPath
		if target == "" {
			target = clip.Path
		}
		if target == "" {
			continue
		}
		fmt.Fprintf(out, "    %s\n", formatArtifactPath(target))
	}
}
