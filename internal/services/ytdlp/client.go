package ytdlp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

var commandContext = exec.CommandContext

// progressTemplate makes yt-dlp emit one parseable line per progress tick.
const progressTemplate = "download:progress|%(progress._percent_str)s|%(progress._speed_str)s|%(progress._eta_str)s"

const progressPrefix = "progress|"

// ProgressUpdate captures yt-dlp download progress events.
type ProgressUpdate struct {
	Percent float64
	Speed   string
	ETA     string
}

// Metadata describes a remote recording without downloading it.
type Metadata struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Uploader   string  `json:"uploader"`
	Duration   float64 `json:"duration"`
	WebpageURL string  `json:"webpage_url"`
}

// Client defines recording download behaviour.
type Client interface {
	FetchMetadata(ctx context.Context, url string) (*Metadata, error)
	Download(ctx context.Context, url, outputDir string, progress func(ProgressUpdate)) (string, error)
}

// Option configures the CLI client.
type Option func(*CLI)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// WithFormat sets the yt-dlp format selector for downloads.
func WithFormat(format string) Option {
	return func(c *CLI) {
		c.format = strings.TrimSpace(format)
	}
}

// CLI wraps the yt-dlp command-line downloader.
type CLI struct {
	binary string
	format string
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "yt-dlp"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// FetchMetadata resolves title, uploader, and duration for a recording URL
// without downloading any media.
func (c *CLI) FetchMetadata(ctx context.Context, url string) (*Metadata, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("source url required")
	}

	args := []string{"--no-playlist", "--skip-download", "--dump-single-json", url}
	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("yt-dlp metadata: %w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("yt-dlp metadata: %w", err)
	}

	var meta Metadata
	if err := json.Unmarshal(output, &meta); err != nil {
		return nil, fmt.Errorf("parse yt-dlp metadata: %w", err)
	}
	return &meta, nil
}

// Download fetches the recording into outputDir and returns the final media
// path reported by yt-dlp after any merge step.
func (c *CLI) Download(ctx context.Context, url, outputDir string, progress func(ProgressUpdate)) (string, error) {
	if strings.TrimSpace(url) == "" {
		return "", errors.New("source url required")
	}
	cleanOutputDir := strings.TrimSpace(outputDir)
	if cleanOutputDir == "" {
		return "", errors.New("output directory required")
	}

	template := filepath.Join(cleanOutputDir, "%(id)s.%(ext)s")
	args := []string{
		"--no-playlist",
		"--newline",
		"--no-simulate",
		"--progress-template", progressTemplate,
		"--print", "after_move:filepath",
		"-o", template,
	}
	if c.format != "" {
		args = append(args, "-f", c.format)
	}
	args = append(args, url)

	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("start yt-dlp: %w", err)
	}

	var outputPath string
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, progressPrefix):
			if update, ok := parseProgressLine(line); ok && progress != nil {
				progress(update)
			}
		case filepath.IsAbs(line):
			// The after_move print fires once the merged file lands.
			outputPath = line
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read yt-dlp output: %w", err)
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("yt-dlp download failed: %w", err)
	}
	if outputPath == "" {
		return "", errors.New("yt-dlp did not report an output file")
	}
	return outputPath, nil
}

func parseProgressLine(line string) (ProgressUpdate, bool) {
	fields := strings.Split(strings.TrimPrefix(line, progressPrefix), "|")
	if len(fields) != 3 {
		return ProgressUpdate{}, false
	}
	update := ProgressUpdate{
		Speed: strings.TrimSpace(fields[1]),
		ETA:   strings.TrimSpace(fields[2]),
	}
	raw := strings.TrimSuffix(strings.TrimSpace(fields[0]), "%")
	if percent, err := strconv.ParseFloat(raw, 64); err == nil {
		update.Percent = percent
	}
	return update, true
}

var _ Client = (*CLI)(nil)
