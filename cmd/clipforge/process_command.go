package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"clipforge/internal/config"
	"clipforge/internal/daemon"
	"clipforge/internal/daemonrun"
	"clipforge/internal/logging"
	"clipforge/internal/notifications"
	"clipforge/internal/pipeline"
	"clipforge/internal/queue"
	"clipforge/internal/workflow"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var vodID string
	var userID string
	var settings string

	cmd := &cobra.Command{
		Use:   "process <url>",
		Short: "Download and clip a VOD in the foreground",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			if client.Health(cmd.Context()) == nil {
				return errors.New("daemon is running; queue the VOD with `clipforge add` or stop the daemon first")
			}

			store, err := queue.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			logger := processLogger(cfg)
			notifier := notifications.NewService(cfg)
			mgr := workflow.NewManagerWithNotifier(cfg, store, logger, notifier)
			defer mgr.Close()
			daemonrun.RegisterStages(mgr, cfg, logger)

			d, err := daemon.New(cfg, store, logger, mgr)
			if err != nil {
				return err
			}
			defer d.Close()

			job, created, err := d.AddVOD(cmd.Context(), daemon.IngestRequest{
				SourceURL: args[0],
				VODID:     vodID,
				UserID:    userID,
				Settings:  settings,
			})
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			if created {
				fmt.Fprintf(stdout, "Processing VOD %s (job #%d)\n", job.VODID, job.ID)
			} else {
				fmt.Fprintf(stdout, "VOD %s already queued as job #%d; processing it now\n", job.VODID, job.ID)
			}

			watchCtx, stopWatch := context.WithCancel(cmd.Context())
			watchDone := make(chan struct{})
			go func() {
				defer close(watchDone)
				watchJobProgress(watchCtx, stdout, store, job.ID)
			}()

			runErr := mgr.RunJob(cmd.Context(), job)
			stopWatch()
			<-watchDone

			if final, err := store.GetByID(cmd.Context(), job.ID); err == nil && final != nil {
				job = final
			}
			if runErr != nil {
				if msg := strings.TrimSpace(job.ErrorMessage); msg != "" {
					return fmt.Errorf("job #%d failed: %s", job.ID, msg)
				}
				return runErr
			}

			printClipSummary(stdout, job)
			return nil
		},
	}

	cmd.Flags().StringVar(&vodID, "vod-id", "", "Explicit VOD identifier (derived from the URL when omitted)")
	cmd.Flags().StringVar(&userID, "user-id", "", "Submitting user identifier")
	cmd.Flags().StringVar(&settings, "settings", "", "Clip settings as a JSON document")
	return cmd
}

// processLogger writes pipeline logs to the daemon log file only, keeping
// stdout free for the progress display.
func processLogger(cfg *config.Config) *slog.Logger {
	logger, err := logging.New(logging.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Outputs: []string{logging.FilePath(cfg)},
	})
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

// watchJobProgress renders job progress until ctx is cancelled. A terminal
// gets an updating progress bar; other writers get one line per stage change.
func watchJobProgress(ctx context.Context, out io.Writer, store *queue.Store, jobID int64) {
	var bar *progressbar.ProgressBar
	if shouldColorize(out) {
		bar = progressbar.NewOptions64(100,
			progressbar.OptionSetWriter(out),
			progressbar.OptionSetDescription("Queued"),
			progressbar.OptionSetWidth(30),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionClearOnFinish(),
		)
		defer func() {
			_ = bar.Clear()
		}()
	}

	var lastStage string
	ticker := time.NewTicker(300 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		job, err := store.GetByID(ctx, jobID)
		if err != nil || job == nil {
			continue
		}
		stage := strings.TrimSpace(job.ProgressStage)
		if stage == "" {
			stage = formatStatusLabel(string(job.Status))
		}

		if bar != nil {
			if stage != lastStage {
				bar.Describe(stage)
				lastStage = stage
			}
			_ = bar.Set64(int64(job.ProgressPercent))
			continue
		}
		if stage != lastStage {
			fmt.Fprintf(out, "  %s\n", stage)
			lastStage = stage
		}
	}
}

func printClipSummary(out io.Writer, job *queue.Job) {
	var clips []pipeline.Clip
	if strings.TrimSpace(job.ClipsJSON) != "" {
		_ = json.Unmarshal([]byte(job.ClipsJSON), &clips)
	}
	if len(clips) == 0 {
		fmt.Fprintf(out, "Job #%d completed with no clips\n", job.ID)
		return
	}

	fmt.Fprintf(out, "Job #%d completed with %d clip(s)\n", job.ID, len(clips))
	for _, clip := range clips {
		target := clip.StoredPath
		if target == "" {
			target = clip.Path
		}
		detail := formatClipDuration(clip.Duration)
		if info, err := os.Stat(target); err == nil {
			detail += ", " + humanize.IBytes(uint64(info.Size()))
		}
		fmt.Fprintf(out, "  %s (%s)\n", target, detail)
		if clip.PublicURL != "" {
			fmt.Fprintf(out, "    %s\n", clip.PublicURL)
		}
	}
}

func formatClipDuration(seconds float64) string {
	return time.Duration(seconds * float64(time.Second)).Round(time.Second).String()
}
