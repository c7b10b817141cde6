package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"clipforge/internal/api"
	"clipforge/internal/daemon"
	"clipforge/internal/logging"
	"clipforge/internal/queue"
	"clipforge/internal/workflow"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var vodID string
	var userID string
	var settings string

	cmd := &cobra.Command{
		Use:   "add <url>",
		Short: "Queue a VOD recording for clip generation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sourceURL := args[0]

			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			if client.Health(cmd.Context()) == nil {
				resp, err := client.SubmitJob(cmd.Context(), api.SubmitJobRequest{
					SourceURL: sourceURL,
					VODID:     vodID,
					UserID:    userID,
					Settings:  rawSettings(settings),
				})
				if err != nil {
					return err
				}
				return printSubmitResult(cmd, ctx, resp.Job, resp.Created)
			}

			// Daemon down: enqueue through the store directly so submissions
			// never depend on a running daemon.
			job, created, err := submitOffline(cmd, ctx, daemon.IngestRequest{
				SourceURL: sourceURL,
				VODID:     vodID,
				UserID:    userID,
				Settings:  settings,
			})
			if err != nil {
				return err
			}
			return printSubmitResult(cmd, ctx, api.FromJob(job), created)
		},
	}

	cmd.Flags().StringVar(&vodID, "vod-id", "", "Explicit VOD identifier (derived from the URL when omitted)")
	cmd.Flags().StringVar(&userID, "user-id", "", "Submitting user identifier")
	cmd.Flags().StringVar(&settings, "settings", "", "Clip settings as a JSON document")
	return cmd
}

// submitOffline runs the same validation and dedup path the daemon uses,
// against a short-lived store handle.
func submitOffline(cmd *cobra.Command, ctx *commandContext, req daemon.IngestRequest) (*queue.Job, bool, error) {
	cfg := ctx.configValue()
	store, err := queue.Open(cfg)
	if err != nil {
		return nil, false, err
	}
	defer store.Close()

	logger := logging.NewNop()
	mgr := workflow.NewManager(cfg, store, logger)
	defer mgr.Close()

	d, err := daemon.New(cfg, store, logger, mgr)
	if err != nil {
		return nil, false, err
	}
	defer d.Close()

	return d.AddVOD(cmd.Context(), req)
}

func rawSettings(settings string) json.RawMessage {
	trimmed := strings.TrimSpace(settings)
	if trimmed == "" {
		return nil
	}
	return json.RawMessage(trimmed)
}

func printSubmitResult(cmd *cobra.Command, ctx *commandContext, job api.Job, created bool) error {
	if ctx.jsonMode() {
		return writeJSON(cmd, api.SubmitJobResponse{Job: job, Created: created})
	}
	if created {
		fmt.Fprintf(cmd.OutOrStdout(), "Queued VOD %s as job #%d\n", job.VODID, job.ID)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "VOD %s already queued as job #%d\n", job.VODID, job.ID)
	}
	return nil
}
