package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"clipforge/internal/api"
	"clipforge/internal/queue"
)

func newResumeCommand(ctx *commandContext) *cobra.Command {
	var fromStage string
	var follow bool

	cmd := &cobra.Command{
		Use:   "resume <jobID>",
		Short: "Requeue a job and restart it from a pipeline stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid job id %q", args[0])
			}

			return ctx.withDaemon(cmd, func(client *api.Client) error {
				job, err := client.ResumeJob(cmd.Context(), id, fromStage)
				if err != nil {
					if api.IsNotFound(err) {
						return fmt.Errorf("job %d not found", id)
					}
					return err
				}

				stdout := cmd.OutOrStdout()
				if stage := strings.TrimSpace(fromStage); stage != "" {
					fmt.Fprintf(stdout, "Job #%d resumed from %s\n", job.ID, stage)
				} else {
					fmt.Fprintf(stdout, "Job #%d resumed\n", job.ID)
				}

				if !follow {
					return nil
				}
				return followJob(cmd, client, id)
			})
		},
	}

	cmd.Flags().StringVar(&fromStage, "from", "", "Stage to restart from (download, analyze, extract, reframe, caption, upload)")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Stream progress until the job finishes")
	return cmd
}

// followJob streams progress events over the daemon websocket and prints one
// line per stage change until the job reaches a terminal status.
func followJob(cmd *cobra.Command, client *api.Client, id int64) error {
	stdout := cmd.OutOrStdout()

	var lastStage string
	var final api.ProgressEvent
	err := client.FollowProgress(cmd.Context(), id, func(event api.ProgressEvent) error {
		final = event
		stage := strings.TrimSpace(event.Progress.Stage)
		if stage == "" {
			stage = formatStatusLabel(event.Status)
		}
		if stage != lastStage {
			fmt.Fprintf(stdout, "  %s\n", stage)
			lastStage = stage
		}
		return nil
	})
	if err != nil {
		return err
	}

	switch final.Status {
	case string(queue.StatusCompleted):
		fmt.Fprintf(stdout, "Job #%d completed\n", id)
		return nil
	case string(queue.StatusFailed):
		if msg := strings.TrimSpace(final.ErrorMessage); msg != "" {
			return fmt.Errorf("job #%d failed: %s", id, msg)
		}
		return fmt.Errorf("job #%d failed", id)
	default:
		return nil
	}
}
