package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"clipforge/internal/api"
	"clipforge/internal/queue"
	"clipforge/internal/queueaccess"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the job queue",
	}

	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueClearCompletedCommand(ctx))
	queueCmd.AddCommand(newQueueClearFailedCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueResetCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))

	return queueCmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue status summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(cmd, func(q queueaccess.Access) error {
				stats, err := q.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonMode() {
					if stats == nil {
						stats = map[string]int{}
					}
					return writeJSON(cmd, stats)
				}
				rows := buildQueueStatusRows(stats)
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable([]tableColumn{{Name: "Status"}, {Name: "Count", Right: true}}, rows))
				return nil
			})
		},
	}
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(cmd, func(q queueaccess.Access) error {
				jobs, err := q.List(cmd.Context(), listStatuses)
				if err != nil {
					return err
				}
				if ctx.jsonMode() {
					if jobs == nil {
						jobs = []api.Job{}
					}
					return writeJSON(cmd, jobs)
				}
				if len(jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				out := renderTable(
					[]tableColumn{{Name: "ID", Right: true}, {Name: "Title"}, {Name: "Status"}, {Name: "Created"}, {Name: "Progress"}},
					buildQueueListRows(jobs),
				)
				fmt.Fprint(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by job status (repeatable)")
	return cmd
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <jobID>",
		Short: "Show details for one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid job id %q", args[0])
			}
			return ctx.withQueue(cmd, func(q queueaccess.Access) error {
				job, err := q.Describe(cmd.Context(), id)
				if err != nil {
					return err
				}
				if job == nil {
					if ctx.jsonMode() {
						return writeJSON(cmd, map[string]string{"error": "not_found"})
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Job %d not found\n", id)
					return nil
				}
				if ctx.jsonMode() {
					return writeJSON(cmd, job)
				}
				printJobDetail(cmd, job)
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all queue jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(cmd, func(q queueaccess.Access) error {
				removed, err := q.ClearAll(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d queue jobs\n", removed)
				return nil
			})
		},
	}
}

func newQueueClearCompletedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-completed",
		Short: "Remove completed jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(cmd, func(q queueaccess.Access) error {
				removed, err := q.ClearCompleted(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d completed jobs\n", removed)
				return nil
			})
		},
	}
}

func newQueueClearFailedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-failed",
		Short: "Remove failed jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(cmd, func(q queueaccess.Access) error {
				removed, err := q.ClearFailed(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d failed jobs\n", removed)
				return nil
			})
		},
	}
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [jobID...]",
		Short: "Retry failed jobs",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseJobIDs(args)
			if err != nil {
				return err
			}

			return ctx.withQueue(cmd, func(q queueaccess.Access) error {
				out := cmd.OutOrStdout()
				if len(ids) == 0 {
					updated, err := q.RetryAll(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Retried %d failed jobs\n", updated)
					return nil
				}

				for _, id := range ids {
					job, err := q.Describe(cmd.Context(), id)
					if err != nil {
						return err
					}
					if job == nil {
						fmt.Fprintf(out, "Job %d not found\n", id)
						continue
					}
					if job.Status != string(queue.StatusFailed) {
						fmt.Fprintf(out, "Job %d is not in failed state\n", id)
						continue
					}
					retried, err := q.Retry(cmd.Context(), id)
					if err != nil {
						return err
					}
					if retried {
						fmt.Fprintf(out, "Job %d reset for retry\n", id)
					} else {
						fmt.Fprintf(out, "Job %d is not in failed state\n", id)
					}
				}
				return nil
			})
		},
	}
}

func newQueueResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-stuck",
		Short: "Return in-flight jobs to queued",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(cmd, func(q queueaccess.Access) error {
				updated, err := q.ResetStuck(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %d jobs\n", updated)
				return nil
			})
		},
	}
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <jobID...>",
		Short: "Remove specific jobs from the queue",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseJobIDs(args)
			if err != nil {
				return err
			}

			return ctx.withQueue(cmd, func(q queueaccess.Access) error {
				out := cmd.OutOrStdout()
				for _, id := range ids {
					removed, err := q.Remove(cmd.Context(), id)
					if err != nil {
						return err
					}
					if removed {
						fmt.Fprintf(out, "Removed job %d\n", id)
					} else {
						fmt.Fprintf(out, "Job %d not found\n", id)
					}
				}
				return nil
			})
		},
	}
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show queue counters and database health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(cmd, func(q queueaccess.Access) error {
				health, err := q.Health(cmd.Context())
				if err != nil {
					return err
				}
				database, err := q.DatabaseHealth(cmd.Context())
				if err != nil {
					return err
				}

				if ctx.jsonMode() {
					return writeJSON(cmd, queueHealthReport{Queue: health, Database: database})
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Total: %d\nQueued: %d\nProcessing: %d\nFailed: %d\nCompleted: %d\n",
					health.Total,
					health.Queued,
					health.Processing,
					health.Failed,
					health.Completed,
				)
				fmt.Fprintln(out)
				fmt.Fprintf(out, "Database path: %s\n", database.DBPath)
				fmt.Fprintf(out, "Database exists: %s\n", yesNo(database.DatabaseExists))
				fmt.Fprintf(out, "Readable: %s\n", yesNo(database.DatabaseReadable))
				fmt.Fprintf(out, "Schema version: %s\n", database.SchemaVersion)
				fmt.Fprintf(out, "jobs table present: %s\n", yesNo(database.TableExists))
				if len(database.MissingColumns) > 0 {
					fmt.Fprintf(out, "Missing columns: %s\n", strings.Join(database.MissingColumns, ", "))
				} else {
					fmt.Fprintln(out, "Missing columns: none")
				}
				fmt.Fprintf(out, "Integrity check: %s\n", yesNo(database.IntegrityCheck))
				fmt.Fprintf(out, "Total jobs: %d\n", database.TotalJobs)
				if database.Error != "" {
					fmt.Fprintf(out, "Error: %s\n", database.Error)
				}
				return nil
			})
		},
	}
}

// queueHealthReport is the JSON shape of `clipforge queue health --json`.
type queueHealthReport struct {
	Queue    api.QueueHealthResponse    `json:"queue"`
	Database api.DatabaseHealthResponse `json:"database"`
}

func parseJobIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid job id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func printJobDetail(cmd *cobra.Command, job *api.Job) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Job #%d\n", job.ID)
	fmt.Fprintf(out, "  VOD:      %s\n", job.VODID)
	if job.Title != "" {
		fmt.Fprintf(out, "  Title:    %s\n", job.Title)
	}
	fmt.Fprintf(out, "  URL:      %s\n", job.SourceURL)
	if job.UserID != "" {
		fmt.Fprintf(out, "  User:     %s\n", job.UserID)
	}
	fmt.Fprintf(out, "  Status:   %s\n", formatStatusLabel(job.Status))
	if progress := formatJobProgress(*job); progress != "-" {
		if msg := strings.TrimSpace(job.Progress.Message); msg != "" {
			progress += " (" + msg + ")"
		}
		fmt.Fprintf(out, "  Progress: %s\n", progress)
	}
	if job.ErrorMessage != "" {
		fmt.Fprintf(out, "  Error:    %s\n", job.ErrorMessage)
	}
	fmt.Fprintf(out, "  Created:  %s\n", formatDisplayTime(job.CreatedAt))
	fmt.Fprintf(out, "  Updated:  %s\n", formatDisplayTime(job.UpdatedAt))
	if job.VideoPath != "" {
		fmt.Fprintf(out, "  Video:    %s\n", formatArtifactPath(job.VideoPath))
	}
	if job.AudioPath != "" {
		fmt.Fprintf(out, "  Audio:    %s\n", formatArtifactPath(job.AudioPath))
	}
	printJobClips(out, job)
}
