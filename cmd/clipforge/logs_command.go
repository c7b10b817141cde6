package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"clipforge/internal/logging"
	"clipforge/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		follow bool
		lines  int
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show daemon log output",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logPath := logging.FilePath(cfg)
			out := cmd.OutOrStdout()

			tail, offset, err := logs.Tail(logPath, lines)
			if err != nil {
				return err
			}
			for _, line := range tail {
				fmt.Fprintln(out, line)
			}
			if !follow {
				if len(tail) == 0 {
					fmt.Fprintln(out, "No log entries available")
				}
				return nil
			}

			err = logs.Follow(cmd.Context(), logPath, offset, func(line string) error {
				fmt.Fprintln(out, line)
				return nil
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Stream new log lines until interrupted")
	cmd.Flags().IntVarP(&lines, "lines", "n", 10, "Number of trailing lines to show (0 for all)")
	return cmd
}
