package main

import (
	"github.com/spf13/cobra"

	"clipforge/internal/daemonrun"
)

func newDaemonRunCommand(ctx *commandContext) *cobra.Command {
	var logLevel string
	var development bool
	cmd := &cobra.Command{
		Use:          "daemon",
		Short:        "Run the clipforge daemon (internal)",
		Hidden:       true,
		Annotations:  map[string]string{"skipConfigLoad": "true"},
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:    logLevel,
				Development: development,
			})
		},
	}
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&development, "development", false, "Enable development logging")
	return cmd
}
