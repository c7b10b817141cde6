package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"clipforge/internal/notifications"
)

func newNotifyCommand(ctx *commandContext) *cobra.Command {
	notifyCmd := &cobra.Command{
		Use:   "notify",
		Short: "Notification helpers",
	}

	notifyCmd.AddCommand(newNotifyTestCommand(ctx))
	return notifyCmd
}

func newNotifyTestCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Send a test notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			// Route through the daemon when one is up so the test exercises
			// the same notifier the pipeline uses.
			if client, clientErr := ctx.apiClient(); clientErr == nil {
				if client.Health(cmd.Context()) == nil {
					resp, err := client.TestNotification(cmd.Context())
					if err != nil {
						return err
					}
					return printNotifyResult(cmd, ctx, resp.Sent, resp.Message)
				}
			}

			if strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
				return printNotifyResult(cmd, ctx, false, "ntfy topic not configured")
			}
			service := notifications.NewService(cfg)
			if err := service.TestNotification(cmd.Context()); err != nil {
				return fmt.Errorf("send test notification: %w", err)
			}
			return printNotifyResult(cmd, ctx, true, "test notification sent")
		},
	}
}

func printNotifyResult(cmd *cobra.Command, ctx *commandContext, sent bool, message string) error {
	if ctx.jsonMode() {
		return writeJSON(cmd, map[string]any{"sent": sent, "message": message})
	}
	if message != "" {
		fmt.Fprintln(cmd.OutOrStdout(), message)
		return nil
	}
	if sent {
		fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent")
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "Notification not sent")
	}
	return nil
}
