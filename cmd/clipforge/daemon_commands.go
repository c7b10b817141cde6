package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"clipforge/internal/api"
	"clipforge/internal/daemonctl"
)

const (
	stopGracePeriod  = 5 * time.Second
	startWaitTimeout = 10 * time.Second
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	var startLogLevel string
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the clipforge daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.EnsureStarted(
				cmd.Context(),
				client,
				exe,
				daemonLaunchOptions(ctx, startLogLevel),
				startWaitTimeout,
			)
			if err != nil {
				return err
			}

			if result.Launched {
				fmt.Fprintln(stdout, "Daemon not running, launching...")
			}
			switch result.State {
			case daemonctl.StartStateStarted:
				fmt.Fprintln(stdout, "Daemon started")
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintln(stdout, "Daemon already running")
			}
			return nil
		},
	}
	startCmd.Flags().StringVar(&startLogLevel, "log-level", "", "Override daemon log level (debug, info, warn, error)")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the clipforge daemon (terminates the process)",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			result, err := daemonctl.StopAndTerminate(cmd.Context(), client, ctx.configValue(), stopGracePeriod)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.PID > 0 {
				fmt.Fprintf(stdout, "Stopping daemon process (pid %d)...\n", result.PID)
			}
			if result.ForcedKill {
				fmt.Fprintln(stdout, "Daemon did not exit gracefully; sent SIGKILL")
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	var restartLogLevel string
	restartCmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the clipforge daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.Restart(
				cmd.Context(),
				client,
				ctx.configValue(),
				exe,
				daemonLaunchOptions(ctx, restartLogLevel),
				stopGracePeriod,
				startWaitTimeout,
			)
			if err != nil {
				return err
			}

			if result.WasRunning {
				if result.Stop.PID > 0 {
					fmt.Fprintf(stdout, "Stopping daemon process (pid %d)...\n", result.Stop.PID)
				}
				fmt.Fprintln(stdout, "Daemon stopped")
			}
			fmt.Fprintln(stdout, "Daemon restarted")
			return nil
		},
	}
	restartCmd.Flags().StringVar(&restartLogLevel, "log-level", "", "Override daemon log level (debug, info, warn, error)")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show system and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			snapshot, err := daemonctl.BuildStatusSnapshot(cmd.Context(), client, cfg)
			if err != nil {
				return err
			}

			systemLines := daemonctl.BuildSystemChecks(cfg, snapshot.Running)
			workspaceLines := daemonctl.BuildWorkspaceChecks(cfg)
			summary := daemonctl.BuildDependencySummary(snapshot.Dependencies)

			if ctx.jsonMode() {
				return writeJSON(cmd, statusReport{
					Daemon:            *snapshot,
					System:            systemLines,
					Workspace:         workspaceLines,
					DependencySummary: summary,
				})
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			for _, line := range renderSectionHeader("System Status", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range systemLines {
				fmt.Fprintln(stdout, renderStatusLine(line.Label, statusKindFromSeverity(line.Severity), line.Detail, colorize))
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Dependencies", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range dependencyLines(snapshot.Dependencies, summary, colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Workspace Paths", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range workspaceLines {
				fmt.Fprintln(stdout, renderStatusLine(line.Label, statusKindFromSeverity(line.Severity), line.Detail, colorize))
			}

			fmt.Fprintln(stdout)
			for _, line := range renderSectionHeader("Queue Status", colorize) {
				fmt.Fprintln(stdout, line)
			}
			rows := buildQueueStatusRows(snapshot.Workflow.QueueStats)
			if len(rows) == 0 {
				fmt.Fprintln(stdout, "Queue is empty")
				return nil
			}
			fmt.Fprint(stdout, renderTable([]tableColumn{{Name: "Status"}, {Name: "Count", Right: true}}, rows))
			return nil
		},
	}

	return []*cobra.Command{startCmd, stopCmd, restartCmd, statusCmd}
}

// statusReport is the JSON shape of `clipforge status --json`.
type statusReport struct {
	Daemon            api.DaemonStatus      `json:"daemon"`
	System            []api.StatusLine      `json:"system"`
	Workspace         []api.StatusLine      `json:"workspace"`
	DependencySummary api.DependencySummary `json:"dependencySummary"`
}

func dependencyLines(deps []api.DependencyStatus, summary api.DependencySummary, colorize bool) []string {
	lines := make([]string, 0, len(deps)+2)
	lines = append(lines, renderStatusLine("Summary", statusKindFromSeverity(summary.Severity), summary.Detail, colorize))
	missing := make([]string, 0)
	for _, dep := range deps {
		if dep.Available {
			message := "Ready"
			if dep.Command != "" {
				message = fmt.Sprintf("Ready (command: %s)", dep.Command)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}

		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
		missing = append(missing, dep.Name)
	}
	if len(missing) > 0 {
		lines = append(lines, renderStatusLine("Missing dependencies", statusWarn, fmt.Sprintf("%s (see README.md for install steps)", strings.Join(missing, ", ")), colorize))
	}
	return lines
}

func daemonExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	return exe, nil
}

func daemonLaunchOptions(ctx *commandContext, logLevel string) daemonctl.LaunchOptions {
	opts := daemonctl.LaunchOptions{LogLevel: strings.TrimSpace(logLevel)}
	if ctx.configFlag != nil {
		if path := strings.TrimSpace(*ctx.configFlag); path != "" {
			opts.ConfigPath = path
		}
	}
	return opts
}
