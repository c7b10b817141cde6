package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clipforge/internal/api"
	"clipforge/internal/config"
	"clipforge/internal/deps"
	"clipforge/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose configuration, external tools, and workspace access",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			tools := preflight.CheckSystemDeps(cmd.Context(), cfg)
			workspace := preflight.RunAll(cmd.Context(), cfg)
			gpu := preflight.ProbeGPU()

			problems := 0
			for _, status := range tools {
				if !status.Available && !status.Optional {
					problems++
				}
			}
			for _, result := range workspace {
				if !result.Passed {
					problems++
				}
			}

			if ctx.jsonMode() {
				report := doctorReport{
					ConfigPath:   ctx.configPath,
					ConfigExists: ctx.configExists,
					APIBind:      cfg.Paths.APIBind,
					Tools:        api.FromDependencies(tools),
					GPU:          gpu.GPUDetail(),
					Problems:     problems,
				}
				for _, result := range workspace {
					report.Workspace = append(report.Workspace, workspaceCheck{
						Name:   result.Name,
						Passed: result.Passed,
						Detail: result.Detail,
					})
				}
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				printDoctorReport(cmd, ctx, cfg, tools, workspace, gpu)
			}

			if problems > 0 {
				return fmt.Errorf("doctor found %d problem(s)", problems)
			}
			return nil
		},
	}
}

type doctorReport struct {
	ConfigPath   string                 `json:"configPath"`
	ConfigExists bool                   `json:"configExists"`
	APIBind      string                 `json:"apiBind,omitempty"`
	Tools        []api.DependencyStatus `json:"tools"`
	Workspace    []workspaceCheck       `json:"workspace"`
	GPU          string                 `json:"gpu,omitempty"`
	Problems     int                    `json:"problems"`
}

type workspaceCheck struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

func printDoctorReport(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, tools []deps.Status, workspace []preflight.Result, gpu preflight.GPUProbe) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	for _, line := range renderSectionHeader("Configuration", colorize) {
		fmt.Fprintln(out, line)
	}
	configDetail := ctx.configPath
	if !ctx.configExists {
		configDetail += " (defaults in use)"
	}
	fmt.Fprintln(out, renderStatusLine("Config", statusInfo, configDetail, colorize))
	apiKind := statusInfo
	apiDetail := cfg.Paths.APIBind
	if apiDetail == "" {
		apiKind = statusWarn
		apiDetail = "disabled"
	}
	fmt.Fprintln(out, renderStatusLine("API bind", apiKind, apiDetail, colorize))
	fmt.Fprintln(out)

	for _, line := range renderSectionHeader("External Tools", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, status := range tools {
		if status.Available {
			detail := "Ready (command: " + status.Command + ")"
			if version := deps.Version(cmd.Context(), status.Command); version != "" {
				detail = "Ready (" + version + ")"
			}
			fmt.Fprintln(out, renderStatusLine(status.Name, statusOK, detail, colorize))
			continue
		}
		kind := statusError
		if status.Optional {
			kind = statusWarn
		}
		detail := status.Detail
		if detail == "" {
			detail = "not available"
		}
		fmt.Fprintln(out, renderStatusLine(status.Name, kind, detail, colorize))
	}
	fmt.Fprintln(out)

	for _, line := range renderSectionHeader("Workspace", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, result := range workspace {
		kind := statusOK
		if !result.Passed {
			kind = statusError
		}
		fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
	}
	gpuKind := statusInfo
	if gpu.Detected {
		gpuKind = statusOK
	}
	fmt.Fprintln(out, renderStatusLine("GPU", gpuKind, gpu.GPUDetail(), colorize))
}
