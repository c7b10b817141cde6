package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"clipforge/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the ClipForge configuration file",
	}

	configCmd.AddCommand(newConfigInitCommand(ctx))
	configCmd.AddCommand(newConfigShowCommand(ctx))
	configCmd.AddCommand(newConfigValidateCommand(ctx))

	return configCmd
}

func newConfigInitCommand(ctx *commandContext) *cobra.Command {
	var (
		targetPath string
		overwrite  bool
	)

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := strings.TrimSpace(targetPath)
			if path == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return err
				}
				path = defaultPath
			}
			expanded, err := config.ExpandPath(path)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
				return fmt.Errorf("create config directory: %w", err)
			}
			if !overwrite {
				if _, err := os.Stat(expanded); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", expanded)
				}
			}
			if err := config.CreateSample(expanded); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n", expanded)
			fmt.Fprintln(cmd.OutOrStdout(), "Edit the file to set vod.chat_source_url and notifications.ntfy_topic to enable chat signals and push notifications.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination path for the sample config")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing config file")
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	var revealSecrets bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			display := *cfg
			if !revealSecrets {
				if display.Paths.APIToken != "" {
					display.Paths.APIToken = "REDACTED"
				}
				if display.VOD.SourceAPIToken != "" {
					display.VOD.SourceAPIToken = "REDACTED"
				}
			}

			if ctx.jsonMode() {
				return writeJSON(cmd, display)
			}

			encoded, err := toml.Marshal(display)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", ctx.configPath)
			_, err = cmd.OutOrStdout().Write(encoded)
			return err
		},
	}

	cmd.Flags().BoolVar(&revealSecrets, "reveal-secrets", false, "Show API tokens instead of redacting them")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := ctx.ensureConfig(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", ctx.configPath)
			if !ctx.configExists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}
