// clipforged runs the clip-generation daemon: it watches the job queue,
// drives the pipeline, and serves the HTTP control API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"clipforge/internal/config"
	"clipforge/internal/daemonrun"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: ~/.config/clipforge/config.toml)")
	logLevel := flag.String("log-level", "", "override log level (debug, info, warn, error)")
	development := flag.Bool("development", false, "enable development logging")
	flag.Parse()

	// A local .env can carry the CLIPFORGE_* secret overrides.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warn: load .env: %v\n", err)
	}

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{
		LogLevel:    *logLevel,
		Development: *development,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "clipforged: %v\n", err)
		os.Exit(1)
	}
}
