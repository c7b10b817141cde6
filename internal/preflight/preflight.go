package preflight

import (
	"context"
	"strings"

	"clipforge/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is configured.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// Work directory (always checked)
	results = append(results, CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir))
	results = append(results, CheckFreeSpace("Work directory space", cfg.Paths.WorkDir, minWorkspaceBytes))

	// Clip library (when configured)
	if cfg.Paths.LibraryDir != "" {
		results = append(results, CheckDirectoryAccess("Clip library", cfg.Paths.LibraryDir))
	}

	// Chat source API
	if strings.TrimSpace(cfg.VOD.ChatSourceURL) != "" {
		results = append(results, CheckChatSource(ctx, cfg.VOD.ChatSourceURL, cfg.VOD.SourceAPIToken))
	}

	return results
}
