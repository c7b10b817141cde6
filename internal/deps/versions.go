package deps

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// Version probes an external tool for its advertised version string.
//
// The doctor command shows versions next to availability so operators can
// spot stale installs without running each tool by hand. Returns an empty
// string when the tool is missing, silent, or slow to answer; callers treat
// that as "unknown" rather than an error.
func Version(ctx context.Context, command string, args ...string) string {
	command = strings.TrimSpace(command)
	if command == "" {
		return ""
	}
	if _, err := exec.LookPath(command); err != nil {
		return ""
	}
	if len(args) == 0 {
		args = []string{"--version"}
	}

	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	output, err := exec.CommandContext(probeCtx, command, args...).Output()
	if err != nil {
		return ""
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(output)), "\n")
	return strings.TrimSpace(line)
}
