package preflight

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"

	"clipforge/internal/config"
	"clipforge/internal/deps"
)

// minWorkspaceBytes is the floor for the work directory filesystem. A VOD
// download plus extracted clips routinely runs into the gigabytes.
const minWorkspaceBytes = 2 << 30

// CheckChatSource verifies that the chat source API is reachable and the
// token is accepted. It uses a 5-second timeout and a single attempt.
func CheckChatSource(ctx context.Context, baseURL, token string) Result {
	const name = "Chat source"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base+"/v1/health", nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("health check failed (%v)", err)}
	}
	if token = strings.TrimSpace(token); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("health check failed (%v)", err)}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return Result{Name: name, Passed: true, Detail: "Reachable"}
	case http.StatusUnauthorized, http.StatusForbidden:
		return Result{Name: name, Detail: "auth failed (invalid api token)"}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("health check failed (%d)", resp.StatusCode)}
	}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace verifies the filesystem holding path has at least minBytes
// available.
func CheckFreeSpace(name, path string, minBytes uint64) Result {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	free := stat.Bavail * uint64(stat.Bsize)
	if free < minBytes {
		return Result{Name: name, Detail: fmt.Sprintf("%s (%s free; %s required)", path, humanize.IBytes(free), humanize.IBytes(minBytes))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s free)", path, humanize.IBytes(free))}
}

// CheckSystemDeps evaluates all system-level dependencies for the given config.
// Both the daemon and the CLI doctor command use this to avoid duplicating
// the requirements list.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "yt-dlp",
			Command:     cfg.YtdlpBinary(),
			Description: "Required for VOD downloads",
		},
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Required for audio sampling and clip extraction",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "Required for media inspection",
		},
	}
	if cfg.Pipeline.CaptionsEnabled {
		requirements = append(requirements, deps.Requirement{
			Name:        "uvx",
			Command:     "uvx",
			Description: "Required for WhisperX-driven transcription",
		})
	}
	return deps.CheckBinaries(requirements)
}
