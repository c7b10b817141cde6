package preflight

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"clipforge/internal/config"
)

// CheckChatSourceFromConfig evaluates chat source status from config and
// connectivity.
func CheckChatSourceFromConfig(cfg *config.Config) Result {
	const name = "Chat source"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if strings.TrimSpace(cfg.VOD.ChatSourceURL) == "" {
		return Result{Name: name, Passed: true, Detail: "Not configured"}
	}
	check := CheckChatSource(context.Background(), cfg.VOD.ChatSourceURL, cfg.VOD.SourceAPIToken)
	if check.Passed {
		return Result{Name: name, Passed: true, Detail: check.Detail}
	}
	return Result{Name: name, Detail: check.Detail}
}

// GPUProbe reports the current CUDA device snapshot.
type GPUProbe struct {
	Detected bool
	Name     string
	Driver   string
}

// ProbeGPU attempts to detect an NVIDIA GPU via nvidia-smi. WhisperX falls
// back to CPU transcription without one, so doctor output surfaces what the
// captioning stage will actually get.
func ProbeGPU() GPUProbe {
	if _, err := exec.LookPath("nvidia-smi"); err != nil {
		return GPUProbe{}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "nvidia-smi", "--query-gpu=name,driver_version", "--format=csv,noheader")
	output, err := cmd.Output()
	if err != nil {
		return GPUProbe{}
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(output)), "\n")
	if line == "" {
		return GPUProbe{}
	}
	name := line
	driver := ""
	if idx := strings.LastIndex(line, ","); idx >= 0 {
		name = strings.TrimSpace(line[:idx])
		driver = strings.TrimSpace(line[idx+1:])
	}
	if name == "" {
		name = "Unknown"
	}
	return GPUProbe{Detected: true, Name: name, Driver: driver}
}

// GPUDetail renders a display-friendly summary for status UIs.
func (p GPUProbe) GPUDetail() string {
	if !p.Detected {
		return "No CUDA device detected"
	}
	if p.Driver == "" {
		return p.Name
	}
	return fmt.Sprintf("%s (driver %s)", p.Name, p.Driver)
}
