package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"clipforge/internal/logging"
)

var commandContext = exec.CommandContext

// Progress carries one parsed ffmpeg progress block.
type Progress struct {
	Frame   int
	FPS     float64
	Bitrate string
	Time    string
	Seconds float64
	Speed   string
}

// ProgressFunc receives progress updates while an operation runs.
type ProgressFunc func(Progress)

// RunOptions configures one ffmpeg invocation.
type RunOptions struct {
	Args            []string
	ProgressHandler ProgressFunc
	LogHandler      func(line string)
}

// Default encoding settings for re-encoded outputs.
const (
	DefaultCRF        = 18
	DefaultPreset     = "medium"
	DefaultVideoCodec = "libx264"
	DefaultAudioCodec = "aac"
)

// Executor wraps the ffmpeg binary with progress streaming.
type Executor struct {
	binary string
	logger *slog.Logger
}

// NewExecutor builds an executor for the given ffmpeg binary. An empty
// binary falls back to the PATH lookup name.
func NewExecutor(binary string, logger *slog.Logger) *Executor {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Executor{binary: binary, logger: logger.With(logging.String(logging.FieldComponent, "ffmpeg"))}
}

// Run executes ffmpeg with the given arguments and streams progress blocks
// to the handler. The machine-readable progress feed rides stderr so stdout
// stays free for filters that print there.
func (e *Executor) Run(ctx context.Context, opts RunOptions) error {
	if len(opts.Args) == 0 {
		return errors.New("no ffmpeg arguments provided")
	}

	args := []string{"-y", "-hide_banner", "-nostdin", "-loglevel", "info", "-progress", "pipe:2"}
	args = append(args, opts.Args...)

	e.logger.Debug("running ffmpeg", logging.String("args", strings.Join(args, " ")))

	cmd := commandContext(ctx, e.binary, args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		e.scanProgress(stderr, opts)
	}()
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			if opts.LogHandler != nil {
				opts.LogHandler(scanner.Text())
			}
		}
	}()
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg failed: %w", err)
	}
	return nil
}

// scanProgress reads stderr, forwarding every line to the log handler and
// accumulating `-progress` key=value lines into Progress blocks delivered
// at each progress= terminator.
func (e *Executor) scanProgress(r io.Reader, opts RunOptions) {
	scanner := bufio.NewScanner(r)
	block := Progress{}
	for scanner.Scan() {
		line := scanner.Text()
		if opts.LogHandler != nil {
			opts.LogHandler(line)
		}

		switch {
		case strings.HasPrefix(line, "frame="):
			block.Frame, _ = strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "frame=")))
		case strings.HasPrefix(line, "fps="):
			block.FPS, _ = strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(line, "fps=")), 64)
		case strings.HasPrefix(line, "bitrate="):
			block.Bitrate = strings.TrimSpace(strings.TrimPrefix(line, "bitrate="))
		case strings.HasPrefix(line, "out_time="):
			block.Time = strings.TrimSpace(strings.TrimPrefix(line, "out_time="))
			block.Seconds = parseClock(block.Time)
		case strings.HasPrefix(line, "speed="):
			block.Speed = strings.TrimSpace(strings.TrimPrefix(line, "speed="))
		case strings.HasPrefix(line, "progress="):
			if opts.ProgressHandler != nil && (block.Frame > 0 || block.Seconds > 0) {
				opts.ProgressHandler(block)
			}
			block = Progress{}
		}
	}
}

// parseClock converts an ffmpeg HH:MM:SS.frac clock into seconds. Malformed
// input yields 0.
func parseClock(clock string) float64 {
	parts := strings.Split(strings.TrimSpace(clock), ":")
	if len(parts) != 3 {
		return 0
	}
	hours, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0
	}
	minutes, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0
	}
	seconds, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0
	}
	return hours*3600 + minutes*60 + seconds
}

// formatSeconds renders a seconds offset the way ffmpeg CLI flags expect.
func formatSeconds(s float64) string {
	if s < 0 {
		s = 0
	}
	return strconv.FormatFloat(s, 'f', 3, 64)
}
