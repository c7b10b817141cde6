package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"clipforge/internal/config"
)

// logFileName is the daemon log inside Paths.LogDir. The CLI tails this
// same file, so the name lives here rather than in each caller.
const logFileName = "clipforge.log"

// FilePath returns the daemon log file location for the configuration.
func FilePath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.LogDir, logFileName)
}

// Options describes logger construction parameters. Outputs mixes the
// sentinels "stdout" and "stderr" with file paths; every listed sink
// receives the full stream.
type Options struct {
	Level       string
	Format      string
	Outputs     []string
	Development bool
}

var levelNames = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// levelFor maps a config string to a slog level, defaulting to info so a
// typo in a config file cannot silence the daemon.
func levelFor(name string) slog.Level {
	if lvl, ok := levelNames[strings.ToLower(strings.TrimSpace(name))]; ok {
		return lvl
	}
	return slog.LevelInfo
}

// New constructs a slog logger from options. Formats are "console"
// (the default, one line per record) and "json".
func New(opts Options) (*slog.Logger, error) {
	level := new(slog.LevelVar)
	level.Set(levelFor(opts.Level))

	sink, err := combineOutputs(opts.Outputs)
	if err != nil {
		return nil, err
	}

	// Caller locations only matter when someone is digging; info-level
	// production logs stay lean.
	addSource := opts.Development || level.Level() <= slog.LevelDebug

	switch format := strings.ToLower(strings.TrimSpace(opts.Format)); format {
	case "", "console":
		return slog.New(newConsoleHandler(sink, level, addSource)), nil
	case "json":
		return slog.New(newJSONHandler(sink, level, addSource)), nil
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}
}

// NewFromConfig builds the daemon logger: everything to stdout/stderr and,
// when a log directory is configured, mirrored into the daemon log file.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{})
	}

	outputs := []string{"stdout"}
	if cfg.Paths.LogDir != "" {
		if err := os.MkdirAll(cfg.Paths.LogDir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure log directory: %w", err)
		}
		outputs = append(outputs, FilePath(cfg))
	}

	return New(Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Outputs: outputs,
	})
}

// combineOutputs resolves each named sink once and fans writes out to all
// of them. An empty list falls back to stdout.
func combineOutputs(outputs []string) (io.Writer, error) {
	seen := make(map[string]struct{}, len(outputs))
	writers := make([]io.Writer, 0, len(outputs))

	for _, name := range outputs {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		w, err := resolveOutput(name)
		if err != nil {
			return nil, err
		}
		writers = append(writers, w)
	}

	switch len(writers) {
	case 0:
		return os.Stdout, nil
	case 1:
		return writers[0], nil
	default:
		return io.MultiWriter(writers...), nil
	}
}

func resolveOutput(name string) (io.Writer, error) {
	switch name {
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}
	if dir := filepath.Dir(name); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory for %s: %w", name, err)
		}
	}
	file, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", name, err)
	}
	return file, nil
}

// newJSONHandler emits machine-readable records with the flat key names
// log shippers expect: ts, level, msg.
func newJSONHandler(w io.Writer, level *slog.LevelVar, addSource bool) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: addSource,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.TimeKey:
				attr.Key = "ts"
				if attr.Value.Kind() == slog.KindTime {
					attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(time.RFC3339))
				}
			case slog.LevelKey:
				attr.Key = "level"
				attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
			case slog.MessageKey:
				attr.Key = "msg"
			case slog.SourceKey:
				if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
					attr.Value = slog.StringValue(fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
				}
			}
			return attr
		},
	})
}
