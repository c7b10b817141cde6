package logging

import (
	"context"
	"log/slog"
	"time"
)

// Attr aliases slog.Attr so pipeline code can build attribute slices
// without importing log/slog alongside this package.
type Attr = slog.Attr

func Bool(key string, value bool) Attr { return slog.Bool(key, value) }

func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

func Float64(key string, value float64) Attr { return slog.Float64(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func Int64(key string, value int64) Attr { return slog.Int64(key, value) }

func String(key string, value string) Attr { return slog.String(key, value) }

// Alert tags a record so operators can filter for anomalies that deserve
// attention without being errors in their own right.
func Alert(value string) Attr { return slog.String(FieldAlert, value) }

// Error renders err under the conventional "error" key. A nil error logs
// as the literal "<nil>" rather than being dropped, because a log line
// that claims failure should always say what it knew.
func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

// Args adapts an attribute slice to the variadic any form slog methods take.
func Args(attrs ...Attr) []any {
	return attrsToArgs(attrs)
}

func attrsToArgs(attrs []Attr) []any {
	args := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		args = append(args, attr)
	}
	return args
}

// NewNop returns a logger that discards everything. Constructors accept it
// wherever a caller has no logging opinion.
func NewNop() *slog.Logger {
	return slog.New(nopHandler{})
}

// NewComponentLogger tags every record from the returned logger with a
// component attribute, which the console handler folds into the message
// prefix.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(String(FieldComponent, component))
}

// FieldImpact carries the user-facing consequence of a warning.
const FieldImpact = "impact"

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool { return false }

func (nopHandler) Handle(context.Context, slog.Record) error { return nil }

func (nopHandler) WithAttrs([]slog.Attr) slog.Handler { return nopHandler{} }

func (nopHandler) WithGroup(string) slog.Handler { return nopHandler{} }
