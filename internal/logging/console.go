package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

// consoleHandler renders one line per record for humans:
//
//	2026-03-01T10:30:00Z INFO fusion: moment scored score=82
//
// The component attribute moves into the message prefix instead of the
// key=value tail so scanning a busy log stays bearable.
type consoleHandler struct {
	mu        sync.Mutex
	out       io.Writer
	level     *slog.LevelVar
	addSource bool
	attrs     []kv
	prefix    string
	component string
}

var consoleBufPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

func newConsoleHandler(out io.Writer, level *slog.LevelVar, addSource bool) slog.Handler {
	return &consoleHandler{out: out, level: level, addSource: addSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := h.clone()
	for _, attr := range attrs {
		clone.absorb(attr)
	}
	return clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if strings.TrimSpace(name) == "" {
		return h
	}
	clone := h.clone()
	clone.prefix = joinKey(clone.prefix, name)
	return clone
}

func (h *consoleHandler) clone() *consoleHandler {
	clone := &consoleHandler{
		out:       h.out,
		level:     h.level,
		addSource: h.addSource,
		prefix:    h.prefix,
		component: h.component,
	}
	if len(h.attrs) > 0 {
		clone.attrs = make([]kv, len(h.attrs))
		copy(clone.attrs, h.attrs)
	}
	return clone
}

// absorb flattens attr into the handler state, pulling the component
// attribute aside for the message prefix.
func (h *consoleHandler) absorb(attr slog.Attr) {
	flattenAttr(attr, h.prefix, func(pair kv) {
		if pair.key == FieldComponent && h.component == "" {
			h.component = valueText(pair.value)
			return
		}
		h.attrs = append(h.attrs, pair)
	})
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	component := h.component
	pairs := make([]kv, 0, len(h.attrs)+record.NumAttrs())
	pairs = append(pairs, h.attrs...)
	record.Attrs(func(attr slog.Attr) bool {
		flattenAttr(attr, h.prefix, func(pair kv) {
			if pair.key == FieldComponent && component == "" {
				component = valueText(pair.value)
				return
			}
			pairs = append(pairs, pair)
		})
		return true
	})

	buf := consoleBufPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer consoleBufPool.Put(buf)

	buf.WriteString(ts.UTC().Format(time.RFC3339))
	buf.WriteByte(' ')
	buf.WriteString(levelLabel(record.Level))
	buf.WriteByte(' ')
	if component != "" {
		buf.WriteString(component)
		buf.WriteString(": ")
	}
	if msg := strings.TrimSpace(record.Message); msg != "" {
		buf.WriteString(msg)
	} else {
		buf.WriteString("(no message)")
	}
	if h.addSource {
		if src := recordSource(record); src != nil {
			fmt.Fprintf(buf, " [%s:%d]", filepath.Base(src.File), src.Line)
		}
	}
	for _, pair := range pairs {
		if pair.key == "" {
			continue
		}
		buf.WriteByte(' ')
		buf.WriteString(pair.key)
		buf.WriteByte('=')
		buf.WriteString(formatValue(pair.value))
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.out.Write(buf.Bytes())
	return err
}

// recordSource resolves the record's PC to a source location; it matches
// slog.Record.Source, which needs a newer toolchain than this module targets.
func recordSource(record slog.Record) *slog.Source {
	if record.PC == 0 {
		return nil
	}
	frames := runtime.CallersFrames([]uintptr{record.PC})
	frame, _ := frames.Next()
	return &slog.Source{Function: frame.Function, File: frame.File, Line: frame.Line}
}

type kv struct {
	key   string
	value slog.Value
}

// flattenAttr expands groups depth-first into dotted keys and hands each
// leaf pair to emit.
func flattenAttr(attr slog.Attr, prefix string, emit func(kv)) {
	if attr.Equal(slog.Attr{}) {
		return
	}
	attr.Value = attr.Value.Resolve()
	if attr.Value.Kind() == slog.KindGroup {
		groupPrefix := prefix
		if attr.Key != "" {
			groupPrefix = joinKey(prefix, attr.Key)
		}
		for _, member := range attr.Value.Group() {
			flattenAttr(member, groupPrefix, emit)
		}
		return
	}
	emit(kv{key: joinKey(prefix, attr.Key), value: attr.Value})
}

func joinKey(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	default:
		return prefix + "." + key
	}
}

// valueText renders a value without quoting, for use inside the message
// prefix rather than the key=value tail.
func valueText(v slog.Value) string {
	v = v.Resolve()
	if v.Kind() == slog.KindString {
		return v.String()
	}
	if err, ok := v.Any().(error); ok {
		return err.Error()
	}
	return fmt.Sprint(v.Any())
}

func formatValue(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return quoteIfNeeded(v.String())
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return quoteIfNeeded(err.Error())
		}
		return quoteIfNeeded(fmt.Sprint(v.Any()))
	default:
		return quoteIfNeeded(v.String())
	}
}

func quoteIfNeeded(s string) string {
	if s == "" {
		return `""`
	}
	for _, r := range s {
		if r <= ' ' || r == '=' || r == '"' {
			return strconv.Quote(s)
		}
	}
	return s
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
