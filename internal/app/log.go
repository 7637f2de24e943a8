package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

const requestIDKey = "request_id"

// runHandler writes one tab-separated line per record:
//
//	<timestamp>\t<level>\t<runID>\t<command>\t<requestID>\t<message>\t<key=value ...>
//
// The request id comes from a "request_id" attribute and is "-" when absent,
// so every line carries the same leading columns.
type runHandler struct {
	mu      *sync.Mutex
	w       io.Writer
	level   slog.Leveler
	runID   string
	command string
	reqID   string
	prefix  string
	attrs   []slog.Attr
}

func newRunHandler(w io.Writer, level slog.Leveler, run *Run) *runHandler {
	if level == nil {
		level = slog.LevelDebug
	}
	return &runHandler{mu: &sync.Mutex{}, w: w, level: level, runID: run.ID, command: run.Command}
}

func (h *runHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

func (h *runHandler) Handle(_ context.Context, r slog.Record) error {
	reqID := h.reqID
	var rest []slog.Attr
	r.Attrs(func(a slog.Attr) bool {
		if h.prefix == "" && a.Key == requestIDKey {
			reqID = a.Value.Resolve().String()
			return true
		}
		rest = append(rest, a)
		return true
	})

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s\t%s\t%s\t%s\t%s\t%s",
		r.Time.UTC().Format("2006-01-02T15:04:05.000Z"),
		r.Level.String(),
		h.runID,
		column(h.command),
		column(reqID),
		r.Message)
	for _, a := range h.attrs {
		writeAttr(&buf, "", a)
	}
	for _, a := range rest {
		writeAttr(&buf, h.prefix, a)
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func (h *runHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := *h
	h2.attrs = append([]slog.Attr{}, h.attrs...)
	for _, a := range attrs {
		if h.prefix == "" && a.Key == requestIDKey {
			h2.reqID = a.Value.Resolve().String()
			continue
		}
		a.Key = h.prefix + a.Key
		h2.attrs = append(h2.attrs, a)
	}
	return &h2
}

func (h *runHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.prefix = h.prefix + name + "."
	return &h2
}

func column(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func writeAttr(buf *bytes.Buffer, prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p += a.Key + "."
		}
		for _, ga := range v.Group() {
			writeAttr(buf, p, ga)
		}
		return
	}
	if a.Key == "" {
		return
	}
	s := v.String()
	if strings.ContainsAny(s, " \t\n\"=") {
		s = strconv.Quote(s)
	}
	fmt.Fprintf(buf, "\t%s%s=%s", prefix, a.Key, s)
}

// newLogger creates a structured logger that writes to both logDir/pidvault.log
// and stderr. A non-nil w replaces both. It returns the open log file, if any,
// for cleanup.
func newLogger(logDir string, run *Run, w io.Writer) (*slog.Logger, *os.File, error) {
	if w != nil {
		return slog.New(newRunHandler(w, nil, run)), nil, nil
	}

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}

	logPath := filepath.Join(logDir, "pidvault.log")
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	return slog.New(newRunHandler(io.MultiWriter(f, os.Stderr), nil, run)), f, nil
}

// slogAdapter wraps *slog.Logger to satisfy the docs.Logger interface.
type slogAdapter struct {
	l *slog.Logger
}

func (a *slogAdapter) Debug(msg string, args ...any) { a.l.Debug(msg, args...) }
func (a *slogAdapter) Info(msg string, args ...any)  { a.l.Info(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.l.Warn(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.l.Error(msg, args...) }
