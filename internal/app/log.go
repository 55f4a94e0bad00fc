package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// taHandler emits one tab-separated line per record:
//
//	<timestamp>\t<level>\t<opID>\t<message>\t<key=value ...>
//
// The operation id ties together every line written during a single CLI
// invocation, so a sync run can be followed through the shared log file.
type taHandler struct {
	w     io.Writer
	opID  string
	attrs []slog.Attr
}

func (h *taHandler) Enabled(_ context.Context, _ slog.Level) bool { return true }

func (h *taHandler) Handle(_ context.Context, r slog.Record) error {
	ts := r.Time.UTC().Format(time.RFC3339)

	_, err := fmt.Fprintf(h.w, "%s\t%s\t%s\t%s", ts, r.Level, h.opID, r.Message)
	if err != nil {
		return err
	}

	// Attrs bound via WithAttrs come before the record's own.
	for _, a := range h.attrs {
		writeAttr(h.w, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(h.w, a)
		return true
	})

	_, err = fmt.Fprintln(h.w)
	return err
}

func writeAttr(w io.Writer, a slog.Attr) {
	fmt.Fprintf(w, "\t%s=%v", a.Key, a.Value)
}

func (h *taHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &taHandler{
		w:     h.w,
		opID:  h.opID,
		attrs: append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

func (h *taHandler) WithGroup(string) slog.Handler { return h }

// newLogger opens logDir/ta.log for appending and returns a logger that
// writes to it and to stderr. The file handle is returned so the caller can
// close it when the app shuts down.
func newLogger(logDir string, opID string) (*slog.Logger, *os.File, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(logDir, "ta.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	handler := &taHandler{w: io.MultiWriter(f, os.Stderr), opID: opID}
	return slog.New(handler), f, nil
}

// slogAdapter satisfies ta.Logger on top of *slog.Logger.
type slogAdapter struct {
	l *slog.Logger
}

func (a *slogAdapter) Debug(msg string, args ...any) { a.l.Debug(msg, args...) }
func (a *slogAdapter) Info(msg string, args ...any)  { a.l.Info(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.l.Warn(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.l.Error(msg, args...) }
