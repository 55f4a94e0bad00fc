package app

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestTaHandler_Handle(t *testing.T) {
	ts := time.Date(2024, 6, 15, 14, 30, 45, 0, time.UTC)

	tests := []struct {
		name    string
		opID    string
		level   slog.Level
		message string
		attrs   []slog.Attr
		want    string
	}{
		{
			name:    "basic info message",
			opID:    "SyncNow-20240615T143045Z",
			level:   slog.LevelInfo,
			message: "snapshot uploaded",
			want:    "2024-06-15T14:30:45Z\tINFO\tSyncNow-20240615T143045Z\tsnapshot uploaded\n",
		},
		{
			name:    "debug level",
			opID:    "op-456",
			level:   slog.LevelDebug,
			message: "skipping scheduled upload",
			want:    "2024-06-15T14:30:45Z\tDEBUG\top-456\tskipping scheduled upload\n",
		},
		{
			name:    "with record attrs",
			opID:    "op-789",
			level:   slog.LevelInfo,
			message: "uploaded",
			attrs:   []slog.Attr{slog.String("provider", "gist"), slog.Int("bytes", 42)},
			want:    "2024-06-15T14:30:45Z\tINFO\top-789\tuploaded\tprovider=gist\tbytes=42\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := &taHandler{w: &buf, opID: tt.opID}

			r := slog.NewRecord(ts, tt.level, tt.message, 0)
			for _, a := range tt.attrs {
				r.AddAttrs(a)
			}

			if err := h.Handle(context.Background(), r); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}

			if got := buf.String(); got != tt.want {
				t.Errorf("Handle() output =\n%q\nwant:\n%q", got, tt.want)
			}
		})
	}
}

func TestTaHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := &taHandler{w: &buf, opID: "op-1"}

	h2 := h.WithAttrs([]slog.Attr{slog.String("component", "remote")}).(*taHandler)

	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := slog.NewRecord(ts, slog.LevelInfo, "upload", 0)
	r.AddAttrs(slog.String("key", "abc"))

	if err := h2.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, "component=remote") {
		t.Errorf("output %q missing pre-set attr", got)
	}
	if !strings.Contains(got, "key=abc") {
		t.Errorf("output %q missing record attr", got)
	}
	if strings.Index(got, "component=remote") > strings.Index(got, "key=abc") {
		t.Errorf("pre-set attrs must come before record attrs: %q", got)
	}

	// The original handler is unchanged.
	buf.Reset()
	if err := h.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if strings.Contains(buf.String(), "component=remote") {
		t.Errorf("original handler picked up attrs: %q", buf.String())
	}
}
