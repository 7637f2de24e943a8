package app

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func testRun(id, command string) *Run {
	return &Run{ID: id, Command: command}
}

func TestRunHandler_Handle(t *testing.T) {
	ts := time.Date(2024, 6, 15, 14, 30, 45, 120*int(time.Millisecond), time.UTC)

	tests := []struct {
		name    string
		run     *Run
		level   slog.Level
		message string
		attrs   []slog.Attr
		want    string
	}{
		{
			name:    "no request",
			run:     testRun("run-123", "gc"),
			level:   slog.LevelInfo,
			message: "orphans found",
			want:    "2024-06-15T14:30:45.120Z\tINFO\trun-123\tgc\t-\torphans found\n",
		},
		{
			name:    "request id becomes a column",
			run:     testRun("run-456", "serve"),
			level:   slog.LevelInfo,
			message: "http request",
			attrs:   []slog.Attr{slog.String("method", "POST"), slog.String("request_id", "host/abc-000001"), slog.Int("status", 200)},
			want:    "2024-06-15T14:30:45.120Z\tINFO\trun-456\tserve\thost/abc-000001\thttp request\tmethod=POST\tstatus=200\n",
		},
		{
			name:    "values with spaces are quoted",
			run:     testRun("run-789", "serve"),
			level:   slog.LevelWarn,
			message: "cleanup of aborted upload failed",
			attrs:   []slog.Attr{slog.String("id", "1705314600000-a.pdf"), slog.String("error", "disk full")},
			want:    "2024-06-15T14:30:45.120Z\tWARN\trun-789\tserve\t-\tcleanup of aborted upload failed\tid=1705314600000-a.pdf\terror=\"disk full\"\n",
		},
		{
			name:    "missing command",
			run:     testRun("run-0", ""),
			level:   slog.LevelDebug,
			message: "file part stored",
			want:    "2024-06-15T14:30:45.120Z\tDEBUG\trun-0\t-\t-\tfile part stored\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := newRunHandler(&buf, nil, tt.run)

			r := slog.NewRecord(ts, tt.level, tt.message, 0)
			r.AddAttrs(tt.attrs...)

			if err := h.Handle(context.Background(), r); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}
			if got := buf.String(); got != tt.want {
				t.Errorf("Handle() output =\n%q\nwant:\n%q", got, tt.want)
			}
		})
	}
}

func TestRunHandler_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	base := newRunHandler(&buf, nil, testRun("run-1", "serve"))

	h := base.WithAttrs([]slog.Attr{slog.String("request_id", "r-9"), slog.String("component", "metastore")}).
		WithGroup("store").
		WithAttrs([]slog.Attr{slog.String("type", "json")})

	r := slog.NewRecord(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), slog.LevelInfo, "saved", 0)
	r.AddAttrs(slog.String("path", "metadata.json"), slog.Group("stats", slog.Int("records", 3)))
	if err := h.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	want := "2024-01-01T00:00:00.000Z\tINFO\trun-1\tserve\tr-9\tsaved" +
		"\tcomponent=metastore\tstore.type=json\tstore.path=metadata.json\tstore.stats.records=3\n"
	if got := buf.String(); got != want {
		t.Errorf("output =\n%q\nwant:\n%q", got, want)
	}
	if len(base.attrs) != 0 || base.reqID != "" {
		t.Error("base handler modified by WithAttrs")
	}
}

func TestRunHandler_Enabled(t *testing.T) {
	h := newRunHandler(nil, slog.LevelInfo, testRun("r", "gc"))
	tests := map[slog.Level]bool{
		slog.LevelDebug: false,
		slog.LevelInfo:  true,
		slog.LevelWarn:  true,
		slog.LevelError: true,
	}
	for level, want := range tests {
		if got := h.Enabled(context.Background(), level); got != want {
			t.Errorf("Enabled(%v) = %v, want %v", level, got, want)
		}
	}
	if !newRunHandler(nil, nil, testRun("r", "gc")).Enabled(context.Background(), slog.LevelDebug) {
		t.Error("default handler drops debug records")
	}
}

func TestRunHandler_ConcurrentLinesStayWhole(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newRunHandler(&buf, nil, testRun("run-c", "serve")))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			logger.Info("http request", "request_id", "req", "n", i)
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 20 {
		t.Fatalf("got %d lines, want 20", len(lines))
	}
	for _, l := range lines {
		if !strings.Contains(l, "\trun-c\tserve\treq\thttp request\tn=") {
			t.Errorf("malformed line %q", l)
		}
	}
}

func TestNewLogger(t *testing.T) {
	t.Run("writes to log file", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "log")

		logger, f, err := newLogger(dir, testRun("run-x", "files list"), nil)
		if err != nil {
			t.Fatalf("newLogger() error = %v", err)
		}
		defer f.Close()

		logger.Info("hello", "k", "v")

		data, err := os.ReadFile(filepath.Join(dir, "pidvault.log"))
		if err != nil {
			t.Fatalf("reading log file: %v", err)
		}
		if !strings.Contains(string(data), "\trun-x\tfiles list\t-\thello\tk=v") {
			t.Errorf("log file = %q", data)
		}
	})

	t.Run("custom writer skips the file", func(t *testing.T) {
		var buf bytes.Buffer
		dir := filepath.Join(t.TempDir(), "log")

		logger, f, err := newLogger(dir, testRun("run-y", "gc"), &buf)
		if err != nil {
			t.Fatalf("newLogger() error = %v", err)
		}
		if f != nil {
			t.Error("expected no log file with a custom writer")
		}
		(&slogAdapter{l: logger}).Error("boom")

		if !strings.Contains(buf.String(), "\tERROR\trun-y\tgc\t-\tboom") {
			t.Errorf("output = %q", buf.String())
		}
		if _, err := os.Stat(dir); !os.IsNotExist(err) {
			t.Errorf("log dir created with custom writer")
		}
	})
}
