package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLoggerStampsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Output: &buf, Level: slog.LevelDebug}).WithComponent(ComponentWorker)
	l.Info("hello", "k", "v")

	out := buf.String()
	if !strings.Contains(out, "component=worker") || !strings.Contains(out, "k=v") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestLogReportBuiltLevel(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Output: &buf, Level: slog.LevelWarn}))

	sl.LogReportBuilt(context.Background(), "series", "month:2024-03-01", 0, false)
	if buf.Len() != 0 {
		t.Fatalf("clean report should log at debug, got %s", buf.String())
	}

	sl.LogReportBuilt(context.Background(), "series", "month:2024-03-01", 2, false)
	out := buf.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "skipped_records=2") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestLogError(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Output: &buf}))
	sl.LogError(context.Background(), "fetch failed", errors.New("boom"), ComponentReport, OpRead, NewFields().WithJob("j1"))

	out := buf.String()
	for _, want := range []string{"level=ERROR", "error=boom", "job_id=j1", "operation=read"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var gotID string
	var gotLogger *Logger
	h := Middleware(Discard())(RequestIDMiddleware(func(*http.Request) string { return "req-1" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotID = RequestIDFromContext(r.Context())
			gotLogger = FromContext(r.Context())
		}),
	))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if gotID != "req-1" {
		t.Errorf("request id = %q", gotID)
	}
	if gotLogger == nil || gotLogger.Component() != ComponentApp {
		t.Errorf("unexpected logger: %+v", gotLogger)
	}
}
