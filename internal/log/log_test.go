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
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" WARN ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func newBufferLogger(buf *bytes.Buffer, component string) *Logger {
	return New(Config{
		Component: component,
		Handler:   slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	})
}

func TestLoggerStampsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf, ComponentLedger)
	l.InfoContext(context.Background(), "Transaction appended", FieldTransactionID, "7")

	out := buf.String()
	if !strings.Contains(out, "component=ledger") || !strings.Contains(out, "transaction_id=7") {
		t.Fatalf("unexpected log line: %s", out)
	}
}

func TestLoggerStampsComponentOnce(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf, ComponentApp).WithComponent(ComponentRollup).With(FieldVersion, 3)
	l.Warn("View cache read failed")
	l.ErrorContext(context.Background(), "Ledger snapshot read failed")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", buf.String())
	}
	for _, line := range lines {
		if n := strings.Count(line, "component="); n != 1 {
			t.Errorf("component appears %d times in %s", n, line)
		}
		if !strings.Contains(line, "component=rollup") {
			t.Errorf("missing component=rollup in %s", line)
		}
	}
}

func TestStructuredLoggerTransactionAppended(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(newBufferLogger(&buf, ComponentApp))
	sl.LogTransactionAppended(context.Background(), "3", "2025-01-05", "100", "Budget", "OPEX")

	out := buf.String()
	for _, want := range []string{"operation=append", "category=Budget", "type=OPEX", "amount=100"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %s", want, out)
		}
	}
}

func TestStructuredLoggerError(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(newBufferLogger(&buf, ComponentApp))
	sl.LogError(context.Background(), "Request failed", errors.New("disk gone"), ComponentHTTP, OpList,
		NewFields().WithRequestID("req_1"))

	out := buf.String()
	if n := strings.Count(out, "component="); n != 1 {
		t.Errorf("component appears %d times in %s", n, out)
	}
	for _, want := range []string{"level=ERROR", "component=http", "operation=list", "request_id=req_1", `error="disk gone"`} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %s", want, out)
		}
	}
}

func TestMiddlewareInjectsLogger(t *testing.T) {
	var buf bytes.Buffer
	base := newBufferLogger(&buf, ComponentHTTP)

	var got *Logger
	h := Middleware(base, func(*http.Request) []any { return []any{FieldRequestID, "req-1"} })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = FromContext(r.Context())
			got.Info("handled")
		}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got == nil || got.Component() != ComponentHTTP {
		t.Fatalf("expected http component logger, got %+v", got)
	}
	if !strings.Contains(buf.String(), "request_id=req-1") {
		t.Fatalf("request id not logged: %s", buf.String())
	}
}

func TestMiddlewareWithoutFieldsKeepsLogger(t *testing.T) {
	base := New(DefaultConfig())
	var got *Logger
	Middleware(base, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	})).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got != base {
		t.Fatal("expected the base logger in context")
	}
}

func TestFromContextDefault(t *testing.T) {
	if l := FromContext(context.Background()); l.Component() != "unknown" {
		t.Fatalf("unexpected default component %q", l.Component())
	}
}
