package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/askdb/askdb/internal/config"
)

func TestNewLoggerJSONCarriesServiceAttributes(t *testing.T) {
	cfg := config.Config{
		Profile:       config.ProfileTest,
		Service:       config.ServiceConfig{Name: "askdb-api"},
		Observability: config.ObservabilityConfig{LogLevel: slog.LevelInfo, LogJSON: true},
	}
	var buf bytes.Buffer
	logger, closeFn := NewLogger(cfg, &buf)
	defer closeFn()

	logger.Info("question answered", slog.Int("rows", 2))
	logger.Debug("filtered out")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("log lines = %d, output=%s", len(lines), buf.String())
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if record["service"] != "askdb-api" || record["profile"] != "test" {
		t.Fatalf("record = %#v", record)
	}
}

func TestNewLoggerTextHandler(t *testing.T) {
	cfg := config.Config{
		Service:       config.ServiceConfig{Name: "askdb"},
		Observability: config.ObservabilityConfig{LogLevel: slog.LevelDebug},
	}
	var buf bytes.Buffer
	logger, closeFn := NewLogger(cfg, &buf)
	defer closeFn()

	logger.Warn("invalid column entry", slog.String("table", "orders"))
	if !strings.Contains(buf.String(), "table=orders") {
		t.Fatalf("output = %q", buf.String())
	}
}

func TestFanoutHandlerWritesToEveryEnabledHandler(t *testing.T) {
	var debugBuf, errorBuf bytes.Buffer
	handler := &fanoutHandler{handlers: []slog.Handler{
		slog.NewTextHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&errorBuf, &slog.HandlerOptions{Level: slog.LevelError}),
	}}
	logger := slog.New(handler).With(slog.String("component", "selector"))

	logger.Info("selected tables")
	if !strings.Contains(debugBuf.String(), "component=selector") {
		t.Fatalf("debug output = %q", debugBuf.String())
	}
	if errorBuf.Len() != 0 {
		t.Fatalf("error handler should skip info records, got %q", errorBuf.String())
	}
	if !handler.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected debug to be enabled by the first handler")
	}
}

func TestObserveSelectionCountsFallbacks(t *testing.T) {
	before := testutil.ToFloat64(selectionFallbackTotal)
	ObserveSelection(3, true)
	ObserveSelection(1, false)
	if got := testutil.ToFloat64(selectionFallbackTotal); got != before+1 {
		t.Fatalf("fallback counter = %v, want %v", got, before+1)
	}
}

func TestObserveQuestionIncrementsOutcome(t *testing.T) {
	before := testutil.ToFloat64(questionsTotal.WithLabelValues(OutcomeOK))
	ObserveQuestion(OutcomeOK)
	ObserveStage("synthesize", OutcomeOK, 20*time.Millisecond)
	if got := testutil.ToFloat64(questionsTotal.WithLabelValues(OutcomeOK)); got != before+1 {
		t.Fatalf("questions counter = %v, want %v", got, before+1)
	}
}
