package zaplog

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerForwardsFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := New(zap.New(core))

	logger.Debug("drain start", "listener", "command")
	logger.Info("drain done", "listener", "command", "processed", 3)
	logger.Warn("payload rejected", "event_id", int64(9))
	logger.Error("drain failed", "err", "boom")

	entries := logs.All()
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}
	if entries[0].Message != "drain start" {
		t.Fatalf("unexpected message: %s", entries[0].Message)
	}
	if got := entries[1].ContextMap()["processed"]; got != int64(3) {
		t.Fatalf("unexpected processed field: %v", got)
	}
	levels := []string{"debug", "info", "warn", "error"}
	for i, entry := range entries {
		if entry.Level.String() != levels[i] {
			t.Fatalf("expected level %s, got %s", levels[i], entry.Level)
		}
	}
}

func TestNewNilLoggerIsSafe(t *testing.T) {
	logger := New(nil)
	logger.Info("ignored")
}
