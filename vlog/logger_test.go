package vlog

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLoggerLevelGating(t *testing.T) {
	var buf bytes.Buffer
	l := New(LevelWarn)
	l.AddOutput(&buf)

	l.Info("vlist", "materialize", "chunk materialized", nil)
	if buf.Len() != 0 {
		t.Fatalf("expected info below warn threshold to be suppressed, got %q", buf.String())
	}

	l.Warn("vlist", "evict", "chunk evicted", map[string]any{"chunk": 3})
	if buf.Len() == 0 {
		t.Fatal("expected warn entry to be written")
	}

	var entry map[string]any
	line := strings.TrimSpace(buf.String())
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("expected valid JSON line, got error: %v", err)
	}
	if entry["level"] != "WARN" || entry["chunk"] != float64(3) {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	l.Info("vlist", "noop", "should not panic", nil)
}
