package logging_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/samirrijal/osmmap/internal/pkg/logging"
)

func TestSetup_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.Setup("warn", "json", &buf)

	logger.Info("dropped")
	logger.Warn("kept", "viewer", 3)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("expected JSON: %v", err)
	}
	if rec["msg"] != "kept" || rec["viewer"] != float64(3) {
		t.Errorf("unexpected record %v", rec)
	}
}

func TestSetup_Text(t *testing.T) {
	var buf bytes.Buffer
	logging.Setup("debug", "text", &buf)

	slog.Debug("hello", "k", "v")
	if !strings.Contains(buf.String(), "msg=hello k=v") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	if logging.ParseLevel("ERROR") != slog.LevelError {
		t.Error("expected case-insensitive match")
	}
	if logging.ParseLevel("verbose") != slog.LevelInfo {
		t.Error("expected info fallback")
	}
}
