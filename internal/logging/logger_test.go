package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestLevelFromString(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"chatty":  slog.LevelInfo,
	}
	for in, want := range cases {
		if got := levelFromString(in).Level(); got != want {
			t.Errorf("levelFromString(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestJSONHandlerEmitsStructuredRecord(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(newJSONHandler(&buf, "info"))
	log.Debug("hidden")
	log.Info("ride_created", "ride_id", 7)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected a single JSON record, got %q: %v", buf.String(), err)
	}
	if rec["msg"] != "ride_created" || rec["ride_id"] != float64(7) {
		t.Fatalf("unexpected record %v", rec)
	}
	if _, ok := rec["source"]; !ok {
		t.Fatal("source location missing")
	}
}

func TestTextHandler(t *testing.T) {
	var buf bytes.Buffer
	slog.New(newTextHandler(&buf, "debug")).Debug("driver_online", "driver_id", 3)
	if out := buf.String(); !strings.Contains(out, "driver_online") || !strings.Contains(out, "driver_id") {
		t.Fatalf("unexpected text output %q", out)
	}
}
