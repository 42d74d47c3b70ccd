package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"Error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSetupText(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("warn", "text", &buf)

	logger.Info("hidden")
	logger.Warn("shown", "key", "inventory")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line written at warn level: %q", out)
	}
	if !strings.Contains(out, "msg=shown") || !strings.Contains(out, "app=envios") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestSetupJSON(t *testing.T) {
	var buf bytes.Buffer
	Setup("debug", "JSON", &buf).Debug("fetch", "count", 3)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if line["msg"] != "fetch" || line["count"] != float64(3) {
		t.Errorf("line = %v", line)
	}
}
