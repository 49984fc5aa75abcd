package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settle.log")
	log, err := New(Config{Level: "debug", Encoding: "json", OutputPath: path})
	if err != nil {
		t.Fatalf("building logger: %v", err)
	}

	log.Info("task assigned")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, `"msg":"task assigned"`) {
		t.Errorf("expected JSON message in log, got %q", out)
	}
	if !strings.Contains(out, `"level":"INFO"`) {
		t.Errorf("expected capital level in log, got %q", out)
	}
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settle.log")
	log, err := New(Config{Level: "chatty", Encoding: "json", OutputPath: path})
	if err != nil {
		t.Fatalf("building logger: %v", err)
	}

	log.Debug("hidden")
	log.Info("shown")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if strings.Contains(string(data), "hidden") {
		t.Error("debug message should be filtered at info level")
	}
	if !strings.Contains(string(data), "shown") {
		t.Error("info message should be written")
	}
}
