package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"radarcov/pkg/config"
)

func TestInit(t *testing.T) {
	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "radarcov.log")

	// A previous run's log must be rotated away.
	if err := os.WriteFile(logPath, []byte("previous run\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	prev := slog.Default()
	defer slog.SetDefault(prev)
	defer func() { EnableTrace = false }()

	cleanup, err := Init(&config.LogConfig{Path: logPath, Level: "DEBUG", Trace: true})
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	slog.Debug("coverage debug line", "tier", 50)
	cleanup()

	if _, err := os.Stat(logPath + ".old"); os.IsNotExist(err) {
		t.Error("previous log was not rotated")
	}
	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}
	if !strings.Contains(string(content), "coverage debug line") {
		t.Errorf("debug line missing from log file: %s", content)
	}
	if !EnableTrace {
		t.Error("trace flag not applied")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"Warn", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
