package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/IvanDeyter/EmailBot/internal/model"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"DEBUG":    slog.LevelDebug,
		"info":     slog.LevelInfo,
		"WARNING":  slog.LevelWarn,
		"CRITICAL": slog.LevelError,
		"":         slog.LevelInfo,
		"verbose":  slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLoggerWritesDailyFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	var console bytes.Buffer

	logger, closeFn, err := newLogger(model.LogConfig{Level: "INFO", Format: "json", Dir: dir}, &console)
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("cycle finished", "processed", 2)
	if err := closeFn(); err != nil {
		t.Fatal(err)
	}

	if strings.Contains(console.String(), "hidden") {
		t.Error("debug line written at INFO level")
	}
	if !strings.Contains(console.String(), `"processed":2`) {
		t.Errorf("console = %q", console.String())
	}

	matches, _ := filepath.Glob(filepath.Join(dir, "bot_*.log"))
	if len(matches) != 1 {
		t.Fatalf("log files = %v", matches)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "cycle finished") {
		t.Errorf("log file = %q", data)
	}
}
