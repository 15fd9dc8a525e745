package slogutil

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"chunkmap/internal/config"
)

func TestLineHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo)

	logger.Info("Fetched script", "url", "https://example.com/main.js", "bytes", 42)

	output := buf.String()
	for _, want := range []string{"[info]", "Fetched script", " | ", "url=https://example.com/main.js", "bytes=42"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
	if !strings.HasSuffix(output, "\n") {
		t.Error("each record should end with a newline")
	}
}

func TestLineHandler_NoAttrs(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, slog.LevelInfo).Info("plain")

	if strings.Contains(buf.String(), "|") {
		t.Errorf("record without attributes should have no separator, got: %s", buf.String())
	}
}

func TestLineHandler_Quoting(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, slog.LevelInfo).Info("m", "error", "connection refused", "empty", "")

	output := buf.String()
	if !strings.Contains(output, `error="connection refused"`) {
		t.Errorf("values with spaces should be quoted, got: %s", output)
	}
	if !strings.Contains(output, `empty=""`) {
		t.Errorf("empty values should be quoted, got: %s", output)
	}
}

func TestLineHandler_Levels(t *testing.T) {
	tests := []struct {
		logFunc  func(*slog.Logger)
		expected string
	}{
		{func(l *slog.Logger) { l.Debug("debug") }, "[debug]"},
		{func(l *slog.Logger) { l.Info("info") }, "[info]"},
		{func(l *slog.Logger) { l.Warn("warn") }, "[warn]"},
		{func(l *slog.Logger) { l.Error("error") }, "[error]"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			var buf bytes.Buffer
			tt.logFunc(NewLogger(&buf, slog.LevelDebug))
			if !strings.Contains(buf.String(), tt.expected) {
				t.Errorf("expected %s in output, got: %s", tt.expected, buf.String())
			}
		})
	}
}

func TestLineHandler_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelWarn)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")

	output := buf.String()
	if strings.Contains(output, "debug message") || strings.Contains(output, "info message") {
		t.Errorf("messages below warn should be filtered, got: %s", output)
	}
	if !strings.Contains(output, "warn message") {
		t.Error("warn message should be included")
	}
}

func TestLineHandler_GroupsAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo).With("run", "r1").WithGroup("fetch")

	logger.Info("done", "status", 200, slog.Group("body", "bytes", 10))

	output := buf.String()
	for _, want := range []string{"run=r1", "fetch.status=200", "fetch.body.bytes=10"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := LevelFromString(tt.input); got != tt.expected {
				t.Errorf("LevelFromString(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLevelFromVerbosity(t *testing.T) {
	tests := []struct {
		verbosity int
		quiet     bool
		expected  slog.Level
	}{
		{0, false, slog.LevelWarn},
		{1, false, slog.LevelInfo},
		{2, false, slog.LevelDebug},
		{3, false, slog.LevelDebug},
		{0, true, LevelSilent},
		{5, true, LevelSilent},
	}

	for _, tt := range tests {
		if got := LevelFromVerbosity(tt.verbosity, tt.quiet); got != tt.expected {
			t.Errorf("LevelFromVerbosity(%d, %v) = %v, want %v", tt.verbosity, tt.quiet, got, tt.expected)
		}
	}
}

func TestNewDiscardLogger(t *testing.T) {
	logger := NewDiscardLogger()
	logger.Error("error")
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Error("discard logger should not be enabled at any level")
	}
}

func TestTeeHandler(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	h1 := NewLineHandler(&buf1, &slog.HandlerOptions{Level: slog.LevelInfo})
	h2 := NewLineHandler(&buf2, &slog.HandlerOptions{Level: slog.LevelWarn})

	logger := slog.New(NewTeeHandler(h1, h2)).With("k", "v")
	logger.Info("info message")
	logger.Warn("warn message")

	if !strings.Contains(buf1.String(), "info message") || !strings.Contains(buf1.String(), "warn message") {
		t.Errorf("buf1 should contain both messages, got: %s", buf1.String())
	}
	if strings.Contains(buf2.String(), "info message") {
		t.Error("buf2 should not contain info message")
	}
	if !strings.Contains(buf2.String(), "warn message | k=v") {
		t.Errorf("buf2 should contain warn message with attrs, got: %s", buf2.String())
	}
}

func TestLoggerFactory_Console(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.DefaultConfig()
	cfg.Logging.Level = "error"

	f := NewLoggerFactory(cfg, &buf)
	defer f.Close()

	logger, err := f.CLILogger()
	if err != nil {
		t.Fatal(err)
	}
	logger.Warn("suppressed by config")
	if buf.Len() != 0 {
		t.Errorf("warn should be filtered at configured error level, got: %s", buf.String())
	}

	f.SetCLILevel(slog.LevelDebug)
	logger, err = f.CLILogger()
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug("shown by flag")
	if !strings.Contains(buf.String(), "shown by flag") {
		t.Errorf("CLI level should override config, got: %s", buf.String())
	}
}

func TestLoggerFactory_File(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "chunkmap.log")

	cfg := config.DefaultConfig()
	cfg.Logging.Level = "info"
	cfg.Logging.File = path

	f := NewLoggerFactory(cfg, &buf)
	f.SetCLILevel(LevelSilent)

	logger, err := f.ServerLogger()
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("request served")
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	if buf.Len() != 0 {
		t.Errorf("console should be silent, got: %s", buf.String())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "request served | component=api") {
		t.Errorf("log file = %q, want server record", data)
	}
}
