package slogutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"chunkmap/internal/config"
)

// LoggerFactory builds loggers from configuration and CLI flags.
// Precedence for the console level: CLI flags > logging.level > info.
// The optional log file always follows logging.level so --quiet does not
// silence it.
type LoggerFactory struct {
	config   *config.Config
	console  io.Writer
	cliLevel *slog.Level
	closers  []io.Closer
}

// NewLoggerFactory creates a factory writing console output to console.
func NewLoggerFactory(cfg *config.Config, console io.Writer) *LoggerFactory {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if console == nil {
		console = os.Stderr
	}
	return &LoggerFactory{config: cfg, console: console}
}

// SetCLILevel overrides the configured console level.
func (f *LoggerFactory) SetCLILevel(level slog.Level) {
	f.cliLevel = &level
}

// CLILogger returns the logger used by CLI commands.
func (f *LoggerFactory) CLILogger() (*slog.Logger, error) {
	return f.build()
}

// ServerLogger returns the logger used by the HTTP API.
func (f *LoggerFactory) ServerLogger() (*slog.Logger, error) {
	logger, err := f.build()
	if err != nil {
		return nil, err
	}
	return logger.With("component", "api"), nil
}

func (f *LoggerFactory) build() (*slog.Logger, error) {
	console := NewLineHandler(f.console, &slog.HandlerOptions{Level: f.consoleLevel()})

	path := f.config.Logging.File
	if path == "" {
		return slog.New(console), nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	fileLevel := LevelFromString(f.config.Logging.Level)

	var w io.WriteCloser
	if size := ParseSize(f.config.Logging.MaxSize); size > 0 {
		rf, err := OpenRotatingFile(path, size, f.config.Logging.MaxBackups)
		if err != nil {
			return nil, err
		}
		w = rf
	} else {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, err
		}
		w = file
	}
	f.closers = append(f.closers, w)

	fileHandler := NewLineHandler(w, &slog.HandlerOptions{Level: fileLevel})
	return slog.New(NewTeeHandler(console, fileHandler)), nil
}

func (f *LoggerFactory) consoleLevel() slog.Level {
	if f.cliLevel != nil {
		return *f.cliLevel
	}
	if f.config.Logging.Level != "" {
		return LevelFromString(f.config.Logging.Level)
	}
	return slog.LevelInfo
}

// Close closes all open log files.
func (f *LoggerFactory) Close() error {
	var firstErr error
	for _, c := range f.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	f.closers = nil
	return firstErr
}
