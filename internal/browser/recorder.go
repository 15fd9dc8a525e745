package browser

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"chunkmap/internal/paths"
	"chunkmap/internal/slogutil"
)

// CaptureFunc grabs one PNG frame.
type CaptureFunc func(ctx context.Context) ([]byte, error)

// Recorder writes a numbered PNG frame every interval until stopped.
type Recorder struct {
	dir      string
	interval time.Duration
	capture  CaptureFunc
	logger   *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
	frames int
}

// StartRecorder creates dir and starts capturing. The first frame is taken
// immediately.
func StartRecorder(ctx context.Context, dir string, interval time.Duration, capture CaptureFunc, logger *slog.Logger) (*Recorder, error) {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	if interval <= 0 {
		return nil, fmt.Errorf("frame interval must be positive, got %s", interval)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create recording directory: %w", err)
	}

	rctx, cancel := context.WithCancel(ctx)
	r := &Recorder{
		dir:      dir,
		interval: interval,
		capture:  capture,
		logger:   logger,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go r.loop(rctx)
	return r, nil
}

// Dir returns the directory frames are written to.
func (r *Recorder) Dir() string {
	return r.dir
}

// Stop ends the recording and returns the number of frames written. It is
// safe to call more than once.
func (r *Recorder) Stop() int {
	r.cancel()
	<-r.done
	return r.frames
}

func (r *Recorder) loop(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		r.captureFrame(ctx)
		select {
		case <-ctx.Done():
			r.logger.Debug("Recording stopped", "dir", r.dir, "frames", r.frames)
			return
		case <-ticker.C:
		}
	}
}

func (r *Recorder) captureFrame(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	png, err := r.capture(ctx)
	if err != nil {
		if ctx.Err() == nil {
			r.logger.Debug("Frame capture failed", "error", err)
		}
		return
	}
	name := filepath.Join(r.dir, paths.FrameName(r.frames+1))
	if err := os.WriteFile(name, png, 0644); err != nil {
		r.logger.Warn("Failed to write frame", "path", name, "error", err)
		return
	}
	r.frames++
}
