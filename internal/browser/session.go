// Package browser discovers the scripts a page loads by driving Chrome over
// the DevTools protocol.
package browser

import (
	"context"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"chunkmap/internal/config"
	"chunkmap/internal/errors"
	"chunkmap/internal/fetch"
	"chunkmap/internal/paths"
	"chunkmap/internal/slogutil"
)

// scriptSrcsJS lists the resolved src of every script element.
const scriptSrcsJS = `() => Array.from(document.querySelectorAll('script[src]'), s => s.src)`

// Options configures a Session.
type Options struct {
	Bin               string
	ControlURL        string
	Headless          bool
	NavigationTimeout time.Duration
	Settle            time.Duration
	ViewportWidth     int
	ViewportHeight    int

	// RecordFrames enables periodic screenshots under RecordRoot.
	RecordFrames  bool
	FrameInterval time.Duration
	RecordRoot    string
}

// OptionsFromConfig converts the browser config section. Recordings go
// under outputDir.
func OptionsFromConfig(c config.BrowserConfig, outputDir string) Options {
	return Options{
		Bin:               c.Bin,
		ControlURL:        c.ControlURL,
		Headless:          c.Headless,
		NavigationTimeout: c.NavigationTimeout(),
		Settle:            c.Settle(),
		ViewportWidth:     c.ViewportWidth,
		ViewportHeight:    c.ViewportHeight,
		RecordFrames:      c.RecordFrames,
		FrameInterval:     c.FrameInterval(),
		RecordRoot:        outputDir,
	}
}

// Discovery is what a browser visit observed.
type Discovery struct {
	URL string `json:"url"`
	// Scripts holds DOM script sources followed by any other JavaScript the
	// page fetched, deduplicated.
	Scripts   []string `json:"scripts"`
	Frames    int      `json:"frames,omitempty"`
	RecordDir string   `json:"recordDir,omitempty"`
}

// Session owns one Chrome connection.
type Session struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	opts     Options
	logger   *slog.Logger
}

// Launch attaches to opts.ControlURL or starts a local Chrome. Failures are
// BROWSER_UNAVAILABLE errors so callers can fall back to static discovery.
func Launch(ctx context.Context, opts Options, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}

	s := &Session{opts: opts, logger: logger}

	controlURL := opts.ControlURL
	if controlURL == "" {
		l := launcher.New().Headless(opts.Headless)
		if opts.Bin != "" {
			l = l.Bin(opts.Bin)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, errors.Wrap(errors.BrowserUnavailable, "failed to launch Chrome", err)
		}
		s.launcher = l
		controlURL = u
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		s.cleanupLauncher()
		return nil, errors.Wrap(errors.BrowserUnavailable, "failed to connect to Chrome", err)
	}
	s.browser = b

	logger.Debug("Browser connected", "controlURL", controlURL, "launched", s.launcher != nil)
	return s, nil
}

// Close disconnects, and stops Chrome if this session started it.
func (s *Session) Close() error {
	var err error
	if s.browser != nil {
		err = s.browser.Close()
		s.browser = nil
	}
	s.cleanupLauncher()
	return err
}

func (s *Session) cleanupLauncher() {
	if s.launcher != nil {
		s.launcher.Cleanup()
		s.launcher = nil
	}
}

// Discover opens target in a fresh incognito context, records JavaScript
// responses while it loads, waits for the settle period and reads the
// script elements. Navigation errors are logged and tolerated since a page
// that times out has usually loaded its scripts already.
func (s *Session) Discover(ctx context.Context, target *url.URL) (*Discovery, error) {
	incognito, err := s.browser.Incognito()
	if err != nil {
		return nil, errors.Wrap(errors.BrowserUnavailable, "failed to create browser context", err)
	}
	defer func() { _ = incognito.Close() }()

	page, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, errors.Wrap(errors.BrowserUnavailable, "failed to open page", err)
	}

	if s.opts.ViewportWidth > 0 && s.opts.ViewportHeight > 0 {
		if err := (proto.EmulationSetDeviceMetricsOverride{
			Width:             s.opts.ViewportWidth,
			Height:            s.opts.ViewportHeight,
			DeviceScaleFactor: 1.0,
		}).Call(page); err != nil {
			s.logger.Warn("Failed to set viewport", "error", err)
		}
	}

	network := newScriptSet()
	watchCtx, stopWatching := context.WithCancel(ctx)
	defer stopWatching()

	if err := (proto.NetworkEnable{}).Call(page); err != nil {
		s.logger.Warn("Failed to enable network events", "error", err)
	}
	wait := page.Context(watchCtx).EachEvent(func(ev *proto.NetworkResponseReceived) {
		if ev.Response == nil {
			return
		}
		u, err := url.Parse(ev.Response.URL)
		if err != nil {
			return
		}
		if fetch.IsJavaScript(ev.Response.MIMEType, u.Path) {
			network.add(ev.Response.URL)
		}
	})
	var watchers sync.WaitGroup
	watchers.Add(1)
	go func() {
		defer watchers.Done()
		wait()
	}()

	disc := &Discovery{URL: target.String()}

	var rec *Recorder
	if s.opts.RecordFrames {
		dir := paths.RecordingDir(s.opts.RecordRoot, target, time.Now())
		capture := func(ctx context.Context) ([]byte, error) {
			return page.Context(ctx).Screenshot(false, nil)
		}
		rec, err = StartRecorder(ctx, dir, s.opts.FrameInterval, capture, s.logger)
		if err != nil {
			s.logger.Warn("Frame recording disabled", "error", err)
		} else {
			disc.RecordDir = dir
		}
	}

	navStart := time.Now()
	if err := page.Context(ctx).Timeout(s.opts.NavigationTimeout).Navigate(target.String()); err != nil {
		s.logger.Warn("Navigation did not complete", "url", target.String(), "error", err)
	} else {
		s.logger.Debug("Navigated", "url", target.String(), "duration", time.Since(navStart))
	}

	select {
	case <-ctx.Done():
	case <-time.After(s.opts.Settle):
	}

	dom := newScriptSet()
	if ctx.Err() == nil {
		res, err := page.Context(ctx).Eval(scriptSrcsJS)
		if err != nil {
			s.logger.Warn("Failed to read script elements", "error", err)
		} else {
			for _, v := range res.Value.Arr() {
				dom.add(v.Str())
			}
		}
	}

	if rec != nil {
		disc.Frames = rec.Stop()
	}
	stopWatching()
	watchers.Wait()

	disc.Scripts = mergeScripts(dom.list(), network.list())
	s.logger.Info("Browser discovery finished",
		"url", disc.URL,
		"domScripts", len(dom.list()),
		"networkScripts", len(network.list()),
		"frames", disc.Frames)

	if err := ctx.Err(); err != nil {
		return disc, err
	}
	return disc, nil
}
