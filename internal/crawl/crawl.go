// Package crawl runs the full pipeline for one site: discover scripts, find
// chunk loaders, fetch every chunk and recover sources from source maps.
package crawl

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"sync"
	"time"

	"chunkmap/internal/browser"
	"chunkmap/internal/config"
	"chunkmap/internal/discovery"
	"chunkmap/internal/errors"
	"chunkmap/internal/fetch"
	"chunkmap/internal/ledger"
	"chunkmap/internal/manifest"
	"chunkmap/internal/output"
	"chunkmap/internal/slogutil"
)

// Target is one site to crawl.
type Target = config.Target

// Discoverer is the browser capability the crawler needs.
type Discoverer interface {
	Discover(ctx context.Context, target *url.URL) (*browser.Discovery, error)
	Close() error
}

// LaunchFunc starts a browser session.
type LaunchFunc func(ctx context.Context, opts browser.Options, logger *slog.Logger) (Discoverer, error)

func launchChrome(ctx context.Context, opts browser.Options, logger *slog.Logger) (Discoverer, error) {
	return browser.Launch(ctx, opts, logger)
}

// Loader records one script in which a chunk loader was recognized.
type Loader struct {
	Source string `json:"source"`
	Shape  string `json:"shape"`
	Paths  int    `json:"paths"`
}

// Counts are per-run totals.
type Counts struct {
	Scripts        int `json:"scripts"`
	Chunks         int `json:"chunks"`
	Saved          int `json:"saved"`
	SourceMaps     int `json:"sourceMaps"`
	Sources        int `json:"sources"`
	SourcesSkipped int `json:"sourcesSkipped"`
	Failures       int `json:"failures"`
}

// Summary is the outcome of a crawl.
type Summary struct {
	RunID     string        `json:"runId,omitempty"`
	URL       string        `json:"url"`
	Discovery string        `json:"discovery"`
	OutputDir string        `json:"outputDir"`
	Scripts   []string      `json:"scripts"`
	Chunks    []string      `json:"chunks"`
	Loaders   []Loader      `json:"loaders"`
	Counts    Counts        `json:"counts"`
	RecordDir string        `json:"recordDir,omitempty"`
	Frames    int           `json:"frames,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Crawler runs crawls with a shared HTTP client and engine.
type Crawler struct {
	cfg    *config.Config
	client *fetch.Client
	engine *manifest.Engine
	ledger *ledger.Ledger
	logger *slog.Logger
	launch LaunchFunc
}

// New creates a crawler. led may be nil to skip run bookkeeping.
func New(cfg *config.Config, led *ledger.Ledger, logger *slog.Logger) *Crawler {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	return &Crawler{
		cfg:    cfg,
		client: fetch.NewClient(fetch.OptionsFromConfig(cfg.Fetch), logger),
		engine: manifest.NewEngine(logger),
		ledger: led,
		logger: logger,
		launch: launchChrome,
	}
}

// Close releases pooled connections.
func (c *Crawler) Close() {
	c.client.Close()
}

// Run crawls one target. Failures on individual files are logged and counted
// without stopping the run; only an unusable target, an undiscoverable page
// or context cancellation end it early.
func (c *Crawler) Run(ctx context.Context, target Target) (*Summary, error) {
	start := time.Now()

	site, err := target.Parse()
	if err != nil {
		return nil, errors.Wrap(errors.InvalidURL, "invalid target "+target.URL, err)
	}

	store, err := output.NewStore(c.cfg.Output.Dir, site, c.logger)
	if err != nil {
		return nil, err
	}

	r := &run{
		Crawler: c,
		store:   store,
		summary: &Summary{URL: site.String(), OutputDir: store.Root()},
		fetched: make(map[string]bool),
		queued:  make(map[string]bool),
	}

	if c.ledger != nil {
		lr, err := c.ledger.StartRun(site.String())
		if err != nil {
			c.logger.Warn("Ledger unavailable, continuing without it", "error", err)
		} else {
			r.runID = lr.ID
			r.summary.RunID = lr.ID
		}
	}

	c.logger.Info("Crawl started", "url", site.String(), "runId", r.runID)

	runErr := r.execute(ctx, site, target)
	r.summary.Duration = time.Since(start)
	r.finishLedger(runErr)

	if runErr != nil {
		return r.summary, runErr
	}

	c.logger.Info("Crawl finished",
		"url", site.String(),
		"scripts", r.summary.Counts.Scripts,
		"chunks", r.summary.Counts.Chunks,
		"sources", r.summary.Counts.Sources,
		"failures", r.summary.Counts.Failures,
		"duration", r.summary.Duration)
	return r.summary, nil
}

// run is the state of a single crawl.
type run struct {
	*Crawler
	store   *output.Store
	runID   string
	pageURL *url.URL

	mu      sync.Mutex
	summary *Summary
	fetched map[string]bool
	queued  map[string]bool
	chunks  []string
}

func (r *run) execute(ctx context.Context, site *url.URL, target Target) error {
	scripts, inline, err := r.discover(ctx, site, target)
	if err != nil {
		return err
	}

	keywords := r.cfg.Discovery.PriorityKeywords
	maxScripts := r.cfg.Discovery.MaxScripts
	if target.MaxScripts > 0 {
		maxScripts = target.MaxScripts
	}
	scripts = discovery.Limit(discovery.Prioritize(scripts, keywords), maxScripts)
	r.summary.Scripts = scripts
	r.summary.Counts.Scripts = len(scripts)

	for i, body := range inline {
		r.findChunks(fmt.Sprintf("inline#%d", i+1), r.pageURL, body)
	}

	for _, s := range scripts {
		r.markFetched(s)
	}
	err = r.client.GetAll(ctx, scripts, func(rawURL string, resp *fetch.Response, err error) error {
		if err != nil {
			r.fail("fetch script", rawURL, err)
			return nil
		}
		shape := r.findChunks(rawURL, resp.FinalURL, resp.Text())
		r.processFile(ctx, ledger.KindScript, resp, shape)
		return nil
	})
	if err != nil {
		return err
	}

	sort.Slice(r.summary.Loaders, func(i, j int) bool {
		return r.summary.Loaders[i].Source < r.summary.Loaders[j].Source
	})
	pending := r.pendingChunks()
	r.summary.Chunks = r.sortedChunks()
	r.summary.Counts.Chunks = len(r.summary.Chunks)
	r.logger.Info("Chunk manifest reconstructed",
		"loaders", len(r.summary.Loaders),
		"chunks", len(r.summary.Chunks),
		"toFetch", len(pending))

	return r.client.GetAll(ctx, pending, func(rawURL string, resp *fetch.Response, err error) error {
		if err != nil {
			r.fail("fetch chunk", rawURL, err)
			return nil
		}
		r.processFile(ctx, ledger.KindChunk, resp, "")
		return nil
	})
}

// discover lists candidate scripts. The page HTML is always parsed since
// bundlers often inline the runtime; the browser adds what loads
// dynamically. Either source failing alone is tolerated.
func (r *run) discover(ctx context.Context, site *url.URL, target Target) ([]string, []string, error) {
	var (
		scripts []string
		inline  []string
		mode    []string
	)

	r.pageURL = site
	resp, pageErr := r.client.Get(ctx, site.String())
	if pageErr == nil {
		r.pageURL = resp.FinalURL
		page, err := discovery.Parse(resp.FinalURL, bytes.NewReader(resp.Body))
		if err != nil {
			pageErr = err
		} else {
			scripts = page.Scripts
			inline = page.Inline
			mode = append(mode, "static")
		}
	}
	if pageErr != nil {
		r.logger.Warn("Static page discovery failed", "url", site.String(), "error", pageErr)
	}

	var browserErr error
	if r.cfg.Browser.Enabled && !target.NoBrowser {
		var found []string
		found, browserErr = r.browserDiscover(ctx, site, target)
		if browserErr == nil {
			scripts = appendNew(scripts, found)
			mode = append(mode, "browser")
		} else {
			r.logger.Warn("Browser discovery failed", "error", browserErr)
		}
	}

	if ctx.Err() != nil {
		return nil, nil, ctx.Err()
	}
	if len(mode) == 0 {
		if pageErr != nil {
			return nil, nil, pageErr
		}
		return nil, nil, browserErr
	}

	r.summary.Discovery = joinModes(mode)
	r.logger.Info("Scripts discovered", "mode", r.summary.Discovery, "scripts", len(scripts), "inline", len(inline))
	return scripts, inline, nil
}

func (r *run) browserDiscover(ctx context.Context, site *url.URL, target Target) ([]string, error) {
	opts := browser.OptionsFromConfig(r.cfg.Browser, r.cfg.Output.Dir)
	opts.RecordFrames = opts.RecordFrames || target.Record

	session, err := r.launch(ctx, opts, r.logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := session.Close(); err != nil {
			r.logger.Debug("Browser close failed", "error", err)
		}
	}()

	disc, err := session.Discover(ctx, site)
	if err != nil {
		return nil, err
	}
	r.summary.RecordDir = disc.RecordDir
	r.summary.Frames = disc.Frames
	return disc.Scripts, nil
}

// findChunks runs the engine over one script, queues the resolved chunk
// URLs and returns the loader shape, or "" when there is none.
func (r *run) findChunks(source string, base *url.URL, text string) string {
	result := r.engine.Reconstruct(text)
	if len(result.Paths) == 0 {
		return ""
	}
	resolved := manifest.Resolve(base, result.Paths)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.summary.Loaders = append(r.summary.Loaders, Loader{
		Source: source,
		Shape:  result.Shape.String(),
		Paths:  len(resolved),
	})
	for _, u := range resolved {
		if !r.queued[u] {
			r.queued[u] = true
			r.chunks = append(r.chunks, u)
		}
	}
	r.logger.Debug("Chunk loader found", "source", source, "shape", result.Shape.String(), "paths", len(resolved))
	return result.Shape.String()
}

func (r *run) markFetched(u string) {
	r.mu.Lock()
	r.fetched[u] = true
	r.mu.Unlock()
}

// pendingChunks returns chunk URLs not fetched yet and marks them fetched.
func (r *run) pendingChunks() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, u := range r.chunks {
		if !r.fetched[u] {
			r.fetched[u] = true
			out = append(out, u)
		}
	}
	return out
}

func (r *run) sortedChunks() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]string(nil), r.chunks...)
	sort.Strings(out)
	return out
}

func (r *run) fail(op, target string, err error) {
	r.mu.Lock()
	r.summary.Counts.Failures++
	r.mu.Unlock()
	r.logger.Warn("Crawl step failed", "op", op, "url", target, "error", err)
}

func (r *run) count(fn func(c *Counts)) {
	r.mu.Lock()
	fn(&r.summary.Counts)
	r.mu.Unlock()
}

func (r *run) record(kind, rawURL string, art *output.Artifact, shape string) {
	if r.ledger == nil || r.runID == "" {
		return
	}
	a := ledger.Artifact{RunID: r.runID, URL: rawURL, Kind: kind, Shape: shape}
	if art != nil {
		a.Path, a.Digest = art.Path, art.Digest
	}
	if err := r.ledger.RecordArtifact(a); err != nil {
		r.logger.Warn("Failed to record artifact", "url", rawURL, "error", err)
	}
}

func (r *run) finishLedger(runErr error) {
	if r.ledger == nil || r.runID == "" {
		return
	}
	status := ledger.StatusCompleted
	switch {
	case isCancellation(runErr):
		status = ledger.StatusCancelled
	case runErr != nil:
		status = ledger.StatusFailed
	}
	c := r.summary.Counts
	counts := ledger.Counts{
		Scripts:    c.Scripts,
		Chunks:     c.Chunks,
		SourceMaps: c.SourceMaps,
		Sources:    c.Sources,
		Failures:   c.Failures,
	}
	if err := r.ledger.FinishRun(r.runID, status, counts, runErr); err != nil {
		r.logger.Warn("Failed to finish ledger run", "error", err)
	}
}

func isCancellation(err error) bool {
	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}

func appendNew(dst, src []string) []string {
	seen := make(map[string]bool, len(dst))
	for _, s := range dst {
		seen[s] = true
	}
	for _, s := range src {
		if !seen[s] {
			seen[s] = true
			dst = append(dst, s)
		}
	}
	return dst
}

func joinModes(modes []string) string {
	out := modes[0]
	for _, m := range modes[1:] {
		out += "+" + m
	}
	return out
}
