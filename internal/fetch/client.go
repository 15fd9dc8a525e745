// Package fetch retrieves pages, scripts and source maps over HTTP.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"chunkmap/internal/config"
	"chunkmap/internal/errors"
	"chunkmap/internal/slogutil"
)

// Options configures a Client.
type Options struct {
	UserAgent       string
	Timeout         time.Duration
	MaxBodyBytes    int64
	Concurrency     int
	AcceptEncodings []string
}

// OptionsFromConfig converts the fetch config section.
func OptionsFromConfig(c config.FetchConfig) Options {
	return Options{
		UserAgent:       c.UserAgent,
		Timeout:         c.Timeout(),
		MaxBodyBytes:    c.MaxBodyBytes,
		Concurrency:     c.Concurrency,
		AcceptEncodings: c.AcceptEncodings,
	}
}

// Response is a fully read, decoded HTTP response.
type Response struct {
	URL         string
	FinalURL    *url.URL
	StatusCode  int
	ContentType string
	Encoding    string
	Body        []byte
}

// Text returns the body as a string.
func (r *Response) Text() string {
	return string(r.Body)
}

// IsJavaScript reports whether the response looks like a script.
func (r *Response) IsJavaScript() bool {
	return IsJavaScript(r.ContentType, r.FinalURL.Path)
}

// IsJavaScript reports whether a content type or URL path denotes JavaScript.
func IsJavaScript(contentType, urlPath string) bool {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "javascript") || strings.Contains(ct, "ecmascript") {
		return true
	}
	p := strings.ToLower(urlPath)
	return strings.HasSuffix(p, ".js") || strings.HasSuffix(p, ".mjs")
}

// Client fetches URLs with content-encoding negotiation and a body limit.
type Client struct {
	http   *http.Client
	opts   Options
	logger *slog.Logger
}

// NewClient creates a client. A nil logger discards output.
func NewClient(opts Options, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.UserAgent == "" {
		opts.UserAgent = config.DefaultUserAgent
	}

	// Compression is negotiated and decoded here, not by the transport.
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DisableCompression = true

	return &Client{
		http:   &http.Client{Timeout: opts.Timeout, Transport: transport},
		opts:   opts,
		logger: logger,
	}
}

// Get fetches rawURL and returns the decoded body. Non-2xx answers are
// HTTP_STATUS errors; transport and decoding failures are FETCH_FAILED.
func (c *Client) Get(ctx context.Context, rawURL string) (*Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, errors.Wrap(errors.InvalidURL, "cannot fetch "+rawURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errors.Wrap(errors.InvalidURL, "cannot build request for "+rawURL, err)
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "*/*")
	if accept := acceptEncodingHeader(c.opts.AcceptEncodings); accept != "" {
		req.Header.Set("Accept-Encoding", accept)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.FetchFailed, "GET "+rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, errors.New(errors.HTTPStatus, fmt.Sprintf("GET %s: %s", rawURL, resp.Status)).
			WithDetails(map[string]int{"status": resp.StatusCode})
	}

	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	body, err := readBody(resp.Body, encoding, c.opts.MaxBodyBytes)
	if err != nil {
		return nil, errors.Wrap(errors.FetchFailed, "read "+rawURL, err)
	}

	c.logger.Debug("Fetched",
		"url", rawURL,
		"status", resp.StatusCode,
		"encoding", encoding,
		"bytes", len(body),
		"duration", time.Since(start))

	return &Response{
		URL:         rawURL,
		FinalURL:    resp.Request.URL,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Encoding:    encoding,
		Body:        body,
	}, nil
}

// Close releases idle keep-alive connections.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

// ResultFunc receives each fetch outcome. Returning an error cancels the
// remaining fetches.
type ResultFunc func(rawURL string, resp *Response, err error) error

// GetAll fetches urls with at most Concurrency requests in flight. fn is
// called from worker goroutines and must be safe for concurrent use.
func (c *Client) GetAll(ctx context.Context, urls []string, fn ResultFunc) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)

	for _, u := range urls {
		if gctx.Err() != nil {
			break
		}
		u := u
		g.Go(func() error {
			resp, err := c.Get(gctx, u)
			return fn(u, resp, err)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func acceptEncodingHeader(encodings []string) string {
	var parts []string
	for _, enc := range encodings {
		enc = strings.ToLower(strings.TrimSpace(enc))
		if enc != "" && enc != "identity" {
			parts = append(parts, enc)
		}
	}
	return strings.Join(parts, ", ")
}
