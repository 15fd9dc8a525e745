package crawl

import (
	"context"

	"chunkmap/internal/errors"
	"chunkmap/internal/fetch"
	"chunkmap/internal/ledger"
	"chunkmap/internal/output"
	"chunkmap/internal/sourcemap"
)

// processFile saves a fetched script and unpacks its source map, if any.
func (r *run) processFile(ctx context.Context, kind string, resp *fetch.Response, shape string) {
	var art *output.Artifact
	if r.cfg.Output.KeepCompiled {
		var err error
		art, err = r.store.SaveCompiled(resp.FinalURL, resp.Body)
		if err != nil {
			r.fail("save compiled", resp.URL, err)
		} else if !art.Duplicate {
			r.count(func(c *Counts) { c.Saved++ })
		}
	}
	r.record(kind, resp.URL, art, shape)

	ref, ok := sourcemap.FindURL(resp.Text())
	if !ok {
		return
	}
	if err := r.processSourceMap(ctx, resp, ref); err != nil {
		r.fail("source map", resp.URL, err)
	}
}

func (r *run) processSourceMap(ctx context.Context, script *fetch.Response, ref string) error {
	var (
		data   []byte
		mapURL = script.FinalURL.String() + ".map"
	)

	if sourcemap.IsInline(ref) {
		decoded, err := sourcemap.DecodeInline(ref)
		if err != nil {
			return err
		}
		data = decoded
	} else {
		u, err := sourcemap.ResolveURL(script.FinalURL, ref)
		if err != nil {
			return err
		}
		resp, err := r.client.Get(ctx, u.String())
		if err != nil {
			if errors.HasCode(err, errors.HTTPStatus) {
				return errors.Wrap(errors.NoSourceMap, "source map not published", err)
			}
			return err
		}
		data = resp.Body
		mapURL = u.String()
	}

	m, err := sourcemap.Parse(data)
	if err != nil {
		return err
	}
	r.count(func(c *Counts) { c.SourceMaps++ })

	var art *output.Artifact
	if r.cfg.Output.KeepSourceMaps {
		u, _ := sourcemap.ResolveURL(nil, mapURL)
		art, err = r.store.SaveSourceMap(u, data)
		if err != nil {
			return err
		}
	}
	r.record(ledger.KindSourceMap, mapURL, art, "")

	stats, err := sourcemap.Extract(m, func(rel string, content []byte) error {
		src, err := r.store.SaveSource(rel, content)
		if err != nil {
			return err
		}
		r.record(ledger.KindSource, mapURL+"#"+rel, src, "")
		return nil
	})
	r.count(func(c *Counts) {
		c.Sources += stats.Written
		c.SourcesSkipped += stats.Skipped()
	})
	r.logger.Debug("Source map unpacked",
		"map", mapURL,
		"written", stats.Written,
		"skipped", stats.Skipped())
	return err
}
