// Package paths maps crawled URLs and source-map entries onto the output tree.
package paths

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// Output subdirectories under <output>/<host>.
const (
	CompiledDir   = "compiled"
	SourceMapsDir = "sourcemaps"
	SourcesDir    = "sources"
	RecordingsDir = "recordings"
)

// HostDir returns the directory name used for a site: its host with the
// port separator replaced so it is valid on every platform.
func HostDir(u *url.URL) string {
	host := u.Host
	if host == "" {
		host = "unknown-host"
	}
	return strings.NewReplacer(":", "_", "\\", "_", "/", "_").Replace(host)
}

// SafeJoin joins a slash-separated relative path onto root and refuses any
// result that would land outside root.
func SafeJoin(root string, rel string) (string, error) {
	cleaned := path.Clean("/" + strings.ReplaceAll(rel, "\\", "/"))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("empty path %q", rel)
	}

	// Checked lexically: the target usually does not exist yet.
	joined := filepath.Join(root, filepath.FromSlash(cleaned))
	if r, err := filepath.Rel(root, joined); err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes %s", rel, root)
	}
	return joined, nil
}

// URLFilePath returns the slash path a fetched asset is stored under:
// its URL path without the leading slash, with "index.js" for directory URLs.
// Query strings are dropped.
func URLFilePath(u *url.URL) string {
	p := path.Clean("/" + u.Path)
	if p == "/" || strings.HasSuffix(u.Path, "/") {
		p = path.Join(p, "index.js")
	}
	return strings.TrimPrefix(p, "/")
}

// RecordingDir returns <outputDir>/recordings/<host>-<unix seconds>.
func RecordingDir(outputDir string, u *url.URL, started time.Time) string {
	return filepath.Join(outputDir, RecordingsDir, fmt.Sprintf("%s-%d", HostDir(u), started.Unix()))
}

// FrameName returns the file name of the n-th recorded frame, starting at 1.
func FrameName(n int) string {
	return fmt.Sprintf("frame-%05d.png", n)
}
