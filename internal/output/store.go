// Package output persists crawl artifacts under <output>/<host>/.
package output

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/blake2b"

	"chunkmap/internal/errors"
	"chunkmap/internal/paths"
	"chunkmap/internal/slogutil"
)

// Kind identifies what an artifact is.
type Kind string

const (
	KindCompiled  Kind = "compiled"
	KindSourceMap Kind = "sourcemap"
	KindSource    Kind = "source"
)

// Artifact describes one saved file.
type Artifact struct {
	Kind      Kind   `json:"kind"`
	Path      string `json:"path"`
	Digest    string `json:"digest"`
	Size      int    `json:"size"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

// Store writes artifacts for a single site. It is safe for concurrent use.
type Store struct {
	root   string
	logger *slog.Logger

	mu      sync.Mutex
	digests map[string]string
}

// NewStore creates the site directory <outputDir>/<host>.
func NewStore(outputDir string, site *url.URL, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	root := filepath.Join(outputDir, paths.HostDir(site))
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, errors.Wrap(errors.StoreFailed, "failed to create output directory", err)
	}
	return &Store{
		root:    root,
		logger:  logger,
		digests: make(map[string]string),
	}, nil
}

// Root returns the site directory.
func (s *Store) Root() string {
	return s.root
}

// SaveCompiled stores a fetched script under compiled/<url path>.
func (s *Store) SaveCompiled(u *url.URL, body []byte) (*Artifact, error) {
	return s.save(KindCompiled, filepath.Join(s.root, paths.CompiledDir), paths.URLFilePath(u), body)
}

// SaveSourceMap stores a source map under sourcemaps/<url path>. Valid JSON
// is re-indented; anything else is kept as received.
func (s *Store) SaveSourceMap(u *url.URL, body []byte) (*Artifact, error) {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body, "", "  "); err == nil {
		body = pretty.Bytes()
	}
	return s.save(KindSourceMap, filepath.Join(s.root, paths.SourceMapsDir), paths.URLFilePath(u), body)
}

// SaveSource stores a recovered original source under sources/<rel>.
func (s *Store) SaveSource(rel string, body []byte) (*Artifact, error) {
	return s.save(KindSource, filepath.Join(s.root, paths.SourcesDir), rel, body)
}

// Digest returns the hex blake2b-256 digest of data.
func Digest(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (s *Store) save(kind Kind, dir, rel string, body []byte) (*Artifact, error) {
	target, err := paths.SafeJoin(dir, rel)
	if err != nil {
		return nil, errors.Wrap(errors.StoreFailed, "refusing to write "+rel, err)
	}

	art := &Artifact{Kind: kind, Path: target, Digest: Digest(body), Size: len(body)}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isDuplicate(target, art.Digest) {
		art.Duplicate = true
		s.logger.Debug("Skipping unchanged artifact", "kind", kind, "path", target)
		return art, nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return nil, errors.Wrap(errors.StoreFailed, "failed to create directory", err)
	}
	if err := os.WriteFile(target, body, 0644); err != nil {
		return nil, errors.Wrap(errors.StoreFailed, fmt.Sprintf("failed to write %s", target), err)
	}
	s.digests[target] = art.Digest

	s.logger.Debug("Saved artifact", "kind", kind, "path", target, "bytes", len(body))
	return art, nil
}

// isDuplicate reports whether target already holds content with digest.
// Files from earlier runs are hashed on first sight.
func (s *Store) isDuplicate(target, digest string) bool {
	if known, ok := s.digests[target]; ok {
		return known == digest
	}
	existing, err := os.ReadFile(target)
	if err != nil {
		return false
	}
	s.digests[target] = Digest(existing)
	return s.digests[target] == digest
}
