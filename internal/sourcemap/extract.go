package sourcemap

import (
	"regexp"
	"strings"
)

// WriteFunc stores one recovered source at a cleaned relative path.
type WriteFunc func(relPath string, content []byte) error

// Stats counts the outcome of an extraction.
type Stats struct {
	Written    int `json:"written"`
	NoContent  int `json:"noContent"`
	BadPath    int `json:"badPath"`
	Duplicates int `json:"duplicates"`
}

// Skipped is the number of sources that were not written.
func (s Stats) Skipped() int {
	return s.NoContent + s.BadPath + s.Duplicates
}

// Extract writes every source that carries embedded content. Sources without
// content, with an empty cleaned path, or colliding with an earlier path are
// skipped and counted. The first write error stops the extraction.
func Extract(m *Map, write WriteFunc) (Stats, error) {
	var stats Stats
	seen := make(map[string]bool)

	for i, src := range m.Sources {
		content, ok := m.Content(i)
		if !ok || strings.TrimSpace(content) == "" {
			stats.NoContent++
			continue
		}

		rel := CleanSourcePath(joinRoot(m.SourceRoot, src))
		if rel == "" {
			stats.BadPath++
			continue
		}
		if seen[rel] {
			stats.Duplicates++
			continue
		}
		seen[rel] = true

		if err := write(rel, []byte(content)); err != nil {
			return stats, err
		}
		stats.Written++
	}
	return stats, nil
}

var schemeRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://`)

// CleanSourcePath turns a source map entry into a relative path that stays
// inside the extraction directory. The webpack:// scheme and its namespace
// segment are dropped, as are other URL schemes, query strings, leading
// slashes and every "." or ".." segment.
func CleanSourcePath(source string) string {
	s := strings.ReplaceAll(source, `\`, "/")

	if rest, ok := strings.CutPrefix(s, "webpack://"); ok {
		// webpack://<namespace>/./src/x.js
		if i := strings.Index(rest, "/"); i >= 0 {
			rest = rest[i+1:]
		} else {
			rest = ""
		}
		s = rest
	} else if loc := schemeRe.FindStringIndex(s); loc != nil {
		s = s[loc[1]:]
	}

	if i := strings.IndexByte(s, '?'); i >= 0 {
		s = s[:i]
	}

	parts := strings.Split(s, "/")
	kept := parts[:0]
	for _, p := range parts {
		switch strings.TrimSpace(p) {
		case "", ".", "..":
			continue
		}
		kept = append(kept, p)
	}
	return strings.Join(kept, "/")
}

func joinRoot(root, src string) string {
	if root == "" || schemeRe.MatchString(src) {
		return src
	}
	return strings.TrimSuffix(root, "/") + "/" + src
}
