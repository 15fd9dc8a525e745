package manifest

import (
	"fmt"
	"sort"
	"strings"
)

// Entry is one synthesized chunk path.
type Entry struct {
	ID   ChunkID `json:"id"`
	Path string  `json:"path"`
}

// PathSet is a set of composed chunk paths.
type PathSet map[string]struct{}

// NewPathSet creates a set holding paths.
func NewPathSet(paths ...string) PathSet {
	s := make(PathSet, len(paths))
	for _, p := range paths {
		s.Add(p)
	}
	return s
}

// Add inserts p.
func (s PathSet) Add(p string) {
	s[p] = struct{}{}
}

// Contains reports whether p is in the set.
func (s PathSet) Contains(p string) bool {
	_, ok := s[p]
	return ok
}

// Len returns the number of paths.
func (s PathSet) Len() int {
	return len(s)
}

// Sorted returns the paths in lexical order.
func (s PathSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Compose enumerates the chunk paths a matched shape produces from its tables.
//
// For the name+hash shape the identifier set is the union of both tables, but
// an identifier without a hash entry yields nothing.
func Compose(m *Match, names, hashes *LookupTable) []Entry {
	var entries []Entry

	switch m.Kind {
	case ShapeNameHash:
		for _, id := range unionKeys(names, hashes) {
			hash, ok := hashes.Get(id)
			if !ok {
				continue
			}
			name, ok := names.Get(id)
			if !ok {
				name = id
			}
			entries = append(entries, Entry{ID: id, Path: rootRelative(m.Prefix, name+m.Separator+hash+m.Suffix)})
		}
	case ShapeIDHash:
		for _, id := range hashes.Keys() {
			hash, _ := hashes.Get(id)
			entries = append(entries, Entry{ID: id, Path: rootRelative(m.Prefix, id+m.Separator+hash+m.Suffix)})
		}
	case ShapeHashOnly, ShapeSingleTable:
		for _, id := range hashes.Keys() {
			value, _ := hashes.Get(id)
			entries = append(entries, Entry{ID: id, Path: value + m.Suffix})
		}
	default:
		panic(fmt.Sprintf("manifest: compose called for non-composable shape %s", m.Kind))
	}

	return entries
}

// unionKeys returns the keys of all tables, first-seen order, without repeats.
func unionKeys(tables ...*LookupTable) []ChunkID {
	seen := make(map[ChunkID]bool)
	var keys []ChunkID
	for _, t := range tables {
		for _, k := range t.Keys() {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	return keys
}

// rootRelative joins a loader base path and a filename into a root-relative path.
// Absolute and protocol-relative base URLs are kept as they are.
func rootRelative(prefix, file string) string {
	joined := joinBase(prefix, file)
	if isAbsoluteURL(prefix) {
		return joined
	}
	return "/" + strings.TrimLeft(joined, "/")
}

// joinBase joins prefix and file with exactly one slash at the boundary.
func joinBase(prefix, file string) string {
	if prefix == "" {
		return file
	}
	return strings.TrimRight(prefix, "/") + "/" + strings.TrimLeft(file, "/")
}

func isAbsoluteURL(s string) bool {
	return strings.HasPrefix(s, "//") || strings.Contains(s, "://")
}
