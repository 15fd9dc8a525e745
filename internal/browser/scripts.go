package browser

import (
	"net/url"
	"sync"
)

// scriptSet is an insertion-ordered set of http(s) URLs, safe for
// concurrent use.
type scriptSet struct {
	mu    sync.Mutex
	seen  map[string]bool
	order []string
}

func newScriptSet() *scriptSet {
	return &scriptSet{seen: make(map[string]bool)}
}

// add normalizes raw and records it once. It reports whether raw was new.
func (s *scriptSet) add(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	u.Fragment = ""
	key := u.String()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen[key] {
		return false
	}
	s.seen[key] = true
	s.order = append(s.order, key)
	return true
}

func (s *scriptSet) list() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

// mergeScripts concatenates lists, keeping the first occurrence of each URL.
func mergeScripts(lists ...[]string) []string {
	merged := newScriptSet()
	for _, l := range lists {
		for _, u := range l {
			merged.add(u)
		}
	}
	return merged.list()
}
