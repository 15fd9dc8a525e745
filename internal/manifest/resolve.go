package manifest

import (
	"net/url"
	"strings"
)

// Resolve resolves chunk paths against the URL of the file that held the
// loader. Root-relative paths resolve against its origin and bare filenames
// against its directory. Paths that do not parse, and data: URIs, are skipped.
func Resolve(base *url.URL, paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))

	for _, p := range paths {
		if p == "" || strings.HasPrefix(p, "data:") {
			continue
		}
		ref, err := url.Parse(p)
		if err != nil {
			continue
		}
		resolved := ref
		if base != nil {
			resolved = base.ResolveReference(ref)
		}
		s := resolved.String()
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	return out
}
