// Package sourcemap finds, decodes and unpacks version 3 source maps.
package sourcemap

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"chunkmap/internal/errors"
)

// Map is a version 3 source map. Only the fields needed to recover original
// sources are decoded.
type Map struct {
	Version        int       `json:"version"`
	File           string    `json:"file,omitempty"`
	SourceRoot     string    `json:"sourceRoot,omitempty"`
	Sources        []string  `json:"sources"`
	SourcesContent []*string `json:"sourcesContent,omitempty"`
	Names          []string  `json:"names,omitempty"`
	Mappings       string    `json:"mappings"`
}

// Content returns the embedded content of source i, if any.
func (m *Map) Content(i int) (string, bool) {
	if i < 0 || i >= len(m.SourcesContent) || m.SourcesContent[i] == nil {
		return "", false
	}
	return *m.SourcesContent[i], true
}

// mappingURLRe matches both comment forms, including the legacy //@ marker.
var mappingURLRe = regexp.MustCompile(`(?m)(?://[#@][ \t]*sourceMappingURL=([^\s'"]+)[ \t]*$|/\*[#@][ \t]*sourceMappingURL=([^\s*'"]+)[ \t]*\*/)`)

// FindURL returns the last sourceMappingURL reference in a script. Earlier
// occurrences usually belong to concatenated inputs.
func FindURL(js string) (string, bool) {
	matches := mappingURLRe.FindAllStringSubmatch(js, -1)
	if len(matches) == 0 {
		return "", false
	}
	last := matches[len(matches)-1]
	if last[1] != "" {
		return last[1], true
	}
	return last[2], last[2] != ""
}

// IsInline reports whether a mapping reference is a data: URI.
func IsInline(ref string) bool {
	return strings.HasPrefix(strings.ToLower(ref), "data:")
}

// ResolveURL resolves a non-inline mapping reference against the script URL.
func ResolveURL(script *url.URL, ref string) (*url.URL, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, errors.Wrap(errors.InvalidURL, "bad sourceMappingURL "+ref, err)
	}
	if script != nil {
		u = script.ResolveReference(u)
	}
	return u, nil
}

// DecodeInline decodes a data: URI, base64 or percent-encoded.
func DecodeInline(dataURI string) ([]byte, error) {
	if !IsInline(dataURI) {
		return nil, errors.New(errors.InvalidSourceMap, "not a data URI")
	}
	meta, payload, ok := strings.Cut(dataURI[len("data:"):], ",")
	if !ok {
		return nil, errors.New(errors.InvalidSourceMap, "data URI has no payload")
	}

	if strings.HasSuffix(strings.ToLower(meta), ";base64") {
		payload = strings.TrimRight(payload, "=")
		data, err := base64.RawStdEncoding.DecodeString(payload)
		if err != nil {
			data, err = base64.RawURLEncoding.DecodeString(payload)
		}
		if err != nil {
			return nil, errors.Wrap(errors.InvalidSourceMap, "bad base64 in data URI", err)
		}
		return data, nil
	}

	data, err := url.PathUnescape(payload)
	if err != nil {
		return nil, errors.Wrap(errors.InvalidSourceMap, "bad escape in data URI", err)
	}
	return []byte(data), nil
}

// Parse decodes a source map document. Index maps (with "sections") are
// rejected.
func Parse(data []byte) (*Map, error) {
	var probe struct {
		Sections json.RawMessage `json:"sections"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, errors.Wrap(errors.InvalidSourceMap, "source map is not JSON", err)
	}
	if len(probe.Sections) > 0 {
		return nil, errors.New(errors.InvalidSourceMap, "index source maps are not supported")
	}

	var m Map
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(errors.InvalidSourceMap, "malformed source map", err)
	}
	if m.Version != 3 {
		return nil, errors.New(errors.InvalidSourceMap, fmt.Sprintf("unsupported source map version %d", m.Version))
	}
	return &m, nil
}
