// Package report renders reconstruction and crawl results for people and
// machines.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"chunkmap/internal/manifest"
)

// Format is an output format name.
type Format string

const (
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatTOML  Format = "toml"
	FormatHuman Format = "human"
)

// Formats lists the accepted format names.
var Formats = []Format{FormatJSON, FormatYAML, FormatTOML, FormatHuman}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported format %q (want json, yaml, toml or human)", s)
}

// Manifest is the serializable view of a reconstruction.
type Manifest struct {
	Shape       string    `json:"shape" yaml:"shape" toml:"shape"`
	Template    *Template `json:"template,omitempty" yaml:"template,omitempty" toml:"template,omitempty"`
	NameEntries int       `json:"nameEntries" yaml:"nameEntries" toml:"nameEntries"`
	HashEntries int       `json:"hashEntries" yaml:"hashEntries" toml:"hashEntries"`
	TableRole   string    `json:"tableRole,omitempty" yaml:"tableRole,omitempty" toml:"tableRole,omitempty"`
	Paths       []string  `json:"paths" yaml:"paths" toml:"paths"`
	Resolved    []string  `json:"resolved,omitempty" yaml:"resolved,omitempty" toml:"resolved,omitempty"`
	Entries     []Entry   `json:"entries,omitempty" yaml:"entries,omitempty" toml:"entries,omitempty"`
	CSS         *CSS      `json:"css,omitempty" yaml:"css,omitempty" toml:"css,omitempty"`
	Fallback    *Fallback `json:"fallback,omitempty" yaml:"fallback,omitempty" toml:"fallback,omitempty"`
}

// Template mirrors manifest.ChunkShapeTemplate.
type Template struct {
	BasePath  string `json:"basePath" yaml:"basePath" toml:"basePath"`
	Name      string `json:"name" yaml:"name" toml:"name"`
	Separator string `json:"separator" yaml:"separator" toml:"separator"`
	Hash      string `json:"hash" yaml:"hash" toml:"hash"`
	Extension string `json:"extension" yaml:"extension" toml:"extension"`
}

// Entry is one chunk id and its path.
type Entry struct {
	ID   string `json:"id" yaml:"id" toml:"id"`
	Path string `json:"path" yaml:"path" toml:"path"`
}

// CSS is the stylesheet manifest, reported separately from JS paths.
type CSS struct {
	IDs   []string `json:"ids" yaml:"ids" toml:"ids"`
	Paths []string `json:"paths" yaml:"paths" toml:"paths"`
}

// Fallback carries the loose scan diagnostics.
type Fallback struct {
	Locator     string   `json:"locator" yaml:"locator" toml:"locator"`
	Assignments int      `json:"assignments" yaml:"assignments" toml:"assignments"`
	Tables      int      `json:"tables" yaml:"tables" toml:"tables"`
	Literals    []string `json:"literals,omitempty" yaml:"literals,omitempty" toml:"literals,omitempty"`
}

// FromResult builds the report view. With a non-nil base, paths are also
// resolved to absolute URLs.
func FromResult(res *manifest.Result, base *url.URL) *Manifest {
	m := &Manifest{
		Shape:       res.Shape.String(),
		NameEntries: res.NameEntries,
		HashEntries: res.HashEntries,
		TableRole:   string(res.TableRole),
		Paths:       append([]string{}, res.Paths...),
	}
	if t := res.Template; t != nil {
		m.Template = &Template{
			BasePath:  t.BasePath,
			Name:      string(t.Name),
			Separator: t.Separator,
			Hash:      string(t.Hash),
			Extension: t.Extension,
		}
	}
	for _, e := range res.Entries {
		m.Entries = append(m.Entries, Entry{ID: e.ID, Path: e.Path})
	}
	if base != nil {
		m.Resolved = manifest.Resolve(base, res.Paths)
	}
	if res.CSS != nil {
		m.CSS = &CSS{IDs: res.CSS.IDs, Paths: res.CSS.Paths}
	}
	if fb := res.Fallback; fb != nil {
		m.Fallback = &Fallback{
			Locator:     fb.Locator,
			Assignments: fb.Assignments,
			Tables:      fb.Tables,
			Literals:    fb.Literals,
		}
	}
	return m
}

// Render encodes v in the given format. Human output is available for
// *Manifest and *CrawlReport; other values fall back to JSON.
func Render(v interface{}, format Format) (string, error) {
	switch format {
	case FormatJSON:
		return renderJSON(v)
	case FormatYAML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("failed to marshal YAML: %w", err)
		}
		return string(data), nil
	case FormatTOML:
		data, err := toml.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("failed to marshal TOML: %w", err)
		}
		return string(data), nil
	case FormatHuman:
		return renderHuman(v)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// renderJSON indents and leaves <, > and & unescaped so paths read as written.
func renderJSON(v interface{}) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return buf.String(), nil
}
