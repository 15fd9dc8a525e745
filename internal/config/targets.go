package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/BurntSushi/toml"
)

// Target is one site to crawl.
type Target struct {
	URL        string `toml:"url" json:"url"`
	Record     bool   `toml:"record" json:"record,omitempty"`
	MaxScripts int    `toml:"maxScripts" json:"maxScripts,omitempty"`
	NoBrowser  bool   `toml:"noBrowser" json:"noBrowser,omitempty"`
}

// Parse validates the target URL and returns it parsed.
func (t Target) Parse() (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(t.URL))
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("missing host")
	}
	return u, nil
}

// targetsFile is the on-disk layout:
//
//	[[target]]
//	url = "https://example.com"
//	record = true
type targetsFile struct {
	Targets []Target `toml:"target"`
}

// LoadTargets reads a TOML targets file for batch crawls.
// Unknown keys and invalid URLs are reported as errors.
func LoadTargets(path string) ([]Target, error) {
	var f targetsFile
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return nil, err
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, &ConfigError{Field: undecoded[0].String(), Message: "unknown key in targets file"}
	}

	for i, t := range f.Targets {
		if _, err := t.Parse(); err != nil {
			return nil, &ConfigError{
				Field:   fmt.Sprintf("target[%d].url", i),
				Message: err.Error(),
			}
		}
		if t.MaxScripts < 0 {
			return nil, &ConfigError{Field: fmt.Sprintf("target[%d].maxScripts", i), Message: "must not be negative"}
		}
	}

	return f.Targets, nil
}
