package report

import "chunkmap/internal/crawl"

// CrawlReport is the serializable view of a crawl summary.
type CrawlReport struct {
	URL        string         `json:"url" yaml:"url" toml:"url"`
	RunID      string         `json:"runId,omitempty" yaml:"runId,omitempty" toml:"runId,omitempty"`
	Discovery  string         `json:"discovery" yaml:"discovery" toml:"discovery"`
	OutputDir  string         `json:"outputDir" yaml:"outputDir" toml:"outputDir"`
	Scripts    []string       `json:"scripts" yaml:"scripts" toml:"scripts"`
	Chunks     []string       `json:"chunks" yaml:"chunks" toml:"chunks"`
	Loaders    []LoaderLine   `json:"loaders" yaml:"loaders" toml:"loaders"`
	Counts     map[string]int `json:"counts" yaml:"counts" toml:"counts"`
	RecordDir  string         `json:"recordDir,omitempty" yaml:"recordDir,omitempty" toml:"recordDir,omitempty"`
	Frames     int            `json:"frames,omitempty" yaml:"frames,omitempty" toml:"frames,omitempty"`
	DurationMs int64          `json:"durationMs" yaml:"durationMs" toml:"durationMs"`
}

// LoaderLine is one script where a loader was found.
type LoaderLine struct {
	Source string `json:"source" yaml:"source" toml:"source"`
	Shape  string `json:"shape" yaml:"shape" toml:"shape"`
	Paths  int    `json:"paths" yaml:"paths" toml:"paths"`
}

// FromSummary builds the report view of a crawl.
func FromSummary(s *crawl.Summary) *CrawlReport {
	r := &CrawlReport{
		URL:        s.URL,
		RunID:      s.RunID,
		Discovery:  s.Discovery,
		OutputDir:  s.OutputDir,
		Scripts:    append([]string{}, s.Scripts...),
		Chunks:     append([]string{}, s.Chunks...),
		Loaders:    []LoaderLine{},
		RecordDir:  s.RecordDir,
		Frames:     s.Frames,
		DurationMs: s.Duration.Milliseconds(),
		Counts: map[string]int{
			"scripts":        s.Counts.Scripts,
			"chunks":         s.Counts.Chunks,
			"saved":          s.Counts.Saved,
			"sourceMaps":     s.Counts.SourceMaps,
			"sources":        s.Counts.Sources,
			"sourcesSkipped": s.Counts.SourcesSkipped,
			"failures":       s.Counts.Failures,
		},
	}
	for _, l := range s.Loaders {
		r.Loaders = append(r.Loaders, LoaderLine{Source: l.Source, Shape: l.Shape, Paths: l.Paths})
	}
	return r
}
