package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

func renderHuman(v interface{}) (string, error) {
	switch r := v.(type) {
	case *Manifest:
		return formatManifestHuman(r), nil
	case *CrawlReport:
		return formatCrawlHuman(r), nil
	default:
		return renderJSON(v)
	}
}

func formatManifestHuman(m *Manifest) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Loader shape: %s\n", m.Shape))
	if t := m.Template; t != nil {
		b.WriteString(fmt.Sprintf("  Base path:  %q\n", t.BasePath))
		b.WriteString(fmt.Sprintf("  Name:       %s\n", t.Name))
		if t.Separator != "" {
			b.WriteString(fmt.Sprintf("  Separator:  %q\n", t.Separator))
		}
		b.WriteString(fmt.Sprintf("  Extension:  %q\n", t.Extension))
		b.WriteString(fmt.Sprintf("  Tables:     %d names, %d hashes\n", m.NameEntries, m.HashEntries))
		if m.TableRole != "" {
			b.WriteString(fmt.Sprintf("  Table role: %s\n", m.TableRole))
		}
	}
	if fb := m.Fallback; fb != nil {
		b.WriteString(fmt.Sprintf("  Fallback:   %d assignments, %d tables (%s)\n", fb.Assignments, fb.Tables, fb.Locator))
	}

	paths := m.Paths
	if len(m.Resolved) > 0 {
		paths = m.Resolved
	}
	b.WriteString(fmt.Sprintf("\nChunks (%d):\n", len(paths)))
	for _, p := range paths {
		b.WriteString("  " + p + "\n")
	}
	if len(paths) == 0 {
		b.WriteString("  (none)\n")
	}

	if m.CSS != nil && len(m.CSS.Paths) > 0 {
		b.WriteString(fmt.Sprintf("\nStylesheet chunks (%d, not included above):\n", len(m.CSS.Paths)))
		for _, p := range m.CSS.Paths {
			b.WriteString("  " + p + "\n")
		}
	}
	return b.String()
}

func formatCrawlHuman(r *CrawlReport) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Crawl of %s\n", r.URL))
	b.WriteString(strings.Repeat("=", 60) + "\n")
	if r.RunID != "" {
		b.WriteString(fmt.Sprintf("Run:        %s\n", r.RunID))
	}
	b.WriteString(fmt.Sprintf("Discovery:  %s\n", r.Discovery))
	b.WriteString(fmt.Sprintf("Output:     %s\n", r.OutputDir))
	b.WriteString(fmt.Sprintf("Duration:   %s\n", (time.Duration(r.DurationMs) * time.Millisecond).String()))
	if r.RecordDir != "" {
		b.WriteString(fmt.Sprintf("Recording:  %s (%s frames)\n", r.RecordDir, humanize.Comma(int64(r.Frames))))
	}

	b.WriteString(fmt.Sprintf("\nLoaders (%d):\n", len(r.Loaders)))
	for _, l := range r.Loaders {
		b.WriteString(fmt.Sprintf("  %-12s %4d paths  %s\n", l.Shape, l.Paths, l.Source))
	}

	b.WriteString(fmt.Sprintf("\nChunks (%d):\n", len(r.Chunks)))
	for _, c := range r.Chunks {
		b.WriteString("  " + c + "\n")
	}

	b.WriteString("\nTotals:\n")
	for _, k := range []string{"scripts", "chunks", "saved", "sourceMaps", "sources", "sourcesSkipped", "failures"} {
		b.WriteString(fmt.Sprintf("  %-15s %s\n", k+":", humanize.Comma(int64(r.Counts[k]))))
	}
	return b.String()
}
