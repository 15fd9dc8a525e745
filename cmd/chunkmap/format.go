package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"chunkmap/internal/ledger"
	"chunkmap/internal/report"
)

// RunsResponseCLI lists ledger runs.
type RunsResponseCLI struct {
	Ledger string       `json:"ledger" yaml:"ledger" toml:"ledger"`
	Runs   []ledger.Run `json:"runs" yaml:"runs" toml:"runs"`
}

// RunDetailResponseCLI is one run with its artifacts.
type RunDetailResponseCLI struct {
	Run       *ledger.Run       `json:"run" yaml:"run" toml:"run"`
	Artifacts []ledger.Artifact `json:"artifacts" yaml:"artifacts" toml:"artifacts"`
}

// SourceMapResponseCLI summarizes one source map extraction.
type SourceMapResponseCLI struct {
	Map       string `json:"map" yaml:"map" toml:"map"`
	OutputDir string `json:"outputDir" yaml:"outputDir" toml:"outputDir"`
	Sources   int    `json:"sources" yaml:"sources" toml:"sources"`
	Written   int    `json:"written" yaml:"written" toml:"written"`
	NoContent int    `json:"noContent" yaml:"noContent" toml:"noContent"`
	BadPath   int    `json:"badPath" yaml:"badPath" toml:"badPath"`
	Duplicate int    `json:"duplicates" yaml:"duplicates" toml:"duplicates"`
}

// TokenResponseCLI is a freshly generated API token.
type TokenResponseCLI struct {
	Token   string `json:"token" yaml:"token" toml:"token"`
	Hash    string `json:"hash" yaml:"hash" toml:"hash"`
	SavedTo string `json:"savedTo,omitempty" yaml:"savedTo,omitempty" toml:"savedTo,omitempty"`
}

// writeOutput renders v in the named format and writes it with a trailing newline.
func writeOutput(w io.Writer, v interface{}, format string) error {
	f, err := report.ParseFormat(format)
	if err != nil {
		return err
	}

	var out string
	if f == report.FormatHuman {
		out, err = formatHuman(v)
	} else {
		out, err = report.Render(v, f)
	}
	if err != nil {
		return err
	}
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	_, err = io.WriteString(w, out)
	return err
}

// formatHuman handles the CLI-only response types; report types render themselves.
func formatHuman(v interface{}) (string, error) {
	switch resp := v.(type) {
	case *RunsResponseCLI:
		return formatRunsHuman(resp), nil
	case *RunDetailResponseCLI:
		return formatRunDetailHuman(resp), nil
	case *SourceMapResponseCLI:
		return formatSourceMapHuman(resp), nil
	case *TokenResponseCLI:
		return formatTokenHuman(resp), nil
	default:
		return report.Render(v, report.FormatHuman)
	}
}

func formatRunsHuman(resp *RunsResponseCLI) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Runs in %s\n", resp.Ledger))
	b.WriteString(strings.Repeat("=", 60) + "\n")
	if len(resp.Runs) == 0 {
		b.WriteString("  (none)\n")
		return b.String()
	}
	for _, r := range resp.Runs {
		b.WriteString(fmt.Sprintf("\n%s  %-9s  %s\n", r.ID, r.Status, r.Target))
		b.WriteString(fmt.Sprintf("  started %s%s\n", humanize.Time(r.StartedAt), runDuration(r)))
		b.WriteString(fmt.Sprintf("  %d scripts, %d chunks, %d source maps, %s sources, %d failures\n",
			r.Scripts, r.Chunks, r.SourceMaps, humanize.Comma(int64(r.Sources)), r.Failures))
		if r.Error != "" {
			b.WriteString("  error: " + r.Error + "\n")
		}
	}
	return b.String()
}

func runDuration(r ledger.Run) string {
	if r.FinishedAt == nil {
		return ""
	}
	return ", took " + r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
}

func formatRunDetailHuman(resp *RunDetailResponseCLI) string {
	var b strings.Builder
	b.WriteString(formatRunsHuman(&RunsResponseCLI{Ledger: "run " + resp.Run.ID, Runs: []ledger.Run{*resp.Run}}))

	b.WriteString(fmt.Sprintf("\nArtifacts (%d):\n", len(resp.Artifacts)))
	for _, a := range resp.Artifacts {
		line := fmt.Sprintf("  %-9s %s", a.Kind, a.URL)
		if a.Shape != "" {
			line += "  [" + a.Shape + "]"
		}
		b.WriteString(line + "\n")
		if a.Path != "" {
			b.WriteString("            -> " + a.Path + "\n")
		}
	}
	return b.String()
}

func formatSourceMapHuman(resp *SourceMapResponseCLI) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Source map: %s\n", resp.Map))
	b.WriteString(fmt.Sprintf("  Output:     %s\n", resp.OutputDir))
	b.WriteString(fmt.Sprintf("  Sources:    %s\n", humanize.Comma(int64(resp.Sources))))
	b.WriteString(fmt.Sprintf("  Written:    %s\n", humanize.Comma(int64(resp.Written))))
	if skipped := resp.NoContent + resp.BadPath + resp.Duplicate; skipped > 0 {
		b.WriteString(fmt.Sprintf("  Skipped:    %d (%d without content, %d bad paths, %d duplicates)\n",
			skipped, resp.NoContent, resp.BadPath, resp.Duplicate))
	}
	return b.String()
}

func formatTokenHuman(resp *TokenResponseCLI) string {
	var b strings.Builder
	b.WriteString("Token (shown once, store it now):\n")
	b.WriteString("  " + resp.Token + "\n\n")
	b.WriteString("server.tokenHash:\n")
	b.WriteString("  " + resp.Hash + "\n")
	if resp.SavedTo != "" {
		b.WriteString("\nSaved to " + resp.SavedTo + "\n")
	} else {
		b.WriteString("\nSet server.tokenHash in .chunkmap/config.json or run with --save.\n")
	}
	return b.String()
}
