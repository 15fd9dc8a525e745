package report

import (
	"encoding/json"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"chunkmap/internal/crawl"
	"chunkmap/internal/manifest"
)

const loader = `n.miniCssF=e=>"static/css/"+e+"."+{3:"11aa22bb"}[e]+".chunk.css";` +
	`n.u=e=>"static/js/"+({102:"xlsx"}[e]||e)+"."+{102:"d55488e0",7:"0badc0de"}[e]+".chunk.js"`

func sampleManifest(t *testing.T) *Manifest {
	t.Helper()
	res := manifest.NewEngine(nil).Reconstruct(loader)
	base, _ := url.Parse("https://example.com/static/js/runtime.js")
	return FromResult(res, base)
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{" YAML ", FormatYAML, false},
		{"toml", FormatTOML, false},
		{"human", FormatHuman, false},
		{"sarif", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q, wantErr %v", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestFromResult(t *testing.T) {
	m := sampleManifest(t)

	if m.Shape != "name_hash" {
		t.Errorf("Shape = %q, want name_hash", m.Shape)
	}
	wantPaths := []string{"/static/js/7.0badc0de.chunk.js", "/static/js/xlsx.d55488e0.chunk.js"}
	if diff := cmp.Diff(wantPaths, m.Paths); diff != "" {
		t.Errorf("Paths mismatch (-want +got):\n%s", diff)
	}
	wantResolved := []string{
		"https://example.com/static/js/7.0badc0de.chunk.js",
		"https://example.com/static/js/xlsx.d55488e0.chunk.js",
	}
	if diff := cmp.Diff(wantResolved, m.Resolved); diff != "" {
		t.Errorf("Resolved mismatch (-want +got):\n%s", diff)
	}
	if m.Template == nil || m.Template.Name != "table" || m.Template.Extension != ".chunk.js" {
		t.Errorf("Template = %+v", m.Template)
	}
	if m.CSS == nil || len(m.CSS.Paths) != 1 {
		t.Errorf("CSS = %+v, want one stylesheet path", m.CSS)
	}
}

func TestFromResult_Empty(t *testing.T) {
	m := FromResult(manifest.NewEngine(nil).Reconstruct(""), nil)
	if m.Shape != "none" || m.Paths == nil || len(m.Paths) != 0 || m.Resolved != nil {
		t.Errorf("FromResult(empty) = %+v", m)
	}
}

func TestRender_JSON(t *testing.T) {
	out, err := Render(sampleManifest(t), FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if decoded["shape"] != "name_hash" {
		t.Errorf("shape = %v", decoded["shape"])
	}
	if !strings.Contains(out, "\n  \"paths\": [") {
		t.Errorf("JSON not indented:\n%s", out)
	}
}

func TestRender_JSONDoesNotEscapeHTML(t *testing.T) {
	out, err := Render(map[string]string{"p": "a&b<c>"}, FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "a&b<c>") {
		t.Errorf("Render() escaped HTML characters: %s", out)
	}
}

func TestRender_YAML(t *testing.T) {
	m := sampleManifest(t)
	out, err := Render(m, FormatYAML)
	if err != nil {
		t.Fatal(err)
	}
	var got Manifest
	if err := yaml.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not YAML: %v\n%s", err, out)
	}
	if diff := cmp.Diff(m.Paths, got.Paths); diff != "" {
		t.Errorf("paths mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(out, "basePath: static/js/") {
		t.Errorf("YAML keys not camelCase:\n%s", out)
	}
}

func TestRender_TOML(t *testing.T) {
	m := sampleManifest(t)
	out, err := Render(m, FormatTOML)
	if err != nil {
		t.Fatal(err)
	}
	var got Manifest
	if err := toml.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not TOML: %v\n%s", err, out)
	}
	if diff := cmp.Diff(m.Entries, got.Entries); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(out, "[[entries]]") {
		t.Errorf("entries not encoded as an array of tables:\n%s", out)
	}
}

func TestRender_HumanManifest(t *testing.T) {
	out, err := Render(sampleManifest(t), FormatHuman)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"Loader shape: name_hash",
		"Chunks (2):",
		"  https://example.com/static/js/xlsx.d55488e0.chunk.js",
		"Stylesheet chunks (1, not included above):",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("human output missing %q:\n%s", want, out)
		}
	}
}

func TestRender_HumanNoChunks(t *testing.T) {
	out, _ := Render(FromResult(manifest.NewEngine(nil).Reconstruct("var a=1"), nil), FormatHuman)
	if !strings.Contains(out, "Chunks (0):\n  (none)") {
		t.Errorf("human output for no chunks:\n%s", out)
	}
}

func TestRender_HumanCrawl(t *testing.T) {
	summary := &crawl.Summary{
		URL:       "https://example.com/",
		RunID:     "run-1",
		Discovery: "static",
		OutputDir: "output/example.com",
		Chunks:    []string{"https://example.com/static/js/1.aa.chunk.js"},
		Loaders:   []crawl.Loader{{Source: "https://example.com/static/js/runtime.js", Shape: "id_hash", Paths: 1}},
		Counts:    crawl.Counts{Scripts: 2, Chunks: 1, Sources: 1200},
		Duration:  1500 * time.Millisecond,
	}

	out, err := Render(FromSummary(summary), FormatHuman)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"Crawl of https://example.com/",
		"Run:        run-1",
		"Duration:   1.5s",
		"id_hash         1 paths  https://example.com/static/js/runtime.js",
		"sources:        1,200",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("human output missing %q:\n%s", want, out)
		}
	}
}

func TestRender_Unsupported(t *testing.T) {
	if _, err := Render(struct{}{}, Format("xml")); err == nil {
		t.Error("Render() with an unknown format should fail")
	}
}
