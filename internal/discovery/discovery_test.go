package discovery

import (
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const page = `<!doctype html>
<html>
<head>
  <link rel="preload" as="script" href="/static/js/vendor.1a2b.js">
  <link rel="modulepreload" href="/assets/index-9f8e.js">
  <link rel="preload" as="style" href="/static/css/main.css">
  <link rel="stylesheet" href="/static/css/main.css">
  <script type="application/ld+json">{"@context":"https://schema.org"}</script>
  <script>!function(e){var n={};n.u=e=>"static/js/"+e+".js"}([])</script>
</head>
<body>
  <script src="/static/js/main.abc123.js"></script>
  <script src="https://cdn.example.net/lib/analytics.js#frag"></script>
  <script type="module" src="./chunks/app.js"></script>
  <script src="/static/js/main.abc123.js"></script>
  <script src="data:text/javascript,alert(1)"></script>
  <script src="javascript:void(0)"></script>
</body>
</html>`

func TestParse(t *testing.T) {
	base, _ := url.Parse("https://example.com/app/index.html")

	got, err := Parse(base, strings.NewReader(page))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	wantScripts := []string{
		"https://example.com/static/js/vendor.1a2b.js",
		"https://example.com/assets/index-9f8e.js",
		"https://example.com/static/js/main.abc123.js",
		"https://cdn.example.net/lib/analytics.js",
		"https://example.com/app/chunks/app.js",
	}
	if diff := cmp.Diff(wantScripts, got.Scripts); diff != "" {
		t.Errorf("Scripts mismatch (-want +got):\n%s", diff)
	}
	if len(got.Inline) != 1 || !strings.Contains(got.Inline[0], "n.u=e=>") {
		t.Errorf("Inline = %q, want the one JavaScript block", got.Inline)
	}
}

func TestParse_BaseHref(t *testing.T) {
	base, _ := url.Parse("https://example.com/")
	doc := `<html><head><base href="https://static.example.com/v2/"></head>
<body><script src="main.js"></script></body></html>`

	got, err := FromHTML(base, strings.NewReader(doc))
	if err != nil {
		t.Fatalf("FromHTML() error = %v", err)
	}
	want := []string{"https://static.example.com/v2/main.js"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FromHTML mismatch (-want +got):\n%s", diff)
	}
}

func TestFromHTML_NoScripts(t *testing.T) {
	base, _ := url.Parse("https://example.com/")
	got, err := FromHTML(base, strings.NewReader("<p>hello</p>"))
	if err != nil {
		t.Fatalf("FromHTML() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("FromHTML() = %v, want none", got)
	}
}

func TestScore(t *testing.T) {
	keywords := []string{"runtime", "main", "app", "vendor", "manifest", "bundle"}

	tests := []struct {
		url  string
		want int
	}{
		{"https://x.com/static/js/runtime-main.abc.js", 2},
		{"https://x.com/static/js/Main.js", 1},
		{"https://x.com/static/js/123.chunk.js", 0},
		{"https://x.com/app/vendor.bundle.js", 3},
	}

	for _, tt := range tests {
		if got := Score(tt.url, keywords); got != tt.want {
			t.Errorf("Score(%q) = %d, want %d", tt.url, got, tt.want)
		}
	}
}

func TestPrioritize(t *testing.T) {
	keywords := []string{"runtime", "main", "vendor"}
	urls := []string{
		"https://x.com/a.js",
		"https://x.com/vendor.js",
		"https://x.com/b.js",
		"https://x.com/runtime-main.js",
		"https://x.com/main.js",
	}

	got := Prioritize(urls, keywords)
	want := []string{
		"https://x.com/runtime-main.js",
		"https://x.com/vendor.js",
		"https://x.com/main.js",
		"https://x.com/a.js",
		"https://x.com/b.js",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Prioritize mismatch (-want +got):\n%s", diff)
	}
	if urls[0] != "https://x.com/a.js" {
		t.Error("Prioritize must not reorder its input")
	}
}

func TestLimit(t *testing.T) {
	urls := []string{"a", "b", "c"}
	if got := Limit(urls, 2); len(got) != 2 {
		t.Errorf("Limit(2) = %v", got)
	}
	if got := Limit(urls, 0); len(got) != 3 {
		t.Errorf("Limit(0) = %v", got)
	}
}
