package output

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"chunkmap/internal/errors"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	site, _ := url.Parse("https://example.com:8443/")
	s, err := NewStore(t.TempDir(), site, nil)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return s
}

func TestNewStore_HostDirectory(t *testing.T) {
	s := newTestStore(t)
	if filepath.Base(s.Root()) != "example.com_8443" {
		t.Errorf("Root() = %s, want host directory example.com_8443", s.Root())
	}
	if _, err := os.Stat(s.Root()); err != nil {
		t.Errorf("site directory not created: %v", err)
	}
}

func TestStore_SaveCompiled(t *testing.T) {
	s := newTestStore(t)
	u, _ := url.Parse("https://example.com/static/js/main.abc.js?v=2")

	art, err := s.SaveCompiled(u, []byte("console.log(1)"))
	if err != nil {
		t.Fatalf("SaveCompiled() error = %v", err)
	}

	want := filepath.Join(s.Root(), "compiled", "static", "js", "main.abc.js")
	if art.Path != want {
		t.Errorf("Path = %s, want %s", art.Path, want)
	}
	if art.Kind != KindCompiled || art.Size != 14 || art.Duplicate {
		t.Errorf("artifact = %+v", art)
	}
	got, _ := os.ReadFile(want)
	if string(got) != "console.log(1)" {
		t.Errorf("content = %q", got)
	}
}

func TestStore_SaveSourceMapIndents(t *testing.T) {
	s := newTestStore(t)
	u, _ := url.Parse("https://example.com/static/js/main.abc.js.map")

	art, err := s.SaveSourceMap(u, []byte(`{"version":3,"sources":["a.js"]}`))
	if err != nil {
		t.Fatal(err)
	}
	got, _ := os.ReadFile(art.Path)
	if !strings.Contains(string(got), "\n  \"version\": 3") {
		t.Errorf("source map not indented:\n%s", got)
	}

	art, err = s.SaveSourceMap(u, []byte("not json"))
	if err != nil {
		t.Fatal(err)
	}
	got, _ = os.ReadFile(art.Path)
	if string(got) != "not json" {
		t.Errorf("invalid JSON should be kept verbatim, got %q", got)
	}
}

func TestStore_SaveSource(t *testing.T) {
	s := newTestStore(t)

	tests := []struct {
		name    string
		rel     string
		want    string
		wantErr bool
	}{
		{"nested", "src/components/App.js", filepath.Join("sources", "src", "components", "App.js"), false},
		{"dot segments neutralized", "../../escape.js", filepath.Join("sources", "escape.js"), false},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			art, err := s.SaveSource(tt.rel, []byte("x"))
			if (err != nil) != tt.wantErr {
				t.Fatalf("SaveSource() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.HasCode(err, errors.StoreFailed) {
					t.Errorf("code = %v, want STORE_FAILED", errors.CodeOf(err))
				}
				return
			}
			if art.Path != filepath.Join(s.Root(), tt.want) {
				t.Errorf("Path = %s, want %s", art.Path, filepath.Join(s.Root(), tt.want))
			}
		})
	}
}

func TestStore_DuplicateSkip(t *testing.T) {
	dir := t.TempDir()
	site, _ := url.Parse("https://example.com/")

	s, _ := NewStore(dir, site, nil)
	first, err := s.SaveSource("a.js", []byte("same"))
	if err != nil {
		t.Fatal(err)
	}
	if first.Duplicate {
		t.Error("first save reported as duplicate")
	}

	second, _ := s.SaveSource("a.js", []byte("same"))
	if !second.Duplicate {
		t.Error("identical content not reported as duplicate")
	}

	changed, _ := s.SaveSource("a.js", []byte("different"))
	if changed.Duplicate {
		t.Error("changed content reported as duplicate")
	}

	// A fresh store sees the file written by the previous one.
	s2, _ := NewStore(dir, site, nil)
	again, _ := s2.SaveSource("a.js", []byte("different"))
	if !again.Duplicate {
		t.Error("content from an earlier run not reported as duplicate")
	}
}

func TestStore_Concurrent(t *testing.T) {
	s := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.SaveSource("shared/x.js", []byte("payload")); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
}

func TestDigest(t *testing.T) {
	d := Digest([]byte("abc"))
	if len(d) != 64 {
		t.Errorf("len(Digest) = %d, want 64", len(d))
	}
	if d != Digest([]byte("abc")) || d == Digest([]byte("abd")) {
		t.Error("Digest is not a stable content hash")
	}
}
