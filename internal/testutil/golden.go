// Package testutil provides golden-file helpers for tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// updateGolden controls whether golden files are rewritten.
// Use: go test ./internal/manifest -run TestGolden -update
var updateGolden = flag.Bool("update", false, "update golden files")

// ShouldUpdate returns true if golden files should be updated.
func ShouldUpdate() bool {
	return *updateGolden
}

// MarshalGolden encodes v the way golden files store it: two-space indented
// JSON, HTML characters unescaped, trailing newline.
func MarshalGolden(t *testing.T, v any) []byte {
	t.Helper()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		t.Fatalf("Failed to marshal golden data: %v", err)
	}
	return buf.Bytes()
}

// CompareGolden compares got against the golden file at path, failing with a
// diff on mismatch. With -update the file is rewritten instead.
func CompareGolden(t *testing.T, path string, got any) {
	t.Helper()

	data := MarshalGolden(t, got)

	if *updateGolden {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("Failed to create golden directory: %v", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatalf("Failed to write golden file: %v", err)
		}
		t.Logf("Updated golden: %s", path)
		return
	}

	expected, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			t.Fatalf("Golden file missing: %s\n\nGot:\n%s\nRun with -update to create:\n  go test ./... -run %s -update",
				path, data, t.Name())
		}
		t.Fatalf("Failed to read golden file: %v", err)
	}

	if !bytes.Equal(data, expected) {
		t.Fatalf("Golden mismatch for %s (-want +got):\n%s\nRun with -update to refresh:\n  go test ./... -run %s -update",
			path, cmp.Diff(string(expected), string(data)), t.Name())
	}
}

// Fixtures returns the files in dir matching pattern, sorted by name.
func Fixtures(t *testing.T, dir, pattern string) []string {
	t.Helper()

	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		t.Fatalf("Bad fixture pattern %q: %v", pattern, err)
	}
	sort.Strings(matches)
	return matches
}
