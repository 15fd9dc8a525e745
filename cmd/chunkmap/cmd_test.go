package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"chunkmap/internal/auth"
	"chunkmap/internal/config"
	"chunkmap/internal/errors"
	"chunkmap/internal/ledger"
	"chunkmap/internal/report"
)

const runtimeJS = `!function(){var n={};n.u=e=>"static/js/"+e+"."+{5:"55aa55aa",9:"99bb99bb"}[e]+".chunk.js"}();`

// writeTestConfig writes a config that keeps every file under a temp dir.
func writeTestConfig(t *testing.T, mutate func(*config.Config)) (string, *config.Config) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Browser.Enabled = false
	cfg.Output.Dir = filepath.Join(dir, "out")
	cfg.Ledger.Path = filepath.Join(dir, "ledger.db")
	if mutate != nil {
		mutate(cfg)
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path, cfg
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func executeCommand(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var stdout, stderr bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestReconstructCommand_File(t *testing.T) {
	cfgPath, _ := writeTestConfig(t, nil)
	input := filepath.Join(t.TempDir(), "runtime.js")
	if err := os.WriteFile(input, []byte(runtimeJS), 0644); err != nil {
		t.Fatal(err)
	}

	out, _, err := executeCommand(t, "", "--config", cfgPath, "reconstruct", input,
		"-o", "json", "--base", "https://example.com/app/runtime.js")
	if err != nil {
		t.Fatalf("reconstruct error = %v", err)
	}

	var got report.Manifest
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if got.Shape != "id_hash" {
		t.Errorf("Shape = %q, want id_hash", got.Shape)
	}
	want := []string{
		"https://example.com/static/js/5.55aa55aa.chunk.js",
		"https://example.com/static/js/9.99bb99bb.chunk.js",
	}
	if diff := cmp.Diff(want, got.Resolved); diff != "" {
		t.Errorf("Resolved mismatch (-want +got):\n%s", diff)
	}
}

func TestReconstructCommand_Stdin(t *testing.T) {
	cfgPath, _ := writeTestConfig(t, nil)

	out, _, err := executeCommand(t, runtimeJS, "--config", cfgPath, "-q", "reconstruct", "-")
	if err != nil {
		t.Fatalf("reconstruct error = %v", err)
	}
	for _, want := range []string{"Loader shape: id_hash", "/static/js/5.55aa55aa.chunk.js"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestReconstructCommand_Errors(t *testing.T) {
	cfgPath, _ := writeTestConfig(t, nil)

	tests := []struct {
		name     string
		args     []string
		wantCode errors.ErrorCode
	}{
		{"missing file", []string{"reconstruct", filepath.Join(t.TempDir(), "nope.js")}, errors.InvalidRequest},
		{"relative base", []string{"reconstruct", "-", "--base", "/static/"}, errors.InvalidURL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := executeCommand(t, runtimeJS, append([]string{"--config", cfgPath}, tt.args...)...)
			if !errors.HasCode(err, tt.wantCode) {
				t.Errorf("error = %v, want %s", err, tt.wantCode)
			}
		})
	}

	if _, _, err := executeCommand(t, runtimeJS, "--config", cfgPath, "reconstruct", "-o", "sarif"); err == nil {
		t.Error("unknown format accepted")
	}
}

func TestInvalidConfig(t *testing.T) {
	cfgPath, _ := writeTestConfig(t, func(c *config.Config) { c.Fetch.Concurrency = 0 })

	_, _, err := executeCommand(t, runtimeJS, "--config", cfgPath, "reconstruct", "-")
	if !errors.HasCode(err, errors.ConfigInvalid) {
		t.Fatalf("error = %v, want CONFIG_INVALID", err)
	}

	var buf bytes.Buffer
	printError(&buf, err)
	for _, want := range []string{"Error:", "Suggested fixes:", "${field}"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("printError output missing %q:\n%s", want, buf.String())
		}
	}
}

func TestCrawlCommand(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `<html><body><script src="/static/js/runtime.js"></script></body></html>`)
	})
	mux.HandleFunc("/static/js/runtime.js", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/javascript")
		fmt.Fprint(w, runtimeJS)
	})
	mux.HandleFunc("/static/js/5.55aa55aa.chunk.js", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/javascript")
		fmt.Fprint(w, `(self.webpackChunk=self.webpackChunk||[]).push([[5],{}]);`)
	})
	mux.HandleFunc("/static/js/9.99bb99bb.chunk.js", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/javascript")
		fmt.Fprint(w, `(self.webpackChunk=self.webpackChunk||[]).push([[9],{}]);`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfgPath, cfg := writeTestConfig(t, nil)

	out, _, err := executeCommand(t, "", "--config", cfgPath, "-q", "crawl", "--url", srv.URL+"/", "--no-browser", "-o", "json")
	if err != nil {
		t.Fatalf("crawl error = %v", err)
	}

	var got report.CrawlReport
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	wantChunks := []string{
		srv.URL + "/static/js/5.55aa55aa.chunk.js",
		srv.URL + "/static/js/9.99bb99bb.chunk.js",
	}
	if diff := cmp.Diff(wantChunks, got.Chunks); diff != "" {
		t.Errorf("Chunks mismatch (-want +got):\n%s", diff)
	}
	if got.Discovery != "static" || got.RunID == "" {
		t.Errorf("Discovery = %q, RunID = %q", got.Discovery, got.RunID)
	}

	out, _, err = executeCommand(t, "", "--config", cfgPath, "runs", "-o", "json")
	if err != nil {
		t.Fatalf("runs error = %v", err)
	}
	var runs RunsResponseCLI
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("runs output is not JSON: %v\n%s", err, out)
	}
	if len(runs.Runs) != 1 || runs.Runs[0].ID != got.RunID || runs.Runs[0].Status != ledger.StatusCompleted {
		t.Errorf("runs = %+v", runs.Runs)
	}
	if runs.Ledger != cfg.Ledger.Path {
		t.Errorf("Ledger = %q, want %q", runs.Ledger, cfg.Ledger.Path)
	}

	out, _, err = executeCommand(t, "", "--config", cfgPath, "runs", got.RunID)
	if err != nil {
		t.Fatalf("runs <id> error = %v", err)
	}
	if !strings.Contains(out, "5.55aa55aa.chunk.js") {
		t.Errorf("run detail does not list the chunk:\n%s", out)
	}
}

func TestCrawlCommand_RequiresTarget(t *testing.T) {
	cfgPath, _ := writeTestConfig(t, nil)
	if _, _, err := executeCommand(t, "", "--config", cfgPath, "crawl"); err == nil {
		t.Error("crawl without --url or --targets succeeded")
	}
}

func TestRunsCommand_UnknownRun(t *testing.T) {
	cfgPath, _ := writeTestConfig(t, nil)
	_, _, err := executeCommand(t, "", "--config", cfgPath, "runs", "missing")
	if !errors.HasCode(err, errors.NotFound) {
		t.Errorf("error = %v, want NOT_FOUND", err)
	}
}

func TestSourcemapCommand_LocalFile(t *testing.T) {
	cfgPath, cfg := writeTestConfig(t, nil)

	mapJSON := `{"version":3,"sources":["webpack://app/./src/index.js","webpack://app/../secret.js","webpack://app/./src/empty.js"],` +
		`"sourcesContent":["export default 1;\n","leak();\n",null],"mappings":""}`
	mapPath := filepath.Join(t.TempDir(), "main.js.map")
	if err := os.WriteFile(mapPath, []byte(mapJSON), 0644); err != nil {
		t.Fatal(err)
	}

	out, _, err := executeCommand(t, "", "--config", cfgPath, "sourcemap", mapPath, "-o", "json")
	if err != nil {
		t.Fatalf("sourcemap error = %v", err)
	}
	var got SourceMapResponseCLI
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if got.Sources != 3 || got.Written != 2 || got.NoContent != 1 {
		t.Errorf("response = %+v", got)
	}

	root := filepath.Join(cfg.Output.Dir, "local", "sources")
	for _, rel := range []string{"src/index.js", "secret.js"} {
		if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel))); err != nil {
			t.Errorf("missing extracted source %s: %v", rel, err)
		}
	}
}

func TestTokenCommand(t *testing.T) {
	cfgPath, _ := writeTestConfig(t, nil)

	out, _, err := executeCommand(t, "", "--config", cfgPath, "token", "-o", "json")
	if err != nil {
		t.Fatalf("token error = %v", err)
	}
	var got TokenResponseCLI
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if !auth.VerifyToken(got.Token, got.Hash) {
		t.Error("printed hash does not verify the printed token")
	}
	if got.SavedTo != "" {
		t.Errorf("SavedTo = %q without --save", got.SavedTo)
	}
}

func TestVersionCommand(t *testing.T) {
	cfgPath, _ := writeTestConfig(t, nil)

	out, _, err := executeCommand(t, "", "--config", cfgPath, "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.HasPrefix(out, "chunkmap version ") {
		t.Errorf("version output = %q", out)
	}

	out, _, err = executeCommand(t, "", "--config", cfgPath, "version", "-o", "yaml")
	if err != nil {
		t.Fatalf("version -o yaml error = %v", err)
	}
	if !strings.Contains(out, "version: ") {
		t.Errorf("yaml version output = %q", out)
	}
}
