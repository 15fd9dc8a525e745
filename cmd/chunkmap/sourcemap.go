package main

import (
	"context"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"chunkmap/internal/errors"
	"chunkmap/internal/fetch"
	"chunkmap/internal/output"
	"chunkmap/internal/sourcemap"
)

var (
	sourcemapOutput string
	sourcemapFormat string
)

// localHost names the output directory for maps read from disk.
var localHost = &url.URL{Host: "local"}

var sourcemapCmd = &cobra.Command{
	Use:   "sourcemap <map-url|file>",
	Short: "Extract the original sources embedded in a source map",
	Long: `Read a version 3 source map from a URL or a local file and write every source
that carries content to <out>/<host>/sources/, with webpack:// prefixes and
parent-directory segments removed. Maps read from disk go under <out>/local/.

Examples:
  chunkmap sourcemap https://example.com/static/js/main.abc123.js.map
  chunkmap sourcemap ./main.js.map --out recovered`,
	Args: cobra.ExactArgs(1),
	RunE: runSourcemap,
}

func init() {
	sourcemapCmd.Flags().StringVar(&sourcemapOutput, "out", "", "Output directory (default output.dir)")
	sourcemapCmd.Flags().StringVarP(&sourcemapFormat, "format", "o", "human", "Output format (json, yaml, toml, human)")
	rootCmd.AddCommand(sourcemapCmd)
}

func runSourcemap(cmd *cobra.Command, args []string) error {
	logger, err := cliLogger()
	if err != nil {
		return err
	}

	outDir := appConfig.Output.Dir
	if sourcemapOutput != "" {
		outDir = sourcemapOutput
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ref := args[0]
	site, data, err := loadSourceMap(ctx, ref)
	if err != nil {
		return err
	}

	m, err := sourcemap.Parse(data)
	if err != nil {
		return err
	}

	store, err := output.NewStore(outDir, site, logger)
	if err != nil {
		return err
	}
	stats, err := sourcemap.Extract(m, func(rel string, content []byte) error {
		art, err := store.SaveSource(rel, content)
		if err != nil {
			return err
		}
		if art.Duplicate {
			logger.Debug("Skipped unchanged source", "path", art.Path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("Extracted source map", "map", ref, "written", stats.Written, "skipped", stats.Skipped())

	return writeOutput(cmd.OutOrStdout(), &SourceMapResponseCLI{
		Map:       ref,
		OutputDir: store.Root(),
		Sources:   len(m.Sources),
		Written:   stats.Written,
		NoContent: stats.NoContent,
		BadPath:   stats.BadPath,
		Duplicate: stats.Duplicates,
	}, sourcemapFormat)
}

// loadSourceMap fetches an http(s) map or reads a local file. Inline data:
// URIs are decoded directly.
func loadSourceMap(ctx context.Context, ref string) (*url.URL, []byte, error) {
	if sourcemap.IsInline(ref) {
		data, err := sourcemap.DecodeInline(ref)
		return localHost, data, err
	}

	if u, err := url.Parse(ref); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		client := fetch.NewClient(fetch.OptionsFromConfig(appConfig.Fetch), nil)
		defer client.Close()

		resp, err := client.Get(ctx, ref)
		if err != nil {
			if errors.HasCode(err, errors.HTTPStatus) {
				return nil, nil, errors.Wrap(errors.NoSourceMap, "source map not available at "+ref, err)
			}
			return nil, nil, err
		}
		return resp.FinalURL, resp.Body, nil
	}

	data, err := os.ReadFile(ref)
	if err != nil {
		return nil, nil, errors.Wrap(errors.InvalidRequest, "failed to read "+ref, err)
	}
	return localHost, data, nil
}
