package main

import (
	"io"
	"net/url"
	"os"

	"github.com/spf13/cobra"

	"chunkmap/internal/errors"
	"chunkmap/internal/manifest"
	"chunkmap/internal/report"
)

var (
	reconstructFormat string
	reconstructBase   string
)

var reconstructCmd = &cobra.Command{
	Use:   "reconstruct [file|-]",
	Short: "List the chunk paths a bundler runtime can load",
	Long: `Read a runtime or bootstrap script and print every chunk path its loader can
produce. The script is read from the given file, or from stdin when the
argument is "-" or missing. Nothing is fetched and nothing is executed.

Examples:
  chunkmap reconstruct runtime-main.js
  curl -s https://example.com/static/js/runtime.js | chunkmap reconstruct -o json
  chunkmap reconstruct runtime.js --base https://example.com/static/js/runtime.js`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReconstruct,
}

func init() {
	reconstructCmd.Flags().StringVarP(&reconstructFormat, "format", "o", "human", "Output format (json, yaml, toml, human)")
	reconstructCmd.Flags().StringVar(&reconstructBase, "base", "", "URL of the script, to resolve chunk paths to absolute URLs")
	rootCmd.AddCommand(reconstructCmd)
}

func runReconstruct(cmd *cobra.Command, args []string) error {
	logger, err := cliLogger()
	if err != nil {
		return err
	}

	var base *url.URL
	if reconstructBase != "" {
		u, err := url.Parse(reconstructBase)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errors.Wrap(errors.InvalidURL, "--base must be an absolute URL", err)
		}
		base = u
	}

	name := "-"
	if len(args) == 1 {
		name = args[0]
	}
	text, err := readInput(cmd.InOrStdin(), name)
	if err != nil {
		return err
	}

	res := manifest.NewEngine(logger).Reconstruct(text)
	logger.Info("Reconstructed chunk manifest", "input", name, "shape", res.Shape.String(), "paths", len(res.Paths))

	return writeOutput(cmd.OutOrStdout(), report.FromResult(res, base), reconstructFormat)
}

// readInput reads name, or stdin for "-".
func readInput(stdin io.Reader, name string) (string, error) {
	var (
		data []byte
		err  error
	)
	if name == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return "", errors.Wrap(errors.InvalidRequest, "failed to read "+name, err)
	}
	return string(data), nil
}
