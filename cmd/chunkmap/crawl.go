package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"chunkmap/internal/config"
	"chunkmap/internal/crawl"
	"chunkmap/internal/errors"
	"chunkmap/internal/ledger"
	"chunkmap/internal/report"
)

var (
	crawlURL        string
	crawlTargets    string
	crawlRecord     bool
	crawlNoBrowser  bool
	crawlNoLedger   bool
	crawlMaxScripts int
	crawlOutput     string
	crawlFormat     string
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Discover, download and unpack a site's chunks and source maps",
	Long: `Crawl a site: discover its scripts (static HTML plus, when enabled, a headless
browser), reconstruct every chunk loader found, download scripts and chunks,
follow their source maps and extract the original sources to the output
directory. Each crawl is recorded in the run ledger.

Examples:
  chunkmap crawl --url https://example.com
  chunkmap crawl --url https://example.com --no-browser -o json
  chunkmap crawl --url https://example.com --record
  chunkmap crawl --targets sites.toml`,
	Args: cobra.NoArgs,
	RunE: runCrawl,
}

func init() {
	crawlCmd.Flags().StringVar(&crawlURL, "url", "", "Page URL to crawl")
	crawlCmd.Flags().StringVar(&crawlTargets, "targets", "", "TOML file with [[target]] entries for a batch crawl")
	crawlCmd.Flags().BoolVar(&crawlRecord, "record", false, "Record browser frames while the page loads")
	crawlCmd.Flags().BoolVar(&crawlNoBrowser, "no-browser", false, "Use static HTML discovery only")
	crawlCmd.Flags().BoolVar(&crawlNoLedger, "no-ledger", false, "Do not record the run in the ledger")
	crawlCmd.Flags().IntVar(&crawlMaxScripts, "max-scripts", 0, "Limit scripts scanned for loaders (0 = config)")
	crawlCmd.Flags().StringVar(&crawlOutput, "out", "", "Output directory (default output.dir)")
	crawlCmd.Flags().StringVarP(&crawlFormat, "format", "o", "human", "Output format (json, yaml, toml, human)")
	crawlCmd.MarkFlagsMutuallyExclusive("url", "targets")
	crawlCmd.MarkFlagsOneRequired("url", "targets")
	rootCmd.AddCommand(crawlCmd)
}

func runCrawl(cmd *cobra.Command, args []string) error {
	logger, err := cliLogger()
	if err != nil {
		return err
	}

	targets, err := crawlTargetList()
	if err != nil {
		return err
	}

	cfg := *appConfig
	if crawlOutput != "" {
		cfg.Output.Dir = crawlOutput
	}

	var led *ledger.Ledger
	if cfg.Ledger.Enabled && !crawlNoLedger {
		led, err = ledger.Open(cfg.Ledger.Path, logger)
		if err != nil {
			return err
		}
		defer led.Close()
	}

	crawler := crawl.New(&cfg, led, logger)
	defer crawler.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var failed int
	for _, target := range targets {
		summary, err := crawler.Run(ctx, target)
		if err != nil {
			failed++
			logger.Error("Crawl failed", "url", target.URL, "error", err)
			if ctx.Err() != nil || len(targets) == 1 {
				return err
			}
			printError(cmd.ErrOrStderr(), err)
			continue
		}
		if err := writeOutput(cmd.OutOrStdout(), report.FromSummary(summary), crawlFormat); err != nil {
			return err
		}
	}

	if failed > 0 {
		return errors.New(errors.FetchFailed, fmt.Sprintf("%d of %d targets failed", failed, len(targets)))
	}
	return nil
}

// crawlTargetList builds targets from --url or --targets. Command-line
// options apply to every target on top of its own settings.
func crawlTargetList() ([]config.Target, error) {
	var targets []config.Target
	if crawlTargets != "" {
		loaded, err := config.LoadTargets(crawlTargets)
		if err != nil {
			return nil, errors.Wrap(errors.ConfigInvalid, "failed to load targets from "+crawlTargets, err)
		}
		if len(loaded) == 0 {
			return nil, errors.New(errors.ConfigInvalid, crawlTargets+" defines no targets")
		}
		targets = loaded
	} else {
		targets = []config.Target{{URL: crawlURL}}
	}

	for i := range targets {
		targets[i].Record = targets[i].Record || crawlRecord
		targets[i].NoBrowser = targets[i].NoBrowser || crawlNoBrowser
		if crawlMaxScripts > 0 {
			targets[i].MaxScripts = crawlMaxScripts
		}
	}
	return targets, nil
}
