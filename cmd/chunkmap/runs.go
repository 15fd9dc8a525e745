package main

import (
	"github.com/spf13/cobra"

	"chunkmap/internal/errors"
	"chunkmap/internal/ledger"
)

var (
	runsLimit  int
	runsFormat string
)

var runsCmd = &cobra.Command{
	Use:   "runs [run-id]",
	Short: "List crawl runs recorded in the ledger",
	Long: `Without an argument, list the most recent crawl runs. With a run id, show that
run and every artifact it saved.

Examples:
  chunkmap runs
  chunkmap runs --limit 5 -o json
  chunkmap runs 2f1c0e7a-6d0b-4a0e-9a55-0c1d2e3f4a5b`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRuns,
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "Maximum runs to list (0 = all)")
	runsCmd.Flags().StringVarP(&runsFormat, "format", "o", "human", "Output format (json, yaml, toml, human)")
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	if !appConfig.Ledger.Enabled {
		return errors.New(errors.ConfigInvalid, "the run ledger is disabled").
			WithDetails(map[string]string{"field": "ledger.enabled"})
	}

	logger, err := cliLogger()
	if err != nil {
		return err
	}
	led, err := ledger.Open(appConfig.Ledger.Path, logger)
	if err != nil {
		return err
	}
	defer led.Close()

	if len(args) == 1 {
		run, err := led.GetRun(args[0])
		if err != nil {
			return err
		}
		artifacts, err := led.Artifacts(run.ID)
		if err != nil {
			return err
		}
		if artifacts == nil {
			artifacts = []ledger.Artifact{}
		}
		return writeOutput(cmd.OutOrStdout(), &RunDetailResponseCLI{Run: run, Artifacts: artifacts}, runsFormat)
	}

	runs, err := led.Runs(runsLimit)
	if err != nil {
		return err
	}
	if runs == nil {
		runs = []ledger.Run{}
	}
	return writeOutput(cmd.OutOrStdout(), &RunsResponseCLI{Ledger: led.Path(), Runs: runs}, runsFormat)
}
