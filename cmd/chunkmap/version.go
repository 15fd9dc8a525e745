package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"chunkmap/internal/version"
)

var versionFormat string

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if versionFormat == "human" {
			fmt.Fprintln(cmd.OutOrStdout(), version.Full())
			return nil
		}
		info := version.Get()
		return writeOutput(cmd.OutOrStdout(), &info, versionFormat)
	},
}

func init() {
	versionCmd.Flags().StringVarP(&versionFormat, "format", "o", "human", "Output format (json, yaml, toml, human)")
	rootCmd.AddCommand(versionCmd)
}
