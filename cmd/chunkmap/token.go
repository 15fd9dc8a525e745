package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"chunkmap/internal/auth"
	"chunkmap/internal/config"
	"chunkmap/internal/errors"
)

var (
	tokenSave   bool
	tokenFormat string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Generate an API token for chunkmap serve",
	Long: `Generate a random API token and print it with its bcrypt hash. Only the hash
is stored: put it in server.tokenHash, or pass --save to write it to
.chunkmap/config.json in the current directory. Clients then send
"Authorization: Bearer <token>".

Examples:
  chunkmap token
  chunkmap token --save`,
	Args: cobra.NoArgs,
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().BoolVar(&tokenSave, "save", false, "Store the hash in .chunkmap/config.json")
	tokenCmd.Flags().StringVarP(&tokenFormat, "format", "o", "human", "Output format (json, yaml, toml, human)")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	token, err := auth.GenerateToken()
	if err != nil {
		return errors.Wrap(errors.InternalError, "failed to generate token", err)
	}
	hash, err := auth.HashToken(token)
	if err != nil {
		return errors.Wrap(errors.InternalError, "failed to hash token", err)
	}

	resp := &TokenResponseCLI{Token: token, Hash: hash}
	if tokenSave {
		dir, err := os.Getwd()
		if err != nil {
			return err
		}
		cfg := *appConfig
		cfg.Server.TokenHash = hash
		if err := cfg.Save(dir); err != nil {
			return errors.Wrap(errors.StoreFailed, "failed to save config", err)
		}
		resp.SavedTo = filepath.Join(dir, config.DirName, "config.json")
	}

	return writeOutput(cmd.OutOrStdout(), resp, tokenFormat)
}
