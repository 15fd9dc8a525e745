package main

import (
	stderrors "errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"chunkmap/internal/config"
	"chunkmap/internal/errors"
	"chunkmap/internal/slogutil"
	"chunkmap/internal/version"
)

var (
	verbosity  int
	quiet      bool
	configPath string

	// appConfig and loggerFactory are set before any command runs.
	appConfig     *config.Config
	loggerFactory *slogutil.LoggerFactory
)

var rootCmd = &cobra.Command{
	Use:   "chunkmap",
	Short: "chunkmap - reconstruct lazy-loaded chunk paths from bundler runtimes",
	Long: `chunkmap statically reads the chunk loader a JavaScript bundler emits into its
runtime and lists every chunk file the application can load on demand. Around
that core it crawls sites, downloads chunks and their source maps, and extracts
the original sources.`,
	Version:            version.Version,
	SilenceUsage:       true,
	SilenceErrors:      true,
	PersistentPreRunE:  setupCommand,
	PersistentPostRunE: teardownCommand,
}

func init() {
	rootCmd.SetVersionTemplate("chunkmap version {{.Version}}\n")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress log output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default .chunkmap/config.json)")
}

// setupCommand loads and validates configuration and prepares logging.
func setupCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	appConfig = cfg

	loggerFactory = slogutil.NewLoggerFactory(cfg, cmd.ErrOrStderr())
	if quiet || cmd.Flags().Changed("verbose") {
		loggerFactory.SetCLILevel(slogutil.LevelFromVerbosity(verbosity, quiet))
	}
	return nil
}

func teardownCommand(cmd *cobra.Command, args []string) error {
	if loggerFactory == nil {
		return nil
	}
	return loggerFactory.Close()
}

func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadConfigFile(configPath)
	} else {
		var wd string
		if wd, err = os.Getwd(); err == nil {
			cfg, err = config.LoadConfig(wd)
		}
	}
	if err != nil {
		return nil, errors.Wrap(errors.ConfigInvalid, "failed to load config", err)
	}

	if err := cfg.Validate(); err != nil {
		wrapped := errors.Wrap(errors.ConfigInvalid, "invalid config", err)
		var ce *config.ConfigError
		if stderrors.As(err, &ce) {
			wrapped = wrapped.WithDetails(map[string]string{"field": ce.Field})
		}
		return nil, wrapped
	}
	return cfg, nil
}

// cliLogger returns the command logger.
func cliLogger() (*slog.Logger, error) {
	return loggerFactory.CLILogger()
}

func asChunkmapError(err error, target **errors.ChunkmapError) bool {
	return stderrors.As(err, target)
}
