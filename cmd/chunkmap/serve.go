package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"chunkmap/internal/api"
	"chunkmap/internal/ledger"
	"chunkmap/internal/manifest"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP API server",
	Long: `Start the chunkmap HTTP API.

Endpoints:
  GET  /health                     build and status information
  POST /v1/reconstruct             chunk manifest for a posted loader script
  GET  /v1/runs                    recent crawl runs from the ledger
  GET  /v1/runs/{id}               one run
  GET  /v1/runs/{id}/artifacts     files a run saved

When server.tokenHash is set, /v1 requests need "Authorization: Bearer <token>".
Create a token with "chunkmap token".`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Address to listen on (default server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, err := loggerFactory.ServerLogger()
	if err != nil {
		return err
	}

	cfg := appConfig.Server
	if serveAddr != "" {
		cfg.Addr = serveAddr
	}

	var led *ledger.Ledger
	if appConfig.Ledger.Enabled {
		led, err = ledger.Open(appConfig.Ledger.Path, logger)
		if err != nil {
			return err
		}
		defer led.Close()
	}

	server := api.NewServer(cfg, manifest.NewEngine(logger), led, logger)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	serverErr := make(chan error, 1)
	go func() {
		fmt.Fprintf(cmd.OutOrStdout(), "chunkmap HTTP API listening on http://%s\n", cfg.Addr)
		fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to stop")
		serverErr <- server.Start()
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Error("Server error", "error", err)
			return err
		}
	case sig := <-shutdown:
		logger.Info("Received shutdown signal", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Error during shutdown", "error", err)
			return err
		}
		logger.Info("Server stopped gracefully")
	}
	return nil
}
