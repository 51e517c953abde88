package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/railpulse"
	"github.com/jpalmerr/railpulse/config"
	"github.com/spf13/cobra"
)

const (
	shutdownTimeout = 10 * time.Second
)

// serveCmd starts the railpulse dashboard server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard server",
	Long: `Start the railpulse dashboard server.

The server will:
  - Load configuration from the given YAML file, or use defaults
  - Poll Railway for the latest deployment of every service
  - Serve the dashboard UI on the configured port

Without a token the dashboard shows an unconfigured state until one is
saved with "railpulse token set".

The server runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  railpulse serve
  railpulse serve -c config.yaml
  RAILWAY_TOKEN=... railpulse serve --debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger.Info("config loaded",
		"api_url", cfg.APIURL,
		"token_store", cfg.TokenStore.Type,
	)

	opts, closer, err := config.BuildOptions(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build options: %w", err)
	}
	defer closer.Close()

	m, err := railpulse.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create monitor: %w", err)
	}

	logger.Info("starting server",
		"port", m.Port(),
		"request_timeout", cfg.RequestTimeout.Duration().String(),
	)

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// start server - blocks until context cancelled
	errChan := make(chan error, 1)
	go func() {
		errChan <- m.Start(ctx)
	}()

	// wait for server to finish
	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		// signal received, wait for graceful shutdown with timeout
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}
