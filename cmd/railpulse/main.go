// Package main is the entry point for the railpulse CLI.
//
// railpulse can be embedded as a library (SDK) or run as a standalone binary
// with an optional YAML configuration. This CLI provides the standalone
// binary approach.
//
// Usage:
//
//	railpulse serve                      # Start the dashboard with defaults
//	railpulse serve -c config.yaml       # Start the dashboard from a config file
//	railpulse status                     # Fetch once and print a summary
//	railpulse token set <token>          # Persist the API token
//	railpulse validate -c config.yaml    # Validate configuration
//	railpulse version                    # Show version info
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jpalmerr/railpulse/config"
	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "railpulse",
	Short: "A live deployment dashboard for Railway",
	Long: `railpulse watches the latest deployment of every service in your
Railway projects and shows it on a live web dashboard.

It polls Railway's GraphQL API, backs off as the rate-limit budget drains,
and pushes updates to the browser with Server-Sent Events.

Quick start:
  1. Store your API token: railpulse token set <token>
  2. Run: railpulse serve
  3. Open http://localhost:8080 in your browser

Example config:
  title: Acme on Railway
  port: 8080
  token: ${RAILWAY_TOKEN:-}
  token_store:
    type: file
    path: ~/.config/railpulse/token`,
	// No Run/RunE means this just shows help when called without subcommands
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this railpulse binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("railpulse %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	// Register subcommands with root
	rootCmd.AddCommand(versionCmd)
}

// newLogger creates a JSON logger on stderr for CLI use.
func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// loadConfig reads the file named by --config, or falls back to
// [config.Default] when the flag is empty.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
