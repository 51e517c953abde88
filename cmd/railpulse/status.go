package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/jpalmerr/railpulse"
	"github.com/jpalmerr/railpulse/config"
	"github.com/spf13/cobra"
)

// errNotConfigured is returned when no API token is available.
var errNotConfigured = errors.New(`no Railway API token configured (run "railpulse token set <token>" or set RAILWAY_TOKEN)`)

// statusCmd fetches a single snapshot and prints it.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Fetch deployment status once and print a summary",
	Long: `Fetch the latest deployment of every service once and print a summary.

No server is started. The exit code is non-zero when the fetch fails or no
token is configured.

Example:
  railpulse status
  railpulse status -c config.yaml --json`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringP("config", "c", "", "path to config file")
	statusCmd.Flags().Bool("json", false, "print the full snapshot as JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts, closer, err := config.BuildOptions(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build options: %w", err)
	}
	defer closer.Close()

	m, err := railpulse.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create monitor: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RequestTimeout.Duration()*4)
	defer cancel()

	if err := m.Refresh(ctx); err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}

	snap := m.Snapshot()
	if !snap.Configured {
		return errNotConfigured
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}
	return printSummary(out, snap)
}

func printSummary(out io.Writer, snap railpulse.Snapshot) error {
	c := snap.Summary.Counts
	fmt.Fprintf(out, "%d services: %d running, %d errored, %d deploying, %d sleeping\n",
		c.Total, c.Running, c.Errored, c.Active, c.Sleeping)

	if w := snap.RateLimitWarning; w != nil {
		fmt.Fprintf(out, "warning: %s\n", w.Message)
	}

	if len(snap.Summary.Badges) == 0 {
		return nil
	}

	fmt.Fprintln(out)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PROJECT\tSTATUS")
	for _, b := range snap.Summary.Badges {
		fmt.Fprintf(tw, "%s\t%s\n", b.ProjectName, b.Badge)
	}
	return tw.Flush()
}
