package main

import (
	"fmt"

	"github.com/jpalmerr/railpulse/config"
	"github.com/spf13/cobra"
)

// validateCmd validates a config file without starting the server.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a railpulse configuration file without starting the server.

This command parses the YAML, expands environment variables, and validates
all fields. It does not contact Railway or the token store.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  railpulse validate -c config.yaml
  railpulse validate --config /etc/railpulse/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	tokenSource := "token store"
	if cfg.Token != "" {
		tokenSource = "config"
	}

	fmt.Printf("Config is valid!\n")
	fmt.Printf("  Port:            %d\n", cfg.Port)
	fmt.Printf("  API URL:         %s\n", cfg.APIURL)
	fmt.Printf("  Request timeout: %s\n", cfg.RequestTimeout.Duration())
	fmt.Printf("  Token store:     %s\n", describeTokenStore(cfg.TokenStore))
	fmt.Printf("  Token from:      %s\n", tokenSource)

	return nil
}

func describeTokenStore(ts config.TokenStoreConfig) string {
	switch ts.Type {
	case config.TokenStoreFile:
		return fmt.Sprintf("file (%s)", ts.Path)
	case config.TokenStoreRedis:
		return fmt.Sprintf("redis (%s db=%d key=%s)", ts.Addr, ts.DB, ts.Key)
	default:
		return ts.Type
	}
}
