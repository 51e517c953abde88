package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/jpalmerr/railpulse/config"
	"github.com/spf13/cobra"
)

// tokenCmd groups token management subcommands.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage the Railway API token",
}

// tokenSetCmd saves a token to the configured token store.
var tokenSetCmd = &cobra.Command{
	Use:   "set [token]",
	Short: "Save the Railway API token",
	Long: `Save the Railway API token to the configured token store.

The token is read from the argument, or from stdin when no argument is given.
A static token store (token set in config) cannot be written to.

Example:
  railpulse token set rw_abc123
  echo rw_abc123 | railpulse token set
  railpulse token set -c config.yaml rw_abc123`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTokenSet,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenSetCmd)

	tokenSetCmd.Flags().StringP("config", "c", "", "path to config file")
}

func runTokenSet(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.TokenStore.Type == config.TokenStoreStatic {
		return errors.New("token store is static; remove token from the config or choose a file or redis store")
	}

	var token string
	if len(args) == 1 {
		token = args[0]
	} else {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("failed to read token from stdin: %w", err)
		}
		token = line
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("token cannot be empty")
	}

	store, closer, err := config.BuildTokenStore(cfg, newLogger(cmd))
	if err != nil {
		return err
	}
	defer closer.Close()

	if err := store.Save(token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Token saved to %s store\n", cfg.TokenStore.Type)
	return nil
}
