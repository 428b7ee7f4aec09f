package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jpalmerr/matchwatch/config"
)

// validateCmd validates a config file without starting the tracker.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a matchwatch configuration file without starting the tracker.

This command parses the file, expands environment variables (including those
from .env), and validates all fields and the api_key. It's useful for CI/CD
pipelines or pre-deployment checks. The key itself is never printed.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  matchwatch validate
  matchwatch validate -c /etc/matchwatch/tracker.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	token, err := cfg.Credential()
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  API key:       %s\n", token)
	fmt.Fprintf(out, "  Endpoint:      %s\n", cfg.Endpoint)
	fmt.Fprintf(out, "  Poll interval: %s\n", cfg.PollInterval.Duration())
	fmt.Fprintf(out, "  Timeout:       %s\n", cfg.Timeout.Duration())
	fmt.Fprintf(out, "  Log file:      %s\n", cfg.LogFile)
	if cfg.Dashboard.Port > 0 {
		fmt.Fprintf(out, "  Dashboard:     http://localhost:%d (%s)\n", cfg.Dashboard.Port, cfg.Dashboard.Title)
	} else {
		fmt.Fprintf(out, "  Dashboard:     disabled\n")
	}
	if cfg.Redis.Addr != "" {
		fmt.Fprintf(out, "  Redis relay:   %s on %s\n", cfg.Redis.Addr, cfg.Redis.Channel)
	}

	return nil
}
