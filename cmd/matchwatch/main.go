// Package main is the entry point for the matchwatch CLI.
//
// matchwatch can be used as a library (SDK) or as a standalone binary
// reading config/tracker_config.json. This CLI provides the standalone
// binary approach.
//
// Usage:
//
//	matchwatch watch                        # Terminal UI with Live Match and Logs tabs
//	matchwatch serve --port 8080            # Headless, web dashboard on :8080
//	matchwatch check                        # Single status check
//	matchwatch validate -c tracker.yaml     # Validate configuration
//	matchwatch version                      # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/matchwatch/config"
)

// Version information, set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "matchwatch",
	Short: "Watch whether a live match is in progress",
	Long: `matchwatch polls the match status endpoint at a fixed interval and
shows the latest status: "Match Active - Data Retrieved!", "No Active Match
Found." or "Error fetching data.".

Quick start:
  1. Put your key in config/tracker_config.json:
       {"api_key": "RGAPI-..."}
  2. Run: matchwatch watch

The key can also come from the environment or a .env file:
  api_key: ${RIOT_API_KEY}`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// cobra already prints the error
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
	Long:  `Print the version, commit hash, and build date of this matchwatch binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "matchwatch %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", config.DefaultPath, "path to config file (.json or .yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "log at debug level")
	rootCmd.AddCommand(versionCmd)
}
