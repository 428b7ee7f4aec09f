package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/matchwatch"
)

// checkCmd performs a single status check.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the match status once",
	Long: `Perform one status check and print the resulting message.

Exit codes:
  0 - the check completed (whatever the match status)
  1 - the configuration could not be loaded, or --fail-on-error was set
      and the check failed

Example:
  matchwatch check
  matchwatch check --fail-on-error`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().Bool("fail-on-error", false, "exit non-zero when the check fails")
}

func runCheck(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, headless)
	if err != nil {
		return err
	}
	defer a.close()

	tr, err := matchwatch.New(a.options(0)...)
	if err != nil {
		return fmt.Errorf("failed to create tracker: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	u := tr.Check(ctx)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, u.Message)
	if u.Outcome.Kind == matchwatch.OutcomeTransportError {
		fmt.Fprintf(out, "  detail: %s\n", u.Outcome.Detail)
		if fail, _ := cmd.Flags().GetBool("fail-on-error"); fail {
			return fmt.Errorf("check failed: %s", u.Outcome.Detail)
		}
	}
	return nil
}
