package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/matchwatch"
)

const (
	shutdownTimeout = 10 * time.Second
)

// serveCmd runs the tracker without a terminal UI.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the tracker headless",
	Long: `Run the tracker without a terminal UI.

The tracker will:
  - Load the credential from the config file
  - Poll the match status endpoint at the configured interval
  - Log every status change as JSON on stderr
  - Serve the web dashboard when --port (or dashboard.port) is set

It runs until interrupted (Ctrl+C) or it receives SIGTERM.

Example:
  matchwatch serve
  matchwatch serve -c /etc/matchwatch/tracker.yaml --port 8080`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 0, "web dashboard port (overrides dashboard.port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, headless)
	if err != nil {
		return err
	}
	defer a.close()

	port, _ := cmd.Flags().GetInt("port")
	opts := append(a.options(port), matchwatch.WithSubscriber(func(u matchwatch.Update) {
		a.logger.Info("status",
			"tick", u.Tick,
			"outcome", u.Outcome.Kind.String(),
			"message", u.Message.String(),
		)
	}))

	tr, err := matchwatch.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create tracker: %w", err)
	}

	// cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		errChan <- tr.Start(ctx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("tracker error: %w", err)
		}
		a.logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		// signal received, wait for the in-flight check with a bound
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("tracker error: %w", err)
			}
			a.logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			a.logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}
