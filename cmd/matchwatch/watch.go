package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jpalmerr/matchwatch"
	"github.com/jpalmerr/matchwatch/internal/tui"
)

// watchCmd runs the tracker behind the terminal UI.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the match status in a terminal UI",
	Long: `Run the tracker with a terminal UI.

The "Live Match" tab shows the latest status, starting at "Waiting for match
data...". The "Logs" tab shows diagnostics such as API errors. Switch tabs
with Tab or 1/2, quit with q.

Process logs are written to the diagnostics log file (log_file), since the
UI owns the terminal.

Example:
  matchwatch watch
  matchwatch watch --port 8080   # also serve the web dashboard`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().IntP("port", "p", 0, "also serve the web dashboard on this port")
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, intoLogFile)
	if err != nil {
		return err
	}
	defer a.close()

	// the model starts with what the credential loader recorded
	p := tea.NewProgram(tui.New(a.cfg.Dashboard.Title, a.ring.Entries()), tea.WithAltScreen())

	port, _ := cmd.Flags().GetInt("port")
	opts := append(a.options(port),
		matchwatch.WithSubscriber(tui.Handler(p)),
		matchwatch.WithDiagnostics(tui.Sink(p)),
	)
	tr, err := matchwatch.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create tracker: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		err := tr.Start(ctx)
		if err != nil {
			p.Quit()
		}
		errChan <- err
	}()
	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	_, runErr := p.Run()
	stop()

	if err := <-errChan; err != nil {
		return fmt.Errorf("tracker error: %w", err)
	}
	if runErr != nil {
		return fmt.Errorf("terminal UI error: %w", runErr)
	}
	a.logger.Info("shutdown complete")
	return nil
}
