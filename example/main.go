package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/matchwatch"
	"github.com/jpalmerr/matchwatch/diagnostics"
)

func main() {
	// start mock server (see mock_server.go)
	go StartMockMatchServer(":9999")
	time.Sleep(100 * time.Millisecond)

	token, err := matchwatch.ParseAccessToken("RGAPI-demo-0000-0000")
	if err != nil {
		slog.Error("invalid token", "error", err)
		os.Exit(1)
	}

	tr, err := matchwatch.New(
		matchwatch.WithToken(token),
		matchwatch.WithEndpoint("http://localhost:9999/valorant/v1/matches"),
		matchwatch.WithPollingInterval(5*time.Second),
		matchwatch.WithDashboard(8080),
		matchwatch.WithDiagnostics(diagnostics.Func(func(e diagnostics.Entry) {
			fmt.Printf("  [%s] %s\n", e.At.Format(time.TimeOnly), e.Message)
		})),
		matchwatch.WithSubscriber(func(u matchwatch.Update) {
			fmt.Printf("  [%s] #%d %s\n", u.CheckedAt.Format(time.TimeOnly), u.Tick, u.Message)
		}),
	)
	if err != nil {
		slog.Error("failed to create tracker", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════════════════╗")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   matchwatch Demo                                     ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Open http://localhost:8080 in your browser          ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   The mock match starts and ends every 20-60s         ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Press Ctrl+C to stop                                ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ╚═══════════════════════════════════════════════════════╝")
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := tr.Start(ctx); err != nil {
		slog.Error("tracker error", "error", err)
		os.Exit(1)
	}
}
