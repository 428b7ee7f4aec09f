// Standalone mock match server for trying the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockserver
//
// Then in another terminal:
//
//	go run ./cmd/matchwatch watch -c example/tracker.yaml
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
)

func main() {
	addr := flag.String("addr", ":9999", "listen address")
	flag.Parse()

	fmt.Printf("Mock match server starting on %s\n", *addr)
	fmt.Println("POST /toggle starts or ends the match")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	var active atomic.Bool

	mux := http.NewServeMux()
	mux.HandleFunc("GET /valorant/v1/matches", func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("X-Riot-Token"), "RGAPI-") {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if !active.Load() {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"matchInfo":{"queueId":"competitive"}}`))
	})
	mux.HandleFunc("POST /toggle", func(w http.ResponseWriter, r *http.Request) {
		now := !active.Load()
		active.Store(now)
		slog.Info("match state change", "active", now)
		fmt.Fprintf(w, "active=%t\n", now)
	})

	if err := http.ListenAndServe(*addr, mux); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
