package main

import (
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"
)

// matchPath mirrors the path of the real match status endpoint.
const matchPath = "/valorant/v1/matches"

// StartMockMatchServer runs a mock match status endpoint on addr.
//
// It answers 200 while a "match" is in progress and 404 otherwise, flipping
// every 20-60 seconds. Requests without an RGAPI- token get 403.
// Call this in a goroutine before starting the tracker.
func StartMockMatchServer(addr string) {
	var (
		mu           sync.Mutex
		active       bool
		nextChangeAt = time.Now().Add(nextFlip())
	)

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+matchPath, func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("X-Riot-Token"), "RGAPI-") {
			http.Error(w, `{"status":{"message":"Forbidden","status_code":403}}`, http.StatusForbidden)
			return
		}

		// simulate small latency variance
		time.Sleep(time.Duration(50+rand.Intn(150)) * time.Millisecond)

		mu.Lock()
		if time.Now().After(nextChangeAt) {
			active = !active
			nextChangeAt = time.Now().Add(nextFlip())
			slog.Info("match state change", "active", active)
		}
		isActive := active
		mu.Unlock()

		if !isActive {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]any{
			"matchInfo": map[string]string{"queueId": "competitive"},
		}); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	})

	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("mock server error", "error", err)
	}
}

// nextFlip returns a random delay between 20 and 60 seconds.
func nextFlip() time.Duration {
	return time.Duration(20+rand.Intn(41)) * time.Second
}
