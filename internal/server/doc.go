// Package server provides the HTTP server for the match dashboard and API.
//
// This package is internal to matchwatch and handles all HTTP concerns:
//
//   - Dashboard serving: the embedded two-tab page ("Live Match", "Logs") at "/"
//   - REST API: "/api/status", "/api/history" and "/api/diagnostics"
//   - Server-Sent Events: live "status" and "log" events at "/api/sse"
//   - Prometheus metrics at "/metrics" when a handler is supplied
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
//
// The server is started by [matchwatch.Tracker.Start] when a dashboard port
// is configured.
package server
