// Package diagnostics provides append-only sinks for operator-facing
// diagnostic messages.
//
// Diagnostics are free-text messages such as "API Error: ..." or
// "Config file not found. Please update tracker_config.json." that are
// recorded for later inspection. They are never read back by the poller.
//
// The main components are:
//
//   - [Sink]: the single-method interface every sink implements
//   - [File]: timestamped lines appended to a log file
//   - [Ring]: bounded in-memory history with live subscriptions, used by the
//     terminal UI and the web dashboard "Logs" views
//   - [Journal]: append-only SQLite table
//   - [Logger]: forwards messages to a [log/slog.Logger]
//   - [Multi] and [Func]: composition helpers
//
// All sinks are safe for concurrent use; the credential loader and the
// poller may record at the same time.
package diagnostics
