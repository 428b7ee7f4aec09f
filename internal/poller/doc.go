// Package poller runs the periodic live-match status check for matchwatch.
//
// This package is internal to matchwatch. It owns the polling loop: one
// authenticated GET per tick, classification of the outcome, and ordered
// delivery of the result on a channel. Ticks are separated by a fixed
// interval with no backoff.
//
// The main components are:
//
//   - [Client]: HTTP [Checker] with per-request timeouts
//   - [Poller]: the tick loop with Start/Stop lifecycle
//   - [Result]: what a single tick produced
//
// Users of the matchwatch library should not need to interact with this
// package directly. Configuration is done through the main matchwatch package.
package poller
