// Package dashboard provides the embedded web UI assets for matchwatch.
//
// The page mirrors the terminal UI: a "Live Match" tab with the current
// status message and a read-only "Logs" tab fed by diagnostics. Both update
// live over Server-Sent Events.
package dashboard

import "embed"

// Assets is an embedded filesystem containing the dashboard web UI.
//
//	assets/
//	  index.html    - dashboard page with inline CSS and JavaScript
//
//go:embed assets/*
var Assets embed.FS
