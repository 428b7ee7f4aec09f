// Package matchwatch polls a live-match status endpoint on a fixed cadence
// and publishes the latest status to subscribers.
//
// matchwatch is SDK-first: the CLI in cmd/matchwatch is a thin layer over
// [New] and [Tracker.Start]. Every tick performs at most one authenticated
// GET, classifies the outcome and delivers exactly one [Update], errors
// included. Failures never stop the loop; the next check simply runs one
// interval later.
//
// # Quick Start
//
// Parse a credential, create a tracker and run it with graceful shutdown:
//
//	token, err := matchwatch.ParseAccessToken(os.Getenv("RIOT_API_KEY"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	tr, _ := matchwatch.New(
//	    matchwatch.WithToken(token),
//	    matchwatch.WithSubscriber(func(u matchwatch.Update) {
//	        fmt.Println(u.Message)
//	    }),
//	)
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	tr.Start(ctx) // blocks until context is cancelled
//
// # Status Messages
//
// Each tick's [PollOutcome] is mapped by [Classify] to one fixed message:
//
//   - [OutcomeActive] (HTTP 200): "Match Active - Data Retrieved!"
//   - [OutcomeInactive] (any other status): "No Active Match Found."
//   - [OutcomeTransportError] (no usable response): "Error fetching data."
//
// Before the first tick an observer should show [MessageWaiting].
//
// # Configuration
//
// Trackers use the functional options pattern:
//
//	tr, err := matchwatch.New(
//	    matchwatch.WithToken(token),
//	    matchwatch.WithPollingInterval(10 * time.Second),
//	    matchwatch.WithTimeout(3 * time.Second),
//	    matchwatch.WithDashboard(8080),
//	    matchwatch.WithDiagnostics(sink),
//	)
//
// Package config reads the same settings from config/tracker_config.json or
// a YAML file.
//
// # Architecture
//
// matchwatch consists of several internal packages (under internal/):
//
//   - internal/poller: the tick loop and the HTTP check
//   - internal/store: latest status and history for the dashboard
//   - internal/server: REST API and Server-Sent Events
//   - internal/metrics: Prometheus collectors
//   - internal/relay: Redis pub/sub relay
//   - internal/tui: the terminal UI used by "matchwatch watch"
//   - dashboard: embedded web UI assets
//
// The internal packages are not part of the public API and may change
// without notice.
package matchwatch
