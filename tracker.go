package matchwatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/jpalmerr/matchwatch/dashboard"
	"github.com/jpalmerr/matchwatch/diagnostics"
	"github.com/jpalmerr/matchwatch/internal/metrics"
	"github.com/jpalmerr/matchwatch/internal/poller"
	"github.com/jpalmerr/matchwatch/internal/relay"
	"github.com/jpalmerr/matchwatch/internal/server"
	"github.com/jpalmerr/matchwatch/internal/store"
)

// ErrAlreadyRunning is returned by [Tracker.Start] while another Start call
// on the same tracker has not returned.
var ErrAlreadyRunning = errors.New("tracker already running")

// Tracker polls the match status endpoint and publishes one [Update] per tick.
//
// Tracker is created using [New] with functional options and run with
// [Tracker.Start]:
//
//	tr, err := matchwatch.New(
//	    matchwatch.WithToken(token),
//	    matchwatch.WithSubscriber(func(u matchwatch.Update) {
//	        fmt.Println(u.Message)
//	    }),
//	)
//	if err != nil {
//	    slog.Error("failed to create tracker", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	tr.Start(ctx) // blocks until context cancelled
type Tracker struct {
	token           AccessToken
	endpoint        string
	pollingInterval time.Duration
	timeout         time.Duration
	port            int
	title           string
	logger          *slog.Logger

	diag  DiagnosticsSink
	ring  *diagnostics.Ring
	feed  *feed
	store *store.MemoryStore

	registry *prometheus.Registry
	metrics  *metrics.Metrics
	checker  poller.Checker
	tracer   trace.Tracer
	relay    *relay.Relay

	running atomic.Bool

	mu        sync.RWMutex
	latest    Update
	hasLatest bool
}

// New creates a [Tracker] with the given options.
//
// Defaults:
//   - Endpoint: [DefaultEndpoint]
//   - Polling interval: 5 seconds
//   - Timeout: 5 seconds
//   - Dashboard: disabled
//   - Token: Absent (every tick reports "Error fetching data.")
//
// Returns an error if any option is invalid.
func New(opts ...Option) (*Tracker, error) {
	cfg := &trackerConfig{
		endpoint:        DefaultEndpoint,
		pollingInterval: defaultPollingInterval,
		timeout:         defaultTimeout,
		title:           DefaultTitle,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	ring := cfg.ring
	if ring == nil {
		ring = diagnostics.NewRing(0)
	}

	registry := cfg.registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	m, err := metrics.New(registry)
	if err != nil {
		return nil, err
	}

	t := &Tracker{
		token:           cfg.token,
		endpoint:        cfg.endpoint,
		pollingInterval: cfg.pollingInterval,
		timeout:         cfg.timeout,
		port:            cfg.port,
		title:           cfg.title,
		logger:          logger,
		ring:            ring,
		feed:            newFeed(logger),
		store:           store.NewMemoryStore(store.DefaultHistorySize),
		registry:        registry,
		metrics:         m,
		tracer:          cfg.tracer,
	}

	sinks := make([]diagnostics.Sink, 0, len(cfg.sinks)+1)
	sinks = append(sinks, ring)
	for _, s := range cfg.sinks {
		sinks = append(sinks, s)
	}
	t.diag = diagnostics.Multi(sinks...)

	if cfg.httpClient != nil {
		t.checker = poller.NewClientWith(cfg.httpClient)
	}
	if cfg.relay != nil {
		t.relay = relay.New(cfg.relay, cfg.relayChannel, logger)
	}

	for _, h := range cfg.subscribers {
		t.feed.subscribe(h)
	}

	return t, nil
}

// Start polls the endpoint until ctx is cancelled.
//
// Start is a blocking call. The first check runs immediately; each later
// check starts one polling interval after the previous one finished. Every
// tick is published to subscribers, recorded for [Tracker.Latest] and, when
// configured, served on the dashboard and relayed to Redis.
//
// Returns nil on graceful shutdown, [ErrAlreadyRunning] if called while
// running, or an error if the dashboard server fails to start.
func (t *Tracker) Start(ctx context.Context) error {
	if !t.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer t.running.Store(false)

	t.logger.Info("tracker starting",
		"endpoint", t.endpoint,
		"token", t.token.String(),
		"interval", t.pollingInterval.String(),
		"timeout", t.timeout.String(),
	)
	if !t.token.Present() {
		t.logger.Warn("no access token configured, every check will report an error")
	}

	// check if context already cancelled
	if ctx.Err() != nil {
		return nil
	}

	p, err := t.newPoller()
	if err != nil {
		return err
	}
	p.Start(ctx)

	// track the results consumer goroutine to ensure clean shutdown
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for result := range p.Results() {
			// results queued behind a slow subscriber are discarded once
			// cancelled; draining continues so Stop never blocks
			if ctx.Err() != nil {
				continue
			}
			t.dispatch(ctx, result)
		}
	}()

	// cleanup stops the poller and waits for the consumer to drain
	cleanup := func() {
		p.Stop() // closes results channel
		wg.Wait()
	}

	if t.port > 0 {
		srv := server.NewServer(t.store, t.ring, server.Config{
			Port:        t.port,
			Assets:      dashboard.Assets,
			Title:       t.title,
			Placeholder: MessageWaiting.String(),
			Metrics:     promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{}),
		}, t.logger)
		if err := srv.Start(ctx); err != nil {
			cleanup()
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		t.logger.Info("dashboard available", "url", fmt.Sprintf("http://localhost:%d", t.port))
	}

	<-ctx.Done()
	cleanup()
	t.logger.Info("tracker stopped")
	return nil
}

// Check performs a single status check outside the polling loop.
//
// The returned [Update] has Tick zero. It is not published to subscribers
// and does not change [Tracker.Latest]; transport failures are still
// recorded as diagnostics.
func (t *Tracker) Check(ctx context.Context) Update {
	p, err := t.newPoller()
	if err != nil {
		// newPoller only fails on invalid configuration, which New rejects
		outcome := TransportError(err.Error())
		return Update{Outcome: outcome, Message: Classify(outcome), CheckedAt: time.Now()}
	}
	defer p.Stop()

	return updateFromResult(p.PollOnce(ctx))
}

// Subscribe registers h to receive every subsequent [Update] and returns a
// function that removes it. The returned function may be called more than
// once. A nil handler is ignored.
func (t *Tracker) Subscribe(h Handler) (unsubscribe func()) {
	return t.feed.subscribe(h)
}

// Latest returns the most recently published [Update].
// The boolean is false until the first tick completes.
func (t *Tracker) Latest() (Update, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.latest, t.hasLatest
}

// Diagnostics returns the retained diagnostic entries, oldest first.
func (t *Tracker) Diagnostics() []diagnostics.Entry {
	return t.ring.Entries()
}

// Endpoint returns the configured status endpoint.
func (t *Tracker) Endpoint() string {
	return t.endpoint
}

// PollingInterval returns the configured wait between checks.
func (t *Tracker) PollingInterval() time.Duration {
	return t.pollingInterval
}

// Timeout returns the per-check timeout.
func (t *Tracker) Timeout() time.Duration {
	return t.timeout
}

// Token returns the configured access token.
func (t *Tracker) Token() AccessToken {
	return t.token
}

func (t *Tracker) newPoller() (*poller.Poller, error) {
	return poller.New(poller.Config{
		URL:             t.endpoint,
		Token:           t.token.Value(),
		Interval:        t.pollingInterval,
		Timeout:         t.timeout,
		Classifier:      classifyPollerOutcome,
		FallbackMessage: MessageError.String(),
		Diagnostics:     t.diag.Record,
		Checker:         t.checker,
		Tracer:          t.tracer,
	}, t.logger)
}

// dispatch records one tick and fans it out. Runs on the single consumer
// goroutine, so updates leave here in tick order.
func (t *Tracker) dispatch(ctx context.Context, result poller.Result) {
	u := updateFromResult(result)

	t.mu.Lock()
	t.latest = u
	t.hasLatest = true
	t.mu.Unlock()

	// store update first (subscribers fire after data is recorded)
	record := recordFromResult(result)
	t.store.Update(record)
	t.metrics.Observe(u.Tick, u.Outcome.Kind.String(), u.StatusCode, u.Latency)
	if t.relay != nil {
		// cancellation may land while this tick is being dispatched
		t.relay.Forward(context.WithoutCancel(ctx), record)
	}

	t.feed.publish(u)

	logAttrs := []any{
		"tick", u.Tick,
		"outcome", u.Outcome.Kind.String(),
		"message", u.Message.String(),
		"status_code", u.StatusCode,
		"latency_ms", u.Latency.Milliseconds(),
	}
	if result.Error != nil {
		t.logger.Warn("check completed with error", append(logAttrs, "error", result.Error.Error())...)
	} else {
		t.logger.Debug("check completed", logAttrs...)
	}
}

// classifyPollerOutcome wraps Classify for the poller.
func classifyPollerOutcome(o poller.Outcome) string {
	return Classify(outcomeFromPoller(o)).String()
}

// outcomeFromPoller converts the poller's outcome tag. Unknown tags map to
// the zero kind, which Classify rejects.
func outcomeFromPoller(o poller.Outcome) PollOutcome {
	switch o.Kind {
	case poller.KindActive:
		return Active()
	case poller.KindInactive:
		return Inactive()
	case poller.KindError:
		return TransportError(o.Detail)
	default:
		return PollOutcome{Detail: o.Detail}
	}
}

// updateFromResult converts a poller result to the public type.
func updateFromResult(r poller.Result) Update {
	return Update{
		Tick:       r.Tick,
		Outcome:    outcomeFromPoller(r.Outcome),
		Message:    StatusMessage(r.Message),
		StatusCode: r.StatusCode,
		Latency:    r.Latency,
		CheckedAt:  r.CheckedAt,
	}
}

// recordFromResult converts a poller result to a store record.
func recordFromResult(r poller.Result) store.StatusRecord {
	var errStr *string
	if r.Error != nil {
		s := r.Error.Error()
		errStr = &s
	}

	return store.StatusRecord{
		Tick:           r.Tick,
		Outcome:        string(r.Outcome.Kind),
		Message:        r.Message,
		StatusCode:     r.StatusCode,
		ResponseTimeMs: r.Latency.Milliseconds(),
		CheckedAt:      r.CheckedAt,
		Error:          errStr,
	}
}
