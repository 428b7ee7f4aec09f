package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MissingCredentialDetail is the transport error detail for ticks run
// without an access token.
const MissingCredentialDetail = "missing credential"

// resultsBuffer is how many results may queue ahead of a slow consumer
// before the poller waits. Results are never dropped.
const resultsBuffer = 16

const tracerName = "github.com/jpalmerr/matchwatch/internal/poller"

// OutcomeKind is the poller-internal outcome tag.
//
// This mirrors matchwatch.OutcomeKind as a string to avoid an import cycle.
type OutcomeKind string

const (
	KindActive   OutcomeKind = "active"
	KindInactive OutcomeKind = "inactive"
	KindError    OutcomeKind = "error"
)

// Outcome is the result of one remote check before classification.
type Outcome struct {
	Kind   OutcomeKind
	Detail string
}

// Classifier maps an [Outcome] to the message published for it.
type Classifier func(Outcome) string

// Result holds everything produced by a single poll tick.
type Result struct {
	// Tick is the 1-based tick number. Zero for [Poller.PollOnce] results,
	// which are not part of the polling sequence.
	Tick uint64

	// Outcome is the classified result of the check.
	Outcome Outcome

	// Message is the classifier output for Outcome.
	Message string

	// StatusCode is the HTTP status code. Zero if no response was received.
	StatusCode int

	// Latency is the duration of the HTTP request. Zero if none was made.
	Latency time.Duration

	// CheckedAt is when the check completed.
	CheckedAt time.Time

	// Error is the transport error behind a KindError outcome, or a
	// classifier failure. nil otherwise.
	Error error
}

// Config is the runtime configuration of a [Poller].
type Config struct {
	// URL is the status endpoint. Required.
	URL string

	// Token is the access token. Empty means every tick yields
	// [MissingCredentialDetail] without network I/O.
	Token string

	// Interval is the fixed wait between the end of one tick and the start
	// of the next. Required.
	Interval time.Duration

	// Timeout bounds each request. Required.
	Timeout time.Duration

	// Classifier maps outcomes to messages. Required.
	Classifier Classifier

	// FallbackMessage is published if Classifier panics.
	FallbackMessage string

	// Diagnostics receives "API Error: <detail>" for every transport failure.
	// May be nil.
	Diagnostics func(message string)

	// Checker performs the request. nil uses a pooled [Client].
	Checker Checker

	// Tracer records one span per tick. nil uses the global otel provider.
	Tracer trace.Tracer
}

// Poller runs the status check on a fixed cadence.
//
// A Poller starts Idle; [Poller.Start] moves it to Polling, where it ticks
// until [Poller.Stop] is called or the parent context is cancelled. Each
// tick emits exactly one [Result] on the [Poller.Results] channel, in tick
// order.
//
// All lifecycle methods (Start, Stop) are safe for concurrent use.
type Poller struct {
	cfg     Config
	checker Checker
	client  *Client // owned client, closed on Stop
	tracer  trace.Tracer
	logger  *slog.Logger
	results chan Result

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	started   bool
	stopped   bool
	closeOnce sync.Once

	// tick is only touched by the polling goroutine
	tick uint64
}

// New creates a [Poller] from cfg.
//
// Returns an error if URL, Interval, Timeout or Classifier is missing.
func New(cfg Config, logger *slog.Logger) (*Poller, error) {
	if cfg.URL == "" {
		return nil, errors.New("poller: url is required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("poller: interval must be positive")
	}
	if cfg.Timeout <= 0 {
		return nil, errors.New("poller: timeout must be positive")
	}
	if cfg.Classifier == nil {
		return nil, errors.New("poller: classifier is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &Poller{
		cfg:     cfg,
		checker: cfg.Checker,
		tracer:  cfg.Tracer,
		logger:  logger,
		results: make(chan Result, resultsBuffer),
	}
	if p.checker == nil {
		p.client = NewClient()
		p.checker = p.client
	}
	if p.tracer == nil {
		p.tracer = otel.Tracer(tracerName)
	}
	return p, nil
}

// Results returns the channel on which tick results are emitted.
//
// The channel is closed when the poller stops. Consumers should read until
// it is closed. Results are delivered in tick order and never dropped; if
// the consumer falls behind by more than the buffer, the poller waits.
func (p *Poller) Results() <-chan Result {
	return p.results
}

// Start begins polling in a background goroutine.
//
// The first tick runs immediately. Start is non-blocking and idempotent;
// if Stop was called before Start, Start is a no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started || p.stopped {
		p.mu.Unlock()
		return
	}
	p.started = true

	if ctx == nil {
		ctx = context.Background()
	}
	p.ctx, p.cancel = context.WithCancel(ctx)
	pollCtx := p.ctx // capture under lock to avoid race
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		defer p.closeOnce.Do(func() { close(p.results) })
		p.run(pollCtx)
	}()
}

// run is the tick loop. Cancellation is checked before each tick, after the
// check, and during the interval wait.
func (p *Poller) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		result := p.poll(ctx)

		// a check cut short by shutdown is not an observation
		if ctx.Err() != nil {
			return
		}

		p.tick++
		result.Tick = p.tick

		select {
		case p.results <- result:
		case <-ctx.Done():
			return
		}

		timer := time.NewTimer(p.cfg.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// Stop cancels polling and waits for the loop to exit.
//
// An in-flight request is cancelled through its context. After Stop returns
// the results channel is closed and no further results are emitted. Stop is
// idempotent and safe to call before Start.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		if p.cancel != nil {
			p.cancel()
		}
	}
	p.mu.Unlock()

	p.wg.Wait()

	if p.client != nil {
		p.client.Close()
	}

	// ensure channel is closed even if Start() was never called
	p.closeOnce.Do(func() { close(p.results) })
}

// PollOnce performs a single check outside the polling sequence.
// The returned Result has Tick zero.
func (p *Poller) PollOnce(ctx context.Context) Result {
	if ctx == nil {
		ctx = context.Background()
	}
	return p.poll(ctx)
}

// poll runs one check and classifies it.
func (p *Poller) poll(ctx context.Context) Result {
	ctx, span := p.tracer.Start(ctx, "poll.tick")
	defer span.End()

	var result Result
	if p.cfg.Token == "" {
		result = Result{
			Outcome: Outcome{Kind: KindError, Detail: MissingCredentialDetail},
			Error:   errors.New(MissingCredentialDetail),
		}
	} else {
		resp := p.checker.Check(ctx, p.cfg.URL, p.cfg.Token, p.cfg.Timeout)
		result = Result{
			Outcome:    outcomeFromResponse(resp),
			StatusCode: resp.StatusCode,
			Latency:    resp.Latency,
			Error:      resp.Error,
		}
		if resp.Error != nil && ctx.Err() == nil && p.cfg.Diagnostics != nil {
			p.cfg.Diagnostics("API Error: " + resp.Error.Error())
		}
	}
	result.CheckedAt = time.Now()

	msg, err := p.safeClassify(result.Outcome)
	result.Message = msg
	if err != nil {
		result.Error = err
	}

	span.SetAttributes(
		attribute.String("matchwatch.outcome", string(result.Outcome.Kind)),
		attribute.Int("http.response.status_code", result.StatusCode),
	)
	if result.Error != nil {
		span.RecordError(result.Error)
		span.SetStatus(codes.Error, result.Error.Error())
	}

	return result
}

// outcomeFromResponse maps a response to an outcome: transport failure is an
// error, 200 is active, anything else is inactive.
func outcomeFromResponse(resp Response) Outcome {
	switch {
	case resp.Error != nil:
		return Outcome{Kind: KindError, Detail: resp.Error.Error()}
	case resp.StatusCode == 200:
		return Outcome{Kind: KindActive}
	default:
		return Outcome{Kind: KindInactive}
	}
}

// safeClassify calls the classifier with panic recovery.
// If the classifier panics, it logs the full stack trace with a correlation ID
// and returns the fallback message with an error containing the ID.
func (p *Poller) safeClassify(o Outcome) (msg string, err error) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			p.logger.Error("classifier panic",
				"correlation_id", correlationID,
				"outcome", string(o.Kind),
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			msg = p.cfg.FallbackMessage
			err = fmt.Errorf("classifier panic (correlation_id: %s)", correlationID)
		}
	}()
	return p.cfg.Classifier(o), nil
}
