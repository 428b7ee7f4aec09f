package matchwatch

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"

	"github.com/jpalmerr/matchwatch/diagnostics"
	"github.com/jpalmerr/matchwatch/internal/poller"
)

const testInterval = 10 * time.Millisecond

func testToken(t *testing.T) AccessToken {
	t.Helper()
	tok, err := ParseAccessToken("RGAPI-test-token")
	if err != nil {
		t.Fatalf("ParseAccessToken() error = %v", err)
	}
	return tok
}

// collector gathers updates delivered to a handler.
type collector struct {
	mu      sync.Mutex
	updates []Update
	notify  chan struct{}
}

func newCollector() *collector {
	return &collector{notify: make(chan struct{}, 1000)}
}

func (c *collector) handle(u Update) {
	c.mu.Lock()
	c.updates = append(c.updates, u)
	c.mu.Unlock()
	c.notify <- struct{}{}
}

func (c *collector) waitFor(t *testing.T, n int) []Update {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		c.mu.Lock()
		if len(c.updates) >= n {
			out := append([]Update(nil), c.updates...)
			c.mu.Unlock()
			return out
		}
		c.mu.Unlock()
		select {
		case <-c.notify:
		case <-deadline:
			t.Fatalf("received %d updates, want %d", len(c.updates), n)
		}
	}
}

// runTracker starts tr in the background and returns a stop function that
// cancels it and waits for Start to return.
func runTracker(t *testing.T, tr *Tracker) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tr.Start(ctx) }()

	return func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Start() returned error: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("Start() did not return after context cancellation")
		}
	}
}

func statusServer(status int, hits *atomic.Int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		w.WriteHeader(status)
	}))
}

func TestTracker_ActiveMatch(t *testing.T) {
	ts := statusServer(http.StatusOK, nil)
	defer ts.Close()

	c := newCollector()
	tr, err := New(
		WithToken(testToken(t)),
		WithEndpoint(ts.URL),
		WithPollingInterval(testInterval),
		WithSubscriber(c.handle),
		WithLogger(discardLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	stop := runTracker(t, tr)
	updates := c.waitFor(t, 3)
	stop()

	for i, u := range updates[:3] {
		if u.Message != MessageActive {
			t.Errorf("update %d message = %q, want %q", i, u.Message, MessageActive)
		}
		if u.Outcome.Kind != OutcomeActive {
			t.Errorf("update %d kind = %v, want active", i, u.Outcome.Kind)
		}
		if u.StatusCode != http.StatusOK {
			t.Errorf("update %d status = %d, want 200", i, u.StatusCode)
		}
		if u.Tick != uint64(i+1) {
			t.Errorf("update %d tick = %d, want %d", i, u.Tick, i+1)
		}
		if u.CheckedAt.IsZero() {
			t.Errorf("update %d CheckedAt is zero", i)
		}
	}
}

func TestTracker_NoActiveMatch(t *testing.T) {
	ts := statusServer(http.StatusNotFound, nil)
	defer ts.Close()

	c := newCollector()
	tr, err := New(
		WithToken(testToken(t)),
		WithEndpoint(ts.URL),
		WithPollingInterval(testInterval),
		WithSubscriber(c.handle),
		WithLogger(discardLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	stop := runTracker(t, tr)
	updates := c.waitFor(t, 1)
	stop()

	if updates[0].Message != "No Active Match Found." {
		t.Errorf("message = %q, want %q", updates[0].Message, "No Active Match Found.")
	}
	if len(tr.Diagnostics()) != 0 {
		t.Errorf("inactive ticks should not record diagnostics, got %+v", tr.Diagnostics())
	}
}

func TestTracker_SendsTokenHeader(t *testing.T) {
	var got atomic.Value
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.Store(r.Header.Get("X-Riot-Token"))
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	tr, err := New(WithToken(testToken(t)), WithEndpoint(ts.URL), WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	u := tr.Check(context.Background())
	if u.Message != MessageActive {
		t.Fatalf("Check() message = %q, want active", u.Message)
	}
	if got.Load() != "RGAPI-test-token" {
		t.Errorf("X-Riot-Token = %v, want RGAPI-test-token", got.Load())
	}
}

func TestTracker_TransportError(t *testing.T) {
	// closed port: connection refused
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	var sunk []string
	var mu sync.Mutex
	sink := diagnostics.Func(func(e diagnostics.Entry) {
		mu.Lock()
		sunk = append(sunk, e.Message)
		mu.Unlock()
	})

	c := newCollector()
	tr, err := New(
		WithToken(testToken(t)),
		WithEndpoint("http://"+addr),
		WithPollingInterval(testInterval),
		WithSubscriber(c.handle),
		WithDiagnostics(sink),
		WithLogger(discardLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	stop := runTracker(t, tr)
	updates := c.waitFor(t, 2)
	stop()

	for _, u := range updates {
		if u.Message != MessageError {
			t.Errorf("message = %q, want %q", u.Message, MessageError)
		}
		if u.Outcome.Kind != OutcomeTransportError || u.Outcome.Detail == "" {
			t.Errorf("outcome = %+v, want transport error with detail", u.Outcome)
		}
		if u.StatusCode != 0 {
			t.Errorf("status = %d, want 0", u.StatusCode)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(sunk) < 2 {
		t.Fatalf("diagnostics = %v, want one per failed tick", sunk)
	}
	for _, msg := range sunk {
		if !strings.HasPrefix(msg, "API Error: ") {
			t.Errorf("diagnostic %q should start with %q", msg, "API Error: ")
		}
	}
	if len(tr.Diagnostics()) < 2 {
		t.Errorf("ring should hold the same diagnostics, got %d", len(tr.Diagnostics()))
	}
}

func TestTracker_AbsentTokenDoesNoIO(t *testing.T) {
	var hits atomic.Int32
	ts := statusServer(http.StatusOK, &hits)
	defer ts.Close()

	c := newCollector()
	tr, err := New(
		WithEndpoint(ts.URL),
		WithPollingInterval(testInterval),
		WithSubscriber(c.handle),
		WithLogger(discardLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	stop := runTracker(t, tr)
	updates := c.waitFor(t, 3)
	stop()

	for _, u := range updates {
		if u.Message != MessageError {
			t.Errorf("message = %q, want %q", u.Message, MessageError)
		}
		if u.Outcome.Detail != poller.MissingCredentialDetail {
			t.Errorf("detail = %q, want %q", u.Outcome.Detail, poller.MissingCredentialDetail)
		}
	}
	if n := hits.Load(); n != 0 {
		t.Errorf("server received %d requests, want 0", n)
	}
}

func TestTracker_TicksConsecutiveAcrossOutcomes(t *testing.T) {
	var n atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// alternate match state
		if n.Add(1)%2 == 0 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	c := newCollector()
	tr, err := New(
		WithToken(testToken(t)),
		WithEndpoint(ts.URL),
		WithPollingInterval(testInterval),
		WithSubscriber(c.handle),
		WithLogger(discardLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	stop := runTracker(t, tr)
	updates := c.waitFor(t, 6)
	stop()

	for i, u := range updates {
		if u.Tick != uint64(i+1) {
			t.Fatalf("update %d has tick %d, ticks must be consecutive from 1", i, u.Tick)
		}
		want := MessageActive
		if i%2 == 1 {
			want = MessageInactive
		}
		if u.Message != want {
			t.Errorf("tick %d message = %q, want %q", u.Tick, u.Message, want)
		}
	}
}

func TestTracker_MultipleSubscribersSameSequence(t *testing.T) {
	ts := statusServer(http.StatusOK, nil)
	defer ts.Close()

	a, b := newCollector(), newCollector()
	tr, err := New(
		WithToken(testToken(t)),
		WithEndpoint(ts.URL),
		WithPollingInterval(testInterval),
		WithSubscriber(a.handle),
		WithLogger(discardLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	tr.Subscribe(b.handle)

	stop := runTracker(t, tr)
	a.waitFor(t, 3)
	b.waitFor(t, 3)
	stop()

	ua, ub := a.waitFor(t, 3), b.waitFor(t, 3)
	for i := 0; i < 3; i++ {
		if ua[i].Tick != ub[i].Tick {
			t.Errorf("subscribers diverge at %d: %d vs %d", i, ua[i].Tick, ub[i].Tick)
		}
	}
}

func TestTracker_UnsubscribeStopsDelivery(t *testing.T) {
	ts := statusServer(http.StatusOK, nil)
	defer ts.Close()

	tr, err := New(
		WithToken(testToken(t)),
		WithEndpoint(ts.URL),
		WithPollingInterval(testInterval),
		WithLogger(discardLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	c := newCollector()
	unsub := tr.Subscribe(c.handle)

	stop := runTracker(t, tr)
	c.waitFor(t, 1)
	unsub()

	c.mu.Lock()
	seen := len(c.updates)
	c.mu.Unlock()

	time.Sleep(10 * testInterval)
	stop()

	c.mu.Lock()
	defer c.mu.Unlock()
	// at most one delivery can be in flight while unsubscribing
	if len(c.updates) > seen+1 {
		t.Errorf("got %d updates after unsubscribe, want at most %d", len(c.updates), seen+1)
	}
}

func TestTracker_NoUpdatesAfterStop(t *testing.T) {
	ts := statusServer(http.StatusOK, nil)
	defer ts.Close()

	c := newCollector()
	tr, err := New(
		WithToken(testToken(t)),
		WithEndpoint(ts.URL),
		WithPollingInterval(testInterval),
		WithSubscriber(c.handle),
		WithLogger(discardLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	stop := runTracker(t, tr)
	c.waitFor(t, 2)
	stop()

	c.mu.Lock()
	count := len(c.updates)
	c.mu.Unlock()

	time.Sleep(10 * testInterval)

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.updates) != count {
		t.Errorf("updates grew from %d to %d after Start returned", count, len(c.updates))
	}
}

func TestTracker_NoQueuedUpdatesAfterCancel(t *testing.T) {
	ts := statusServer(http.StatusNotFound, nil)
	defer ts.Close()

	var (
		cancelled  atomic.Bool
		afterCount atomic.Int32
		calls      atomic.Int32
	)
	entered := make(chan struct{})
	release := make(chan struct{})

	// the first delivery blocks so later ticks queue up behind it
	handler := func(u Update) {
		if calls.Add(1) == 1 {
			close(entered)
			<-release
			return
		}
		if cancelled.Load() {
			afterCount.Add(1)
		}
	}

	tr, err := New(
		WithToken(testToken(t)),
		WithEndpoint(ts.URL),
		WithPollingInterval(time.Millisecond),
		WithSubscriber(handler),
		WithLogger(discardLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tr.Start(ctx) }()

	select {
	case <-entered:
	case <-time.After(3 * time.Second):
		t.Fatal("first update never delivered")
	}

	// let the poller fill the results buffer
	time.Sleep(300 * time.Millisecond)

	cancelled.Store(true)
	cancel()
	close(release)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start() returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return after context cancellation")
	}

	if n := afterCount.Load(); n != 0 {
		t.Errorf("%d updates delivered after cancellation, want 0", n)
	}
}

func TestTracker_CancelDuringSlowCheck(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()
	defer close(release)

	c := newCollector()
	tr, err := New(
		WithToken(testToken(t)),
		WithEndpoint(ts.URL),
		WithPollingInterval(testInterval),
		WithTimeout(time.Minute),
		WithSubscriber(c.handle),
		WithLogger(discardLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	stop := runTracker(t, tr)
	time.Sleep(50 * time.Millisecond)
	start := time.Now()
	stop()

	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("shutdown took %v with a check in flight", elapsed)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.updates) != 0 {
		t.Errorf("cancelled check published %d updates, want 0", len(c.updates))
	}
}

func TestTracker_LatestAndMetrics(t *testing.T) {
	ts := statusServer(http.StatusOK, nil)
	defer ts.Close()

	reg := prometheus.NewRegistry()
	c := newCollector()
	tr, err := New(
		WithToken(testToken(t)),
		WithEndpoint(ts.URL),
		WithPollingInterval(testInterval),
		WithSubscriber(c.handle),
		WithMetricsRegistry(reg),
		WithLogger(discardLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	stop := runTracker(t, tr)
	c.waitFor(t, 2)
	stop()

	latest, ok := tr.Latest()
	if !ok {
		t.Fatal("Latest() reported no update")
	}
	if latest.Message != MessageActive {
		t.Errorf("Latest().Message = %q", latest.Message)
	}

	if got := testutil.ToFloat64(tr.metrics.PollsTotal.WithLabelValues("active")); got < 2 {
		t.Errorf("polls_total{outcome=active} = %v, want >= 2", got)
	}
	if got := testutil.ToFloat64(tr.metrics.MatchActive); got != 1 {
		t.Errorf("match_active = %v, want 1", got)
	}
}

func TestTracker_StartTwice(t *testing.T) {
	tr, err := New(WithPollingInterval(testInterval), WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	stop := runTracker(t, tr)
	defer stop()
	time.Sleep(20 * time.Millisecond)

	if err := tr.Start(context.Background()); err != ErrAlreadyRunning {
		t.Errorf("second Start() error = %v, want ErrAlreadyRunning", err)
	}
}

func TestTracker_StartCancelledContext(t *testing.T) {
	tr, err := New(WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { done <- tr.Start(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return with already-cancelled context")
	}
}

func TestTracker_CheckDoesNotPublish(t *testing.T) {
	ts := statusServer(http.StatusNotFound, nil)
	defer ts.Close()

	c := newCollector()
	tr, err := New(
		WithToken(testToken(t)),
		WithEndpoint(ts.URL),
		WithSubscriber(c.handle),
		WithLogger(discardLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	u := tr.Check(context.Background())
	if u.Tick != 0 {
		t.Errorf("Check() tick = %d, want 0", u.Tick)
	}
	if u.Message != MessageInactive {
		t.Errorf("Check() message = %q, want %q", u.Message, MessageInactive)
	}
	if _, ok := tr.Latest(); ok {
		t.Error("Check() should not change Latest()")
	}
	if len(c.updates) != 0 {
		t.Error("Check() should not publish to subscribers")
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer func() { _ = ln.Close() }()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestTracker_Dashboard(t *testing.T) {
	ts := statusServer(http.StatusOK, nil)
	defer ts.Close()

	port := freePort(t)
	c := newCollector()
	tr, err := New(
		WithToken(testToken(t)),
		WithEndpoint(ts.URL),
		WithPollingInterval(testInterval),
		WithDashboard(port),
		WithSubscriber(c.handle),
		WithLogger(discardLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	stop := runTracker(t, tr)
	defer stop()
	c.waitFor(t, 1)

	base := fmt.Sprintf("http://127.0.0.1:%d", port)

	var resp *http.Response
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err = http.Get(base + "/api/status")
		if err == nil || time.Now().After(deadline) {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("GET /api/status: %v", err)
	}
	var status struct {
		Message string `json:"message"`
		Outcome string `json:"outcome"`
	}
	err = json.NewDecoder(resp.Body).Decode(&status)
	_ = resp.Body.Close()
	if err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.Message != MessageActive.String() || status.Outcome != "active" {
		t.Errorf("status = %+v, want active", status)
	}

	resp, err = http.Get(base + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /metrics = %d, want 200", resp.StatusCode)
	}

	resp2, err := http.Get(base + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer func() { _ = resp2.Body.Close() }()
	if resp2.StatusCode != http.StatusOK {
		t.Errorf("GET / = %d, want 200", resp2.StatusCode)
	}
}

func TestTracker_DashboardPortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer func() { _ = ln.Close() }()

	tr, err := New(
		WithDashboard(ln.Addr().(*net.TCPAddr).Port),
		WithPollingInterval(testInterval),
		WithLogger(discardLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	err = tr.Start(context.Background())
	if err == nil || !strings.Contains(err.Error(), "failed to start HTTP server") {
		t.Errorf("Start() error = %v, want server start failure", err)
	}
}

// relayRecorder fakes a go-redis client for relay wiring.
type relayRecorder struct {
	mu       sync.Mutex
	channels []string
}

func (r *relayRecorder) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	r.mu.Lock()
	r.channels = append(r.channels, channel)
	r.mu.Unlock()
	cmd := redis.NewIntCmd(ctx, "publish", channel, message)
	cmd.SetVal(1)
	return cmd
}

func TestTracker_RedisRelay(t *testing.T) {
	ts := statusServer(http.StatusOK, nil)
	defer ts.Close()

	rec := &relayRecorder{}
	c := newCollector()
	tr, err := New(
		WithToken(testToken(t)),
		WithEndpoint(ts.URL),
		WithPollingInterval(testInterval),
		WithRedisRelay(rec, "match:feed"),
		WithSubscriber(c.handle),
		WithLogger(discardLogger()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	stop := runTracker(t, tr)
	c.waitFor(t, 2)
	stop()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.channels) < 2 {
		t.Fatalf("relay published %d times, want >= 2", len(rec.channels))
	}
	if rec.channels[0] != "match:feed" {
		t.Errorf("channel = %q, want match:feed", rec.channels[0])
	}
}
