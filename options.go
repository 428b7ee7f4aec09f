package matchwatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"

	"github.com/jpalmerr/matchwatch/diagnostics"
)

const (
	// DefaultEndpoint is the match status endpoint polled when none is configured.
	DefaultEndpoint = "https://americas.api.riotgames.com/valorant/v1/matches"

	// DefaultTitle is shown in the terminal UI and the dashboard header.
	DefaultTitle = "Valorant Tracker"

	// DefaultRelayChannel is the Redis channel used by [WithRedisRelay]
	// when given an empty channel name.
	DefaultRelayChannel = "matchwatch:status"

	defaultPollingInterval = 5 * time.Second
	defaultTimeout         = 5 * time.Second
	maxTimeout             = time.Minute
)

// RedisPublisher is the part of a go-redis client used to relay updates.
// *redis.Client, *redis.ClusterClient and *redis.Ring all satisfy it.
type RedisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// trackerConfig holds mutable state during Tracker construction.
type trackerConfig struct {
	token           AccessToken
	endpoint        string
	pollingInterval time.Duration
	timeout         time.Duration
	port            int
	title           string
	logger          *slog.Logger
	sinks           []DiagnosticsSink
	ring            *diagnostics.Ring
	subscribers     []Handler
	httpClient      *http.Client
	registry        *prometheus.Registry
	tracer          trace.Tracer
	relay           RedisPublisher
	relayChannel    string
}

// Option is a function that configures a [Tracker] during construction.
//
// Options return an error if validation fails.
type Option func(*trackerConfig) error

// WithToken sets the access token sent with every status check.
//
// Without this option (or with the Absent token) the tracker still runs, but
// every tick publishes "Error fetching data." without contacting the network.
func WithToken(t AccessToken) Option {
	return func(cfg *trackerConfig) error {
		cfg.token = t
		return nil
	}
}

// WithEndpoint overrides the status endpoint. Defaults to [DefaultEndpoint].
//
// Returns an error if rawURL is not an absolute http or https URL.
func WithEndpoint(rawURL string) Option {
	return func(cfg *trackerConfig) error {
		if err := validateEndpoint(rawURL); err != nil {
			return err
		}
		cfg.endpoint = rawURL
		return nil
	}
}

// WithPollingInterval sets the fixed wait between the end of one check and
// the start of the next. Defaults to 5 seconds.
//
// Returns an error if the duration is zero or negative.
func WithPollingInterval(d time.Duration) Option {
	return func(cfg *trackerConfig) error {
		if d <= 0 {
			return errors.New("polling interval must be positive")
		}
		cfg.pollingInterval = d
		return nil
	}
}

// WithTimeout bounds each status check. Defaults to 5 seconds.
//
// Returns an error if the timeout is not positive or exceeds one minute.
func WithTimeout(d time.Duration) Option {
	return func(cfg *trackerConfig) error {
		if d <= 0 {
			return errors.New("timeout must be positive")
		}
		if d > maxTimeout {
			return fmt.Errorf("timeout must be at most %s", maxTimeout)
		}
		cfg.timeout = d
		return nil
	}
}

// WithLogger sets a custom [slog.Logger]. If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *trackerConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithDiagnostics adds a sink receiving diagnostic messages such as
// "API Error: connection refused". May be given several times; every sink
// receives every message. Nil sinks are ignored.
func WithDiagnostics(sink DiagnosticsSink) Option {
	return func(cfg *trackerConfig) error {
		if sink != nil {
			cfg.sinks = append(cfg.sinks, sink)
		}
		return nil
	}
}

// WithDiagnosticsRing sets the in-memory log shown in the dashboard's Logs
// tab. Use it to share a ring that already holds startup messages.
// If not specified, the tracker keeps its own.
func WithDiagnosticsRing(r *diagnostics.Ring) Option {
	return func(cfg *trackerConfig) error {
		if r == nil {
			return errors.New("diagnostics ring cannot be nil")
		}
		cfg.ring = r
		return nil
	}
}

// WithSubscriber registers a handler receiving every [Update].
//
// Handlers are invoked synchronously from a single goroutine in registration
// order and must not block. Handlers can also be added after construction
// with [Tracker.Subscribe]. Nil handlers are silently ignored.
//
// Example:
//
//	tr, err := matchwatch.New(
//	    matchwatch.WithToken(token),
//	    matchwatch.WithSubscriber(func(u matchwatch.Update) {
//	        fmt.Println(u.Message)
//	    }),
//	)
func WithSubscriber(h Handler) Option {
	return func(cfg *trackerConfig) error {
		if h == nil {
			return nil
		}
		cfg.subscribers = append(cfg.subscribers, h)
		return nil
	}
}

// WithDashboard serves the web dashboard on port while the tracker runs.
// The dashboard is disabled by default.
//
// Returns an error if the port is outside the valid range (1-65535).
func WithDashboard(port int) Option {
	return func(cfg *trackerConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithTitle sets the dashboard title. Defaults to [DefaultTitle]; an empty
// title keeps the default.
func WithTitle(title string) Option {
	return func(cfg *trackerConfig) error {
		if title != "" {
			cfg.title = title
		}
		return nil
	}
}

// WithHTTPClient sets the client used for status checks. The client's own
// Timeout is left untouched; the per-check timeout is applied via context.
func WithHTTPClient(c *http.Client) Option {
	return func(cfg *trackerConfig) error {
		if c == nil {
			return errors.New("http client cannot be nil")
		}
		cfg.httpClient = c
		return nil
	}
}

// WithMetricsRegistry registers the tracker's Prometheus collectors on reg
// and serves reg at /metrics on the dashboard. If not specified, a private
// registry is used.
func WithMetricsRegistry(reg *prometheus.Registry) Option {
	return func(cfg *trackerConfig) error {
		if reg == nil {
			return errors.New("metrics registry cannot be nil")
		}
		cfg.registry = reg
		return nil
	}
}

// WithTracer records one span per check on tracer. If not specified, the
// global OpenTelemetry tracer provider is used.
func WithTracer(tracer trace.Tracer) Option {
	return func(cfg *trackerConfig) error {
		if tracer == nil {
			return errors.New("tracer cannot be nil")
		}
		cfg.tracer = tracer
		return nil
	}
}

// WithRedisRelay publishes every update as JSON on a Redis channel.
// An empty channel uses [DefaultRelayChannel].
//
// Example:
//
//	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	tr, err := matchwatch.New(matchwatch.WithRedisRelay(rdb, ""))
func WithRedisRelay(client RedisPublisher, channel string) Option {
	return func(cfg *trackerConfig) error {
		if client == nil {
			return errors.New("redis client cannot be nil")
		}
		if channel == "" {
			channel = DefaultRelayChannel
		}
		cfg.relay = client
		cfg.relayChannel = channel
		return nil
	}
}

func validateEndpoint(rawURL string) error {
	if rawURL == "" {
		return errors.New("endpoint cannot be empty")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("endpoint scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("endpoint must include a host")
	}
	return nil
}
