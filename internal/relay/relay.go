// Package relay forwards status records to a Redis pub/sub channel so other
// processes can follow the tracker without polling the remote API themselves.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jpalmerr/matchwatch/internal/store"
)

// publishTimeout bounds a single PUBLISH so a stalled Redis cannot hold up
// the dispatch goroutine past the next tick.
const publishTimeout = 2 * time.Second

// Publisher is the subset of a go-redis client used by [Relay].
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Relay publishes each record as JSON on one channel.
type Relay struct {
	client  Publisher
	channel string
	logger  *slog.Logger
}

// New creates a [Relay]. A nil logger uses [slog.Default].
func New(client Publisher, channel string, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{client: client, channel: channel, logger: logger}
}

// Publish sends record and returns the number of Redis subscribers that
// received it. Failures are returned, never retried.
func (r *Relay) Publish(ctx context.Context, record store.StatusRecord) (int64, error) {
	payload, err := json.Marshal(record)
	if err != nil {
		return 0, fmt.Errorf("failed to encode record: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	n, err := r.client.Publish(ctx, r.channel, payload).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to publish to %s: %w", r.channel, err)
	}
	return n, nil
}

// Forward publishes record and logs the outcome instead of returning it.
func (r *Relay) Forward(ctx context.Context, record store.StatusRecord) {
	n, err := r.Publish(ctx, record)
	if err != nil {
		r.logger.Warn("relay publish failed", "channel", r.channel, "tick", record.Tick, "error", err)
		return
	}
	r.logger.Debug("relay published", "channel", r.channel, "tick", record.Tick, "receivers", n)
}

// Channel returns the Redis channel name.
func (r *Relay) Channel() string {
	return r.channel
}
