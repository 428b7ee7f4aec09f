package store

import "time"

// StatusRecord is the storage representation of one published update.
//
// StatusRecord is optimized for JSON serialization (used by the REST API and
// SSE). It is decoupled from the public matchwatch types to allow
// independent evolution.
type StatusRecord struct {
	// Tick is the 1-based poll tick number.
	Tick uint64 `json:"tick"`

	// Outcome is "active", "inactive" or "error".
	Outcome string `json:"outcome"`

	// Message is the human-readable status message.
	Message string `json:"message"`

	// StatusCode is the HTTP status code, 0 when no response was received.
	StatusCode int `json:"status_code"`

	// ResponseTimeMs is the request latency in milliseconds.
	ResponseTimeMs int64 `json:"response_time_ms"`

	// CheckedAt is when the tick completed its check.
	CheckedAt time.Time `json:"checked_at"`

	// Error is the transport error detail, nil when the check got a response.
	Error *string `json:"error"`
}

// Store defines the interface for storing and subscribing to status updates.
//
// Store implementations must be safe for concurrent access. The pub/sub
// mechanism pushes real-time updates to connected dashboard clients.
type Store interface {
	// Update records a new status and notifies all subscribers.
	Update(record StatusRecord)

	// Latest returns the most recent record, false if nothing was stored yet.
	Latest() (StatusRecord, bool)

	// History returns retained records, oldest first.
	// The returned slice is a snapshot; modifications do not affect the store.
	History() []StatusRecord

	// Subscribe returns a channel that receives status updates.
	// The returned channel has a buffer; slow consumers may miss updates.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan StatusRecord

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan StatusRecord)
}
