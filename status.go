package matchwatch

import (
	"errors"
	"fmt"
	"time"
)

// OutcomeKind identifies which of the fixed poll outcomes a [PollOutcome] holds.
//
// The zero value is not a valid kind. Every kind returned by [OutcomeKinds]
// has a message in [Classify]; adding a kind without a message is a
// programming error that [Classify] reports by panicking.
type OutcomeKind int

const (
	// OutcomeActive means the status endpoint answered 200: a match is live.
	OutcomeActive OutcomeKind = iota + 1

	// OutcomeInactive means the endpoint answered with any other HTTP status.
	OutcomeInactive

	// OutcomeTransportError means no usable HTTP response was obtained:
	// missing credential, connection failure, timeout or malformed response.
	OutcomeTransportError
)

// OutcomeKinds returns every defined [OutcomeKind] in declaration order.
func OutcomeKinds() []OutcomeKind {
	return []OutcomeKind{OutcomeActive, OutcomeInactive, OutcomeTransportError}
}

// String returns the lowercase name used in logs, metrics and JSON.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeActive:
		return "active"
	case OutcomeInactive:
		return "inactive"
	case OutcomeTransportError:
		return "error"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// PollOutcome is the classified result of a single poll tick.
//
// Detail is only set for [OutcomeTransportError] and carries the
// human-readable cause (for example "missing credential").
type PollOutcome struct {
	Kind   OutcomeKind
	Detail string
}

// Active returns the outcome for a live match.
func Active() PollOutcome {
	return PollOutcome{Kind: OutcomeActive}
}

// Inactive returns the outcome for a non-200 response.
func Inactive() PollOutcome {
	return PollOutcome{Kind: OutcomeInactive}
}

// TransportError returns the outcome for a failed check with the given detail.
func TransportError(detail string) PollOutcome {
	return PollOutcome{Kind: OutcomeTransportError, Detail: detail}
}

// StatusMessage is the human-readable text shown to the observer.
type StatusMessage string

const (
	// MessageActive is published when a match is in progress.
	MessageActive StatusMessage = "Match Active - Data Retrieved!"

	// MessageInactive is published when the endpoint reports no match.
	MessageInactive StatusMessage = "No Active Match Found."

	// MessageError is published when the check could not be performed.
	MessageError StatusMessage = "Error fetching data."

	// MessageWaiting is the placeholder shown before the first tick completes.
	// It is never published by the poller.
	MessageWaiting StatusMessage = "Waiting for match data..."
)

// String implements fmt.Stringer.
func (m StatusMessage) String() string {
	return string(m)
}

// ErrClassificationGap is the panic value (wrapped) raised by [Classify] when
// an outcome kind has no message.
var ErrClassificationGap = errors.New("outcome kind has no status message")

// Classify maps a [PollOutcome] to its [StatusMessage].
//
// Classify is pure and total over [OutcomeKinds]:
//
//	Active         → "Match Active - Data Retrieved!"
//	Inactive       → "No Active Match Found."
//	TransportError → "Error fetching data."
//
// The detail of a transport error does not influence the message.
// Classify panics with an error wrapping [ErrClassificationGap] for any
// other kind.
func Classify(o PollOutcome) StatusMessage {
	switch o.Kind {
	case OutcomeActive:
		return MessageActive
	case OutcomeInactive:
		return MessageInactive
	case OutcomeTransportError:
		return MessageError
	}
	panic(fmt.Errorf("classify %v: %w", o.Kind, ErrClassificationGap))
}

// Update is the value delivered to subscribers once per poll tick.
//
// Update is immutable after creation. Ticks are numbered from 1 and are
// delivered to each subscriber in increasing order without gaps.
type Update struct {
	// Tick is the 1-based sequence number of the poll tick.
	Tick uint64

	// Outcome is the classified result of the remote check.
	Outcome PollOutcome

	// Message is Classify(Outcome).
	Message StatusMessage

	// StatusCode is the HTTP status returned by the endpoint.
	// Zero if no response was received.
	StatusCode int

	// Latency is the time taken by the remote check. Zero when no request was made.
	Latency time.Duration

	// CheckedAt is when the tick finished its check.
	CheckedAt time.Time
}
