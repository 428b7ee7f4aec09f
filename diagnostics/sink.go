package diagnostics

import (
	"log/slog"
	"time"
)

// Sink receives diagnostic messages.
//
// Record must be safe for concurrent calls and must not block for long;
// it is called from the polling goroutine.
type Sink interface {
	Record(message string)
}

// Entry is a timestamped diagnostic message.
type Entry struct {
	// At is when the message was recorded.
	At time.Time `json:"at"`

	// Message is the free-text diagnostic.
	Message string `json:"message"`
}

// Func adapts a function to [Sink]. The function receives the message
// stamped with the current time.
type Func func(Entry)

// Record implements [Sink].
func (f Func) Record(message string) {
	if f == nil {
		return
	}
	f(Entry{At: time.Now(), Message: message})
}

// Multi returns a [Sink] that records every message to each of sinks in order.
// Nil sinks are skipped.
func Multi(sinks ...Sink) Sink {
	filtered := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			filtered = append(filtered, s)
		}
	}
	return multi(filtered)
}

type multi []Sink

func (m multi) Record(message string) {
	for _, s := range m {
		s.Record(message)
	}
}

// Discard is a [Sink] that drops every message.
var Discard Sink = Func(nil)

// Logger is a [Sink] that forwards each message to an slog logger at
// Debug level under the "diagnostic" key.
type Logger struct {
	logger *slog.Logger
}

// NewLogger creates a [Logger] sink. A nil logger uses [slog.Default].
func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger}
}

// Record implements [Sink].
func (l *Logger) Record(message string) {
	l.logger.Debug("diagnostic", "message", message)
}
