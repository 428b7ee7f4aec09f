package diagnostics

import (
	"sync"
	"time"
)

// DefaultRingSize is the number of entries a [Ring] keeps when created with
// a non-positive size.
const DefaultRingSize = 500

// subscriberBuffer is the channel buffer for each Ring subscriber.
const subscriberBuffer = 100

// Ring is a bounded in-memory [Sink] holding the most recent entries.
//
// Subscribers receive new entries via buffered channels. Sends are
// non-blocking; a subscriber that falls behind misses entries rather than
// stalling the caller of Record.
type Ring struct {
	mu      sync.RWMutex
	entries []Entry
	next    int
	full    bool
	now     func() time.Time

	subMu       sync.RWMutex
	subscribers map[chan Entry]struct{}
}

// NewRing creates a [Ring] that keeps the last size entries.
func NewRing(size int) *Ring {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &Ring{
		entries:     make([]Entry, size),
		now:         time.Now,
		subscribers: make(map[chan Entry]struct{}),
	}
}

// Record implements [Sink].
func (r *Ring) Record(message string) {
	e := Entry{At: r.now(), Message: message}

	r.mu.Lock()
	r.entries[r.next] = e
	r.next = (r.next + 1) % len(r.entries)
	if r.next == 0 {
		r.full = true
	}
	r.mu.Unlock()

	r.subMu.RLock()
	defer r.subMu.RUnlock()
	for ch := range r.subscribers {
		select {
		case ch <- e:
		default:
		}
	}
}

// Entries returns a copy of the retained entries, oldest first.
func (r *Ring) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.full {
		out := make([]Entry, r.next)
		copy(out, r.entries[:r.next])
		return out
	}
	out := make([]Entry, 0, len(r.entries))
	out = append(out, r.entries[r.next:]...)
	out = append(out, r.entries[:r.next]...)
	return out
}

// Subscribe returns a channel receiving every entry recorded from now on.
// Caller must call [Ring.Unsubscribe] when done.
func (r *Ring) Subscribe() <-chan Entry {
	ch := make(chan Entry, subscriberBuffer)
	r.subMu.Lock()
	r.subscribers[ch] = struct{}{}
	r.subMu.Unlock()
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
// Safe to call multiple times or with an unknown channel.
func (r *Ring) Unsubscribe(ch <-chan Entry) {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	for subCh := range r.subscribers {
		if subCh == ch {
			delete(r.subscribers, subCh)
			close(subCh)
			return
		}
	}
}
