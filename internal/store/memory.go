package store

import (
	"sync"
)

// DefaultHistorySize is the number of records kept by [NewMemoryStore]
// when given a non-positive size.
const DefaultHistorySize = 100

// MemoryStore is an in-memory implementation of [Store].
//
// MemoryStore keeps the latest record plus a bounded history. Subscribers
// receive updates via buffered channels (buffer size 100). Updates are sent
// non-blocking; if a subscriber's buffer is full, the update is dropped for
// that subscriber to prevent blocking the publisher.
type MemoryStore struct {
	mu      sync.RWMutex
	history []StatusRecord
	limit   int

	subscribers map[chan StatusRecord]struct{}
	subMu       sync.RWMutex
}

// NewMemoryStore creates a new in-memory [Store] that retains up to
// historySize records.
func NewMemoryStore(historySize int) *MemoryStore {
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}
	return &MemoryStore{
		history:     make([]StatusRecord, 0, historySize),
		limit:       historySize,
		subscribers: make(map[chan StatusRecord]struct{}),
	}
}

// Update appends a record to the history and notifies all subscribers.
// The oldest record is evicted once the history is full.
func (m *MemoryStore) Update(record StatusRecord) {
	m.mu.Lock()
	if len(m.history) == m.limit {
		copy(m.history, m.history[1:])
		m.history = m.history[:len(m.history)-1]
	}
	m.history = append(m.history, record)
	m.mu.Unlock()

	m.notifySubscribers(record)
}

// Latest returns the most recently stored record.
func (m *MemoryStore) Latest() (StatusRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.history) == 0 {
		return StatusRecord{}, false
	}
	return m.history[len(m.history)-1], true
}

// History returns a copy of the retained records, oldest first.
func (m *MemoryStore) History() []StatusRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]StatusRecord, len(m.history))
	copy(out, m.history)
	return out
}

// Subscribe creates a new subscription and returns a channel for receiving updates.
//
// The returned channel has a buffer of 100 messages. If the buffer fills
// (slow consumer), new updates are dropped for this subscriber.
//
// Caller must call [MemoryStore.Unsubscribe] when done to prevent resource leaks.
func (m *MemoryStore) Subscribe() <-chan StatusRecord {
	ch := make(chan StatusRecord, 100)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
//
// After calling Unsubscribe, the channel will be closed and no further
// updates will be sent. Safe to call multiple times or with an unknown channel.
func (m *MemoryStore) Unsubscribe(ch <-chan StatusRecord) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// notifySubscribers sends the record to all active subscribers.
//
// This is non-blocking: if a subscriber's channel buffer is full, the message
// is dropped for that subscriber rather than blocking the update path.
func (m *MemoryStore) notifySubscribers(record StatusRecord) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- record:
		default:
			// subscriber is slow, drop the message
		}
	}
}
