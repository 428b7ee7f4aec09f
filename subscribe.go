package matchwatch

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Handler receives one [Update] per poll tick.
//
// Handlers are invoked synchronously from a single goroutine, in tick order
// and in registration order. A handler must return well within the polling
// interval; long-running work should be dispatched to another goroutine.
// Panics are recovered and logged; they do not stop delivery to other
// handlers or later ticks.
type Handler func(Update)

// DiagnosticsSink receives operator-facing diagnostic messages such as
// "API Error: ..." (see package diagnostics for implementations).
//
// Record must be safe for concurrent use.
type DiagnosticsSink interface {
	Record(message string)
}

// feed is the ordered publish/subscribe hub between the polling goroutine
// and subscribers.
type feed struct {
	mu       sync.RWMutex
	handlers []subscription
	nextID   uint64
	logger   *slog.Logger
}

type subscription struct {
	id uint64
	h  Handler
}

func newFeed(logger *slog.Logger) *feed {
	return &feed{logger: logger}
}

// subscribe registers h and returns a function that removes it.
// The returned function is safe to call multiple times.
func (f *feed) subscribe(h Handler) func() {
	if h == nil {
		return func() {}
	}

	f.mu.Lock()
	f.nextID++
	id := f.nextID
	f.handlers = append(f.handlers, subscription{id: id, h: h})
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			for i, s := range f.handlers {
				if s.id == id {
					// copy-on-write so an in-progress publish keeps its snapshot
					next := make([]subscription, 0, len(f.handlers)-1)
					next = append(next, f.handlers[:i]...)
					next = append(next, f.handlers[i+1:]...)
					f.handlers = next
					return
				}
			}
		})
	}
}

// publish delivers u to every current handler in registration order.
func (f *feed) publish(u Update) {
	f.mu.RLock()
	handlers := f.handlers
	f.mu.RUnlock()

	for _, s := range handlers {
		f.invokeSafe(s.h, u)
	}
}

// len reports the number of registered handlers.
func (f *feed) len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.handlers)
}

// invokeSafe calls a handler with panic recovery.
// Panics are logged with a correlation ID but do not propagate.
func (f *feed) invokeSafe(h Handler, u Update) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("status handler panicked",
				"correlation_id", uuid.NewString(),
				"panic", r,
				"tick", u.Tick,
			)
		}
	}()
	h(u)
}
