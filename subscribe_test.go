package matchwatch

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFeed_PublishInRegistrationOrder(t *testing.T) {
	f := newFeed(discardLogger())

	var mu sync.Mutex
	var order []int
	for i := 1; i <= 3; i++ {
		f.subscribe(func(Update) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}

	f.publish(Update{Tick: 1})

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("order = %v, want [1 2 3]", order)
	}
}

func TestFeed_Unsubscribe(t *testing.T) {
	f := newFeed(discardLogger())

	var calls int
	unsubscribe := f.subscribe(func(Update) { calls++ })

	f.publish(Update{Tick: 1})
	unsubscribe()
	f.publish(Update{Tick: 2})

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if f.len() != 0 {
		t.Errorf("len() = %d, want 0", f.len())
	}

	// idempotent
	unsubscribe()
}

func TestFeed_UnsubscribeKeepsOthers(t *testing.T) {
	f := newFeed(discardLogger())

	var a, b, c int
	f.subscribe(func(Update) { a++ })
	unsubB := f.subscribe(func(Update) { b++ })
	f.subscribe(func(Update) { c++ })

	unsubB()
	f.publish(Update{Tick: 1})

	if a != 1 || b != 0 || c != 1 {
		t.Errorf("calls a=%d b=%d c=%d, want 1 0 1", a, b, c)
	}
}

func TestFeed_UnsubscribeDuringPublish(t *testing.T) {
	f := newFeed(discardLogger())

	var unsub func()
	var second int
	unsub = f.subscribe(func(Update) { unsub() })
	f.subscribe(func(Update) { second++ })

	// the in-progress publish uses its snapshot
	f.publish(Update{Tick: 1})
	f.publish(Update{Tick: 2})

	if second != 2 {
		t.Errorf("second handler calls = %d, want 2", second)
	}
	if f.len() != 1 {
		t.Errorf("len() = %d, want 1", f.len())
	}
}

func TestFeed_PanicRecovery(t *testing.T) {
	var buf bytes.Buffer
	f := newFeed(slog.New(slog.NewTextHandler(&buf, nil)))

	var after []uint64
	f.subscribe(func(Update) { panic("boom") })
	f.subscribe(func(u Update) { after = append(after, u.Tick) })

	f.publish(Update{Tick: 1})
	f.publish(Update{Tick: 2})

	if len(after) != 2 {
		t.Errorf("handler after panicking one got %v, want ticks 1 and 2", after)
	}
	logs := buf.String()
	if !strings.Contains(logs, "status handler panicked") {
		t.Errorf("panic not logged: %s", logs)
	}
	if !strings.Contains(logs, "correlation_id=") {
		t.Errorf("panic log missing correlation id: %s", logs)
	}
}

func TestFeed_NilHandler(t *testing.T) {
	f := newFeed(discardLogger())
	unsub := f.subscribe(nil)
	unsub()
	if f.len() != 0 {
		t.Errorf("len() = %d, want 0", f.len())
	}
	f.publish(Update{Tick: 1})
}

func TestFeed_ConcurrentSubscribe(t *testing.T) {
	f := newFeed(discardLogger())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unsub := f.subscribe(func(Update) {})
			f.publish(Update{Tick: 1})
			unsub()
		}()
	}
	wg.Wait()

	if f.len() != 0 {
		t.Errorf("len() = %d, want 0", f.len())
	}
}
