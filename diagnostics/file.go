package diagnostics

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DefaultLogFile is the conventional location of the diagnostics log.
const DefaultLogFile = "logs/tracker_debug.log"

// timestampLayout renders times as "2006-01-02 15:04:05,000".
const timestampLayout = "2006-01-02 15:04:05,000"

// File is a [Sink] that appends one timestamped line per message to a file:
//
//	2026-10-18 19:31:02,114 - DEBUG - API Error: request failed: ...
//
// Writes are serialized with a mutex so concurrent callers never interleave
// partial lines. Write failures are reported once to the fallback writer
// (stderr by default) and otherwise ignored; diagnostics must never stop
// polling.
type File struct {
	mu       sync.Mutex
	w        io.WriteCloser
	now      func() time.Time
	fallback io.Writer
	failed   bool
}

// OpenFile opens (creating parent directories) the file at path for appending.
func OpenFile(path string) (*File, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return newFile(f), nil
}

func newFile(w io.WriteCloser) *File {
	return &File{w: w, now: time.Now, fallback: os.Stderr}
}

// Record implements [Sink].
func (f *File) Record(message string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.w == nil {
		return
	}
	line := fmt.Sprintf("%s - DEBUG - %s\n", f.now().Format(timestampLayout), message)
	if _, err := io.WriteString(f.w, line); err != nil && !f.failed {
		f.failed = true
		_, _ = fmt.Fprintf(f.fallback, "diagnostics: write failed: %v\n", err)
	}
}

// Write implements io.Writer so the file can also back an slog handler.
// Each call is written atomically with respect to Record.
func (f *File) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.w == nil {
		return 0, os.ErrClosed
	}
	return f.w.Write(p)
}

// Close closes the underlying file. Safe to call multiple times.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.w == nil {
		return nil
	}
	err := f.w.Close()
	f.w = nil
	return err
}
