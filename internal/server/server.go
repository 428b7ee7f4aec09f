package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jpalmerr/matchwatch/diagnostics"
	"github.com/jpalmerr/matchwatch/internal/store"
)

const (
	// sseWriteTimeout is the maximum time allowed for a single SSE write operation.
	// This prevents goroutine leaks when clients are slow or disconnected.
	// Must be <= shutdown timeout to ensure clean shutdown.
	sseWriteTimeout = 5 * time.Second

	shutdownTimeout = 5 * time.Second

	// titlePlaceholder is the marker in HTML that gets replaced with the actual title.
	titlePlaceholder = "{{.Title}}"

	// SSE event names
	eventStatus = "status"
	eventLog    = "log"
)

// DiagnosticsSource is the read side of the diagnostics log shown in the
// Logs tab. [diagnostics.Ring] implements it.
type DiagnosticsSource interface {
	Entries() []diagnostics.Entry
	Subscribe() <-chan diagnostics.Entry
	Unsubscribe(ch <-chan diagnostics.Entry)
}

// Config holds the optional parts of a [Server].
type Config struct {
	// Port is the TCP port to listen on. 0 lets the OS choose.
	Port int

	// Assets contains assets/index.html. nil disables the dashboard page.
	Assets fs.FS

	// Title replaces {{.Title}} in the dashboard. The caller supplies the
	// default; an empty title renders as empty.
	Title string

	// Placeholder is the message returned by /api/status before the first tick.
	Placeholder string

	// Metrics is mounted at /metrics when non-nil.
	Metrics http.Handler
}

// Server handles HTTP requests for the dashboard and API.
//
// Routes:
//   - GET /: embedded dashboard HTML
//   - GET /api/status: latest status as JSON
//   - GET /api/history: retained statuses, oldest first
//   - GET /api/diagnostics: retained diagnostic entries, oldest first
//   - GET /api/sse: Server-Sent Events stream of "status" and "log" events
//   - GET /metrics: Prometheus exposition (when configured)
//
// The server is designed for graceful shutdown via context cancellation.
type Server struct {
	store      store.Store
	diag       DiagnosticsSource
	cfg        Config
	httpServer *http.Server
	logger     *slog.Logger

	mu   sync.Mutex
	addr net.Addr
}

// NewServer creates a new HTTP [Server]. diag may be nil.
//
// The server is not started until [Server.Start] is called.
func NewServer(st store.Store, diag DiagnosticsSource, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:  st,
		diag:   diag,
		cfg:    cfg,
		logger: logger,
	}
}

// Handler returns the request multiplexer without binding a port.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// API routes
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/api/diagnostics", s.handleDiagnostics)
	mux.HandleFunc("/api/sse", s.handleSSE)

	if s.cfg.Metrics != nil {
		mux.Handle("/metrics", s.cfg.Metrics)
	}

	if s.cfg.Assets != nil {
		mux.HandleFunc("/", s.handleDashboard)
	}
	return mux
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the server
// is listening. The server will continue running until the context is
// cancelled, at which point it initiates a graceful shutdown with a 5-second
// timeout.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	// create listener first to verify port availability synchronously
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.cfg.Port, err)
	}

	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// BaseContext derives all request contexts from the server context.
		// When ctx is cancelled, all request contexts are also cancelled,
		// enabling graceful shutdown of long-running handlers like SSE.
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()

	// shutdown on context cancellation
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listener address, nil before [Server.Start].
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// handleDashboard serves the main dashboard page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	if s.cfg.Assets == nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	content, err := fs.ReadFile(s.cfg.Assets, "assets/index.html")
	if err != nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	// apply title substitution with HTML escaping to prevent XSS
	rendered := strings.ReplaceAll(string(content), titlePlaceholder, html.EscapeString(s.cfg.Title))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err = w.Write([]byte(rendered)); err != nil {
		s.logger.Error("failed to write dashboard response", "error", err)
	}
}

// handleStatus returns the latest status, or the placeholder before the
// first tick.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	record, ok := s.store.Latest()
	if !ok {
		record = store.StatusRecord{Message: s.cfg.Placeholder}
	}
	s.writeJSON(w, record)
}

// handleHistory returns retained statuses, oldest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, s.store.History())
}

// handleDiagnostics returns the diagnostics log, oldest first.
func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	entries := []diagnostics.Entry{}
	if s.diag != nil {
		entries = s.diag.Entries()
	}
	s.writeJSON(w, entries)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// handleSSE streams status updates and diagnostics via Server-Sent Events.
//
// The handler uses write deadlines to prevent goroutine leaks when clients are
// slow or disconnected. Without deadlines, a blocked Fprintf call would prevent
// the handler from detecting context cancellation or channel closure.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)

	// track if write deadlines are supported (may not be for some ResponseWriter impls)
	deadlinesSupported := true

	writeAndFlush := func(event string, v any) error {
		data, err := json.Marshal(v)
		if err != nil {
			return nil // skip unencodable values, keep the stream alive
		}

		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				// deadline not supported by underlying connection, continue without
				s.logger.Warn("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
			return err
		}
		return rc.Flush()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	// send headers now so clients see the stream open before the first event
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		return
	}

	// subscribe before taking snapshots so nothing recorded in between is
	// lost; anything the snapshots already covered is skipped below
	statusCh := s.store.Subscribe()
	defer s.store.Unsubscribe(statusCh)

	var logCh <-chan diagnostics.Entry
	replayed := make(map[diagnostics.Entry]struct{})
	if s.diag != nil {
		ch := s.diag.Subscribe()
		defer s.diag.Unsubscribe(ch)
		logCh = ch

		for _, e := range s.diag.Entries() {
			if err := writeAndFlush(eventLog, e); err != nil {
				return
			}
			replayed[e] = struct{}{}
		}
	}

	var lastSent time.Time
	if record, ok := s.store.Latest(); ok {
		if err := writeAndFlush(eventStatus, record); err != nil {
			return
		}
		lastSent = record.CheckedAt
	}

	for {
		select {
		case record, ok := <-statusCh:
			if !ok {
				return
			}
			if !lastSent.IsZero() && !record.CheckedAt.After(lastSent) {
				continue
			}
			if err := writeAndFlush(eventStatus, record); err != nil {
				return
			}
			lastSent = record.CheckedAt

		case entry, ok := <-logCh:
			if !ok {
				logCh = nil
				continue
			}
			if _, dup := replayed[entry]; dup {
				delete(replayed, entry)
				continue
			}
			if err := writeAndFlush(eventLog, entry); err != nil {
				return
			}

		case <-r.Context().Done():
			// request context is derived from server context via BaseContext,
			// so this fires on both client disconnect AND server shutdown
			return
		}
	}
}
