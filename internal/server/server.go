package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jpalmerr/railpulse/internal/poller"
	"github.com/jpalmerr/railpulse/internal/store"
)

const (
	// streamWriteTimeout is the maximum time allowed for a single SSE or
	// websocket write. Must be <= shutdown timeout to ensure clean shutdown.
	streamWriteTimeout = 5 * time.Second

	// refreshTimeout bounds a manual refresh triggered over HTTP.
	refreshTimeout = 60 * time.Second

	// defaultTitle is used when no custom title is configured.
	defaultTitle = "Railway"

	// titlePlaceholder is the marker in HTML that gets replaced with the actual title.
	titlePlaceholder = "{{.Title}}"
)

// Refresher runs one fetch cycle on demand.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Server handles HTTP requests for the railpulse dashboard and API.
//
// Server provides these endpoints:
//   - GET /: Serves the embedded dashboard HTML
//   - GET /api/status: Returns the current snapshot as JSON
//   - GET /api/sse: Server-Sent Events stream of snapshots
//   - GET /api/ws: Websocket stream of snapshots
//   - POST /api/refresh: Runs a fetch cycle immediately (when a Refresher is set)
//   - GET /metrics: Prometheus metrics (when a metrics handler is set)
//
// The server is designed for graceful shutdown via context cancellation.
type Server struct {
	store      store.Store
	port       int
	httpServer *http.Server
	assets     fs.FS
	title      string
	logger     *slog.Logger
	metrics    http.Handler
	refresher  Refresher
	upgrader   websocket.Upgrader
	addr       net.Addr
}

// Option configures optional [Server] endpoints.
type Option func(*Server)

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithRefresher enables POST /api/refresh.
func WithRefresher(r Refresher) Option {
	return func(s *Server) {
		s.refresher = r
	}
}

// NewServer creates a new HTTP [Server].
//
// Parameters:
//   - st: Store holding the published snapshot
//   - port: TCP port to listen on (0 picks a free port)
//   - assets: Embedded filesystem containing dashboard assets (may be nil)
//   - title: Dashboard title (defaults to "Railway" if empty)
//   - logger: Logger for server events
//
// The server is not started until [Server.Start] is called.
func NewServer(st store.Store, port int, assets fs.FS, title string, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		store:  st,
		port:   port,
		assets: assets,
		title:  title,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the request router without binding a port.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// API routes
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/sse", s.handleSSE)
	mux.HandleFunc("/api/ws", s.handleWS)
	if s.refresher != nil {
		mux.HandleFunc("/api/refresh", s.handleRefresh)
	}
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}

	// serve dashboard assets
	if s.assets != nil {
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
	addr := fmt.Sprintf(":%d", s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}
	s.addr = ln.Addr()

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
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
		}
	}()

	// shutdown on context cancellation
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	return s.addr
}

// handleDashboard serves the main dashboard page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	if s.assets == nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	content, err := fs.ReadFile(s.assets, "assets/index.html")
	if err != nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	// apply title substitution with HTML escaping to prevent XSS
	title := s.title
	if title == "" {
		title = defaultTitle
	}
	rendered := strings.ReplaceAll(string(content), titlePlaceholder, html.EscapeString(title))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err = w.Write([]byte(rendered)); err != nil {
		s.logger.Error("failed to write dashboard response", "error", err)
	}
}

// handleStatus returns the current snapshot as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeSnapshot(w, http.StatusOK)
}

// handleRefresh runs a fetch cycle and returns the resulting snapshot.
// A cycle already in flight yields 409; a failed cycle yields 502 with the
// snapshot still in the body.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), refreshTimeout)
	defer cancel()

	code := http.StatusOK
	if err := s.refresher.Refresh(ctx); err != nil {
		if errors.Is(err, poller.ErrFetchInProgress) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		s.logger.Warn("manual refresh failed", "error", err)
		code = http.StatusBadGateway
	}
	s.writeSnapshot(w, code)
}

func (s *Server) writeSnapshot(w http.ResponseWriter, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(s.store.Get()); err != nil {
		s.logger.Error("failed to encode status response", "error", err)
	}
}

// handleSSE streams snapshots via Server-Sent Events.
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

	writeAndFlush := func(data []byte) error {
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(streamWriteTimeout)); err != nil {
				s.logger.Warn("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		return rc.Flush()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	ch := s.store.Subscribe()
	defer s.store.Unsubscribe(ch)

	// send the current snapshot first so clients never start empty
	if data, err := json.Marshal(s.store.Get()); err == nil {
		if err := writeAndFlush(data); err != nil {
			return
		}
	}

	for {
		select {
		case snap, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(snap)
			if err != nil {
				continue
			}
			if err := writeAndFlush(data); err != nil {
				return
			}

		case <-r.Context().Done():
			// request context is derived from server context via BaseContext,
			// so this fires on both client disconnect AND server shutdown
			return
		}
	}
}

// handleWS streams snapshots as websocket text frames.
//
// Hijacked connections are not closed by http.Server.Shutdown, so the write
// loop watches the request context (server context via BaseContext) and a
// reader goroutine that notices client-side closes.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	ch := s.store.Subscribe()
	defer s.store.Unsubscribe(ch)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(snap store.Snapshot) error {
		payload, err := json.Marshal(snap)
		if err != nil {
			return err
		}
		if err := conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout)); err != nil {
			return err
		}
		return conn.WriteMessage(websocket.TextMessage, payload)
	}

	if err := send(s.store.Get()); err != nil {
		s.logger.Debug("websocket send failed", "error", err)
		return
	}

	for {
		select {
		case snap, ok := <-ch:
			if !ok {
				return
			}
			if err := send(snap); err != nil {
				s.logger.Debug("websocket send failed", "error", err)
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(time.Second))
			return
		}
	}
}
