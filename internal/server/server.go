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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"

	"github.com/avinashweb85/task-devops-monitor/internal/broadcast"
	"github.com/avinashweb85/task-devops-monitor/internal/metrics"
	"github.com/avinashweb85/task-devops-monitor/internal/poller"
)

const (
	// sseWriteTimeout is the maximum time allowed for a single SSE write operation.
	// Must be <= shutdown timeout to ensure clean shutdown.
	sseWriteTimeout = 5 * time.Second

	shutdownTimeout = 5 * time.Second

	// defaultTitle is used when no custom title is configured.
	defaultTitle = "DevOps Monitor"

	// titlePlaceholder is the marker in HTML that gets replaced with the actual title.
	titlePlaceholder = "{{.Title}}"
)

// Subscriber manages live viewer subscriptions. Both [poller.Scheduler] and
// [poller.Hub] implement it.
type Subscriber interface {
	Subscribe(ctx context.Context, conn broadcast.Conn) (*broadcast.Subscription, error)
	Unsubscribe(sub *broadcast.Subscription)
}

// Server handles HTTP requests for the dashboard, the push transports and
// the supporting API.
//
// Routes:
//   - GET /: embedded dashboard HTML
//   - GET /api/sse: Server-Sent Events subscription
//   - GET /ws: WebSocket subscription
//   - GET /api/snapshot: one-shot aggregation as JSON
//   - GET /healthz: liveness
//   - GET /metrics: Prometheus exposition
//
// The server shuts down gracefully when the context passed to [Server.Start]
// is cancelled.
type Server struct {
	subscriber Subscriber
	aggregator poller.Aggregator
	metrics    *metrics.Metrics
	port       int
	assets     fs.FS
	title      string
	logger     *slog.Logger
	upgrader   websocket.Upgrader

	mu         sync.Mutex
	httpServer *http.Server
	addr       net.Addr
}

// NewServer creates a new HTTP [Server].
//
// Parameters:
//   - sub: subscription manager backing /api/sse and /ws
//   - agg: aggregator used by /api/snapshot
//   - m: metrics exposed at /metrics (may be nil)
//   - port: TCP port to listen on
//   - assets: embedded filesystem containing dashboard assets (may be nil)
//   - title: dashboard title (defaults to "DevOps Monitor" if empty)
//   - logger: logger for server events
//
// The server is not started until [Server.Start] is called.
func NewServer(sub Subscriber, agg poller.Aggregator, m *metrics.Metrics, port int, assets fs.FS, title string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		subscriber: sub,
		aggregator: agg,
		metrics:    m,
		port:       port,
		assets:     assets,
		title:      title,
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// dashboards may be served from anywhere, same as the CORS policy
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handler returns the router serving every route.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/healthz", s.handleHealth)
	r.Get("/api/snapshot", s.handleSnapshot)
	r.Get("/api/sse", s.handleSSE)
	r.Get("/ws", s.handleWebSocket)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	if s.assets != nil {
		r.Get("/", s.handleDashboard)
	}

	return r
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

	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// request contexts derive from ctx, so long-lived SSE and WebSocket
		// handlers observe shutdown
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	s.mu.Lock()
	s.httpServer = httpServer
	s.addr = ln.Addr()
	s.mu.Unlock()

	s.logger.Info("http server listening", "addr", ln.Addr().String())

	go func() {
		if err := httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()

	// shutdown on context cancellation
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	return nil
}

// Addr returns the listening address, or nil before [Server.Start].
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

	if s.assets == nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	content, err := fs.ReadFile(s.assets, "assets/index.html")
	if err != nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	// escape the title to prevent XSS
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

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// handleSnapshot runs one aggregation and returns it as JSON.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := s.aggregator.Aggregate(r.Context())
	if r.Context().Err() != nil {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")

	if err := json.NewEncoder(w).Encode(snap); err != nil {
		s.logger.Error("failed to encode snapshot response", "error", err)
	}
}

// handleSSE streams snapshots via Server-Sent Events, one subscription per
// request.
//
// The handler uses write deadlines so a slow or vanished client cannot block
// it past shutdown.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)

	// some ResponseWriter implementations do not support deadlines
	deadlinesSupported := true

	writeAndFlush := func(payload string) error {
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				s.logger.Warn("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprint(w, payload); err != nil {
			return err
		}
		return rc.Flush()
	}

	conn := newQueueConn("sse")
	defer conn.Close()

	sub, err := s.subscriber.Subscribe(r.Context(), conn)
	if err != nil {
		http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
		return
	}
	defer s.subscriber.Unsubscribe(sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// commit headers so the client sees the stream open before the first tick
	if err := writeAndFlush(": connected\n\n"); err != nil {
		return
	}

	for {
		select {
		case msg := <-conn.Messages():
			data, err := json.Marshal(msg)
			if err != nil {
				s.logger.Error("failed to encode sse message", "error", err, "conn_id", conn.ID())
				return
			}
			if err := writeAndFlush(fmt.Sprintf("event: update\ndata: %s\n\n", data)); err != nil {
				s.logger.Debug("sse write failed", "error", err, "conn_id", conn.ID())
				return
			}

		case <-r.Context().Done():
			// fires on client disconnect and on server shutdown
			return
		}
	}
}
