// Package server exposes the frame stream over WebSocket, along with health
// and Prometheus endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/junsooki/Backdrop/internal/pipeline"
	"github.com/junsooki/Backdrop/internal/subscription"
	"github.com/junsooki/Backdrop/internal/transport"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 25 * time.Second
)

// StateReporter reports the pipeline state for /healthz.
type StateReporter interface {
	State() pipeline.State
}

// Server serves /stream, /healthz and /metrics.
type Server struct {
	hub      *subscription.Hub
	state    StateReporter
	gatherer prometheus.Gatherer
	logger   *slog.Logger
	upgrader websocket.Upgrader
	mux      *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithGatherer serves metrics from g on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithCheckOrigin overrides the WebSocket origin check.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(s *Server) {
		s.upgrader.CheckOrigin = fn
	}
}

// New creates a Server that attaches WebSocket clients to hub.
func New(hub *subscription.Hub, state StateReporter, opts ...Option) *Server {
	s := &Server{
		hub:    hub,
		state:  state,
		logger: slog.Default(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 16 * 1024,
		},
		mux: http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mux.HandleFunc("/stream", s.handleStream)
	s.mux.HandleFunc("/healthz", s.handleHealth)
	if s.gatherer != nil {
		s.mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

type health struct {
	State      string `json:"state"`
	Subscriber string `json:"subscriber,omitempty"`
	Transport  string `json:"transport,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := health{State: s.state.State().String()}
	if id, tr, ok := s.hub.Current(); ok {
		h.Subscriber = id
		h.Transport = tr
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h); err != nil {
		s.logger.Warn("write health", "error", err)
	}
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote an HTTP error.
		s.logger.Warn("websocket upgrade", "error", err)
		return
	}

	sink := newConnSink(conn)
	s.logger.Info("stream client connected", "remote", r.RemoteAddr)

	session := s.hub.Attach(r.RemoteAddr, "websocket", sink, func() {
		sink.close(websocket.ClosePolicyViolation, "superseded")
	})

	go sink.pingLoop()
	sink.readLoop()

	s.hub.Detach(session)
	sink.close(websocket.CloseNormalClosure, "")
	s.logger.Info("stream client disconnected", "remote", r.RemoteAddr, "session", session)
}

// connSink writes frames to one WebSocket connection.
type connSink struct {
	conn *websocket.Conn

	mu        sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

var _ transport.FrameSender = (*connSink)(nil)

func newConnSink(conn *websocket.Conn) *connSink {
	return &connSink{conn: conn, done: make(chan struct{})}
}

func (c *connSink) SendFrame(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.done:
		return transport.ErrClosed
	default:
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.BinaryMessage, data)
}

// readLoop discards client messages and returns when the connection ends.
func (c *connSink) readLoop() {
	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *connSink) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (c *connSink) close(code int, reason string) {
	c.closeOnce.Do(func() {
		close(c.done)
		msg := websocket.FormatCloseMessage(code, reason)
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		c.conn.Close()
	})
}
