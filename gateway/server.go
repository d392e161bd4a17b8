package gateway

import (
	"collab-gateway/contract"
	"collab-gateway/domain"
	"collab-gateway/domain/event"
	"collab-gateway/errors"
	"collab-gateway/observability"
	"collab-gateway/runtime"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	maxFrameBytes  = 64 << 10
	cleanupTimeout = 5 * time.Second
)

// Options tunes the lifecycle of websocket connections.
type Options struct {
	HandshakeTimeout   time.Duration
	IdleTimeout        time.Duration
	PingInterval       time.Duration
	WriteTimeout       time.Duration
	BufferSize         int
	MaxMalformedEvents int
}

// Server accepts websocket connections. The handshake authenticates the
// bearer credential before the upgrade: a refused handshake never becomes
// a connection.
type Server struct {
	log           *slog.Logger
	authenticator contract.Authenticator
	router        *Router
	registry      *runtime.Registry
	metrics       *observability.Metrics
	clock         clock.Clock
	opts          Options
	upgrader      websocket.Upgrader

	mu       sync.Mutex
	clients  map[domain.ConnectionID]*Client
	draining bool
	wg       sync.WaitGroup
}

func NewServer(
	log *slog.Logger,
	authenticator contract.Authenticator,
	router *Router,
	registry *runtime.Registry,
	metrics *observability.Metrics,
	clk clock.Clock,
	opts Options,
) *Server {
	return &Server{
		log:           log,
		authenticator: authenticator,
		router:        router,
		registry:      registry,
		metrics:       metrics,
		clock:         clk,
		opts:          opts,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: opts.HandshakeTimeout,
			// Editors are served from other origins, the bearer token is the gate
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[domain.ConnectionID]*Client),
	}
}

// BearerToken extracts the credential from the Authorization header or,
// for clients that cannot set headers on a websocket, the token query parameter.
func BearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return r.URL.Query().Get("token")
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.opts.HandshakeTimeout)
	principal, err := s.authenticator.Authenticate(ctx, BearerToken(r))
	cancel()
	if err != nil {
		s.refuse(w, r, err)
		return
	}

	s.mu.Lock()
	draining := s.draining
	s.mu.Unlock()
	if draining {
		writeError(w, http.StatusServiceUnavailable, "gateway is shutting down", errors.CodeInternal)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader already replied to the client
		s.log.Warn("Websocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	conn := domain.NewConnection(domain.ConnectionID(uuid.NewString()), principal, s.clock.Now())
	log := s.log.With("connection_id", conn.ID, "principal_id", principal.ID)
	client := newClient(conn.ID, ws, log, s.metrics, s.opts)
	if !s.track(client) {
		client.Close(websocket.CloseGoingAway, "shutting down")
		client.writePump()
		return
	}
	defer s.untrack(client)

	s.registry.Register(conn, client)
	s.metrics.Connections.Inc()
	log.Info("Connection authenticated")

	go client.writePump()
	s.readLoop(context.WithoutCancel(r.Context()), conn, client, log)

	// Transport is gone, whatever the reason: leave the room.
	cleanupCtx, cleanupCancel := context.WithTimeout(context.WithoutCancel(r.Context()), cleanupTimeout)
	defer cleanupCancel()
	s.router.Disconnect(cleanupCtx, conn)
	client.Close(websocket.CloseNormalClosure, "")
	s.metrics.Connections.Dec()
	log.Info("Connection closed")
}

func (s *Server) refuse(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.Code(err)
	s.metrics.HandshakeFailures.WithLabelValues(code).Inc()
	if errors.IsAuthFailure(err) {
		s.log.Warn("Handshake refused", "remote_addr", r.RemoteAddr, "code", code, "error", err)
		writeError(w, http.StatusUnauthorized, err.Error(), code)
		return
	}
	s.log.Error("Handshake failed", "remote_addr", r.RemoteAddr, "error", err)
	writeError(w, http.StatusServiceUnavailable, "authentication unavailable", errors.CodeInternal)
}

// readLoop processes frames sequentially until the transport fails or the
// connection stays idle past IdleTimeout.
func (s *Server) readLoop(ctx context.Context, conn *domain.Connection, client *Client, log *slog.Logger) {
	ws := client.ws
	ws.SetReadLimit(maxFrameBytes)
	extend := func() { _ = ws.SetReadDeadline(time.Now().Add(s.opts.IdleTimeout)) }
	extend()
	ws.SetPongHandler(func(string) error {
		extend()
		return nil
	})

	malformed := 0
	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("Transport closed", "error", err)
			}
			return
		}
		extend()

		in, err := event.Decode(raw)
		if err != nil {
			malformed++
			s.metrics.MalformedEvents.Inc()
			log.Warn("Malformed event ignored", "count", malformed, "error", err)
			_ = client.Consume(ctx, event.ErrorEvent(err))
			if s.opts.MaxMalformedEvents > 0 && malformed >= s.opts.MaxMalformedEvents {
				client.Close(websocket.ClosePolicyViolation, "too many malformed events")
				return
			}
			continue
		}
		malformed = 0
		s.dispatch(ctx, conn, client, in, log)
	}
}

// dispatch is the connection boundary: nothing raised while handling one
// event may escape to the process or to other connections.
func (s *Server) dispatch(ctx context.Context, conn *domain.Connection, client *Client, in event.Inbound, log *slog.Logger) {
	outcome := "ok"
	defer func() {
		if r := recover(); r != nil {
			outcome = "panic"
			log.Error("Event handling panicked", "kind", in.Kind(), "panic", fmt.Sprint(r))
			_ = client.Consume(ctx, event.ErrorEvent(fmt.Errorf("panic: %v", r)))
		}
		s.metrics.EventsHandled.WithLabelValues(string(in.Kind()), outcome).Inc()
	}()

	err := s.router.Handle(ctx, conn, client, in)
	if err == nil {
		return
	}
	outcome = errors.Code(err)
	if errors.IsClientError(err) {
		log.Warn("Event refused", "kind", in.Kind(), "code", outcome, "error", err)
	} else {
		log.Error("Event failed", "kind", in.Kind(), "error", err)
	}
	_ = client.Consume(ctx, event.ErrorEvent(err))
}

func (s *Server) track(client *Client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draining {
		return false
	}
	s.clients[client.id] = client
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(client *Client) {
	s.mu.Lock()
	delete(s.clients, client.id)
	s.mu.Unlock()
	s.wg.Done()
}

// Shutdown refuses new connections, closes the open ones with a going away
// frame and waits for their departure to be recorded.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.draining = true
	clients := make([]*Client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		c.Close(websocket.CloseGoingAway, "server shutting down")
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("connections still open after shutdown timeout: %w", ctx.Err())
	}
}

// Draining reports whether Shutdown has started.
func (s *Server) Draining() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draining
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(event.ErrorPayload{Message: message, Code: code})
}
