package gateway

import (
	"collab-gateway/auth"
	"collab-gateway/domain"
	"collab-gateway/domain/event"
	"collab-gateway/fabric"
	"collab-gateway/moderation"
	"collab-gateway/observability"
	"collab-gateway/presence"
	"collab-gateway/ratelimit"
	"collab-gateway/repositories"
	"collab-gateway/runtime"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/benbjohnson/clock"
	"github.com/dgraph-io/badger/v4"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

var testOptions = Options{
	HandshakeTimeout:   2 * time.Second,
	IdleTimeout:        5 * time.Second,
	PingInterval:       time.Second,
	WriteTimeout:       time.Second,
	BufferSize:         1024,
	MaxMalformedEvents: 3,
}

// cluster is the shared infrastructure of several gateway processes:
// one session store and one coordination store.
type cluster struct {
	t      *testing.T
	mr     *miniredis.Miniredis
	store  *repositories.Store
	users  *repositories.UserRepository
	tokens auth.TokenIssuer
}

func newCluster(t *testing.T) *cluster {
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	limit := 50
	return &cluster{
		t:      t,
		mr:     miniredis.RunT(t),
		store:  repositories.NewStore(db, slog.Default(), &limit),
		users:  repositories.NewUserRepository(db),
		tokens: auth.NewTokenIssuer([]byte("test-secret"), "collab-gateway", clock.New()),
	}
}

// user creates a principal and returns a valid token for it.
func (c *cluster) user(id domain.PrincipalID) string {
	c.t.Helper()
	principal := domain.Principal{ID: id, DisplayName: strings.ToUpper(string(id))}
	require.NoError(c.t, c.users.CreateUser(repositories.User{ID: id, DisplayName: principal.DisplayName, CreatedAt: time.Now()}))
	token, err := c.tokens.GenerateToken(principal, time.Hour)
	require.NoError(c.t, err)
	return token
}

func (c *cluster) room(id domain.RoomID, owner domain.PrincipalID, visibility domain.Visibility, openRole domain.Role) {
	c.t.Helper()
	require.NoError(c.t, c.store.CreateRoom(domain.RoomInfo{
		ID: id, OwnerID: owner, Visibility: visibility, OpenRole: openRole, CreatedAt: time.Now(),
	}))
}

// process is one gateway process wired like cmd/gateway does.
type process struct {
	url      string
	server   *Server
	registry *runtime.Registry
	fabric   *fabric.RedisFabric
	notifier *Notifier
	metrics  *observability.Metrics
}

func (c *cluster) process(limits ...domain.Limit) *process {
	t := c.t
	log := logs.GetLoggerFromLevel(slog.LevelError)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	client := redis.NewClient(&redis.Options{Addr: c.mr.Addr()})

	tracker := presence.NewTracker(log, client, presence.DefaultTTL, metrics)
	registry := runtime.NewRegistry(log, c.store, tracker)
	fab := fabric.NewRedisFabric(log, client, metrics, clock.New(), 8192)
	fab.Subscribe(NewDelivery(log, registry).Handle)
	ledger := ratelimit.NewLedger(log, ratelimit.NewSlidingWindow(client), clock.New(), time.Second, metrics, limits...)
	moderator, err := moderation.NewModerator([]string{"badger"}, '*', log)
	require.NoError(t, err)
	router := NewRouter(log, registry, c.store, ledger, fab, moderator, clock.New(), metrics, 200)
	authenticator := auth.NewAuthenticator(log, c.tokens, c.users, 128, 0)
	server := NewServer(log, authenticator, router, registry, metrics, clock.New(), testOptions)
	address := ratelimit.ClientAddress(nil)
	ts := httptest.NewServer(NewMux(server, NewHistoryHandler(log, authenticator, c.store, ledger, address), ledger, address))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = fab.Run(ctx)
	}()
	<-fab.Ready()

	t.Cleanup(func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = server.Shutdown(shutdownCtx)
		ts.Close()
		cancel()
		<-done
		_ = client.Close()
	})
	return &process{
		url:      ts.URL,
		server:   server,
		registry: registry,
		fabric:   fab,
		notifier: NewNotifier(fab),
		metrics:  metrics,
	}
}

func (p *process) dial(token string) (*websocket.Conn, *http.Response, error) {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	return websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(p.url, "http")+"/ws", header)
}

// testClient reads every frame of a connection in the background.
type testClient struct {
	t      *testing.T
	ws     *websocket.Conn
	frames chan event.Outbound
	closed chan struct{}
	err    error
}

func (p *process) connect(t *testing.T, token string) *testClient {
	t.Helper()
	ws, _, err := p.dial(token)
	require.NoError(t, err)
	c := &testClient{t: t, ws: ws, frames: make(chan event.Outbound, 4096), closed: make(chan struct{})}
	go func() {
		defer close(c.closed)
		for {
			var out event.Outbound
			if err := ws.ReadJSON(&out); err != nil {
				c.err = err
				return
			}
			c.frames <- out
		}
	}()
	t.Cleanup(func() { _ = ws.Close() })
	return c
}

func (c *testClient) send(kind event.Kind, payload any) {
	c.t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(c.t, err)
	require.NoError(c.t, c.ws.WriteJSON(map[string]any{"type": kind, "payload": json.RawMessage(raw)}))
}

// next returns the next frame of type t, skipping the others.
func (c *testClient) next(t event.OutboundType) event.Outbound {
	c.t.Helper()
	out, err := c.wait(t, 5*time.Second)
	if err != nil {
		c.t.Fatal(err)
	}
	return out
}

// wait is next without failing the test, for use outside the test goroutine.
func (c *testClient) wait(t event.OutboundType, d time.Duration) (event.Outbound, error) {
	timeout := time.After(d)
	for {
		select {
		case out := <-c.frames:
			if out.Type == t {
				return out, nil
			}
		case <-timeout:
			return event.Outbound{}, fmt.Errorf("no %s frame received within %s", t, d)
		}
	}
}

// none asserts no frame of type t arrives during d.
func (c *testClient) none(t event.OutboundType, d time.Duration) {
	c.t.Helper()
	timeout := time.After(d)
	for {
		select {
		case out := <-c.frames:
			require.NotEqual(c.t, t, out.Type, "unexpected frame: %s", string(out.Payload))
		case <-timeout:
			return
		}
	}
}

func (c *testClient) join(roomID domain.RoomID) event.RoomJoinedPayload {
	c.t.Helper()
	c.send(event.KindJoinRoom, event.JoinRoom{RoomID: roomID})
	var ack event.RoomJoinedPayload
	require.NoError(c.t, json.Unmarshal(c.next(event.TypeRoomJoined).Payload, &ack))
	return ack
}

func decode[T any](t *testing.T, out event.Outbound) T {
	t.Helper()
	var payload T
	require.NoError(t, json.Unmarshal(out.Payload, &payload))
	return payload
}
