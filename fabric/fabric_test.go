package fabric

import (
	"collab-gateway/domain"
	"collab-gateway/observability"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/benbjohnson/clock"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// recorder collects the envelopes a handler sees.
type recorder struct {
	mu        sync.Mutex
	envelopes []domain.BroadcastEnvelope
}

func (r *recorder) handle(_ context.Context, e domain.BroadcastEnvelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.envelopes = append(r.envelopes, e)
}

func (r *recorder) snapshot() []domain.BroadcastEnvelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.BroadcastEnvelope(nil), r.envelopes...)
}

func newRedisFabric(t *testing.T, addr string) (*RedisFabric, *observability.Metrics) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	return NewRedisFabric(logs.GetLoggerFromLevel(slog.LevelError), client, metrics, clock.New(), 1024), metrics
}

func runFabric(t *testing.T, ctx context.Context, run func(context.Context) error) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = run(ctx)
	}()
	t.Cleanup(func() { <-done })
}

func TestRedisFabric_DeliversAcrossProcessesInOrder(t *testing.T) {
	req := require.New(t)
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Given two processes sharing the coordination store
	processA, metricsA := newRedisFabric(t, mr.Addr())
	processB, metricsB := newRedisFabric(t, mr.Addr())
	onA, onB := &recorder{}, &recorder{}
	processA.Subscribe(onA.handle)
	processB.Subscribe(onB.handle)
	runFabric(t, ctx, processA.Run)
	runFabric(t, ctx, processB.Run)
	<-processA.Ready()
	<-processB.Ready()

	// When process A publishes a burst for one room
	const count = 100
	for i := 0; i < count; i++ {
		processA.Publish(domain.BroadcastEnvelope{
			RoomID:    "doc",
			EventType: "cursor.moved",
			Payload:   []byte(fmt.Sprintf("%d", i)),
		})
	}

	// Then process B receives everything in publish order
	req.Eventually(func() bool { return len(onB.snapshot()) == count }, 3*time.Second, 10*time.Millisecond)
	for i, e := range onB.snapshot() {
		req.Equal(fmt.Sprintf("%d", i), string(e.Payload))
		req.Equal(processA.Origin(), e.Origin)
	}
	// And process A delivered locally exactly once, without echo
	time.Sleep(50 * time.Millisecond)
	req.Len(onA.snapshot(), count)
	req.Equal(float64(count), testutil.ToFloat64(metricsA.FabricPublished))
	req.Equal(float64(count), testutil.ToFloat64(metricsB.FabricReceived))
}

func TestRedisFabric_DirectNotification(t *testing.T) {
	req := require.New(t)
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	processA, _ := newRedisFabric(t, mr.Addr())
	processB, _ := newRedisFabric(t, mr.Addr())
	onB := &recorder{}
	processB.Subscribe(onB.handle)
	runFabric(t, ctx, processA.Run)
	runFabric(t, ctx, processB.Run)
	<-processA.Ready()
	<-processB.Ready()

	processA.Publish(domain.BroadcastEnvelope{TargetPrincipal: "bob", EventType: "notification", Payload: []byte(`{"text":"hi"}`)})

	req.Eventually(func() bool { return len(onB.snapshot()) == 1 }, 3*time.Second, 10*time.Millisecond)
	req.Equal(domain.PrincipalID("bob"), onB.snapshot()[0].TargetPrincipal)
}

func TestRedisFabric_RecoversAfterStoreRestart(t *testing.T) {
	req := require.New(t)
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Given two subscribed processes exchanging envelopes
	processA, _ := newRedisFabric(t, mr.Addr())
	processB, _ := newRedisFabric(t, mr.Addr())
	onB := &recorder{}
	processB.Subscribe(onB.handle)
	runFabric(t, ctx, processA.Run)
	runFabric(t, ctx, processB.Run)
	<-processA.Ready()
	<-processB.Ready()
	processA.Publish(domain.BroadcastEnvelope{RoomID: "doc", EventType: "chat.new", Payload: []byte("before")})
	req.Eventually(func() bool { return len(onB.snapshot()) == 1 }, 3*time.Second, 10*time.Millisecond)

	// When the store drops every connection and comes back
	mr.Close()
	req.NoError(mr.Restart())

	// Then cross-process delivery resumes without restarting the fabrics
	req.Eventually(func() bool {
		processA.Publish(domain.BroadcastEnvelope{RoomID: "doc", EventType: "chat.new", Payload: []byte("after")})
		for _, e := range onB.snapshot() {
			if string(e.Payload) == "after" {
				return true
			}
		}
		return false
	}, 10*time.Second, 100*time.Millisecond)
}

func TestRedisFabric_StoreUnreachable(t *testing.T) {
	req := require.New(t)
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Given a fabric whose store is gone
	fabric, metrics := newRedisFabric(t, addr)
	local := &recorder{}
	fabric.Subscribe(local.handle)
	runFabric(t, ctx, fabric.Run)

	// When an envelope is published
	fabric.Publish(domain.BroadcastEnvelope{RoomID: "doc", EventType: "chat.new", Payload: []byte("{}")})

	// Then local members still get it
	req.Eventually(func() bool { return len(local.snapshot()) == 1 }, 3*time.Second, 10*time.Millisecond)
	req.Eventually(func() bool { return testutil.ToFloat64(metrics.FabricDropped) == 1 }, 3*time.Second, 10*time.Millisecond)
}

func TestLocalFabric_HandlerPanicDoesNotStopDelivery(t *testing.T) {
	req := require.New(t)
	fabric := NewLocalFabric(logs.GetLoggerFromLevel(slog.LevelError), observability.NewMetrics(prometheus.NewRegistry()), clock.New(), 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	after := &recorder{}
	fabric.Subscribe(func(context.Context, domain.BroadcastEnvelope) { panic("boom") })
	fabric.Subscribe(after.handle)
	runFabric(t, ctx, fabric.Run)

	fabric.Publish(domain.BroadcastEnvelope{RoomID: "doc", EventType: "chat.new"})
	fabric.Publish(domain.BroadcastEnvelope{RoomID: "doc", EventType: "chat.new"})

	req.Eventually(func() bool { return len(after.snapshot()) == 2 }, time.Second, 10*time.Millisecond)
}

func TestLocalFabric_DropsWhenQueueIsFull(t *testing.T) {
	req := require.New(t)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	clk := clock.NewMock()
	fabric := NewLocalFabric(logs.GetLoggerFromLevel(slog.LevelError), metrics, clk, 2)

	// Given nobody drains the queue
	for i := 0; i < 5; i++ {
		fabric.Publish(domain.BroadcastEnvelope{RoomID: "doc", EventType: "user.typing"})
	}

	// Then publish never blocked and the overflow was counted
	req.Equal(3.0, testutil.ToFloat64(metrics.FabricDropped))

	// And what was queued is delivered, stamped with the origin and time
	received := &recorder{}
	fabric.Subscribe(received.handle)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runFabric(t, ctx, fabric.Run)
	req.Eventually(func() bool { return len(received.snapshot()) == 2 }, time.Second, 10*time.Millisecond)
	req.Equal(fabric.Origin(), received.snapshot()[0].Origin)
	req.Equal(clk.Now(), received.snapshot()[0].PublishedAt)
}
