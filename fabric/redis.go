package fabric

import (
	"collab-gateway/contract"
	"collab-gateway/domain"
	"collab-gateway/observability"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/redis/go-redis/v9"
)

var (
	_ contract.Fabric = (*RedisFabric)(nil)
	_ contract.Worker = (*RedisFabric)(nil)
)

const resubscribeInterval = time.Second

// Every process receives the traffic of every room, members or not, and
// filters locally. One subscription per room would cut that cost at the
// price of subscribe churn on each first join and last leave.
var subscribePatterns = []string{
	domain.RoomChannelPrefix + "*",
	domain.UserChannelPrefix + "*",
}

// RedisFabric spreads envelopes to every gateway process through Redis
// pub/sub. Envelopes published here are delivered locally first and then
// sent to Redis from the same loop, so one process publishes a room's
// envelopes in order. Echoes of its own envelopes are skipped on receipt.
type RedisFabric struct {
	*dispatcher
	client    redis.UniversalClient
	ready     chan struct{}
	readyOnce sync.Once
}

func NewRedisFabric(log *slog.Logger, client redis.UniversalClient, metrics *observability.Metrics, clk clock.Clock, bufferSize int) *RedisFabric {
	return &RedisFabric{
		dispatcher: newDispatcher(log, metrics, clk, bufferSize),
		client:     client,
		ready:      make(chan struct{}),
	}
}

// Ready is closed once the first subscription is confirmed.
func (f *RedisFabric) Ready() <-chan struct{} {
	return f.ready
}

// Run subscribes to every room and user channel and pumps both directions
// until ctx is done. While the subscription cannot be established, published
// envelopes are still delivered to local members.
func (f *RedisFabric) Run(ctx context.Context) error {
	for {
		pubsub := f.client.PSubscribe(ctx, subscribePatterns...)
		if _, err := pubsub.Receive(ctx); err != nil {
			_ = pubsub.Close()
			if ctx.Err() != nil {
				return nil
			}
			f.log.Warn("Fabric subscription failed, delivering locally until it is back",
				"retry_in", resubscribeInterval, "error", err)
			if !f.drainLocally(ctx, resubscribeInterval) {
				return nil
			}
			continue
		}
		f.readyOnce.Do(func() { close(f.ready) })
		f.log.Info("Fabric subscribed", "patterns", subscribePatterns, "origin", f.origin)

		err := f.pump(ctx, pubsub.Channel())
		if closeErr := pubsub.Close(); closeErr != nil {
			f.log.Debug("Closing fabric subscription", "error", closeErr)
		}
		if err == nil {
			return nil
		}
		f.log.Warn("Fabric subscription lost, resubscribing", "error", err)
	}
}

// pump serves the publish queue and the subscription in one loop.
// go-redis reconnects the subscription by itself; a closed channel means it gave up.
func (f *RedisFabric) pump(ctx context.Context, messages <-chan *redis.Message) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case envelope := <-f.queue:
			f.deliver(ctx, envelope)
			f.send(ctx, envelope)
		case msg, ok := <-messages:
			if !ok {
				return fmt.Errorf("fabric subscription closed")
			}
			f.receive(ctx, msg)
		}
	}
}

// drainLocally serves the publish queue for d. It returns false when ctx is done.
func (f *RedisFabric) drainLocally(ctx context.Context, d time.Duration) bool {
	timeout := f.clock.After(d)
	for {
		select {
		case <-ctx.Done():
			return false
		case <-timeout:
			return true
		case envelope := <-f.queue:
			f.deliver(ctx, envelope)
			f.send(ctx, envelope)
		}
	}
}

func (f *RedisFabric) send(ctx context.Context, envelope domain.BroadcastEnvelope) {
	if err := f.client.Publish(ctx, envelope.Channel(), Marshal(envelope)).Err(); err != nil {
		f.metrics.FabricDropped.Inc()
		f.log.Error("Envelope not published, remote members will miss it",
			"channel", envelope.Channel(),
			"event_type", envelope.EventType,
			"error", err)
		return
	}
	f.metrics.FabricPublished.Inc()
}

func (f *RedisFabric) receive(ctx context.Context, msg *redis.Message) {
	envelope, err := Unmarshal([]byte(msg.Payload))
	if err != nil {
		f.metrics.FabricDecodeErrors.Inc()
		f.log.Warn("Undecodable envelope ignored", "channel", msg.Channel, "error", err)
		return
	}
	if envelope.Origin == f.origin {
		return
	}
	f.metrics.FabricReceived.Inc()
	f.deliver(ctx, envelope)
}
