package fabric

import (
	"collab-gateway/contract"
	"collab-gateway/domain"
	"collab-gateway/observability"
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
)

var (
	_ contract.Fabric = (*LocalFabric)(nil)
	_ contract.Worker = (*LocalFabric)(nil)
)

// dispatcher owns the publish queue and the subscribed handlers.
// Publish never blocks: a full queue drops the envelope.
type dispatcher struct {
	log     *slog.Logger
	metrics *observability.Metrics
	clock   clock.Clock
	origin  string
	queue   chan domain.BroadcastEnvelope

	mu       sync.RWMutex
	handlers []contract.EnvelopeHandler
}

func newDispatcher(log *slog.Logger, metrics *observability.Metrics, clk clock.Clock, bufferSize int) *dispatcher {
	return &dispatcher{
		log:     log,
		metrics: metrics,
		clock:   clk,
		origin:  uuid.NewString(),
		queue:   make(chan domain.BroadcastEnvelope, bufferSize),
	}
}

// Origin identifies this process on the fabric.
func (d *dispatcher) Origin() string {
	return d.origin
}

// Backlog returns the envelopes waiting to be sent and the queue capacity.
func (d *dispatcher) Backlog() (int, int) {
	return len(d.queue), cap(d.queue)
}

func (d *dispatcher) Publish(envelope domain.BroadcastEnvelope) {
	envelope.Origin = d.origin
	if envelope.PublishedAt.IsZero() {
		envelope.PublishedAt = d.clock.Now()
	}
	select {
	case d.queue <- envelope:
	default:
		d.metrics.FabricDropped.Inc()
		d.log.Error("Fabric queue full, envelope dropped",
			"channel", envelope.Channel(),
			"event_type", envelope.EventType,
			"capacity", cap(d.queue))
	}
}

func (d *dispatcher) Subscribe(handler contract.EnvelopeHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = append(d.handlers, handler)
}

// deliver hands the envelope to every handler. A panicking handler is
// logged and skipped so the fabric loop keeps running.
func (d *dispatcher) deliver(ctx context.Context, envelope domain.BroadcastEnvelope) {
	d.mu.RLock()
	handlers := d.handlers
	d.mu.RUnlock()

	for _, handler := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					d.log.Error("Envelope handler panicked", "channel", envelope.Channel(), "panic", fmt.Sprint(r))
				}
			}()
			handler(ctx, envelope)
		}()
	}
}

// LocalFabric delivers envelopes inside this process only.
// It is the single-process mode used when no coordination store is reachable.
type LocalFabric struct {
	*dispatcher
}

func NewLocalFabric(log *slog.Logger, metrics *observability.Metrics, clk clock.Clock, bufferSize int) *LocalFabric {
	return &LocalFabric{dispatcher: newDispatcher(log, metrics, clk, bufferSize)}
}

// Run drains the publish queue in order until ctx is done.
func (f *LocalFabric) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case envelope := <-f.queue:
			f.metrics.FabricPublished.Inc()
			f.deliver(ctx, envelope)
		}
	}
}
