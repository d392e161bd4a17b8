package gateway

import (
	"collab-gateway/domain"
	"collab-gateway/domain/event"
	"collab-gateway/runtime"
	"context"
	"log/slog"
)

// Delivery turns envelopes received from the fabric into frames for the
// local connections the registry knows about.
type Delivery struct {
	log      *slog.Logger
	registry *runtime.Registry
}

func NewDelivery(log *slog.Logger, registry *runtime.Registry) *Delivery {
	return &Delivery{log: log, registry: registry}
}

// Handle is the fabric subscription callback.
func (d *Delivery) Handle(ctx context.Context, envelope domain.BroadcastEnvelope) {
	var targets []runtime.Member
	if envelope.TargetPrincipal != "" {
		targets = d.registry.ConnectionsOf(envelope.TargetPrincipal)
	} else {
		targets = d.registry.Members(envelope.RoomID)
	}
	if len(targets) == 0 {
		return
	}

	out := event.Outbound{Type: event.OutboundType(envelope.EventType), Payload: envelope.Payload}
	for _, member := range targets {
		if envelope.Excludes(member.Principal.ID) || member.Sink == nil {
			continue
		}
		if err := member.Sink.Consume(ctx, out); err != nil {
			d.log.Debug("Event not delivered",
				"connection_id", member.ConnectionID,
				"event_type", envelope.EventType,
				"error", err)
		}
	}
}
