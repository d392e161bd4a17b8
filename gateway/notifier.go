package gateway

import (
	"collab-gateway/contract"
	"collab-gateway/domain"
	"collab-gateway/domain/event"
	"fmt"
)

// Notifier pushes direct notifications to every connection of a principal,
// on whatever process they are attached to. Services hold one instead of
// reaching for the transport.
type Notifier struct {
	fabric contract.Fabric
}

func NewNotifier(fabric contract.Fabric) *Notifier {
	return &Notifier{fabric: fabric}
}

// Notify publishes payload on user:<principalID> as a notification event.
func (n *Notifier) Notify(principalID domain.PrincipalID, payload any) error {
	if principalID == "" {
		return fmt.Errorf("notify: empty principal")
	}
	out, err := event.NewOutbound(event.TypeNotification, payload)
	if err != nil {
		return fmt.Errorf("notify %s: %w", principalID, err)
	}
	n.fabric.Publish(domain.BroadcastEnvelope{
		TargetPrincipal: principalID,
		EventType:       string(out.Type),
		Payload:         out.Payload,
	})
	return nil
}
