//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"collab-gateway/domain"
	"collab-gateway/domain/event"
	"context"
	"reflect"
	"time"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives outbound frames of one connection.
// Consume must never block the caller for long: a slow client is the
// client's problem, not the room's.
type EventSink interface {
	Consume(ctx context.Context, e event.Outbound) error
}

// Authenticator turns a raw credential into a Principal.
type Authenticator interface {
	Authenticate(ctx context.Context, rawToken string) (domain.Principal, error)
}

// PrincipalStore resolves identities referenced by credentials.
// Missing and soft-deleted identities both return errors.ErrUnknownPrincipal.
type PrincipalStore interface {
	LookupPrincipal(ctx context.Context, id domain.PrincipalID) (domain.Principal, error)
}

// SessionStore is the narrow surface of the session store the gateway consumes.
type SessionStore interface {
	Authorize(ctx context.Context, principalID domain.PrincipalID, roomID domain.RoomID) (domain.Role, error)
	RoomInfo(ctx context.Context, roomID domain.RoomID) (domain.RoomInfo, error)
	MarkJoined(ctx context.Context, roomID domain.RoomID, principalID domain.PrincipalID, role domain.Role) error
	MarkDeparted(ctx context.Context, roomID domain.RoomID, principalID domain.PrincipalID) error
	RecordMessage(ctx context.Context, message domain.ChatMessage) error
	RecordReaction(ctx context.Context, roomID domain.RoomID, reaction domain.Reaction) (domain.ChatMessage, error)
	Messages(ctx context.Context, roomID domain.RoomID, cursor *string) ([]domain.ChatMessage, *string, error)
}

// QuotaBackend accounts one action atomically.
// Errors mean the store could not decide; callers fail open.
type QuotaBackend interface {
	Check(ctx context.Context, subjectKey string, limit domain.Limit, now time.Time) (domain.QuotaDecision, error)
}

// EnvelopeHandler is called for every envelope received by the fabric.
type EnvelopeHandler func(ctx context.Context, envelope domain.BroadcastEnvelope)

// Fabric is the cross-process publish/subscribe layer.
// Publish only enqueues. Run owns the transport until ctx is done.
type Fabric interface {
	Publish(envelope domain.BroadcastEnvelope)
	Subscribe(handler EnvelopeHandler)
	Run(ctx context.Context) error
}

// PresenceTracker counts the live connections of a principal in a room
// across every gateway process.
type PresenceTracker interface {
	Arrive(ctx context.Context, roomID domain.RoomID, principalID domain.PrincipalID) (int64, error)
	Depart(ctx context.Context, roomID domain.RoomID, principalID domain.PrincipalID) (int64, error)
}
