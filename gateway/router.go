package gateway

import (
	"collab-gateway/contract"
	"collab-gateway/domain"
	"collab-gateway/domain/event"
	"collab-gateway/errors"
	"collab-gateway/observability"
	"collab-gateway/runtime"
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/abadojack/whatlanggo"
	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
)

// QuotaChecker is the admission control of quota-relevant events.
type QuotaChecker interface {
	Check(ctx context.Context, class domain.LimitClass, subjectKey string) domain.QuotaDecision
	Now() time.Time
}

// ContentFilter masks forbidden words of chat content.
type ContentFilter interface {
	Censor(original string) (string, []string)
}

// Router is the per-connection state machine. Handle is called from the
// connection's read loop only, one event at a time, in arrival order.
type Router struct {
	log              *slog.Logger
	registry         *runtime.Registry
	store            contract.SessionStore
	quota            QuotaChecker
	fabric           contract.Fabric
	filter           ContentFilter
	clock            clock.Clock
	metrics          *observability.Metrics
	maxContentLength int
}

func NewRouter(
	log *slog.Logger,
	registry *runtime.Registry,
	store contract.SessionStore,
	quota QuotaChecker,
	fabric contract.Fabric,
	filter ContentFilter,
	clk clock.Clock,
	metrics *observability.Metrics,
	maxContentLength int,
) *Router {
	return &Router{
		log:              log,
		registry:         registry,
		store:            store,
		quota:            quota,
		fabric:           fabric,
		filter:           filter,
		clock:            clk,
		metrics:          metrics,
		maxContentLength: maxContentLength,
	}
}

// Handle validates, admits, applies and broadcasts one inbound event.
// The returned error is reported to the originating connection only.
func (r *Router) Handle(ctx context.Context, conn *domain.Connection, sink contract.EventSink, in event.Inbound) error {
	if conn.State == domain.StateConnecting || conn.State == domain.StateClosed {
		return fmt.Errorf("%w: connection is %s", errors.ErrInvalidToken, conn.State)
	}
	conn.Touch(r.clock.Now())

	if err := r.authorize(conn, in); err != nil {
		return err
	}
	if class, ok := event.QuotaClass(in); ok {
		decision := r.quota.Check(ctx, class, string(conn.Principal.ID))
		if !decision.Allowed {
			return fmt.Errorf("%w: %d %s events allowed, retry in %s",
				errors.ErrQuotaExceeded, decision.Limit, class, decision.RetryAfter(r.quota.Now()))
		}
	}

	switch e := in.(type) {
	case event.JoinRoom:
		return r.join(ctx, conn, sink, e)
	case event.LeaveRoom:
		return r.leave(ctx, conn)
	case event.SendChat:
		return r.sendChat(ctx, conn, e)
	case event.React:
		return r.react(ctx, conn, e)
	case event.UpdateCursor:
		return r.publish(conn, e.RoomID, event.TypeCursorMoved, event.CursorPayload{
			RoomID: e.RoomID, Member: event.MemberOf(conn.Principal), Line: e.Line, Column: e.Column,
		}, true)
	case event.StartTyping:
		return r.publish(conn, e.RoomID, event.TypeUserTyping, event.TypingPayload{
			RoomID: e.RoomID, Member: event.MemberOf(conn.Principal),
		}, true)
	case event.StopTyping:
		return r.publish(conn, e.RoomID, event.TypeUserStoppedTyping, event.TypingPayload{
			RoomID: e.RoomID, Member: event.MemberOf(conn.Principal),
		}, true)
	default:
		return fmt.Errorf("%w: unhandled event %s", errors.ErrMalformedEvent, in.Kind())
	}
}

// authorize checks that room scoped events target the current room and that
// the role of the connection allows them.
func (r *Router) authorize(conn *domain.Connection, in event.Inbound) error {
	var roomID domain.RoomID
	switch e := in.(type) {
	case event.JoinRoom:
		return nil
	case event.React:
		if conn.CurrentRoom == nil {
			return errors.ErrNotInRoom
		}
		return nil
	case event.UpdateCursor:
		if conn.InRoom(e.RoomID) && !conn.Role.CanEdit() {
			return fmt.Errorf("%w: role %s cannot move a cursor", errors.ErrAccessDenied, conn.Role)
		}
		roomID = e.RoomID
	case event.LeaveRoom:
		roomID = e.RoomID
	case event.SendChat:
		roomID = e.RoomID
	case event.StartTyping:
		roomID = e.RoomID
	case event.StopTyping:
		roomID = e.RoomID
	}
	if !conn.InRoom(roomID) {
		return fmt.Errorf("%w: %s", errors.ErrNotInRoom, roomID)
	}
	return nil
}

func (r *Router) join(ctx context.Context, conn *domain.Connection, sink contract.EventSink, e event.JoinRoom) error {
	previous := conn.CurrentRoom
	role, err := r.registry.Join(ctx, conn, e.RoomID)
	if err != nil {
		return err
	}

	if previous == nil || *previous != e.RoomID {
		if previous != nil {
			r.publishLeft(conn, *previous)
		}
		if err = r.publish(conn, e.RoomID, event.TypeMemberJoined, event.MemberPayload{
			RoomID: e.RoomID, Member: event.MemberOf(conn.Principal),
		}, true); err != nil {
			return err
		}
	}

	members := make([]event.Member, 0)
	for _, p := range r.registry.Principals(e.RoomID) {
		members = append(members, event.MemberOf(p))
	}
	ack, err := event.NewOutbound(event.TypeRoomJoined, event.RoomJoinedPayload{RoomID: e.RoomID, Role: role, Members: members})
	if err != nil {
		return err
	}
	return sink.Consume(ctx, ack)
}

func (r *Router) leave(ctx context.Context, conn *domain.Connection) error {
	if roomID, left := r.registry.Leave(ctx, conn); left {
		r.publishLeft(conn, roomID)
	}
	return nil
}

// Disconnect runs on every transport termination: it leaves the room,
// forgets the connection and closes its state machine.
func (r *Router) Disconnect(ctx context.Context, conn *domain.Connection) {
	roomID, left := r.registry.Unregister(ctx, conn)
	conn.Close()
	if left {
		r.publishLeft(conn, roomID)
	}
}

func (r *Router) sendChat(ctx context.Context, conn *domain.Connection, e event.SendChat) error {
	if r.maxContentLength > 0 && utf8.RuneCountInString(e.Content) > r.maxContentLength {
		return fmt.Errorf("%w: %d characters max", errors.ErrContentTooLong, r.maxContentLength)
	}

	content, censored := r.filter.Censor(e.Content)
	message := domain.ChatMessage{
		ID:            uuid.New(),
		RoomID:        e.RoomID,
		AuthorID:      conn.Principal.ID,
		AuthorName:    conn.Principal.DisplayName,
		Content:       content,
		Lang:          whatlanggo.Detect(e.Content).Lang.Iso6391(),
		CensoredWords: censored,
		CreatedAt:     r.clock.Now().UTC(),
	}
	if e.ReplyTo != nil {
		replyTo, err := uuid.Parse(*e.ReplyTo)
		if err != nil {
			return fmt.Errorf("%w: reply to: %v", errors.ErrMalformedEvent, err)
		}
		message.ReplyTo = &replyTo
	}
	if len(censored) > 0 {
		r.log.Debug("Chat content censored", "room_id", e.RoomID, "author", conn.Principal.ID, "words", len(censored))
	}

	// Recorded before broadcast so a reloading client finds it in history.
	if err := r.store.RecordMessage(ctx, message); err != nil {
		r.log.Error("Chat message not recorded, broadcasting anyway",
			"room_id", e.RoomID, "message_id", message.ID, "error", err)
	}
	return r.publish(conn, e.RoomID, event.TypeChatNew, event.ChatPayloadOf(message), false)
}

func (r *Router) react(ctx context.Context, conn *domain.Connection, e event.React) error {
	roomID := *conn.CurrentRoom
	messageID, err := uuid.Parse(e.MessageID)
	if err != nil {
		return fmt.Errorf("%w: message id: %v", errors.ErrMalformedEvent, err)
	}

	payload := event.ReactionPayload{
		MessageID:   e.MessageID,
		RoomID:      roomID,
		PrincipalID: conn.Principal.ID,
		Emoji:       e.Emoji,
	}
	message, err := r.store.RecordReaction(ctx, roomID, domain.Reaction{
		MessageID:   messageID,
		PrincipalID: conn.Principal.ID,
		Emoji:       e.Emoji,
		At:          r.clock.Now().UTC(),
	})
	switch {
	case errors.IsClientError(err):
		return err
	case err != nil:
		r.log.Error("Reaction not recorded, broadcasting anyway", "room_id", roomID, "message_id", e.MessageID, "error", err)
	default:
		payload.Reactions = message.Reactions
	}
	return r.publish(conn, roomID, event.TypeChatReaction, payload, false)
}

func (r *Router) publishLeft(conn *domain.Connection, roomID domain.RoomID) {
	if err := r.publish(conn, roomID, event.TypeMemberLeft, event.MemberPayload{
		RoomID: roomID, Member: event.MemberOf(conn.Principal),
	}, true); err != nil {
		r.log.Error("Member left not published", "room_id", roomID, "error", err)
	}
}

// publish hands an event to the fabric. excludeSelf keeps presence style
// events away from every connection of the originating principal.
func (r *Router) publish(conn *domain.Connection, roomID domain.RoomID, t event.OutboundType, payload any, excludeSelf bool) error {
	out, err := event.NewOutbound(t, payload)
	if err != nil {
		return err
	}
	envelope := domain.BroadcastEnvelope{
		RoomID:    roomID,
		EventType: string(out.Type),
		Payload:   out.Payload,
	}
	if excludeSelf {
		envelope.ExcludePrincipal = conn.Principal.ID
	}
	r.fabric.Publish(envelope)
	return nil
}
