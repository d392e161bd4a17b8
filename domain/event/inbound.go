package event

import (
	"collab-gateway/domain"
	"collab-gateway/errors"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Room IDs end up in store keys and channel names delimited by ':'.
const roomIDRule = "required,max=128,excludes=:"

// ValidateRoomID checks a room ID received outside of an event frame.
func ValidateRoomID(roomID domain.RoomID) error {
	if err := validate.Var(string(roomID), roomIDRule); err != nil {
		return fmt.Errorf("%w: room id: %v", errors.ErrMalformedEvent, err)
	}
	return nil
}

type Kind string

const (
	KindJoinRoom     Kind = "room.join"
	KindLeaveRoom    Kind = "room.leave"
	KindSendChat     Kind = "chat.send"
	KindReact        Kind = "chat.react"
	KindUpdateCursor Kind = "cursor.update"
	KindStartTyping  Kind = "typing.start"
	KindStopTyping   Kind = "typing.stop"
)

// Inbound is a client event. The set of implementations is closed:
// only the types of this file satisfy it.
type Inbound interface {
	Kind() Kind
	inbound()
}

type JoinRoom struct {
	RoomID domain.RoomID `json:"roomId" validate:"required,max=128,excludes=:"`
}

type LeaveRoom struct {
	RoomID domain.RoomID `json:"roomId" validate:"required,max=128,excludes=:"`
}

type SendChat struct {
	RoomID  domain.RoomID `json:"roomId" validate:"required,max=128,excludes=:"`
	Content string        `json:"content" validate:"required"`
	ReplyTo *string       `json:"replyTo,omitempty" validate:"omitempty,uuid"`
}

type React struct {
	MessageID string `json:"messageId" validate:"required,uuid"`
	Emoji     string `json:"emoji" validate:"required,max=32"`
}

type UpdateCursor struct {
	RoomID domain.RoomID `json:"roomId" validate:"required,max=128,excludes=:"`
	Line   int           `json:"line" validate:"gte=0"`
	Column int           `json:"column" validate:"gte=0"`
}

type StartTyping struct {
	RoomID domain.RoomID `json:"roomId" validate:"required,max=128,excludes=:"`
}

type StopTyping struct {
	RoomID domain.RoomID `json:"roomId" validate:"required,max=128,excludes=:"`
}

func (JoinRoom) Kind() Kind     { return KindJoinRoom }
func (LeaveRoom) Kind() Kind    { return KindLeaveRoom }
func (SendChat) Kind() Kind     { return KindSendChat }
func (React) Kind() Kind        { return KindReact }
func (UpdateCursor) Kind() Kind { return KindUpdateCursor }
func (StartTyping) Kind() Kind  { return KindStartTyping }
func (StopTyping) Kind() Kind   { return KindStopTyping }

func (JoinRoom) inbound()     {}
func (LeaveRoom) inbound()    {}
func (SendChat) inbound()     {}
func (React) inbound()        {}
func (UpdateCursor) inbound() {}
func (StartTyping) inbound()  {}
func (StopTyping) inbound()   {}

// QuotaClass returns the limit class an event is accounted in.
// Joins, leaves and typing indicators are exempt.
func QuotaClass(in Inbound) (domain.LimitClass, bool) {
	switch in.(type) {
	case SendChat:
		return domain.LimitChat, true
	case React:
		return domain.LimitReaction, true
	case UpdateCursor:
		return domain.LimitCursor, true
	}
	return "", false
}

type frame struct {
	Type    Kind            `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Decode parses and validates a raw client frame.
// Every failure wraps errors.ErrMalformedEvent.
func Decode(raw []byte) (Inbound, error) {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformedEvent, err)
	}
	switch f.Type {
	case KindJoinRoom:
		return decodePayload[JoinRoom](f.Payload)
	case KindLeaveRoom:
		return decodePayload[LeaveRoom](f.Payload)
	case KindSendChat:
		return decodePayload[SendChat](f.Payload)
	case KindReact:
		return decodePayload[React](f.Payload)
	case KindUpdateCursor:
		return decodePayload[UpdateCursor](f.Payload)
	case KindStartTyping:
		return decodePayload[StartTyping](f.Payload)
	case KindStopTyping:
		return decodePayload[StopTyping](f.Payload)
	}
	return nil, fmt.Errorf("%w: unknown type %q", errors.ErrMalformedEvent, f.Type)
}

func decodePayload[T Inbound](raw json.RawMessage) (Inbound, error) {
	var in T
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: missing payload", errors.ErrMalformedEvent)
	}
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformedEvent, err)
	}
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformedEvent, err)
	}
	return in, nil
}
