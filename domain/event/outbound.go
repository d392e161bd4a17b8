package event

import (
	"collab-gateway/domain"
	"collab-gateway/errors"
	"encoding/json"
	"time"
)

type OutboundType string

const (
	TypeRoomJoined        OutboundType = "room.joined"
	TypeMemberJoined      OutboundType = "room.memberJoined"
	TypeMemberLeft        OutboundType = "room.memberLeft"
	TypeChatNew           OutboundType = "chat.new"
	TypeChatReaction      OutboundType = "chat.reaction"
	TypeCursorMoved       OutboundType = "cursor.moved"
	TypeUserTyping        OutboundType = "user.typing"
	TypeUserStoppedTyping OutboundType = "user.stoppedTyping"
	TypeNotification      OutboundType = "notification"
	TypeError             OutboundType = "error"
)

// Outbound is a frame written to a client.
type Outbound struct {
	Type    OutboundType    `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type Member struct {
	PrincipalID domain.PrincipalID `json:"principalId"`
	DisplayName string             `json:"displayName"`
}

type RoomJoinedPayload struct {
	RoomID  domain.RoomID `json:"roomId"`
	Role    domain.Role   `json:"role"`
	Members []Member      `json:"members"`
}

type MemberPayload struct {
	RoomID domain.RoomID `json:"roomId"`
	Member
}

type ChatPayload struct {
	ID         string             `json:"id"`
	RoomID     domain.RoomID      `json:"roomId"`
	AuthorID   domain.PrincipalID `json:"authorId"`
	AuthorName string             `json:"authorName"`
	Content    string             `json:"content"`
	ReplyTo    *string            `json:"replyTo,omitempty"`
	Lang       string             `json:"lang,omitempty"`
	CreatedAt  time.Time          `json:"createdAt"`
}

type ReactionPayload struct {
	MessageID   string                          `json:"messageId"`
	RoomID      domain.RoomID                   `json:"roomId"`
	PrincipalID domain.PrincipalID              `json:"principalId"`
	Emoji       string                          `json:"emoji"`
	Reactions   map[string][]domain.PrincipalID `json:"reactions"`
}

type CursorPayload struct {
	RoomID domain.RoomID `json:"roomId"`
	Member
	Line   int `json:"line"`
	Column int `json:"column"`
}

type TypingPayload struct {
	RoomID domain.RoomID `json:"roomId"`
	Member
}

type ErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// NewOutbound encodes payload into a frame of type t.
func NewOutbound(t OutboundType, payload any) (Outbound, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Outbound{}, err
	}
	return Outbound{Type: t, Payload: raw}, nil
}

// ErrorEvent builds the error frame sent to the originating connection only.
func ErrorEvent(err error) Outbound {
	code := errors.Code(err)
	message := err.Error()
	if code == errors.CodeInternal {
		message = "internal error"
	}
	raw, _ := json.Marshal(ErrorPayload{Message: message, Code: code})
	return Outbound{Type: TypeError, Payload: raw}
}

func MemberOf(p domain.Principal) Member {
	return Member{PrincipalID: p.ID, DisplayName: p.DisplayName}
}

func ChatPayloadOf(m domain.ChatMessage) ChatPayload {
	var replyTo *string
	if m.ReplyTo != nil {
		s := m.ReplyTo.String()
		replyTo = &s
	}
	return ChatPayload{
		ID:         m.ID.String(),
		RoomID:     m.RoomID,
		AuthorID:   m.AuthorID,
		AuthorName: m.AuthorName,
		Content:    m.Content,
		ReplyTo:    replyTo,
		Lang:       m.Lang,
		CreatedAt:  m.CreatedAt,
	}
}
