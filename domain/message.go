package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is an immutable chat entry of a room, apart from its reactions.
type ChatMessage struct {
	ID            uuid.UUID
	RoomID        RoomID
	AuthorID      PrincipalID
	AuthorName    string
	Content       string
	ReplyTo       *uuid.UUID
	Lang          string
	CensoredWords []string
	Reactions     map[string][]PrincipalID
	CreatedAt     time.Time
}

type Reaction struct {
	MessageID   uuid.UUID
	PrincipalID PrincipalID
	Emoji       string
	At          time.Time
}
