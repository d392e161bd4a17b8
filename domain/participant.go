package domain

import "time"

type ParticipantStatus string

const (
	ParticipantActive   ParticipantStatus = "active"
	ParticipantDeparted ParticipantStatus = "departed"
	ParticipantRemoved  ParticipantStatus = "removed"
)

// Participant is the canonical membership record of a principal in a room.
// A departed participant may join again, a removed one may not.
type Participant struct {
	RoomID      RoomID
	PrincipalID PrincipalID
	Role        Role
	Status      ParticipantStatus
	JoinedAt    time.Time
	DepartedAt  *time.Time
}
