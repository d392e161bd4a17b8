package domain

import "time"

const (
	RoomChannelPrefix = "room:"
	UserChannelPrefix = "user:"
)

// BroadcastEnvelope is the unit of cross-process transport.
// It carries everything a subscribing process needs for local delivery.
// TargetPrincipal is set for direct notifications, which bypass rooms.
type BroadcastEnvelope struct {
	RoomID           RoomID
	EventType        string
	Payload          []byte
	ExcludePrincipal PrincipalID
	TargetPrincipal  PrincipalID
	Origin           string
	PublishedAt      time.Time
}

// Channel is the pub/sub channel the envelope travels on.
func (e BroadcastEnvelope) Channel() string {
	if e.TargetPrincipal != "" {
		return UserChannelPrefix + string(e.TargetPrincipal)
	}
	return RoomChannelPrefix + string(e.RoomID)
}

// Excludes reports whether the envelope must not reach principalID.
func (e BroadcastEnvelope) Excludes(principalID PrincipalID) bool {
	return e.ExcludePrincipal != "" && e.ExcludePrincipal == principalID
}
