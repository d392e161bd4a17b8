package domain

import (
	"fmt"
	"time"
)

type ConnectionID string

// State of a connection in the event router.
// Connecting -> Authenticated -> (Idle | InRoom) -> Closed
type State int

const (
	StateConnecting State = iota
	StateAuthenticated
	StateIdle
	StateInRoom
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateIdle:
		return "idle"
	case StateInRoom:
		return "in_room"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Connection is one live transport channel owned by the process that accepted it.
// It is only built from an authenticated Principal, so no state without a
// principal can ever reach room operations.
// Connection is not safe for concurrent mutation: only the owning
// connection's event loop changes it.
type Connection struct {
	ID           ConnectionID
	Principal    Principal
	State        State
	CurrentRoom  *RoomID
	Role         Role
	LastActivity time.Time
}

func NewConnection(id ConnectionID, principal Principal, now time.Time) *Connection {
	return &Connection{
		ID:           id,
		Principal:    principal,
		State:        StateAuthenticated,
		LastActivity: now,
	}
}

// InRoom reports whether the connection currently belongs to roomID.
func (c *Connection) InRoom(roomID RoomID) bool {
	return c.CurrentRoom != nil && *c.CurrentRoom == roomID
}

func (c *Connection) EnterRoom(roomID RoomID, role Role) {
	c.CurrentRoom = &roomID
	c.Role = role
	c.State = StateInRoom
}

func (c *Connection) ExitRoom() {
	c.CurrentRoom = nil
	c.Role = ""
	if c.State != StateClosed {
		c.State = StateIdle
	}
}

func (c *Connection) Close() {
	c.State = StateClosed
}

func (c *Connection) Touch(now time.Time) {
	c.LastActivity = now
}
