package domain

import "time"

type RoomID string

// Role is resolved on join and gates what a member may broadcast.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// CanEdit reports whether the role may broadcast edit events such as cursor moves.
func (r Role) CanEdit() bool {
	return r == RoleOwner || r == RoleEditor
}

func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleEditor, RoleViewer:
		return true
	}
	return false
}

type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityOpen    Visibility = "open"
)

// RoomInfo is the ownership and visibility of a collaborative session.
// OpenRole is granted to any principal joining an open room without a participant record.
type RoomInfo struct {
	ID         RoomID
	OwnerID    PrincipalID
	Title      string
	Visibility Visibility
	OpenRole   Role
	CreatedAt  time.Time
}
