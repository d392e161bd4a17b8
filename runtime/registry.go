package runtime

import (
	"collab-gateway/contract"
	"collab-gateway/domain"
	"context"
	"log/slog"
	"sync"

	"github.com/samber/lo"
)

type Set map[domain.ConnectionID]struct{}

// Session is the local delivery handle of a connection.
type Session struct {
	ConnectionID domain.ConnectionID
	Principal    domain.Principal
	Sink         contract.EventSink
	room         *domain.RoomID
	role         domain.Role
}

// Member is a snapshot of a connection in a room.
type Member struct {
	ConnectionID domain.ConnectionID
	Principal    domain.Principal
	Role         domain.Role
	Sink         contract.EventSink
}

// Registry is the local view of which connection is in which room.
// It is the only authority for local delivery decisions. Join and Leave of
// one connection are called from that connection's sequential event loop;
// the mutex only keeps the maps safe for concurrent readers.
type Registry struct {
	log      *slog.Logger
	store    contract.SessionStore
	presence contract.PresenceTracker

	mu          sync.RWMutex
	sessions    map[domain.ConnectionID]*Session
	roomMembers map[domain.RoomID]Set
	principals  map[domain.PrincipalID]Set
}

func NewRegistry(log *slog.Logger, store contract.SessionStore, presence contract.PresenceTracker) *Registry {
	return &Registry{
		log:         log,
		store:       store,
		presence:    presence,
		sessions:    make(map[domain.ConnectionID]*Session),
		roomMembers: make(map[domain.RoomID]Set),
		principals:  make(map[domain.PrincipalID]Set),
	}
}

// Register makes an authenticated connection reachable for direct
// notifications. It is not part of any room yet.
func (r *Registry) Register(conn *domain.Connection, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[conn.ID] = &Session{ConnectionID: conn.ID, Principal: conn.Principal, Sink: sink}
	if _, ok := r.principals[conn.Principal.ID]; !ok {
		r.principals[conn.Principal.ID] = make(Set)
	}
	r.principals[conn.Principal.ID][conn.ID] = struct{}{}
}

// Unregister leaves the current room, if any, and forgets the connection.
// It runs on every transport termination and is safe to call twice.
func (r *Registry) Unregister(ctx context.Context, conn *domain.Connection) (domain.RoomID, bool) {
	roomID, left := r.Leave(ctx, conn)

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, conn.ID)
	if set, ok := r.principals[conn.Principal.ID]; ok {
		delete(set, conn.ID)
		if len(set) == 0 {
			delete(r.principals, conn.Principal.ID)
		}
	}
	return roomID, left
}

// Join authorizes the principal of conn for roomID and adds the connection
// to the local member set. A connection already in another room leaves it
// first, once the new room has been authorized. Failures leave the
// connection where it was.
func (r *Registry) Join(ctx context.Context, conn *domain.Connection, roomID domain.RoomID) (domain.Role, error) {
	role, err := r.store.Authorize(ctx, conn.Principal.ID, roomID)
	if err != nil {
		return "", err
	}

	if current, ok := r.RoomOf(conn.ID); ok {
		if current == roomID {
			r.setRole(conn.ID, role)
			conn.EnterRoom(roomID, role)
			return role, nil
		}
		r.Leave(ctx, conn)
	}

	if _, err = r.presence.Arrive(ctx, roomID, conn.Principal.ID); err != nil {
		r.log.Error("Presence arrival not recorded", "room_id", roomID, "principal_id", conn.Principal.ID, "error", err)
	}
	if err = r.store.MarkJoined(ctx, roomID, conn.Principal.ID, role); err != nil {
		r.log.Error("Participant not marked as joined", "room_id", roomID, "principal_id", conn.Principal.ID, "error", err)
	}

	r.mu.Lock()
	session, ok := r.sessions[conn.ID]
	if !ok {
		// Joined before Register, tests and tools do that
		session = &Session{ConnectionID: conn.ID, Principal: conn.Principal}
		r.sessions[conn.ID] = session
	}
	session.room = &roomID
	session.role = role
	if _, ok = r.roomMembers[roomID]; !ok {
		r.roomMembers[roomID] = make(Set)
	}
	r.roomMembers[roomID][conn.ID] = struct{}{}
	r.mu.Unlock()

	conn.EnterRoom(roomID, role)
	r.log.Debug("Connection joined room", "connection_id", conn.ID, "room_id", roomID, "role", role)
	return role, nil
}

// Leave removes conn from its room. It is idempotent: the second call finds
// nothing and returns false. When the principal has no connection left in
// the room on any process, the participant is marked as departed.
func (r *Registry) Leave(ctx context.Context, conn *domain.Connection) (domain.RoomID, bool) {
	r.mu.Lock()
	session, ok := r.sessions[conn.ID]
	if !ok || session.room == nil {
		r.mu.Unlock()
		return "", false
	}
	roomID := *session.room
	session.room = nil
	session.role = ""
	if members, ok := r.roomMembers[roomID]; ok {
		delete(members, conn.ID)
		// If no one is left in the room, remove the room entry entirely
		if len(members) == 0 {
			delete(r.roomMembers, roomID)
		}
	}
	r.mu.Unlock()
	conn.ExitRoom()

	remaining, err := r.presence.Depart(ctx, roomID, conn.Principal.ID)
	if err != nil {
		r.log.Error("Presence departure not recorded", "room_id", roomID, "principal_id", conn.Principal.ID, "error", err)
	}
	if err == nil && remaining == 0 {
		if err = r.store.MarkDeparted(ctx, roomID, conn.Principal.ID); err != nil {
			r.log.Error("Participant not marked as departed", "room_id", roomID, "principal_id", conn.Principal.ID, "error", err)
		}
	}
	r.log.Debug("Connection left room", "connection_id", conn.ID, "room_id", roomID, "remaining", remaining)
	return roomID, true
}

// RoomOf returns the room conn is currently in.
func (r *Registry) RoomOf(connID domain.ConnectionID) (domain.RoomID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[connID]
	if !ok || session.room == nil {
		return "", false
	}
	return *session.room, true
}

// RoomsOf lists every room holding connID. The result has at most one entry.
func (r *Registry) RoomsOf(connID domain.ConnectionID) []domain.RoomID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var rooms []domain.RoomID
	for roomID, members := range r.roomMembers {
		if _, ok := members[connID]; ok {
			rooms = append(rooms, roomID)
		}
	}
	return rooms
}

// Members returns a snapshot of the local members of a room.
// Returns nil if the room doesn't exist or has no members.
func (r *Registry) Members(roomID domain.RoomID) []Member {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.roomMembers[roomID]
	if !ok {
		return nil
	}
	snapshot := make([]Member, 0, len(members))
	for connID := range members {
		if session, exists := r.sessions[connID]; exists {
			snapshot = append(snapshot, toMember(session))
		}
	}
	return snapshot
}

// Principals lists the distinct principals present locally in a room.
func (r *Registry) Principals(roomID domain.RoomID) []domain.Principal {
	return lo.UniqBy(lo.Map(r.Members(roomID), func(m Member, _ int) domain.Principal {
		return m.Principal
	}), func(p domain.Principal) domain.PrincipalID {
		return p.ID
	})
}

// ConnectionsOf returns every local connection of a principal, in a room or not.
func (r *Registry) ConnectionsOf(principalID domain.PrincipalID) []Member {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set, ok := r.principals[principalID]
	if !ok {
		return nil
	}
	snapshot := make([]Member, 0, len(set))
	for connID := range set {
		if session, exists := r.sessions[connID]; exists {
			snapshot = append(snapshot, toMember(session))
		}
	}
	return snapshot
}

// Rooms returns how many rooms have local members.
func (r *Registry) Rooms() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.roomMembers)
}

func (r *Registry) setRole(connID domain.ConnectionID, role domain.Role) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if session, ok := r.sessions[connID]; ok {
		session.role = role
	}
}

func toMember(session *Session) Member {
	return Member{
		ConnectionID: session.ConnectionID,
		Principal:    session.Principal,
		Role:         session.role,
		Sink:         session.Sink,
	}
}
