package repositories

import (
	"collab-gateway/domain"
	"collab-gateway/errors"
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

type diskRoom struct {
	ID         string `cbor:"1,keyasint"`
	OwnerID    string `cbor:"2,keyasint"`
	Title      string `cbor:"3,keyasint"`
	Visibility string `cbor:"4,keyasint"`
	OpenRole   string `cbor:"5,keyasint"`
	CreatedAt  int64  `cbor:"6,keyasint"`
}

type diskParticipant struct {
	RoomID      string `cbor:"1,keyasint"`
	PrincipalID string `cbor:"2,keyasint"`
	Role        string `cbor:"3,keyasint"`
	Status      string `cbor:"4,keyasint"`
	JoinedAt    int64  `cbor:"5,keyasint"`
	DepartedAt  *int64 `cbor:"6,keyasint,omitempty"`
}

// SessionRepository stores rooms and their participants.
type SessionRepository struct {
	db *badger.DB
}

func NewSessionRepository(db *badger.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func roomKey(roomID domain.RoomID) []byte {
	return []byte("room:" + string(roomID))
}

func participantKey(roomID domain.RoomID, principalID domain.PrincipalID) []byte {
	return []byte(fmt.Sprintf("participant:%s:%s", roomID, principalID))
}

func participantPrefix(roomID domain.RoomID) []byte {
	return []byte(fmt.Sprintf("participant:%s:", roomID))
}

// CreateRoom persists a room and registers its owner as a participant.
func (s *SessionRepository) CreateRoom(room domain.RoomInfo) error {
	if room.OpenRole == "" {
		room.OpenRole = domain.RoleViewer
	}
	return updateWithRetry(s.db, func(txn *badger.Txn) error {
		if _, err := txn.Get(roomKey(room.ID)); err == nil {
			return errors.ErrRoomExists
		}
		if err := setRecord(txn, roomKey(room.ID), fromRoom(room)); err != nil {
			return err
		}
		return setRecord(txn, participantKey(room.ID, room.OwnerID), diskParticipant{
			RoomID:      string(room.ID),
			PrincipalID: string(room.OwnerID),
			Role:        string(domain.RoleOwner),
			Status:      string(domain.ParticipantDeparted),
			JoinedAt:    room.CreatedAt.UnixNano(),
		})
	})
}

// AddParticipant invites principalID into roomID with the given role.
// An existing participant record keeps its presence status.
func (s *SessionRepository) AddParticipant(roomID domain.RoomID, principalID domain.PrincipalID, role domain.Role, at time.Time) error {
	return updateWithRetry(s.db, func(txn *badger.Txn) error {
		if _, err := txn.Get(roomKey(roomID)); stderrors.Is(err, badger.ErrKeyNotFound) {
			return errors.ErrRoomNotFound
		} else if err != nil {
			return err
		}
		record := diskParticipant{
			RoomID:      string(roomID),
			PrincipalID: string(principalID),
			Status:      string(domain.ParticipantDeparted),
			JoinedAt:    at.UnixNano(),
		}
		err := getRecord(txn, participantKey(roomID, principalID), &record)
		if err != nil && !stderrors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if record.Status == string(domain.ParticipantRemoved) {
			record.Status = string(domain.ParticipantDeparted)
		}
		record.Role = string(role)
		return setRecord(txn, participantKey(roomID, principalID), record)
	})
}

// RemoveParticipant revokes the access of principalID to roomID.
func (s *SessionRepository) RemoveParticipant(roomID domain.RoomID, principalID domain.PrincipalID) error {
	return s.updateParticipant(roomID, principalID, func(record *diskParticipant) {
		record.Status = string(domain.ParticipantRemoved)
	})
}

func (s *SessionRepository) Participant(roomID domain.RoomID, principalID domain.PrincipalID) (domain.Participant, error) {
	var record diskParticipant
	err := s.db.View(func(txn *badger.Txn) error {
		return getRecord(txn, participantKey(roomID, principalID), &record)
	})
	if err != nil {
		return domain.Participant{}, err
	}
	return toParticipant(record), nil
}

// Participants lists every participant record of a room.
func (s *SessionRepository) Participants(roomID domain.RoomID) ([]domain.Participant, error) {
	var participants []domain.Participant
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := participantPrefix(roomID)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var record diskParticipant
			if err := it.Item().Value(func(val []byte) error {
				return unmarshal(val, &record)
			}); err != nil {
				return err
			}
			participants = append(participants, toParticipant(record))
		}
		return nil
	})
	return participants, err
}

func (s *SessionRepository) RoomInfo(ctx context.Context, roomID domain.RoomID) (domain.RoomInfo, error) {
	if err := ctx.Err(); err != nil {
		return domain.RoomInfo{}, err
	}
	var record diskRoom
	err := s.db.View(func(txn *badger.Txn) error {
		return getRecord(txn, roomKey(roomID), &record)
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.RoomInfo{}, errors.ErrRoomNotFound
	}
	if err != nil {
		return domain.RoomInfo{}, err
	}
	return toRoom(record), nil
}

// Authorize resolves the role of principalID in roomID.
// Owner first, then a non-removed participant record, then open access.
func (s *SessionRepository) Authorize(ctx context.Context, principalID domain.PrincipalID, roomID domain.RoomID) (domain.Role, error) {
	room, err := s.RoomInfo(ctx, roomID)
	if err != nil {
		return "", err
	}
	if room.OwnerID == principalID {
		return domain.RoleOwner, nil
	}

	participant, err := s.Participant(roomID, principalID)
	switch {
	case err == nil && participant.Status == domain.ParticipantRemoved:
		return "", errors.ErrAccessDenied
	case err == nil:
		return participant.Role, nil
	case !stderrors.Is(err, badger.ErrKeyNotFound):
		return "", err
	}

	if room.Visibility == domain.VisibilityOpen {
		return room.OpenRole, nil
	}
	return "", errors.ErrAccessDenied
}

// MarkJoined flags the participant as present, creating the record for
// principals admitted through open access.
func (s *SessionRepository) MarkJoined(ctx context.Context, roomID domain.RoomID, principalID domain.PrincipalID, role domain.Role) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	now := time.Now().UTC().UnixNano()
	return updateWithRetry(s.db, func(txn *badger.Txn) error {
		record := diskParticipant{
			RoomID:      string(roomID),
			PrincipalID: string(principalID),
			Role:        string(role),
		}
		err := getRecord(txn, participantKey(roomID, principalID), &record)
		if err != nil && !stderrors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		record.Status = string(domain.ParticipantActive)
		record.JoinedAt = now
		record.DepartedAt = nil
		return setRecord(txn, participantKey(roomID, principalID), record)
	})
}

// MarkDeparted flags the participant as gone. A removed participant stays removed.
func (s *SessionRepository) MarkDeparted(ctx context.Context, roomID domain.RoomID, principalID domain.PrincipalID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	now := time.Now().UTC()
	err := s.updateParticipant(roomID, principalID, func(record *diskParticipant) {
		if record.Status == string(domain.ParticipantRemoved) {
			return
		}
		record.Status = string(domain.ParticipantDeparted)
		record.DepartedAt = toUnixNano(&now)
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	return err
}

func (s *SessionRepository) updateParticipant(roomID domain.RoomID, principalID domain.PrincipalID, fn func(record *diskParticipant)) error {
	return updateWithRetry(s.db, func(txn *badger.Txn) error {
		var record diskParticipant
		if err := getRecord(txn, participantKey(roomID, principalID), &record); err != nil {
			return err
		}
		fn(&record)
		return setRecord(txn, participantKey(roomID, principalID), record)
	})
}

func fromRoom(room domain.RoomInfo) diskRoom {
	return diskRoom{
		ID:         string(room.ID),
		OwnerID:    string(room.OwnerID),
		Title:      room.Title,
		Visibility: string(room.Visibility),
		OpenRole:   string(room.OpenRole),
		CreatedAt:  room.CreatedAt.UnixNano(),
	}
}

func toRoom(record diskRoom) domain.RoomInfo {
	return domain.RoomInfo{
		ID:         domain.RoomID(record.ID),
		OwnerID:    domain.PrincipalID(record.OwnerID),
		Title:      record.Title,
		Visibility: domain.Visibility(record.Visibility),
		OpenRole:   domain.Role(record.OpenRole),
		CreatedAt:  time.Unix(0, record.CreatedAt).UTC(),
	}
}

func toParticipant(record diskParticipant) domain.Participant {
	return domain.Participant{
		RoomID:      domain.RoomID(record.RoomID),
		PrincipalID: domain.PrincipalID(record.PrincipalID),
		Role:        domain.Role(record.Role),
		Status:      domain.ParticipantStatus(record.Status),
		JoinedAt:    time.Unix(0, record.JoinedAt).UTC(),
		DepartedAt:  fromUnixNano(record.DepartedAt),
	}
}
