package repositories

import (
	"collab-gateway/contract"
	"collab-gateway/domain"
	"collab-gateway/errors"
	"context"
	stderrors "errors"
	"time"

	"github.com/dgraph-io/badger/v4"
)

var _ contract.PrincipalStore = (*UserRepository)(nil)

// User is the stored identity a credential refers to.
// A soft-deleted user keeps its record but can no longer connect.
type User struct {
	ID          domain.PrincipalID
	DisplayName string
	Email       string
	CreatedAt   time.Time
	DeletedAt   *time.Time
}

type diskUser struct {
	ID          string `cbor:"1,keyasint"`
	DisplayName string `cbor:"2,keyasint"`
	Email       string `cbor:"3,keyasint"`
	CreatedAt   int64  `cbor:"4,keyasint"`
	DeletedAt   *int64 `cbor:"5,keyasint,omitempty"`
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) *UserRepository {
	return &UserRepository{db: db}
}

func userKey(id domain.PrincipalID) []byte {
	return []byte("user:" + string(id))
}

// CreateUser persists a new user, refusing to overwrite an existing one.
func (u *UserRepository) CreateUser(user User) error {
	return updateWithRetry(u.db, func(txn *badger.Txn) error {
		key := userKey(user.ID)
		if _, err := txn.Get(key); err == nil {
			return errors.ErrUserExists
		}
		return setRecord(txn, key, fromUser(user))
	})
}

func (u *UserRepository) GetUser(id domain.PrincipalID) (User, error) {
	var record diskUser
	err := u.db.View(func(txn *badger.Txn) error {
		return getRecord(txn, userKey(id), &record)
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return User{}, errors.ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	return toUser(record), nil
}

// SoftDelete marks the user as deleted at the given instant.
func (u *UserRepository) SoftDelete(id domain.PrincipalID, at time.Time) error {
	return updateWithRetry(u.db, func(txn *badger.Txn) error {
		var record diskUser
		err := getRecord(txn, userKey(id), &record)
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return errors.ErrUserNotFound
		}
		if err != nil {
			return err
		}
		record.DeletedAt = toUnixNano(&at)
		return setRecord(txn, userKey(id), record)
	})
}

// LookupPrincipal resolves a credential subject. Missing and soft-deleted
// users are both unknown principals.
func (u *UserRepository) LookupPrincipal(ctx context.Context, id domain.PrincipalID) (domain.Principal, error) {
	if err := ctx.Err(); err != nil {
		return domain.Principal{}, err
	}
	user, err := u.GetUser(id)
	if stderrors.Is(err, errors.ErrUserNotFound) {
		return domain.Principal{}, errors.ErrUnknownPrincipal
	}
	if err != nil {
		return domain.Principal{}, err
	}
	if user.DeletedAt != nil {
		return domain.Principal{}, errors.ErrUnknownPrincipal
	}
	return domain.Principal{ID: user.ID, DisplayName: user.DisplayName, Email: user.Email}, nil
}

func fromUser(user User) diskUser {
	return diskUser{
		ID:          string(user.ID),
		DisplayName: user.DisplayName,
		Email:       user.Email,
		CreatedAt:   user.CreatedAt.UnixNano(),
		DeletedAt:   toUnixNano(user.DeletedAt),
	}
}

func toUser(record diskUser) User {
	return User{
		ID:          domain.PrincipalID(record.ID),
		DisplayName: record.DisplayName,
		Email:       record.Email,
		CreatedAt:   time.Unix(0, record.CreatedAt).UTC(),
		DeletedAt:   fromUnixNano(record.DeletedAt),
	}
}
