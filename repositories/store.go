package repositories

import (
	"collab-gateway/contract"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

var _ contract.SessionStore = (*Store)(nil)

// Store is the badger backed session store consumed by the gateway.
type Store struct {
	*SessionRepository
	*MessageRepository
}

func NewStore(db *badger.DB, log *slog.Logger, limitMessages *int) *Store {
	return &Store{
		SessionRepository: NewSessionRepository(db),
		MessageRepository: NewMessageRepository(db, log, limitMessages),
	}
}
