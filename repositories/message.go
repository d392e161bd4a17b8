package repositories

import (
	"collab-gateway/domain"
	"collab-gateway/errors"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) *MessageRepository {
	return &MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

type diskMessage struct {
	ID            uuid.UUID           `cbor:"1,keyasint"`
	Room          string              `cbor:"2,keyasint"`
	AuthorID      string              `cbor:"3,keyasint"`
	AuthorName    string              `cbor:"4,keyasint"`
	Content       string              `cbor:"5,keyasint"`
	ReplyTo       *uuid.UUID          `cbor:"6,keyasint,omitempty"`
	Lang          string              `cbor:"7,keyasint,omitempty"`
	CensoredWords []string            `cbor:"8,keyasint,omitempty"`
	Reactions     map[string][]string `cbor:"9,keyasint,omitempty"`
	At            int64               `cbor:"10,keyasint"`
}

// messageKey is formatted as "msg:{room_id}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if two messages
//     arrive at the same nanosecond.
func messageKey(roomID domain.RoomID, at time.Time, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s", roomID, at.UnixNano(), id))
}

// messageIndexKey points from a message ID to its chronological key.
func messageIndexKey(id uuid.UUID) []byte {
	return []byte("msgid:" + id.String())
}

// RecordMessage durably stores a chat message and its ID index.
func (m *MessageRepository) RecordMessage(ctx context.Context, message domain.ChatMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := messageKey(message.RoomID, message.CreatedAt, message.ID)
	return updateWithRetry(m.db, func(txn *badger.Txn) error {
		if err := setRecord(txn, key, fromMessage(message)); err != nil {
			return err
		}
		return txn.Set(messageIndexKey(message.ID), key)
	})
}

// RecordReaction adds the reaction of a principal to a message of roomID.
// Reacting twice with the same emoji is a no-op.
func (m *MessageRepository) RecordReaction(ctx context.Context, roomID domain.RoomID, reaction domain.Reaction) (domain.ChatMessage, error) {
	if err := ctx.Err(); err != nil {
		return domain.ChatMessage{}, err
	}
	var record diskMessage
	err := updateWithRetry(m.db, func(txn *badger.Txn) error {
		item, err := txn.Get(messageIndexKey(reaction.MessageID))
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return errors.ErrMessageNotFound
		}
		if err != nil {
			return err
		}
		key, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		record = diskMessage{}
		if err = getRecord(txn, key, &record); err != nil {
			return err
		}
		if record.Room != string(roomID) {
			return errors.ErrMessageNotFound
		}
		if record.Reactions == nil {
			record.Reactions = make(map[string][]string)
		}
		if !slices.Contains(record.Reactions[reaction.Emoji], string(reaction.PrincipalID)) {
			record.Reactions[reaction.Emoji] = append(record.Reactions[reaction.Emoji], string(reaction.PrincipalID))
		}
		return setRecord(txn, key, record)
	})
	if err != nil {
		return domain.ChatMessage{}, err
	}
	return toMessage(record), nil
}

// Messages retrieves messages for a specific room using a reverse prefix scan,
// newest first. Thanks to the padded timestamp in the key, messages are
// naturally sorted by time. The returned cursor resumes after the last message.
func (m *MessageRepository) Messages(ctx context.Context, roomID domain.RoomID, cursor *string) ([]domain.ChatMessage, *string, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	var records []diskMessage
	var lastKey string
	err := m.db.View(func(txn *badger.Txn) error {
		prefixStr := fmt.Sprintf("msg:%s:", roomID)
		prefix := []byte(prefixStr)
		prefixLen := len(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Start after the newest possible key, then walk backwards.
			seekKey = append(prefix, []byte("9999999999999999999~")...)
		default:
			seekKey = append(prefix, []byte(*cursor)...)
		}

		it.Seek(seekKey)

		if cursor != nil && it.ValidForPrefix(prefix) && string(it.Item().Key()[prefixLen:]) == *cursor {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(records) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d message reached", *m.limitMessages))
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[prefixLen:])
			var record diskMessage
			if err := item.Value(func(value []byte) error {
				return unmarshal(value, &record)
			}); err != nil {
				return err
			}
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return lo.Map(records, func(item diskMessage, _ int) domain.ChatMessage {
		return toMessage(item)
	}), &lastKey, nil
}

func fromMessage(message domain.ChatMessage) diskMessage {
	reactions := make(map[string][]string, len(message.Reactions))
	for emoji, principals := range message.Reactions {
		reactions[emoji] = lo.Map(principals, func(p domain.PrincipalID, _ int) string { return string(p) })
	}
	return diskMessage{
		ID:            message.ID,
		Room:          string(message.RoomID),
		AuthorID:      string(message.AuthorID),
		AuthorName:    message.AuthorName,
		Content:       message.Content,
		ReplyTo:       message.ReplyTo,
		Lang:          message.Lang,
		CensoredWords: message.CensoredWords,
		Reactions:     reactions,
		At:            message.CreatedAt.UnixNano(),
	}
}

func toMessage(record diskMessage) domain.ChatMessage {
	var reactions map[string][]domain.PrincipalID
	if len(record.Reactions) > 0 {
		reactions = make(map[string][]domain.PrincipalID, len(record.Reactions))
		for emoji, principals := range record.Reactions {
			reactions[emoji] = lo.Map(principals, func(p string, _ int) domain.PrincipalID { return domain.PrincipalID(p) })
		}
	}
	return domain.ChatMessage{
		ID:            record.ID,
		RoomID:        domain.RoomID(record.Room),
		AuthorID:      domain.PrincipalID(record.AuthorID),
		AuthorName:    record.AuthorName,
		Content:       record.Content,
		ReplyTo:       record.ReplyTo,
		Lang:          record.Lang,
		CensoredWords: record.CensoredWords,
		Reactions:     reactions,
		CreatedAt:     time.Unix(0, record.At).UTC(),
	}
}
