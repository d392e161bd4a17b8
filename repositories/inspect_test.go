package repositories

import (
	"collab-gateway/domain"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func TestDescribe(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	users := NewUserRepository(db)
	sessions := NewSessionRepository(db)
	req.NoError(users.CreateUser(User{ID: "alice", DisplayName: "Alice", Email: "alice@example.com", CreatedAt: time.Now()}))
	req.NoError(sessions.CreateRoom(domain.RoomInfo{ID: "doc", OwnerID: "alice", Title: "Roadmap", Visibility: domain.VisibilityPrivate, CreatedAt: time.Now()}))

	described := map[string][2]string{}
	req.NoError(db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			kind, detail := Describe(string(it.Item().Key()), val)
			described[string(it.Item().Key())] = [2]string{kind, detail}
		}
		return nil
	}))

	req.Equal([2]string{"USER", "Alice <alice@example.com>"}, described["user:alice"])
	req.Equal("ROOM", described["room:doc"][0])
	req.Contains(described["room:doc"][1], "owned by alice")

	kind, detail := Describe("unknown:key", []byte{1, 2, 3})
	req.Equal("RAW", kind)
	req.Equal("Size: 3 bytes", detail)
}
