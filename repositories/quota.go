package repositories

import (
	"collab-gateway/contract"
	"collab-gateway/domain"
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

var _ contract.QuotaBackend = (*QuotaRepository)(nil)

const quotaPrefix = "ratelimit:"

type diskQuotaWindow struct {
	SubjectKey         string `cbor:"1,keyasint"`
	WindowStartEpochMs int64  `cbor:"2,keyasint"`
	WindowMs           int64  `cbor:"3,keyasint"`
	Count              int    `cbor:"4,keyasint"`
}

// QuotaRepository is the fixed-window ledger kept in the session store.
// One record per subject and class, reset when the epoch-aligned window
// rolls over. Cheaper than a sliding log but lets up to twice the limit
// through around a window boundary.
type QuotaRepository struct {
	db *badger.DB
}

func NewQuotaRepository(db *badger.DB) *QuotaRepository {
	return &QuotaRepository{db: db}
}

// Check accounts one action. The read-modify-write runs in a single badger
// transaction, retried on conflict, so concurrent callers never double count.
func (q *QuotaRepository) Check(ctx context.Context, subjectKey string, limit domain.Limit, now time.Time) (domain.QuotaDecision, error) {
	if err := ctx.Err(); err != nil {
		return domain.QuotaDecision{}, err
	}
	if limit.Max <= 0 {
		return domain.QuotaDecision{Allowed: true, ResetAt: now}, nil
	}
	if limit.Window < time.Millisecond {
		return domain.QuotaDecision{}, fmt.Errorf("%s window %s is shorter than 1ms", limit.Class, limit.Window)
	}
	windowMs := limit.Window.Milliseconds()
	nowMs := now.UnixMilli()
	windowStart := nowMs - nowMs%windowMs
	key := []byte(domain.QuotaKey(limit.Class, subjectKey))

	var decision domain.QuotaDecision
	err := updateWithRetry(q.db, func(txn *badger.Txn) error {
		var record diskQuotaWindow
		err := getRecord(txn, key, &record)
		if err != nil && !stderrors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err != nil || record.WindowStartEpochMs != windowStart || record.WindowMs != windowMs {
			record = diskQuotaWindow{SubjectKey: subjectKey, WindowStartEpochMs: windowStart, WindowMs: windowMs}
		}
		decision = domain.QuotaDecision{
			Limit:   limit.Max,
			ResetAt: time.UnixMilli(windowStart + windowMs),
		}
		if record.Count >= limit.Max {
			return nil
		}
		decision.Allowed = true
		decision.Remaining = max(0, limit.Max-record.Count-1)
		record.Count++
		return setRecord(txn, key, record)
	})
	if err != nil {
		return domain.QuotaDecision{}, err
	}
	return decision, nil
}

// Sweep deletes the windows that closed before now and returns how many went.
func (q *QuotaRepository) Sweep(ctx context.Context, now time.Time) (int, error) {
	var expired [][]byte
	err := q.db.View(func(txn *badger.Txn) error {
		prefix := []byte(quotaPrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var record diskQuotaWindow
			if err := it.Item().Value(func(val []byte) error {
				return unmarshal(val, &record)
			}); err != nil {
				return err
			}
			window := domain.QuotaWindow{
				SubjectKey:         record.SubjectKey,
				WindowStartEpochMs: record.WindowStartEpochMs,
				WindowMs:           record.WindowMs,
				Count:              record.Count,
			}
			if window.Expired(now) {
				expired = append(expired, it.Item().KeyCopy(nil))
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	wb := q.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range expired {
		if err := wb.Delete(key); err != nil {
			return 0, err
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, err
	}
	return len(expired), nil
}
