package presence

import (
	"collab-gateway/contract"
	"collab-gateway/domain"
	"collab-gateway/observability"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var _ contract.PresenceTracker = (*Tracker)(nil)

// Counts survive a crashed process only until the hash expires.
const DefaultTTL = 12 * time.Hour

const keyPrefix = "presence:"

// departScript decrements the count of a principal and drops the field at zero.
var departScript = redis.NewScript(`
local count = redis.call('HINCRBY', KEYS[1], ARGV[1], -1)
if count <= 0 then
	redis.call('HDEL', KEYS[1], ARGV[1])
	return 0
end
return count
`)

type presenceKey struct {
	room      domain.RoomID
	principal domain.PrincipalID
}

// Tracker counts live connections per principal and room.
// With a Redis client the count is shared by every gateway process in the
// hash presence:<roomId>. Local counts are always kept and answer when Redis
// is missing or failing.
type Tracker struct {
	log     *slog.Logger
	client  redis.UniversalClient
	ttl     time.Duration
	metrics *observability.Metrics

	mu    sync.Mutex
	local map[presenceKey]int64
}

// NewTracker builds a tracker. A nil client keeps counts in process only.
func NewTracker(log *slog.Logger, client redis.UniversalClient, ttl time.Duration, metrics *observability.Metrics) *Tracker {
	return &Tracker{
		log:     log,
		client:  client,
		ttl:     ttl,
		metrics: metrics,
		local:   make(map[presenceKey]int64),
	}
}

// Arrive records one more connection of principalID in roomID and returns
// the number of connections known for that principal.
func (t *Tracker) Arrive(ctx context.Context, roomID domain.RoomID, principalID domain.PrincipalID) (int64, error) {
	local := t.add(presenceKey{roomID, principalID}, 1)
	if t.client == nil {
		return local, nil
	}

	key := keyPrefix + string(roomID)
	var incr *redis.IntCmd
	_, err := t.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.HIncrBy(ctx, key, string(principalID), 1)
		pipe.Expire(ctx, key, t.ttl)
		return nil
	})
	if err != nil {
		t.degraded("arrive", roomID, err)
		return local, nil
	}
	return incr.Val(), nil
}

// Depart records one less connection and returns what is left.
// Zero means the principal is gone from the room on every process.
func (t *Tracker) Depart(ctx context.Context, roomID domain.RoomID, principalID domain.PrincipalID) (int64, error) {
	local := t.add(presenceKey{roomID, principalID}, -1)
	if t.client == nil {
		return local, nil
	}

	count, err := departScript.Run(ctx, t.client, []string{keyPrefix + string(roomID)}, string(principalID)).Int64()
	if err != nil {
		t.degraded("depart", roomID, err)
		return local, nil
	}
	return count, nil
}

func (t *Tracker) add(key presenceKey, delta int64) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	count := max(0, t.local[key]+delta)
	if count == 0 {
		delete(t.local, key)
	} else {
		t.local[key] = count
	}
	return count
}

func (t *Tracker) degraded(op string, roomID domain.RoomID, err error) {
	t.metrics.PresenceStoreErrors.Inc()
	t.log.Error("Presence store unavailable, using local count", "op", op, "room_id", roomID, "error", err)
}
