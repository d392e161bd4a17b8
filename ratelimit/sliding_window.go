package ratelimit

import (
	"collab-gateway/contract"
	"collab-gateway/domain"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var _ contract.QuotaBackend = (*SlidingWindow)(nil)

// slidingWindowScript prunes, counts, records and refreshes the expiry of a
// sorted-set log in one atomic step. A denied action is not recorded.
// Returns {allowed, countBeforeAction}.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local max = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
if count >= max then
	redis.call('PEXPIRE', key, window)
	return {0, count}
end
redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return {1, count}
`)

// SlidingWindow is the sliding-window log ledger backed by Redis.
// Every admitted action is a member of the sorted set ratelimit:<class>:<subject>
// scored by its timestamp in milliseconds.
type SlidingWindow struct {
	client redis.UniversalClient
}

func NewSlidingWindow(client redis.UniversalClient) *SlidingWindow {
	return &SlidingWindow{client: client}
}

// Check accounts one action of subjectKey at now.
// ResetAt is now + window: a conservative estimate, the real reset depends
// on the age of the oldest entry still counted.
func (s *SlidingWindow) Check(ctx context.Context, subjectKey string, limit domain.Limit, now time.Time) (domain.QuotaDecision, error) {
	if limit.Max <= 0 {
		return domain.QuotaDecision{Allowed: true, ResetAt: now}, nil
	}
	nowMs := now.UnixMilli()
	windowMs := limit.Window.Milliseconds()
	member := fmt.Sprintf("%d-%s", nowMs, uuid.NewString())

	res, err := slidingWindowScript.Run(ctx, s.client,
		[]string{domain.QuotaKey(limit.Class, subjectKey)},
		nowMs, windowMs, limit.Max, member,
	).Int64Slice()
	if err != nil {
		return domain.QuotaDecision{}, fmt.Errorf("sliding window check: %w", err)
	}
	if len(res) != 2 {
		return domain.QuotaDecision{}, fmt.Errorf("sliding window check: unexpected reply %v", res)
	}

	allowed := res[0] == 1
	count := int(res[1])
	remaining := 0
	if allowed {
		remaining = max(0, limit.Max-count-1)
	}
	return domain.QuotaDecision{
		Allowed:   allowed,
		Limit:     limit.Max,
		Remaining: remaining,
		ResetAt:   now.Add(limit.Window),
	}, nil
}
