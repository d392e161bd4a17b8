package ratelimit

import (
	"collab-gateway/domain"
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestSlidingWindow_FiveActionsPerMinute(t *testing.T) {
	req := require.New(t)
	mr, client := newTestRedis(t)
	window := NewSlidingWindow(client)
	limit := domain.Limit{Class: domain.LimitChat, Max: 5, Window: 60000 * time.Millisecond}
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	// Given 5 calls within the window
	for _, expected := range []int{4, 3, 2, 1, 0} {
		decision, err := window.Check(context.Background(), "u1", limit, now)
		req.NoError(err)
		req.True(decision.Allowed)
		req.Equal(expected, decision.Remaining)
		req.Equal(5, decision.Limit)
		now = now.Add(time.Second)
	}

	// Then the 6th is rejected with a reset one window ahead
	decision, err := window.Check(context.Background(), "u1", limit, now)
	req.NoError(err)
	req.False(decision.Allowed)
	req.Equal(0, decision.Remaining)
	req.Equal(now.Add(time.Minute), decision.ResetAt)

	// And the log lives under the documented key
	members, err := mr.ZMembers("ratelimit:chat:u1")
	req.NoError(err)
	req.Len(members, 5)
}

func TestSlidingWindow_Slides(t *testing.T) {
	req := require.New(t)
	_, client := newTestRedis(t)
	window := NewSlidingWindow(client)
	limit := domain.Limit{Class: domain.LimitCursor, Max: 2, Window: 10 * time.Second}
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	check := func(at time.Duration) bool {
		decision, err := window.Check(context.Background(), "u1", limit, t0.Add(at))
		req.NoError(err)
		return decision.Allowed
	}

	req.True(check(0))
	req.True(check(9 * time.Second))
	// Denied actions are not recorded
	req.False(check(9500 * time.Millisecond))
	req.False(check(9900 * time.Millisecond))
	// The action at t0 leaves the window, the one at 9s is still counted
	req.True(check(10*time.Second + time.Millisecond))
	req.False(check(11 * time.Second))
	// A fixed window aligned on 10s would have reset here
	req.False(check(18 * time.Second))
	req.True(check(19*time.Second + time.Millisecond))
}

func TestSlidingWindow_IndependentSubjectsAndClasses(t *testing.T) {
	req := require.New(t)
	_, client := newTestRedis(t)
	window := NewSlidingWindow(client)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	chat := domain.Limit{Class: domain.LimitChat, Max: 1, Window: time.Minute}
	reaction := domain.Limit{Class: domain.LimitReaction, Max: 1, Window: time.Minute}

	for _, tc := range []struct {
		subject string
		limit   domain.Limit
		allowed bool
	}{
		{"u1", chat, true},
		{"u1", chat, false},
		{"u2", chat, true},
		{"u1", reaction, true},
		{"u1", reaction, false},
	} {
		decision, err := window.Check(context.Background(), tc.subject, tc.limit, now)
		req.NoError(err)
		req.Equal(tc.allowed, decision.Allowed, "%s %s", tc.subject, tc.limit.Class)
	}
}

func TestSlidingWindow_ConcurrentCallers(t *testing.T) {
	req := require.New(t)
	_, client := newTestRedis(t)
	// Two ledgers sharing one store stand for two gateway processes
	first := NewSlidingWindow(client)
	second := NewSlidingWindow(redis.NewClient(&redis.Options{Addr: client.Options().Addr}))
	limit := domain.Limit{Class: domain.LimitChat, Max: 10, Window: time.Minute}
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	var allowed atomic.Int32
	var g errgroup.Group
	for i := 0; i < 40; i++ {
		ledger := first
		if i%2 == 1 {
			ledger = second
		}
		g.Go(func() error {
			decision, err := ledger.Check(context.Background(), "u1", limit, now)
			if err != nil {
				return err
			}
			if decision.Allowed {
				allowed.Add(1)
			}
			return nil
		})
	}
	req.NoError(g.Wait())
	req.Equal(int32(10), allowed.Load())
}

func TestSlidingWindow_StoreFailure(t *testing.T) {
	req := require.New(t)
	mr, client := newTestRedis(t)
	window := NewSlidingWindow(client)
	mr.SetError("LOADING redis is loading the dataset in memory")

	_, err := window.Check(context.Background(), "u1", domain.Limit{Class: domain.LimitChat, Max: 5, Window: time.Minute}, time.Now())

	req.Error(err)
}
