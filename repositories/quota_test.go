package repositories

import (
	"collab-gateway/domain"
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQuotaRepository_FixedWindow(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewQuotaRepository(openTestDB(t))
	limit := domain.Limit{Class: domain.LimitChat, Max: 3, Window: time.Minute}
	windowStart := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	// Given 3 actions inside the same window
	for i, expected := range []int{2, 1, 0} {
		decision, err := repository.Check(ctx, "u1", limit, windowStart.Add(time.Duration(i)*time.Second))
		req.NoError(err)
		req.True(decision.Allowed)
		req.Equal(expected, decision.Remaining)
		req.Equal(windowStart.Add(time.Minute).UnixMilli(), decision.ResetAt.UnixMilli())
	}

	// Then the 4th is rejected
	decision, err := repository.Check(ctx, "u1", limit, windowStart.Add(30*time.Second))
	req.NoError(err)
	req.False(decision.Allowed)
	req.Equal(0, decision.Remaining)

	// And another subject is independent
	decision, err = repository.Check(ctx, "u2", limit, windowStart.Add(30*time.Second))
	req.NoError(err)
	req.True(decision.Allowed)

	// When the window rolls over, the counter resets
	decision, err = repository.Check(ctx, "u1", limit, windowStart.Add(time.Minute))
	req.NoError(err)
	req.True(decision.Allowed)
	req.Equal(2, decision.Remaining)
}

func TestQuotaRepository_SubMillisecondWindow(t *testing.T) {
	req := require.New(t)
	repository := NewQuotaRepository(openTestDB(t))
	limit := domain.Limit{Class: domain.LimitChat, Max: 3, Window: 500 * time.Microsecond}

	// Then the window is refused instead of dividing by zero
	_, err := repository.Check(context.Background(), "u1", limit, time.Now())
	req.ErrorContains(err, "shorter than 1ms")
}

func TestQuotaRepository_ConcurrentChecks(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewQuotaRepository(openTestDB(t))
	limit := domain.Limit{Class: domain.LimitReaction, Max: 10, Window: time.Hour}
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	var allowed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			decision, err := repository.Check(ctx, "u1", limit, now)
			if err == nil && decision.Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	req.LessOrEqual(allowed.Load(), int32(10))
}

func TestQuotaRepository_Sweep(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	db := openTestDB(t)
	repository := NewQuotaRepository(db)
	now := time.Date(2026, 3, 1, 10, 0, 30, 0, time.UTC)

	_, err := repository.Check(ctx, "old", domain.Limit{Class: domain.LimitChat, Max: 5, Window: time.Minute}, now.Add(-2*time.Minute))
	req.NoError(err)
	_, err = repository.Check(ctx, "fresh", domain.Limit{Class: domain.LimitChat, Max: 5, Window: time.Minute}, now)
	req.NoError(err)
	// Records of other repositories share the db and must survive
	req.NoError(NewUserRepository(db).CreateUser(User{ID: "u1", CreatedAt: now}))

	removed, err := repository.Sweep(ctx, now)
	req.NoError(err)
	req.Equal(1, removed)

	removed, err = repository.Sweep(ctx, now)
	req.NoError(err)
	req.Equal(0, removed)

	_, err = NewUserRepository(db).GetUser("u1")
	req.NoError(err)
}
