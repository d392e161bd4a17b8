package ratelimit

import (
	"collab-gateway/contract"
	"collab-gateway/domain"
	"collab-gateway/errors"
	"collab-gateway/observability"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
)

const (
	outcomeAllowed  = "allowed"
	outcomeRejected = "rejected"
	outcomeDegraded = "degraded"
)

// Ledger applies the configured limits through a QuotaBackend.
// It never blocks past its timeout and fails open when the backend
// cannot decide.
type Ledger struct {
	log     *slog.Logger
	backend contract.QuotaBackend
	clock   clock.Clock
	timeout time.Duration
	limits  map[domain.LimitClass]domain.Limit
	metrics *observability.Metrics
}

func NewLedger(
	log *slog.Logger,
	backend contract.QuotaBackend,
	clk clock.Clock,
	timeout time.Duration,
	metrics *observability.Metrics,
	limits ...domain.Limit,
) *Ledger {
	byClass := make(map[domain.LimitClass]domain.Limit, len(limits))
	for _, l := range limits {
		byClass[l.Class] = l
	}
	return &Ledger{
		log:     log,
		backend: backend,
		clock:   clk,
		timeout: timeout,
		limits:  byClass,
		metrics: metrics,
	}
}

type checkResult struct {
	decision domain.QuotaDecision
	err      error
}

// Check accounts one action of subjectKey in class.
// A class without a configured limit is always allowed.
func (l *Ledger) Check(ctx context.Context, class domain.LimitClass, subjectKey string) domain.QuotaDecision {
	now := l.clock.Now()
	limit, ok := l.limits[class]
	if !ok || limit.Max <= 0 {
		return domain.QuotaDecision{Allowed: true, ResetAt: now}
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	// Buffered so a backend that ignores ctx can still finish and exit.
	results := make(chan checkResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				results <- checkResult{err: fmt.Errorf("quota backend panicked: %v", r)}
			}
		}()
		decision, err := l.backend.Check(ctx, subjectKey, limit, now)
		results <- checkResult{decision: decision, err: err}
	}()

	var res checkResult
	select {
	case res = <-results:
	case <-ctx.Done():
		res = checkResult{err: fmt.Errorf("quota check timed out after %s: %w", l.timeout, ctx.Err())}
	}

	if res.err != nil {
		l.metrics.QuotaStoreErrors.Inc()
		l.metrics.QuotaDecisions.WithLabelValues(string(class), outcomeDegraded).Inc()
		l.log.Error("Quota store unavailable, failing open",
			"class", class,
			"subject", subjectKey,
			"error", fmt.Errorf("%w: %w", errors.ErrStoreUnavailable, res.err))
		return domain.QuotaDecision{
			Allowed:   true,
			Limit:     limit.Max,
			Remaining: max(0, limit.Max-1),
			ResetAt:   now.Add(limit.Window),
			Degraded:  true,
		}
	}

	if res.decision.Allowed {
		l.metrics.QuotaDecisions.WithLabelValues(string(class), outcomeAllowed).Inc()
	} else {
		l.metrics.QuotaDecisions.WithLabelValues(string(class), outcomeRejected).Inc()
		l.log.Debug("Quota exceeded", "class", class, "subject", subjectKey)
	}
	return res.decision
}

// Now is the ledger clock, used to compute Retry-After consistently.
func (l *Ledger) Now() time.Time {
	return l.clock.Now()
}
