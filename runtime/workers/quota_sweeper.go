package workers

import (
	"collab-gateway/contract"
	"context"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
)

var _ contract.Worker = (*QuotaSweeperWorker)(nil)

// WindowSweeper deletes fixed quota windows that closed before now.
type WindowSweeper interface {
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// QuotaSweeperWorker periodically drops stale fixed-window records so the
// session store does not keep one record per subject forever.
type QuotaSweeperWorker struct {
	log      *slog.Logger
	sweeper  WindowSweeper
	clock    clock.Clock
	interval time.Duration
}

func NewQuotaSweeperWorker(log *slog.Logger, sweeper WindowSweeper, clk clock.Clock, interval time.Duration) *QuotaSweeperWorker {
	return &QuotaSweeperWorker{log: log, sweeper: sweeper, clock: clk, interval: interval}
}

func (w *QuotaSweeperWorker) Run(ctx context.Context) error {
	ticker := w.clock.Ticker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			removed, err := w.sweeper.Sweep(ctx, w.clock.Now())
			if err != nil {
				// Next tick retries, nothing is lost by skipping one sweep
				w.log.Error("Quota sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				w.log.Debug("Stale quota windows removed", "count", removed)
			}
		}
	}
}
