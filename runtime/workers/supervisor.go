package workers

import (
	"collab-gateway/contract"
	"collab-gateway/errors"
	"collab-gateway/observability"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	defaultRestartInterval = 200 * time.Millisecond
	maxRestartInterval     = 30 * time.Second
	// A run lasting this long is healthy: the next crash restarts quickly again.
	stableRun = time.Minute
)

var _ contract.ISupervisor = (*Supervisor)(nil)

// Supervisor runs each worker in its own goroutine and restarts it when it
// panics or returns an error. The delay between restarts doubles on every
// consecutive crash, up to maxRestartInterval. A worker returning nil is
// done and never restarted. Run returns once every worker has stopped.
type Supervisor struct {
	log             *slog.Logger
	metrics         *observability.Metrics
	restartInterval time.Duration
	workers         []contract.Worker
	wg              sync.WaitGroup

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewSupervisor builds a supervisor waiting restartInterval before the first
// restart of a crashed worker. Zero falls back to 200ms. metrics may be nil.
func NewSupervisor(log *slog.Logger, restartInterval time.Duration, metrics *observability.Metrics) *Supervisor {
	if restartInterval <= 0 {
		restartInterval = defaultRestartInterval
	}
	return &Supervisor{log: log, metrics: metrics, restartInterval: restartInterval}
}

// Run starts the added workers and blocks until they all stopped.
// Cancelling ctx or calling Stop stops them.
func (s *Supervisor) Run(ctx context.Context) {
	supervisedCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	for _, worker := range s.workers {
		s.Start(supervisedCtx, worker)
	}
	s.wg.Wait()
}

func (s *Supervisor) Add(worker ...contract.Worker) contract.ISupervisor {
	s.workers = append(s.workers, worker...)
	return s
}

// Start runs one worker under supervision until ctx is done.
func (s *Supervisor) Start(ctx context.Context, worker contract.Worker) {
	s.wg.Add(1)
	name := contract.GetWorkerName(worker)

	go func() {
		defer s.wg.Done()
		delay := s.restartInterval

		for {
			started := time.Now()
			err := s.runOnce(ctx, worker)
			switch {
			case ctx.Err() != nil:
				s.log.Info("Worker stopped", "name", name)
				return
			case err == nil:
				s.log.Info("Worker finished", "name", name)
				return
			}

			if time.Since(started) >= stableRun {
				delay = s.restartInterval
			}
			if s.metrics != nil {
				s.metrics.WorkerRestarts.WithLabelValues(name).Inc()
			}
			s.log.Warn("Worker crashed, restarting", "name", name, "in", delay, "error", err)

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			delay = min(delay*2, maxRestartInterval)
		}
	}()
}

// runOnce turns a panic of the worker into an error.
func (s *Supervisor) runOnce(ctx context.Context, worker contract.Worker) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errors.ErrWorkerPanic, r)
		}
	}()
	return worker.Run(ctx)
}

// Stop cancels every worker. Run returns once they are all gone.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}
