package workers

import (
	"collab-gateway/contract"
	"collab-gateway/observability"
	"context"
	"log/slog"
	"time"
)

var _ contract.Worker = (*QueueCapacityWorker)(nil)

// Queue is anything with a bounded backlog worth watching.
type Queue interface {
	Backlog() (length int, capacity int)
}

type NamedQueue struct {
	Name  string
	Queue Queue
}

// QueueCapacityWorker periodically reports the length and capacity of
// internal queues. Reading them never blocks the owners; a sample can be
// stale by the time it is scraped.
type QueueCapacityWorker struct {
	log            *slog.Logger
	queues         []NamedQueue
	metrics        *observability.Metrics
	metricInterval time.Duration
}

func NewQueueCapacityWorker(log *slog.Logger, metrics *observability.Metrics,
	metricInterval time.Duration, queues ...NamedQueue) *QueueCapacityWorker {
	return &QueueCapacityWorker{
		log:            log,
		queues:         queues,
		metrics:        metrics,
		metricInterval: metricInterval,
	}
}

func (w *QueueCapacityWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	w.sample()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping queue sampling")
			return nil
		case <-ticker.C:
			w.sample()
		}
	}
}

func (w *QueueCapacityWorker) sample() {
	for _, nq := range w.queues {
		length, capacity := nq.Queue.Backlog()
		w.metrics.QueueLength.WithLabelValues(nq.Name).Set(float64(length))
		w.metrics.QueueCapacity.WithLabelValues(nq.Name).Set(float64(capacity))
		if capacity > 0 && length*10 >= capacity*9 {
			w.log.Warn("Queue almost full", "queue", nq.Name, "length", length, "capacity", capacity)
		}
	}
}
