package workers

import (
	"collab-gateway/contract"
	"collab-gateway/observability"
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/process"
)

var _ contract.Worker = (*ProcessSamplerWorker)(nil)

// ProcessSamplerWorker publishes the CPU and memory usage of the gateway
// process on the metrics registry.
type ProcessSamplerWorker struct {
	log            *slog.Logger
	metrics        *observability.Metrics
	metricInterval time.Duration
	pid            int32
}

func NewProcessSamplerWorker(log *slog.Logger, metrics *observability.Metrics, metricInterval time.Duration) *ProcessSamplerWorker {
	return &ProcessSamplerWorker{
		log:            log,
		metrics:        metrics,
		metricInterval: metricInterval,
		pid:            int32(os.Getpid()),
	}
}

func (w *ProcessSamplerWorker) Run(ctx context.Context) error {
	p, err := process.NewProcess(w.pid)
	if err != nil {
		return fmt.Errorf("process %d not found: %w", w.pid, err)
	}
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping process sampling")
			return nil
		case <-ticker.C:
			w.sample(ctx, p)
		}
	}
}

func (w *ProcessSamplerWorker) sample(ctx context.Context, p *process.Process) {
	w.metrics.ProcessGoroutines.Set(float64(runtime.NumGoroutine()))

	cpu, err := p.PercentWithContext(ctx, 0)
	if err != nil {
		w.log.Error("Error while finding process cpu usage", "err", err)
	} else {
		w.metrics.ProcessCPU.Set(cpu)
	}
	mem, err := p.MemoryInfoWithContext(ctx)
	if err != nil {
		w.log.Error("Error while finding process ram usage", "err", err)
		return
	}
	w.metrics.ProcessRSS.Set(float64(mem.RSS))
}
