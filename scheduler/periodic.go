// Package scheduler runs a task on a fixed interval, one run at a time.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"k8s.io/utils/clock"
)

type Task func(ctx context.Context) error

// Periodic invokes its task on every tick. Ticks that arrive while the
// task is running are dropped, so runs never overlap.
type Periodic struct {
	logger   *slog.Logger
	clock    clock.WithTicker
	interval time.Duration
	task     Task
}

func NewPeriodic(clk clock.WithTicker, interval time.Duration, task Task) *Periodic {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Periodic{
		logger:   slog.Default().With("module", "scheduler"),
		clock:    clk,
		interval: interval,
		task:     task,
	}
}

// Run blocks until ctx is cancelled. The first run happens on the first
// tick. A run in progress is never interrupted by Run itself; the task
// gets ctx and is expected to observe it.
func (p *Periodic) Run(ctx context.Context) error {
	if p.interval <= 0 {
		return fmt.Errorf("scheduler interval must be positive, got %s", p.interval)
	}
	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("scheduler started", "interval", p.interval)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("scheduler stopped")
			return nil
		case <-ticker.C():
		}

		p.runOnce(ctx)

		// drop the tick buffered while the task was running
		select {
		case <-ticker.C():
		default:
		}
	}
}

func (p *Periodic) runOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("task panicked",
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))
		}
	}()

	if ctx.Err() != nil {
		return
	}
	if err := p.task(ctx); err != nil {
		p.logger.Debug("task returned error", "error", err)
	}
}
