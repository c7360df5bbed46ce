// Package worker contains the polling loops that drain the task queue.
// Workers hold no queue state of their own; every claim and transition
// goes through the task service so multiple workers stay consistent.
package worker

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"radiocat/internal/logger"
)

// Poller repeatedly invokes a function on a fixed interval until the
// context is cancelled. Panics inside the function are recovered and
// logged so one bad run cannot kill the loop.
type Poller struct {
	Name     string
	Interval time.Duration
	Logger   *logger.Logger
}

func (p *Poller) Run(ctx context.Context, fn func(context.Context) error) {
	p.Logger.Info("Worker started", "worker", p.Name, "interval", p.Interval.String())

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		if err := p.safeRun(ctx, fn); err != nil && ctx.Err() == nil {
			p.Logger.Error("Worker run failed", "worker", p.Name, "error", err)
		}

		select {
		case <-ctx.Done():
			p.Logger.Info("Worker stopped", "worker", p.Name)
			return
		case <-ticker.C:
		}
	}
}

func (p *Poller) safeRun(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			p.Logger.Error("Worker panic recovered", "worker", p.Name, "panic", r, "stack", string(debug.Stack()))
		}
	}()
	return fn(ctx)
}
