package scheduler

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/weather-bom-service/internal/domain"
)

// AxisSink applies dynamic coordinate readings and reports whether a cycle
// is needed.
type AxisSink interface {
	UpdateAxis(u domain.AxisUpdate) bool
}

// Loop is the primary control path. It drains coordinate updates and ticks
// and turns both into update requests; it never performs I/O itself.
type Loop struct {
	sched   *Scheduler
	axes    AxisSink
	updates <-chan domain.AxisUpdate
	ticks   <-chan struct{}
	logger  *slog.Logger
}

// NewLoop wires the update and tick channels to sched.
func NewLoop(sched *Scheduler, axes AxisSink, updates <-chan domain.AxisUpdate, ticks <-chan struct{}, logger *slog.Logger) *Loop {
	return &Loop{sched: sched, axes: axes, updates: updates, ticks: ticks, logger: logger}
}

// Run processes events until ctx is cancelled, then waits for any in-flight
// cycle.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("control loop started")
	defer l.sched.Wait()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("control loop stopping", "reason", ctx.Err())
			return nil
		case u, ok := <-l.updates:
			if !ok {
				l.updates = nil
				continue
			}
			if l.axes.UpdateAxis(u) {
				l.sched.RequestUpdate(ctx)
			}
		case _, ok := <-l.ticks:
			if !ok {
				l.ticks = nil
				continue
			}
			l.sched.RequestUpdate(ctx)
		}
	}
}
