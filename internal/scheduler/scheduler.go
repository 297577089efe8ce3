// Package scheduler decides when an ingestion cycle runs and makes sure at
// most one runs at a time.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/weather-bom-service/internal/domain"
	"github.com/couchcryptid/weather-bom-service/internal/observability"
	"github.com/jonboulle/clockwork"
)

// LastUpdateLayout formats the last successful cycle time.
const LastUpdateLayout = "2006-01-02T15:04:05Z"

// Default intervals.
const (
	DefaultSteady  = 900 * time.Second
	DefaultBackoff = 60 * time.Second
)

// Cycle is one ingestion run. A nil error means the cycle succeeded.
type Cycle interface {
	RunCycle(ctx context.Context) error
}

// Intervals are the two values the poll interval alternates between.
type Intervals struct {
	Steady  time.Duration
	Backoff time.Duration
}

// Scheduler throttles update requests and runs accepted cycles on their own
// goroutine. A one-slot token channel guarantees exclusivity.
type Scheduler struct {
	cycle     Cycle
	publisher domain.Publisher
	intervals Intervals
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics

	token chan struct{}
	wg    sync.WaitGroup

	mu          sync.Mutex
	attempted   bool
	lastAttempt time.Time
	interval    time.Duration
	lastErr     error
}

// New creates a scheduler. The first request is always accepted.
func New(cycle Cycle, publisher domain.Publisher, intervals Intervals, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Scheduler {
	s := &Scheduler{
		cycle:     cycle,
		publisher: publisher,
		intervals: intervals,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
		token:     make(chan struct{}, 1),
		interval:  intervals.Steady,
	}
	metrics.PollInterval.Set(s.interval.Seconds())
	return s
}

// RequestUpdate starts a cycle unless one is already running or the current
// interval has not elapsed since the last attempt. It never blocks and
// reports whether a cycle was started.
func (s *Scheduler) RequestUpdate(ctx context.Context) bool {
	select {
	case s.token <- struct{}{}:
	default:
		s.metrics.UpdateDropped.WithLabelValues("busy").Inc()
		s.logger.Debug("cycle already running, request dropped")
		return false
	}

	s.mu.Lock()
	now := s.clock.Now()
	if s.attempted && now.Sub(s.lastAttempt) < s.interval {
		wait := s.interval - now.Sub(s.lastAttempt)
		s.mu.Unlock()
		<-s.token
		s.metrics.UpdateDropped.WithLabelValues("throttled").Inc()
		s.logger.Debug("request throttled", "retry_in", wait)
		return false
	}
	s.attempted = true
	s.lastAttempt = now
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(ctx)
	return true
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()
	defer func() { <-s.token }()

	err := s.cycle.RunCycle(ctx)

	s.mu.Lock()
	s.lastErr = err
	if err == nil {
		s.interval = s.intervals.Steady
	} else {
		s.interval = s.intervals.Backoff
	}
	interval := s.interval
	s.mu.Unlock()

	s.metrics.PollInterval.Set(interval.Seconds())
	if err != nil {
		s.metrics.Cycles.WithLabelValues("failure").Inc()
		s.logger.Warn("cycle failed", "error", err, "next_in", interval)
		return
	}
	s.metrics.Cycles.WithLabelValues("success").Inc()
	s.publisher.PublishText(domain.FieldLastUpdate, s.clock.Now().UTC().Format(LastUpdateLayout))
	s.logger.Info("cycle succeeded", "next_in", interval)
}

// Busy reports whether a cycle holds the token.
func (s *Scheduler) Busy() bool {
	return len(s.token) == 1
}

// Interval returns the current throttle interval.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// LastError returns the outcome of the most recent completed cycle.
func (s *Scheduler) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Wait blocks until every started cycle has finished.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
