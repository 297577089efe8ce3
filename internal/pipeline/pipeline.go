// Package pipeline runs one ingestion cycle: resolve the location code, then
// fetch, extract and publish each enabled feed in a fixed order.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/weather-bom-service/internal/domain"
	"github.com/couchcryptid/weather-bom-service/internal/observability"
)

// SkipBudget is how many cycles the warnings feed is left alone after it
// reported no active warnings.
const SkipBudget = 5

// ErrCycleFailed means every attempted feed failed.
var ErrCycleFailed = errors.New("all feeds failed")

// CodeSource supplies the location code for a cycle.
type CodeSource interface {
	Code(ctx context.Context) (string, error)
}

// FeedClient reads the three weather feeds for a location code.
type FeedClient interface {
	Observations(ctx context.Context, code string) (domain.Observations, error)
	Forecast(ctx context.Context, code string) (domain.Forecast, error)
	Warnings(ctx context.Context, code string) (domain.Warnings, error)
}

// Feeds enables or disables individual feeds.
type Feeds struct {
	Observations bool
	Forecast     bool
	Warnings     bool
}

// AllFeeds enables every feed.
func AllFeeds() Feeds {
	return Feeds{Observations: true, Forecast: true, Warnings: true}
}

// Pipeline orchestrates one fetch-extract-publish cycle. RunCycle must not be
// called concurrently.
type Pipeline struct {
	location  CodeSource
	client    FeedClient
	publisher domain.Publisher
	feeds     Feeds
	quota     *WarningsQuota
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
}

// New creates a Pipeline with the given collaborators and observability.
func New(location CodeSource, client FeedClient, publisher domain.Publisher, feeds Feeds, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		location:  location,
		client:    client,
		publisher: publisher,
		feeds:     feeds,
		quota:     NewWarningsQuota(SkipBudget, metrics),
		logger:    logger,
		metrics:   metrics,
	}
}

// Quota exposes the warnings quota for inspection.
func (p *Pipeline) Quota() *WarningsQuota {
	return p.quota
}

// CheckReadiness returns nil once a cycle has succeeded.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no ingestion cycle has succeeded yet")
	}
	return nil
}

// RunCycle runs every enabled feed once. It returns nil when at least one
// feed succeeded or none was attempted, domain.ErrNoLocation when there was
// nothing to fetch, and ErrCycleFailed when every attempted feed failed.
func (p *Pipeline) RunCycle(ctx context.Context) error {
	start := time.Now()
	p.metrics.CycleRunning.Set(1)
	defer p.metrics.CycleRunning.Set(0)

	code, err := p.location.Code(ctx)
	if err != nil {
		p.logger.Warn("cycle aborted", "error", err)
		return fmt.Errorf("location: %w", err)
	}
	log := p.logger.With("code", code)

	var (
		attempted int
		succeeded int
		errs      []error
	)
	record := func(feed string, err error) {
		attempted++
		p.metrics.FeedResults.WithLabelValues(feed, domain.Classify(err)).Inc()
		if err != nil {
			log.Warn("feed failed", "feed", feed, "error", err)
			errs = append(errs, err)
			return
		}
		succeeded++
	}

	if p.feeds.Observations {
		record(domain.FeedObservations, p.observations(ctx, code))
	}
	if p.feeds.Forecast {
		record(domain.FeedForecast, p.forecast(ctx, code))
	}
	if p.feeds.Warnings {
		if p.quota.Allow() {
			record(domain.FeedWarnings, p.warnings(ctx, code))
		} else {
			p.metrics.FeedResults.WithLabelValues(domain.FeedWarnings, domain.OutcomeSkipped).Inc()
			log.Debug("warnings skipped", "skipped", p.quota.Skipped())
		}
	}

	p.metrics.CycleDuration.Observe(time.Since(start).Seconds())
	if attempted > 0 && succeeded == 0 {
		return fmt.Errorf("%w: %w", ErrCycleFailed, errors.Join(errs...))
	}
	p.ready.Store(true)
	log.Info("cycle complete", "attempted", attempted, "succeeded", succeeded)
	return nil
}

func (p *Pipeline) observations(ctx context.Context, code string) error {
	obs, err := p.client.Observations(ctx, code)
	if err != nil {
		return err
	}
	n := publishObservations(p.publisher, obs)
	p.logger.Debug("published observations", "fields", n)
	return nil
}

func (p *Pipeline) forecast(ctx context.Context, code string) error {
	fc, err := p.client.Forecast(ctx, code)
	if err != nil {
		return err
	}
	n := publishForecast(p.publisher, fc)
	p.logger.Debug("published forecast", "fields", n)
	return nil
}

// warnings publishes an empty array when the payload could not be read, so
// downstream never keeps showing warnings that may have expired. Transport
// failures leave the last value alone.
func (p *Pipeline) warnings(ctx context.Context, code string) error {
	w, err := p.client.Warnings(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrParse) || errors.Is(err, domain.ErrEmpty) {
			p.publisher.PublishText(domain.FieldWarnings, "[]")
		}
		return err
	}
	p.publisher.PublishText(domain.FieldWarnings, w.JSON)
	p.quota.Observe(w.Count == 0)
	p.logger.Debug("published warnings", "count", w.Count, "bytes", len(w.JSON))
	return nil
}
