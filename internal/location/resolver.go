// Package location turns the configured or reported position of the device
// into a location code the weather service accepts.
package location

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/couchcryptid/weather-bom-service/internal/domain"
	"github.com/couchcryptid/weather-bom-service/internal/observability"
)

// Source names the configured location method.
type Source string

const (
	SourceNone    Source = "none"
	SourceFixed   Source = "fixed"
	SourceStatic  Source = "static"
	SourceDynamic Source = "dynamic"
)

// Options selects exactly one location method. A non-empty FixedCode wins,
// then Static, then Dynamic.
type Options struct {
	FixedCode string
	Static    *domain.Coordinate
	Dynamic   bool
}

// Resolver owns the cached location code and the live dynamic coordinate.
// Dynamic updates only ever clear the cached code; resolution happens on the
// ingestion worker.
type Resolver struct {
	source    Source
	fixedCode string
	static    domain.Coordinate

	geocoder  domain.Geocoder
	publisher domain.Publisher
	metrics   *observability.Metrics
	logger    *slog.Logger

	mu           sync.Mutex
	dynamic      domain.Coordinate
	code         string
	resolvedFrom domain.Coordinate
}

// NewResolver creates a resolver for opts.
func NewResolver(opts Options, geocoder domain.Geocoder, publisher domain.Publisher, metrics *observability.Metrics, logger *slog.Logger) *Resolver {
	r := &Resolver{
		source:       SourceNone,
		static:       domain.UnsetCoordinate(),
		geocoder:     geocoder,
		publisher:    publisher,
		metrics:      metrics,
		logger:       logger,
		dynamic:      domain.UnsetCoordinate(),
		resolvedFrom: domain.UnsetCoordinate(),
	}
	switch {
	case opts.FixedCode != "":
		r.source = SourceFixed
		r.fixedCode = domain.NormalizeLocationCode(opts.FixedCode)
	case opts.Static != nil && opts.Static.IsSet():
		r.source = SourceStatic
		r.static = *opts.Static
	case opts.Dynamic:
		r.source = SourceDynamic
	}
	return r
}

// Source reports the location method in use.
func (r *Resolver) Source() Source {
	return r.source
}

// AcceptsUpdates reports whether dynamic axis updates are meaningful.
func (r *Resolver) AcceptsUpdates() bool {
	return r.source == SourceDynamic
}

// Announce publishes a fixed location code so sinks see it before the first
// cycle completes.
func (r *Resolver) Announce() {
	if r.source == SourceFixed {
		r.publisher.PublishText(domain.FieldLocationCode, r.fixedCode)
	}
}

// Cached returns the current location code without resolving.
func (r *Resolver) Cached() string {
	if r.source == SourceFixed {
		return r.fixedCode
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.code
}

// Coordinate returns the coordinate resolution would use right now.
func (r *Resolver) Coordinate() domain.Coordinate {
	switch r.source {
	case SourceStatic:
		return r.static
	case SourceDynamic:
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.dynamic
	default:
		return domain.UnsetCoordinate()
	}
}

// Code returns the location code for this cycle, resolving it when nothing
// is cached. The caller should keep the returned value for the whole cycle.
func (r *Resolver) Code(ctx context.Context) (string, error) {
	if r.source == SourceFixed {
		return r.fixedCode, nil
	}
	if r.source == SourceNone {
		return "", fmt.Errorf("no location method configured: %w", domain.ErrNoLocation)
	}
	if code := r.Cached(); code != "" {
		return code, nil
	}
	return r.resolve(ctx, r.Coordinate())
}

func (r *Resolver) resolve(ctx context.Context, coord domain.Coordinate) (string, error) {
	if !coord.IsSet() {
		r.metrics.GeocodeRequests.WithLabelValues(domain.OutcomeNoLocation).Inc()
		return "", fmt.Errorf("coordinate not available: %w", domain.ErrNoLocation)
	}

	res, err := r.geocoder.Search(ctx, coord)
	if err != nil {
		r.metrics.GeocodeRequests.WithLabelValues(domain.Classify(err)).Inc()
		r.logger.Warn("location lookup failed", "coord", coord.String(), "error", err)
		return "", fmt.Errorf("%w: %w", domain.ErrNoLocation, err)
	}
	if res.Code == "" {
		r.metrics.GeocodeRequests.WithLabelValues(domain.OutcomeEmpty).Inc()
		r.logger.Warn("location lookup returned no code", "coord", coord.String())
		return "", fmt.Errorf("no code for %s: %w", coord, domain.ErrNoLocation)
	}
	r.metrics.GeocodeRequests.WithLabelValues(domain.OutcomeSuccess).Inc()

	code := domain.NormalizeLocationCode(res.Code)
	if code != res.Code {
		r.logger.Debug("truncated location code", "raw", res.Code, "code", code)
	}

	r.mu.Lock()
	stale := r.source == SourceDynamic && r.dynamic.DriftedFrom(coord)
	if !stale {
		r.code = code
		r.resolvedFrom = coord
	}
	r.mu.Unlock()

	if stale {
		// The device moved while the lookup was in flight. Use the code for
		// this cycle but let the next one resolve again.
		r.logger.Info("coordinate moved during lookup, not caching code", "code", code)
	}

	r.publisher.PublishText(domain.FieldLocationCode, code)
	domain.PublishText(r.publisher, domain.FieldLocationName, domain.Optional[string]{Value: res.Name, Valid: res.Name != ""})
	r.logger.Info("resolved location", "code", code, "name", res.Name, "coord", coord.String())
	return code, nil
}

// UpdateAxis applies a dynamic axis reading and clears the cached code when
// the device has drifted away from where it was resolved. It reports whether
// a cycle should be requested because no code is cached.
func (r *Resolver) UpdateAxis(u domain.AxisUpdate) bool {
	if r.source != SourceDynamic {
		r.logger.Debug("ignoring axis update", "axis", u.Axis, "source", r.source)
		return false
	}

	r.mu.Lock()
	r.dynamic = r.dynamic.Apply(u)
	invalidated := r.code != "" && r.dynamic.DriftedFrom(r.resolvedFrom)
	if invalidated {
		r.code = ""
		r.resolvedFrom = domain.UnsetCoordinate()
	}
	needs := r.code == "" && r.dynamic.IsSet()
	current := r.dynamic
	r.mu.Unlock()

	if invalidated {
		r.metrics.LocationInvalidated.Inc()
		r.logger.Info("coordinate drifted, location code cleared", "coord", current.String())
	}
	return needs
}
