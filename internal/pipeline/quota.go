package pipeline

import "github.com/couchcryptid/weather-bom-service/internal/observability"

// WarningsQuota backs off the warnings feed while it keeps reporting nothing.
// After an empty result it skips the feed for budget cycles, then fetches
// once more. Only the ingestion worker touches it.
type WarningsQuota struct {
	budget   int
	skipping bool
	skipped  int
	metrics  *observability.Metrics
}

// NewWarningsQuota starts in the active state.
func NewWarningsQuota(budget int, metrics *observability.Metrics) *WarningsQuota {
	return &WarningsQuota{budget: budget, metrics: metrics}
}

// Allow reports whether this cycle should fetch warnings. A skipped cycle
// counts against the budget; the cycle that exhausts it re-arms the fetch
// for the next one.
func (q *WarningsQuota) Allow() bool {
	if !q.skipping {
		return true
	}
	q.skipped++
	if q.skipped >= q.budget {
		q.skipped = 0
		q.set(false)
	}
	return false
}

// Observe records a successful fetch. Failed fetches must not be reported.
func (q *WarningsQuota) Observe(empty bool) {
	q.skipped = 0
	q.set(empty)
}

// Skipping reports whether the feed is currently being skipped.
func (q *WarningsQuota) Skipping() bool {
	return q.skipping
}

// Skipped returns the number of cycles skipped so far.
func (q *WarningsQuota) Skipped() int {
	return q.skipped
}

func (q *WarningsQuota) set(skipping bool) {
	q.skipping = skipping
	if skipping {
		q.metrics.WarningsQuota.Set(1)
	} else {
		q.metrics.WarningsQuota.Set(0)
	}
}
