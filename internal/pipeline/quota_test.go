package pipeline

import (
	"testing"

	"github.com/couchcryptid/weather-bom-service/internal/observability"
	"github.com/stretchr/testify/assert"
)

func TestWarningsQuota_InitiallyActive(t *testing.T) {
	q := NewWarningsQuota(SkipBudget, observability.NewMetricsForTesting())
	assert.True(t, q.Allow())
	assert.True(t, q.Allow())
	assert.False(t, q.Skipping())
}

func TestWarningsQuota_SkipBudget(t *testing.T) {
	q := NewWarningsQuota(SkipBudget, observability.NewMetricsForTesting())
	q.Observe(true)

	for i := 1; i < SkipBudget; i++ {
		assert.False(t, q.Allow())
		assert.True(t, q.Skipping())
		assert.Equal(t, i, q.Skipped())
	}
	assert.False(t, q.Allow(), "the last skip is still a skip")
	assert.False(t, q.Skipping())
	assert.Zero(t, q.Skipped())
	assert.True(t, q.Allow())
}

func TestWarningsQuota_NonEmptyReactivates(t *testing.T) {
	q := NewWarningsQuota(SkipBudget, observability.NewMetricsForTesting())
	q.Observe(true)
	assert.False(t, q.Allow())

	q.Observe(false)
	assert.False(t, q.Skipping())
	assert.Zero(t, q.Skipped())
	assert.True(t, q.Allow())
}

func TestWarningsQuota_RepeatedEmpty(t *testing.T) {
	q := NewWarningsQuota(2, observability.NewMetricsForTesting())
	pattern := []bool{}
	for range 6 {
		ok := q.Allow()
		pattern = append(pattern, ok)
		if ok {
			q.Observe(true)
		}
	}
	assert.Equal(t, []bool{true, false, false, true, false, false}, pattern)
}
