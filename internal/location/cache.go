package location

import (
	"container/list"
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/couchcryptid/weather-bom-service/internal/domain"
	"github.com/couchcryptid/weather-bom-service/internal/observability"
)

// CachedGeocoder remembers resolved codes per drift-grid cell so a device
// returning to a cell it already visited skips the lookup.
type CachedGeocoder struct {
	inner   domain.Geocoder
	metrics *observability.Metrics

	mu      sync.Mutex
	max     int
	order   *list.List // front is most recently used
	entries map[string]*list.Element
}

type cacheEntry struct {
	key    string
	result domain.GeocodeResult
}

// NewCachedGeocoder wraps inner with an LRU of maxEntries cells.
func NewCachedGeocoder(inner domain.Geocoder, maxEntries int, metrics *observability.Metrics) *CachedGeocoder {
	return &CachedGeocoder{
		inner:   inner,
		metrics: metrics,
		max:     max(maxEntries, 1),
		order:   list.New(),
		entries: make(map[string]*list.Element),
	}
}

// cellKey snaps a coordinate to the 0.01 degree grid used for drift.
func cellKey(c domain.Coordinate) string {
	snap := func(v float32) float64 {
		return math.Round(float64(v)/domain.DriftThreshold) * domain.DriftThreshold
	}
	return fmt.Sprintf("%.2f,%.2f", snap(c.Lat), snap(c.Lon))
}

func (c *CachedGeocoder) Search(ctx context.Context, coord domain.Coordinate) (domain.GeocodeResult, error) {
	key := cellKey(coord)
	if res, ok := c.get(key); ok {
		c.metrics.GeocodeCache.WithLabelValues("hit").Inc()
		return res, nil
	}
	c.metrics.GeocodeCache.WithLabelValues("miss").Inc()

	res, err := c.inner.Search(ctx, coord)
	if err != nil {
		return res, err
	}
	// Empty answers are retried next time.
	if res.Code != "" {
		c.put(key, res)
	}
	return res, nil
}

// Len returns the number of cached cells.
func (c *CachedGeocoder) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *CachedGeocoder) get(key string) (domain.GeocodeResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[key]
	if !ok {
		return domain.GeocodeResult{}, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).result, true
}

func (c *CachedGeocoder) put(key string, res domain.GeocodeResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		el.Value.(*cacheEntry).result = res
		c.order.MoveToFront(el)
		return
	}
	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, result: res})
	for c.order.Len() > c.max {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
}
