// Package bom talks to the Bureau of Meteorology public JSON API.
package bom

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/weather-bom-service/internal/domain"
	"github.com/couchcryptid/weather-bom-service/internal/jsontok"
	"github.com/couchcryptid/weather-bom-service/internal/observability"
)

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://api.weather.bom.gov.au/v1"

// Fetcher is the bounded transport used for every request.
type Fetcher interface {
	Fetch(ctx context.Context, url string, buf []byte) (int, error)
}

// Limit is the byte cap and token budget for one endpoint.
type Limit struct {
	MaxBytes  int
	MaxTokens int
}

// Limits holds the per-endpoint caps.
type Limits struct {
	Geocode      Limit
	Observations Limit
	Forecast     Limit
	Warnings     Limit
	// WarningsPublishBytes caps the republished warnings array independently
	// of how much was fetched.
	WarningsPublishBytes int
}

// DefaultLimits returns caps sized for typical BOM payloads.
func DefaultLimits() Limits {
	return Limits{
		Geocode:              Limit{MaxBytes: 4096, MaxTokens: 256},
		Observations:         Limit{MaxBytes: 4096, MaxTokens: 256},
		Forecast:             Limit{MaxBytes: 8192, MaxTokens: 1024},
		Warnings:             Limit{MaxBytes: 8192, MaxTokens: 768},
		WarningsPublishBytes: 2048,
	}
}

func (l Limits) maxBytes() int {
	return max(l.Geocode.MaxBytes, l.Observations.MaxBytes, l.Forecast.MaxBytes, l.Warnings.MaxBytes)
}

func (l Limits) maxTokens() int {
	return max(l.Geocode.MaxTokens, l.Observations.MaxTokens, l.Forecast.MaxTokens, l.Warnings.MaxTokens)
}

// Client implements domain.Geocoder and the three feed reads. Every call
// shares one response buffer and one token table, so a Client must only be
// used by one goroutine at a time; the scheduler's exclusive cycle token
// provides that.
type Client struct {
	baseURL string
	fetcher Fetcher
	parser  *jsontok.Parser
	buf     []byte
	limits  Limits
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewClient creates a client rooted at baseURL.
func NewClient(baseURL string, fetcher Fetcher, limits Limits, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		fetcher: fetcher,
		parser:  jsontok.NewParser(limits.maxTokens()),
		buf:     make([]byte, limits.maxBytes()),
		limits:  limits,
		metrics: metrics,
		logger:  logger,
	}
}

// Limits returns the caps the client was built with.
func (c *Client) Limits() Limits {
	return c.limits
}

// SearchURL builds the geocode query for coord.
func (c *Client) SearchURL(coord domain.Coordinate) string {
	return fmt.Sprintf("%s/locations?search=%s,%s", c.baseURL, domain.FormatDegrees(coord.Lat), domain.FormatDegrees(coord.Lon))
}

// FeedURL builds the URL of feed for a location code.
func (c *Client) FeedURL(code, feed string) string {
	switch feed {
	case domain.FeedForecast:
		return fmt.Sprintf("%s/locations/%s/forecasts/daily", c.baseURL, code)
	default:
		return fmt.Sprintf("%s/locations/%s/%s", c.baseURL, code, feed)
	}
}

// load fetches url into the shared buffer and tokenizes it.
func (c *Client) load(ctx context.Context, feed, url string, limit Limit) (*jsontok.Document, error) {
	start := time.Now()
	n, err := c.fetcher.Fetch(ctx, url, c.buf[:limit.MaxBytes])
	c.metrics.FetchDuration.WithLabelValues(feed).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", feed, err)
	}
	c.metrics.FetchBytes.WithLabelValues(feed).Observe(float64(n))

	doc, err := c.parser.Tokenize(c.buf[:n], limit.MaxTokens)
	if err != nil {
		c.logger.Warn("discarding payload", "feed", feed, "bytes", n, "error", err)
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrParse, feed, err)
	}
	return doc, nil
}
