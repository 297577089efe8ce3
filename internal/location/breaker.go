package location

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/weather-bom-service/internal/domain"
	"github.com/sony/gobreaker"
)

// BreakerGeocoder stops calling the geocode endpoint after consecutive
// failures and probes it again once the open period has elapsed.
type BreakerGeocoder struct {
	inner   domain.Geocoder
	circuit *gobreaker.CircuitBreaker
}

// NewBreakerGeocoder opens after failures consecutive errors and stays open
// for openFor.
func NewBreakerGeocoder(inner domain.Geocoder, failures uint32, openFor time.Duration, logger *slog.Logger) *BreakerGeocoder {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "geocode",
		MaxRequests: 1,
		Timeout:     openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return &BreakerGeocoder{inner: inner, circuit: cb}
}

func (b *BreakerGeocoder) Search(ctx context.Context, coord domain.Coordinate) (domain.GeocodeResult, error) {
	out, err := b.circuit.Execute(func() (interface{}, error) {
		return b.inner.Search(ctx, coord)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return domain.GeocodeResult{}, fmt.Errorf("%w: geocode: %w", domain.ErrTransport, err)
		}
		return domain.GeocodeResult{}, err
	}
	return out.(domain.GeocodeResult), nil
}

// State reports the breaker state for diagnostics.
func (b *BreakerGeocoder) State() string {
	return b.circuit.State().String()
}
