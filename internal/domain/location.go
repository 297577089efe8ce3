package domain

import (
	"context"
	"strconv"
)

// MaxLocationCodeLen is the longest code the BOM feed endpoints accept.
const MaxLocationCodeLen = 6

// NormalizeLocationCode truncates a resolved code to MaxLocationCodeLen
// characters. Shorter codes pass through unchanged.
func NormalizeLocationCode(code string) string {
	if len(code) > MaxLocationCodeLen {
		return code[:MaxLocationCodeLen]
	}
	return code
}

// FormatDegrees renders one coordinate axis for a geocode query: fixed
// notation, four decimals, '.' separator regardless of locale.
func FormatDegrees(v float32) string {
	return strconv.FormatFloat(float64(v), 'f', 4, 32)
}

// GeocodeResult is the first match returned by a geocode search.
type GeocodeResult struct {
	Code string // raw, possibly longer than MaxLocationCodeLen
	Name string // optional display name
}

// Geocoder resolves a coordinate to a location code.
type Geocoder interface {
	// Search returns the first match for the coordinate. A result with an
	// empty Code means the service answered but had no usable match.
	Search(ctx context.Context, coord Coordinate) (GeocodeResult, error)
}
