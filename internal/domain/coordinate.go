package domain

import (
	"fmt"
	"math"
)

// DriftThreshold is the per-axis movement, in degrees, that invalidates a
// location code resolved from a dynamic coordinate.
const DriftThreshold = 0.01

// Coordinate is a WGS-84 latitude/longitude pair. Either axis may hold the
// NaN sentinel meaning "not yet reported".
type Coordinate struct {
	Lat float32 `json:"lat"`
	Lon float32 `json:"lon"`
}

// UnsetCoordinate returns a coordinate with both axes unset.
func UnsetCoordinate() Coordinate {
	nan := float32(math.NaN())
	return Coordinate{Lat: nan, Lon: nan}
}

// IsSet reports whether both axes hold real values.
func (c Coordinate) IsSet() bool {
	return !isNaN32(c.Lat) && !isNaN32(c.Lon)
}

// DriftedFrom reports whether c has moved more than DriftThreshold degrees
// from ref on either axis. Unset coordinates never drift.
func (c Coordinate) DriftedFrom(ref Coordinate) bool {
	if !c.IsSet() || !ref.IsSet() {
		return false
	}
	dLat := math.Abs(float64(c.Lat) - float64(ref.Lat))
	dLon := math.Abs(float64(c.Lon) - float64(ref.Lon))
	return dLat > DriftThreshold || dLon > DriftThreshold
}

// Validate checks that a set coordinate lies within the WGS-84 ranges.
func (c Coordinate) Validate() error {
	if !c.IsSet() {
		return fmt.Errorf("coordinate not set")
	}
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("latitude must be between -90 and 90, got %g", c.Lat)
	}
	if c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("longitude must be between -180 and 180, got %g", c.Lon)
	}
	return nil
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lon)
}

// Axis identifies one half of a dynamic coordinate.
type Axis string

const (
	AxisLatitude  Axis = "latitude"
	AxisLongitude Axis = "longitude"
)

// ParseAxis maps a wire name to an Axis.
func ParseAxis(s string) (Axis, error) {
	switch Axis(s) {
	case AxisLatitude, AxisLongitude:
		return Axis(s), nil
	default:
		return "", fmt.Errorf("unknown axis %q", s)
	}
}

// AxisUpdate is a single-axis reading pushed by a position source.
type AxisUpdate struct {
	Axis  Axis    `json:"axis"`
	Value float32 `json:"value"`
}

// Apply returns c with the update's axis replaced.
func (c Coordinate) Apply(u AxisUpdate) Coordinate {
	switch u.Axis {
	case AxisLatitude:
		c.Lat = u.Value
	case AxisLongitude:
		c.Lon = u.Value
	}
	return c
}

func isNaN32(v float32) bool {
	return v != v
}
