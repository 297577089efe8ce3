// Package domain models the Bureau of Meteorology (BOM) public weather API
// as seen by a small polling device.
//
// # Data Source
//
// All data comes from the unauthenticated JSON API rooted at
// https://api.weather.bom.gov.au/v1. Every feed is addressed by a location
// code, which BOM calls a geohash:
//
//	GET /locations?search=<lat>,<lon>          geocode search
//	GET /locations/<code>/observations         current observations
//	GET /locations/<code>/forecasts/daily      daily forecast, today first
//	GET /locations/<code>/warnings             active warnings
//
// # Location Codes
//
// The search endpoint sometimes returns seven-character geohashes while the
// feed endpoints only accept six. Codes are truncated to their first six
// characters, see [NormalizeLocationCode]. A code resolved from a moving
// coordinate is invalidated once the coordinate drifts more than
// [DriftThreshold] degrees on either axis.
//
// # Coordinates
//
// Coordinates are single-precision, matching the GPS sensors that feed them.
// NaN is the "unset" sentinel on each axis. A dynamic coordinate is only
// usable when both axes have been reported.
//
// # Published Values
//
// Extracted values are pushed to [Publisher] sinks under the names declared
// in fields.go. Publication is last-write-wins and never retracts: a value that
// is missing from a later payload keeps its previous published state.
package domain
