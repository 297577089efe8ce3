package domain

// Feed names, used in URLs, logs and metric labels.
const (
	FeedGeocode      = "geocode"
	FeedObservations = "observations"
	FeedForecast     = "forecast"
	FeedWarnings     = "warnings"
)

// Observations holds the current-conditions fields of one payload.
type Observations struct {
	Temperature  Optional[float64]
	Humidity     Optional[float64]
	WindSpeedKmh Optional[float64]
	RainSince9am Optional[float64]
}

// DayForecast holds the fields consumed from one daily forecast entry.
type DayForecast struct {
	Min        Optional[float64]
	Max        Optional[float64]
	RainChance Optional[float64]
	RainMin    Optional[float64]
	RainMax    Optional[float64]
	Summary    Optional[string]
	Icon       Optional[string]
	Sunrise    Optional[string]
	Sunset     Optional[string]
}

// Forecast holds today's and tomorrow's entries when the payload had them.
type Forecast struct {
	Today    Optional[DayForecast]
	Tomorrow Optional[DayForecast]
}

// Warnings is the republishable form of the active-warnings feed.
type Warnings struct {
	// JSON is a compact array, at most the publication cap in bytes.
	JSON string
	// Count is the number of warnings in the payload, including any dropped
	// from JSON to respect the cap.
	Count int
}
