package domain

// Names of published values. Each is one downstream sink value.
const (
	FieldLocationCode = "location_code"
	FieldLocationName = "location_name"
	FieldLastUpdate   = "last_update"
	FieldWarnings     = "warnings_json"

	FieldTemperature  = "temperature"
	FieldHumidity     = "humidity"
	FieldWindSpeedKmh = "wind_speed_kmh"
	FieldRainSince9am = "rain_since_9am"

	// Forecast fields are prefixed with DayToday or DayTomorrow.
	FieldMin        = "min"
	FieldMax        = "max"
	FieldRainChance = "rain_chance"
	FieldRainMin    = "rain_min"
	FieldRainMax    = "rain_max"
	FieldSummary    = "summary"
	FieldIcon       = "icon"
	FieldSunrise    = "sunrise"
	FieldSunset     = "sunset"
)

const (
	DayToday    = "today"
	DayTomorrow = "tomorrow"
)

// DayField builds the published name of a per-day forecast field.
func DayField(day, field string) string {
	return day + "_" + field
}

// Optional is a value that may be absent from an upstream payload.
type Optional[T any] struct {
	Value T
	Valid bool
}

// Some wraps a present value.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Valid: true}
}

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.Value, o.Valid
}

// Publisher receives extracted values. Implementations must be safe to call
// from the ingestion worker while readers access them concurrently.
type Publisher interface {
	PublishNumber(name string, value float64)
	PublishText(name string, value string)
}

// Publishers fans every value out to each sink in order.
type Publishers []Publisher

func (ps Publishers) PublishNumber(name string, value float64) {
	for _, p := range ps {
		p.PublishNumber(name, value)
	}
}

func (ps Publishers) PublishText(name string, value string) {
	for _, p := range ps {
		p.PublishText(name, value)
	}
}

// PublishNumber publishes o only when it is present.
func PublishNumber(p Publisher, name string, o Optional[float64]) bool {
	if v, ok := o.Get(); ok {
		p.PublishNumber(name, v)
		return true
	}
	return false
}

// PublishText publishes o only when it is present and non-empty.
func PublishText(p Publisher, name string, o Optional[string]) bool {
	if v, ok := o.Get(); ok && v != "" {
		p.PublishText(name, v)
		return true
	}
	return false
}
