package pipeline

import "github.com/couchcryptid/weather-bom-service/internal/domain"

// publishObservations publishes every present observation field and returns
// how many were published. Absent fields leave the previous value in place.
func publishObservations(p domain.Publisher, obs domain.Observations) int {
	n := 0
	for _, f := range []struct {
		name  string
		value domain.Optional[float64]
	}{
		{domain.FieldTemperature, obs.Temperature},
		{domain.FieldHumidity, obs.Humidity},
		{domain.FieldWindSpeedKmh, obs.WindSpeedKmh},
		{domain.FieldRainSince9am, obs.RainSince9am},
	} {
		if domain.PublishNumber(p, f.name, f.value) {
			n++
		}
	}
	return n
}

func publishForecast(p domain.Publisher, fc domain.Forecast) int {
	n := 0
	if d, ok := fc.Today.Get(); ok {
		n += publishDay(p, domain.DayToday, d)
	}
	if d, ok := fc.Tomorrow.Get(); ok {
		n += publishDay(p, domain.DayTomorrow, d)
	}
	return n
}

func publishDay(p domain.Publisher, day string, d domain.DayForecast) int {
	n := 0
	numbers := []struct {
		field string
		value domain.Optional[float64]
	}{
		{domain.FieldMin, d.Min},
		{domain.FieldMax, d.Max},
		{domain.FieldRainChance, d.RainChance},
		{domain.FieldRainMin, d.RainMin},
		{domain.FieldRainMax, d.RainMax},
	}
	for _, f := range numbers {
		if domain.PublishNumber(p, domain.DayField(day, f.field), f.value) {
			n++
		}
	}
	texts := []struct {
		field string
		value domain.Optional[string]
	}{
		{domain.FieldSummary, d.Summary},
		{domain.FieldIcon, d.Icon},
		{domain.FieldSunrise, d.Sunrise},
		{domain.FieldSunset, d.Sunset},
	}
	for _, f := range texts {
		if domain.PublishText(p, domain.DayField(day, f.field), f.value) {
			n++
		}
	}
	return n
}
