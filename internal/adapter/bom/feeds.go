package bom

import (
	"bytes"
	"context"
	"fmt"

	"github.com/couchcryptid/weather-bom-service/internal/domain"
	"github.com/couchcryptid/weather-bom-service/internal/jsontok"
)

// Observations reads the current-conditions feed for code.
func (c *Client) Observations(ctx context.Context, code string) (domain.Observations, error) {
	doc, err := c.load(ctx, domain.FeedObservations, c.FeedURL(code, domain.FeedObservations), c.limits.Observations)
	if err != nil {
		return domain.Observations{}, err
	}
	return parseObservations(doc), nil
}

func parseObservations(doc *jsontok.Document) domain.Observations {
	var obs domain.Observations
	data, ok := doc.ContainerField(jsontok.Root, jsontok.KindObject, "data", "")
	if !ok {
		return obs
	}
	obs.Temperature = number(doc, data, "temp", "temperature")
	obs.Humidity = number(doc, data, "humidity", "")
	obs.RainSince9am = number(doc, data, "rain_since_9am", "")
	if wind, ok := doc.ContainerField(data, jsontok.KindObject, "wind", ""); ok {
		obs.WindSpeedKmh = number(doc, wind, "speed_kilometre", "")
	}
	if !obs.WindSpeedKmh.Valid {
		obs.WindSpeedKmh = number(doc, data, "wind_speed_kilometre", "")
	}
	return obs
}

// Forecast reads the daily forecast feed for code. Only the first two
// entries are consumed.
func (c *Client) Forecast(ctx context.Context, code string) (domain.Forecast, error) {
	doc, err := c.load(ctx, domain.FeedForecast, c.FeedURL(code, domain.FeedForecast), c.limits.Forecast)
	if err != nil {
		return domain.Forecast{}, err
	}
	return parseForecast(doc), nil
}

func parseForecast(doc *jsontok.Document) domain.Forecast {
	var fc domain.Forecast
	days, ok := doc.ContainerField(jsontok.Root, jsontok.KindArray, "data", "forecast")
	if !ok {
		return fc
	}
	if idx, ok := doc.Index(days, 0); ok && doc.Kind(idx) == jsontok.KindObject {
		fc.Today = domain.Some(parseDay(doc, idx))
	}
	if idx, ok := doc.Index(days, 1); ok && doc.Kind(idx) == jsontok.KindObject {
		fc.Tomorrow = domain.Some(parseDay(doc, idx))
	}
	return fc
}

func parseDay(doc *jsontok.Document, day int) domain.DayForecast {
	d := domain.DayForecast{
		Min:     number(doc, day, "temp_min", "temperature_min"),
		Max:     number(doc, day, "temp_max", "temperature_max"),
		Summary: text(doc, day, "short_text", "summary"),
		Icon:    text(doc, day, "icon_descriptor", "icon"),
	}

	if rain, ok := doc.ContainerField(day, jsontok.KindObject, "rain", ""); ok {
		d.RainChance = number(doc, rain, "chance", "")
		if amount, ok := doc.ContainerField(rain, jsontok.KindObject, "amount", ""); ok {
			d.RainMin = number(doc, amount, "min", "")
			d.RainMax = number(doc, amount, "max", "")
		}
	}
	if !d.RainChance.Valid {
		d.RainChance = number(doc, day, "rain_chance", "")
	}
	if !d.RainMin.Valid {
		d.RainMin = number(doc, day, "rain_amount_min", "")
	}
	if !d.RainMax.Valid {
		d.RainMax = number(doc, day, "rain_amount_max", "")
	}

	if astro, ok := doc.ContainerField(day, jsontok.KindObject, "astronomical", ""); ok {
		d.Sunrise = text(doc, astro, "sunrise_time", "")
		d.Sunset = text(doc, astro, "sunset_time", "")
	}
	return d
}

// Warnings reads the active warnings feed for code.
func (c *Client) Warnings(ctx context.Context, code string) (domain.Warnings, error) {
	doc, err := c.load(ctx, domain.FeedWarnings, c.FeedURL(code, domain.FeedWarnings), c.limits.Warnings)
	if err != nil {
		return domain.Warnings{}, err
	}
	w, dropped, err := compactWarnings(doc, c.limits.WarningsPublishBytes)
	if err != nil {
		return domain.Warnings{}, err
	}
	if dropped > 0 {
		c.logger.Warn("warnings exceed publication cap, dropping tail",
			"count", w.Count, "dropped", dropped, "cap", c.limits.WarningsPublishBytes)
	}
	return w, nil
}

// compactWarnings republishes the warnings array as compact JSON. When the
// result would exceed maxBytes, trailing warnings are dropped whole so the
// output stays a valid array.
func compactWarnings(doc *jsontok.Document, maxBytes int) (domain.Warnings, int, error) {
	arr, ok := doc.ContainerField(jsontok.Root, jsontok.KindArray, "data", "")
	if !ok {
		if doc.Kind(jsontok.Root) != jsontok.KindArray {
			return domain.Warnings{}, 0, fmt.Errorf("%w: warnings: no array", domain.ErrParse)
		}
		arr = jsontok.Root
	}

	elements := doc.Elements(arr)
	var out, elem bytes.Buffer
	out.WriteByte('[')
	kept := 0
	for _, idx := range elements {
		elem.Reset()
		if err := doc.Compact(&elem, idx); err != nil {
			return domain.Warnings{}, 0, fmt.Errorf("%w: warnings: %w", domain.ErrParse, err)
		}
		need := elem.Len() + 1 // closing bracket
		if kept > 0 {
			need++ // separator
		}
		if out.Len()+need > maxBytes {
			break
		}
		if kept > 0 {
			out.WriteByte(',')
		}
		out.Write(elem.Bytes())
		kept++
	}
	out.WriteByte(']')

	return domain.Warnings{JSON: out.String(), Count: len(elements)}, len(elements) - kept, nil
}

func number(doc *jsontok.Document, parent int, primary, fallback string) domain.Optional[float64] {
	if v, ok := doc.NumberField(parent, primary, fallback); ok {
		return domain.Some(v)
	}
	return domain.Optional[float64]{}
}

func text(doc *jsontok.Document, parent int, primary, fallback string) domain.Optional[string] {
	if v, ok := doc.StringField(parent, primary, fallback); ok {
		return domain.Some(v)
	}
	return domain.Optional[string]{}
}
