package bom

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/weather-bom-service/internal/domain"
	"github.com/couchcryptid/weather-bom-service/internal/fetch"
	"github.com/couchcryptid/weather-bom-service/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClient(baseURL string, limits Limits) *Client {
	f := fetch.New(2*time.Second, testLogger())
	return NewClient(baseURL, f, limits, observability.NewMetricsForTesting(), testLogger())
}

// serve answers every request with body and records the last request path.
func serve(t *testing.T, body string) (*httptest.Server, *atomic.Value) {
	t.Helper()
	var last atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		last.Store(r.URL.RequestURI())
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &last
}

func TestClient_URLs(t *testing.T) {
	c := testClient("https://api.example", DefaultLimits())

	assert.Equal(t, "https://api.example/locations?search=-33.8688,151.2093",
		c.SearchURL(domain.Coordinate{Lat: -33.8688, Lon: 151.2093}))
	assert.Equal(t, "https://api.example/locations/r3gx2f/observations",
		c.FeedURL("r3gx2f", domain.FeedObservations))
	assert.Equal(t, "https://api.example/locations/r3gx2f/forecasts/daily",
		c.FeedURL("r3gx2f", domain.FeedForecast))
	assert.Equal(t, "https://api.example/locations/r3gx2f/warnings",
		c.FeedURL("r3gx2f", domain.FeedWarnings))
}

func TestClient_Search_FirstResult(t *testing.T) {
	srv, last := serve(t, `{"data":[{"geohash":"r3gx2f9","name":"Sydney"},{"geohash":"zzzzzz","name":"Other"}]}`)
	c := testClient(srv.URL, DefaultLimits())

	res, err := c.Search(context.Background(), domain.Coordinate{Lat: -33.8688, Lon: 151.2093})
	require.NoError(t, err)
	assert.Equal(t, "r3gx2f9", res.Code, "search returns the raw code")
	assert.Equal(t, "Sydney", res.Name)
	assert.Equal(t, "/locations?search=-33.8688,151.2093", last.Load())
}

func TestClient_Search_NoResults(t *testing.T) {
	srv, _ := serve(t, `{"data":[]}`)
	c := testClient(srv.URL, DefaultLimits())

	res, err := c.Search(context.Background(), domain.Coordinate{Lat: 1, Lon: 2})
	require.NoError(t, err)
	assert.Empty(t, res.Code)
}

func TestClient_Search_UnsetCoordinateSkipsNetwork(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()
	c := testClient(srv.URL, DefaultLimits())

	coord := domain.UnsetCoordinate()
	coord.Lat = -33.8
	_, err := c.Search(context.Background(), coord)
	require.ErrorIs(t, err, domain.ErrNoLocation)
	assert.Zero(t, calls.Load())
}

func TestClient_Search_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	c := testClient(srv.URL, DefaultLimits())

	_, err := c.Search(context.Background(), domain.Coordinate{Lat: 1, Lon: 2})
	require.ErrorIs(t, err, domain.ErrTransport)
}

func TestClient_Observations(t *testing.T) {
	srv, last := serve(t, `{"data":{"temp":21.5,"humidity":40,"rain_since_9am":0.2,"wind":{"speed_kilometre":15}}}`)
	c := testClient(srv.URL, DefaultLimits())

	obs, err := c.Observations(context.Background(), "r3gx2f")
	require.NoError(t, err)
	assert.Equal(t, domain.Some(21.5), obs.Temperature)
	assert.Equal(t, domain.Some(40.0), obs.Humidity)
	assert.Equal(t, domain.Some(0.2), obs.RainSince9am)
	assert.Equal(t, domain.Some(15.0), obs.WindSpeedKmh)
	assert.Equal(t, "/locations/r3gx2f/observations", last.Load())
}

func TestClient_Observations_FallbackNames(t *testing.T) {
	srv, _ := serve(t, `{"data":{"temp":null,"temperature":19,"wind_speed_kilometre":7}}`)
	c := testClient(srv.URL, DefaultLimits())

	obs, err := c.Observations(context.Background(), "r3gx2f")
	require.NoError(t, err)
	assert.Equal(t, domain.Some(19.0), obs.Temperature)
	assert.Equal(t, domain.Some(7.0), obs.WindSpeedKmh)
	assert.False(t, obs.Humidity.Valid)
}

func TestClient_Observations_PartialData(t *testing.T) {
	srv, _ := serve(t, `{"data":{"temp":21.5}}`)
	c := testClient(srv.URL, DefaultLimits())

	obs, err := c.Observations(context.Background(), "r3gx2f")
	require.NoError(t, err)
	assert.Equal(t, domain.Some(21.5), obs.Temperature)
	assert.False(t, obs.Humidity.Valid)
	assert.False(t, obs.WindSpeedKmh.Valid)
	assert.False(t, obs.RainSince9am.Valid)
}

func TestClient_Observations_MissingData(t *testing.T) {
	srv, _ := serve(t, `{"metadata":{}}`)
	c := testClient(srv.URL, DefaultLimits())

	obs, err := c.Observations(context.Background(), "r3gx2f")
	require.NoError(t, err, "a well-formed body without data is not a failure")
	assert.Equal(t, domain.Observations{}, obs)
}

func TestClient_Observations_Malformed(t *testing.T) {
	srv, _ := serve(t, `{"data":{"temp":21.5`)
	c := testClient(srv.URL, DefaultLimits())

	_, err := c.Observations(context.Background(), "r3gx2f")
	require.ErrorIs(t, err, domain.ErrParse)
}

func TestClient_Observations_TokenBudget(t *testing.T) {
	limits := DefaultLimits()
	limits.Observations.MaxTokens = 4
	srv, _ := serve(t, `{"data":{"temp":21.5,"humidity":40}}`)
	c := testClient(srv.URL, limits)

	_, err := c.Observations(context.Background(), "r3gx2f")
	require.ErrorIs(t, err, domain.ErrParse)
}

const forecastBody = `{"data":[
 {"temp_min":12,"temp_max":24,"short_text":"Sunny.","icon_descriptor":"sunny",
  "rain":{"chance":10,"amount":{"min":0,"max":1}},
  "astronomical":{"sunrise_time":"2026-10-19T19:05:00Z","sunset_time":"2026-10-20T08:10:00Z"}},
 {"temperature_min":13,"temperature_max":22,"summary":"Showers.","icon":"shower",
  "rain_chance":70,"rain_amount_min":2,"rain_amount_max":8},
 {"temp_min":1,"temp_max":2}
]}`

func TestClient_Forecast(t *testing.T) {
	srv, last := serve(t, forecastBody)
	c := testClient(srv.URL, DefaultLimits())

	fc, err := c.Forecast(context.Background(), "r3gx2f")
	require.NoError(t, err)
	assert.Equal(t, "/locations/r3gx2f/forecasts/daily", last.Load())

	today, ok := fc.Today.Get()
	require.True(t, ok)
	assert.Equal(t, domain.Some(12.0), today.Min)
	assert.Equal(t, domain.Some(24.0), today.Max)
	assert.Equal(t, domain.Some(10.0), today.RainChance)
	assert.Equal(t, domain.Some(0.0), today.RainMin)
	assert.Equal(t, domain.Some(1.0), today.RainMax)
	assert.Equal(t, domain.Some("Sunny."), today.Summary)
	assert.Equal(t, domain.Some("sunny"), today.Icon)
	assert.Equal(t, domain.Some("2026-10-19T19:05:00Z"), today.Sunrise)
	assert.Equal(t, domain.Some("2026-10-20T08:10:00Z"), today.Sunset)

	tomorrow, ok := fc.Tomorrow.Get()
	require.True(t, ok)
	assert.Equal(t, domain.Some(13.0), tomorrow.Min)
	assert.Equal(t, domain.Some(22.0), tomorrow.Max)
	assert.Equal(t, domain.Some(70.0), tomorrow.RainChance)
	assert.Equal(t, domain.Some(2.0), tomorrow.RainMin)
	assert.Equal(t, domain.Some(8.0), tomorrow.RainMax)
	assert.Equal(t, domain.Some("Showers."), tomorrow.Summary)
	assert.Equal(t, domain.Some("shower"), tomorrow.Icon)
	assert.False(t, tomorrow.Sunrise.Valid)
}

func TestClient_Forecast_ForecastKeyAndSingleDay(t *testing.T) {
	srv, _ := serve(t, `{"forecast":[{"temp_max":30}]}`)
	c := testClient(srv.URL, DefaultLimits())

	fc, err := c.Forecast(context.Background(), "r3gx2f")
	require.NoError(t, err)
	today, ok := fc.Today.Get()
	require.True(t, ok)
	assert.Equal(t, domain.Some(30.0), today.Max)
	assert.False(t, today.Min.Valid)
	assert.False(t, fc.Tomorrow.Valid)
}

func TestClient_Forecast_NonObjectDaysIgnored(t *testing.T) {
	srv, _ := serve(t, `{"data":[1,"two"]}`)
	c := testClient(srv.URL, DefaultLimits())

	fc, err := c.Forecast(context.Background(), "r3gx2f")
	require.NoError(t, err)
	assert.False(t, fc.Today.Valid)
	assert.False(t, fc.Tomorrow.Valid)
}

func TestClient_Warnings(t *testing.T) {
	srv, last := serve(t, `{"data": [ {"id":"a", "title":"Flood"}, {"id":"b"} ], "metadata": {}}`)
	c := testClient(srv.URL, DefaultLimits())

	w, err := c.Warnings(context.Background(), "r3gx2f")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"a","title":"Flood"},{"id":"b"}]`, w.JSON)
	assert.Equal(t, 2, w.Count)
	assert.Equal(t, "/locations/r3gx2f/warnings", last.Load())
}

func TestClient_Warnings_BareArray(t *testing.T) {
	srv, _ := serve(t, `[ ]`)
	c := testClient(srv.URL, DefaultLimits())

	w, err := c.Warnings(context.Background(), "r3gx2f")
	require.NoError(t, err)
	assert.Equal(t, "[]", w.JSON)
	assert.Zero(t, w.Count)
}

func TestClient_Warnings_NoArray(t *testing.T) {
	srv, _ := serve(t, `{"data":{"id":"a"}}`)
	c := testClient(srv.URL, DefaultLimits())

	_, err := c.Warnings(context.Background(), "r3gx2f")
	require.ErrorIs(t, err, domain.ErrParse)
}

func TestClient_Warnings_PublishCapDropsWholeElements(t *testing.T) {
	var elems []string
	for i := range 10 {
		elems = append(elems, fmt.Sprintf(`{"id":"w%d","text":"%s"}`, i, strings.Repeat("x", 20)))
	}
	body := `{"data":[` + strings.Join(elems, ",") + `]}`

	limits := DefaultLimits()
	limits.WarningsPublishBytes = 100
	srv, _ := serve(t, body)
	c := testClient(srv.URL, limits)

	w, err := c.Warnings(context.Background(), "r3gx2f")
	require.NoError(t, err)
	assert.LessOrEqual(t, len(w.JSON), 100)
	assert.Equal(t, "["+elems[0]+","+elems[1]+"]", w.JSON)
	assert.Equal(t, 10, w.Count)
}

func TestClient_SharedBufferAcrossFeeds(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/locations/abc123/observations", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"data":{"temp":5}}`)
	})
	mux.HandleFunc("/locations/abc123/warnings", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"data":[]}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	c := testClient(srv.URL, DefaultLimits())

	obs, err := c.Observations(context.Background(), "abc123")
	require.NoError(t, err)
	w, err := c.Warnings(context.Background(), "abc123")
	require.NoError(t, err)

	assert.Equal(t, domain.Some(5.0), obs.Temperature, "earlier results stay valid after the buffer is reused")
	assert.Equal(t, "[]", w.JSON)
}
