package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/couchcryptid/weather-bom-service/internal/adapter/memory"
	"github.com/couchcryptid/weather-bom-service/internal/domain"
	"github.com/couchcryptid/weather-bom-service/internal/observability"
	"github.com/couchcryptid/weather-bom-service/internal/pipeline"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type staticCode struct {
	code string
	err  error
}

func (s staticCode) Code(context.Context) (string, error) {
	return s.code, s.err
}

type mockClient struct {
	calls []string

	obs    domain.Observations
	obsErr error
	fc     domain.Forecast
	fcErr  error
	warn   domain.Warnings
	warnFn func() (domain.Warnings, error)
}

func (m *mockClient) Observations(_ context.Context, code string) (domain.Observations, error) {
	m.calls = append(m.calls, domain.FeedObservations+":"+code)
	return m.obs, m.obsErr
}

func (m *mockClient) Forecast(_ context.Context, code string) (domain.Forecast, error) {
	m.calls = append(m.calls, domain.FeedForecast+":"+code)
	return m.fc, m.fcErr
}

func (m *mockClient) Warnings(_ context.Context, code string) (domain.Warnings, error) {
	m.calls = append(m.calls, domain.FeedWarnings+":"+code)
	if m.warnFn != nil {
		return m.warnFn()
	}
	return m.warn, nil
}

// orderingPublisher records the order values arrive relative to client calls.
type orderingPublisher struct {
	client *mockClient
	events []string
}

func (o *orderingPublisher) PublishNumber(name string, _ float64) {
	o.events = append(o.events, fmt.Sprintf("publish:%s@%d", name, len(o.client.calls)))
}

func (o *orderingPublisher) PublishText(name string, _ string) {
	o.events = append(o.events, fmt.Sprintf("publish:%s@%d", name, len(o.client.calls)))
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newPipeline(code pipeline.CodeSource, client pipeline.FeedClient, pub domain.Publisher, feeds pipeline.Feeds) *pipeline.Pipeline {
	return pipeline.New(code, client, pub, feeds, testLogger(), observability.NewMetricsForTesting())
}

func fullClient() *mockClient {
	return &mockClient{
		obs: domain.Observations{
			Temperature:  domain.Some(21.5),
			Humidity:     domain.Some(40.0),
			WindSpeedKmh: domain.Some(12.0),
		},
		fc: domain.Forecast{
			Today: domain.Some(domain.DayForecast{
				Min:     domain.Some(12.0),
				Max:     domain.Some(24.0),
				Summary: domain.Some("Sunny."),
			}),
			Tomorrow: domain.Some(domain.DayForecast{Max: domain.Some(22.0)}),
		},
		warn: domain.Warnings{JSON: `[{"id":"a"}]`, Count: 1},
	}
}

// --- tests ---

func TestPipeline_RunCycle_AllFeeds(t *testing.T) {
	client := fullClient()
	store := memory.NewStore()
	p := newPipeline(staticCode{code: "r3gx2f"}, client, store, pipeline.AllFeeds())

	require.NoError(t, p.RunCycle(context.Background()))
	require.NoError(t, p.CheckReadiness(context.Background()))

	want := []string{"observations:r3gx2f", "forecast:r3gx2f", "warnings:r3gx2f"}
	if diff := cmp.Diff(want, client.calls); diff != "" {
		t.Errorf("feed order mismatch (-want +got):\n%s", diff)
	}

	wantNames := []string{
		"humidity", "temperature",
		"today_max", "today_min", "today_summary",
		"tomorrow_max",
		"warnings_json", "wind_speed_kmh",
	}
	assert.Equal(t, wantNames, store.Names())
	w, _ := store.Text(domain.FieldWarnings)
	assert.Equal(t, `[{"id":"a"}]`, w)
}

func TestPipeline_RunCycle_PublishesBeforeNextFetch(t *testing.T) {
	client := fullClient()
	client.obs = domain.Observations{Temperature: domain.Some(1.0)}
	client.fc = domain.Forecast{Today: domain.Some(domain.DayForecast{Max: domain.Some(2.0)})}
	pub := &orderingPublisher{client: client}
	p := newPipeline(staticCode{code: "abc"}, client, pub, pipeline.AllFeeds())

	require.NoError(t, p.RunCycle(context.Background()))
	assert.Equal(t, []string{
		"publish:temperature@1",
		"publish:today_max@2",
		"publish:warnings_json@3",
	}, pub.events)
}

func TestPipeline_RunCycle_NoLocation(t *testing.T) {
	client := fullClient()
	store := memory.NewStore()
	p := newPipeline(staticCode{err: domain.ErrNoLocation}, client, store, pipeline.AllFeeds())

	err := p.RunCycle(context.Background())
	require.ErrorIs(t, err, domain.ErrNoLocation)
	assert.Empty(t, client.calls)
	assert.Zero(t, store.Writes())
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_RunCycle_PartialSuccess(t *testing.T) {
	client := fullClient()
	client.obsErr = fmt.Errorf("fetch: %w", domain.ErrTransport)
	client.fcErr = fmt.Errorf("fetch: %w", domain.ErrTooLarge)
	store := memory.NewStore()
	p := newPipeline(staticCode{code: "abc"}, client, store, pipeline.AllFeeds())

	require.NoError(t, p.RunCycle(context.Background()), "one good feed is a good cycle")
	assert.Len(t, client.calls, 3, "a failing feed does not stop the others")
	_, ok := store.Number(domain.FieldTemperature)
	assert.False(t, ok)
}

func TestPipeline_RunCycle_AllFail(t *testing.T) {
	client := fullClient()
	client.obsErr = domain.ErrTransport
	client.fcErr = domain.ErrTransport
	client.warnFn = func() (domain.Warnings, error) { return domain.Warnings{}, domain.ErrTransport }
	store := memory.NewStore()
	p := newPipeline(staticCode{code: "abc"}, client, store, pipeline.AllFeeds())

	err := p.RunCycle(context.Background())
	require.ErrorIs(t, err, pipeline.ErrCycleFailed)
	require.ErrorIs(t, err, domain.ErrTransport)
	assert.Zero(t, store.Writes(), "transport failures publish nothing")
}

func TestPipeline_RunCycle_AbsentFieldsKeepPreviousValues(t *testing.T) {
	client := fullClient()
	store := memory.NewStore()
	p := newPipeline(staticCode{code: "abc"}, client, store, pipeline.Feeds{Observations: true})

	require.NoError(t, p.RunCycle(context.Background()))
	client.obs = domain.Observations{}
	require.NoError(t, p.RunCycle(context.Background()))

	v, ok := store.Number(domain.FieldTemperature)
	require.True(t, ok)
	assert.Equal(t, 21.5, v)
}

func TestPipeline_RunCycle_DisabledFeeds(t *testing.T) {
	client := fullClient()
	p := newPipeline(staticCode{code: "abc"}, client, memory.NewStore(), pipeline.Feeds{Forecast: true})

	require.NoError(t, p.RunCycle(context.Background()))
	assert.Equal(t, []string{"forecast:abc"}, client.calls)
}

func TestPipeline_Warnings_ParseFailurePublishesEmptyArray(t *testing.T) {
	for _, failure := range []error{domain.ErrParse, domain.ErrEmpty} {
		t.Run(failure.Error(), func(t *testing.T) {
			client := fullClient()
			client.warnFn = func() (domain.Warnings, error) { return domain.Warnings{}, failure }
			store := memory.NewStore()
			store.PublishText(domain.FieldWarnings, `[{"id":"old"}]`)
			p := newPipeline(staticCode{code: "abc"}, client, store, pipeline.Feeds{Warnings: true})

			err := p.RunCycle(context.Background())
			require.ErrorIs(t, err, pipeline.ErrCycleFailed)
			w, _ := store.Text(domain.FieldWarnings)
			assert.Equal(t, "[]", w)
			assert.False(t, p.Quota().Skipping(), "failures leave the quota alone")
		})
	}
}

func TestPipeline_Warnings_TransportFailureKeepsLastValue(t *testing.T) {
	client := fullClient()
	client.warnFn = func() (domain.Warnings, error) { return domain.Warnings{}, domain.ErrTransport }
	store := memory.NewStore()
	store.PublishText(domain.FieldWarnings, `[{"id":"old"}]`)
	p := newPipeline(staticCode{code: "abc"}, client, store, pipeline.Feeds{Warnings: true})

	_ = p.RunCycle(context.Background())
	w, _ := store.Text(domain.FieldWarnings)
	assert.Equal(t, `[{"id":"old"}]`, w)
}

func TestPipeline_Warnings_QuotaSkipsAfterEmptyList(t *testing.T) {
	client := fullClient()
	client.warn = domain.Warnings{JSON: "[]", Count: 0}
	p := newPipeline(staticCode{code: "abc"}, client, memory.NewStore(), pipeline.Feeds{Warnings: true})

	fetches := func() int {
		n := 0
		for _, c := range client.calls {
			if c == "warnings:abc" {
				n++
			}
		}
		return n
	}

	require.NoError(t, p.RunCycle(context.Background()))
	assert.Equal(t, 1, fetches())
	assert.True(t, p.Quota().Skipping())

	for i := 1; i <= pipeline.SkipBudget; i++ {
		require.NoError(t, p.RunCycle(context.Background()), "a cycle with nothing attempted is not a failure")
		assert.Equal(t, 1, fetches(), "cycle %d skipped", i)
	}
	assert.False(t, p.Quota().Skipping())
	assert.Zero(t, p.Quota().Skipped())

	client.warn = domain.Warnings{JSON: `[{"id":"a"}]`, Count: 1}
	require.NoError(t, p.RunCycle(context.Background()))
	assert.Equal(t, 2, fetches())
	assert.False(t, p.Quota().Skipping(), "a non-empty list keeps the feed active")
}

func TestPipeline_ErrCycleFailedIsDistinct(t *testing.T) {
	assert.False(t, errors.Is(pipeline.ErrCycleFailed, domain.ErrNoLocation))
}
