package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	flag "github.com/spf13/pflag"

	"github.com/couchcryptid/weather-bom-service/internal/adapter/bom"
	httpadapter "github.com/couchcryptid/weather-bom-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/weather-bom-service/internal/adapter/kafka"
	"github.com/couchcryptid/weather-bom-service/internal/adapter/memory"
	"github.com/couchcryptid/weather-bom-service/internal/config"
	"github.com/couchcryptid/weather-bom-service/internal/domain"
	"github.com/couchcryptid/weather-bom-service/internal/fetch"
	"github.com/couchcryptid/weather-bom-service/internal/location"
	"github.com/couchcryptid/weather-bom-service/internal/observability"
	"github.com/couchcryptid/weather-bom-service/internal/pipeline"
	"github.com/couchcryptid/weather-bom-service/internal/scheduler"
)

// breakerOpenFor is how long the geocode breaker stays open before probing.
const breakerOpenFor = 5 * time.Minute

func main() {
	configFile := flag.String("config", "", "YAML file with default settings (overrides CONFIG_FILE)")
	envFile := flag.String("env-file", ".env", "dotenv file loaded before reading the environment")
	once := flag.Bool("once", false, "run a single cycle, print the published values and exit")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not load env file", "path", *envFile, "error", err)
	}
	if *configFile != "" {
		_ = os.Setenv("CONFIG_FILE", *configFile)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	logger.Info("configuration", "config", cfg)

	store := memory.NewStore()
	publishers := domain.Publishers{store}

	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publishers = append(publishers, writer)
		logger.Info("kafka sink enabled", "topic", cfg.KafkaSinkTopic)
	}

	client := bom.NewClient(cfg.BaseURL, fetch.New(cfg.FetchTimeout, logger), bom.DefaultLimits(), metrics, logger)

	var geocoder domain.Geocoder = client
	if cfg.GeocodeBreakerFailures > 0 {
		geocoder = location.NewBreakerGeocoder(geocoder, uint32(cfg.GeocodeBreakerFailures), breakerOpenFor, logger)
	}
	geocoder = location.NewCachedGeocoder(geocoder, cfg.GeocodeCacheSize, metrics)

	resolver := location.NewResolver(locationOptions(cfg), geocoder, publishers, metrics, logger)
	resolver.Announce()

	feeds := pipeline.Feeds{
		Observations: cfg.EnableObservations,
		Forecast:     cfg.EnableForecast,
		Warnings:     cfg.EnableWarnings,
	}
	p := pipeline.New(resolver, client, publishers, feeds, logger, metrics)
	sched := scheduler.New(p, publishers, scheduler.Intervals{Steady: cfg.PollInterval, Backoff: cfg.BackoffInterval},
		clockwork.NewRealClock(), logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *once {
		code := runOnce(ctx, sched, store)
		closeWriter(writer, logger)
		stop()
		os.Exit(code)
	}

	var updates chan domain.AxisUpdate
	if resolver.AcceptsUpdates() {
		updates = make(chan domain.AxisUpdate, 16)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, store, updates, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	var coords *kafkaadapter.CoordinateReader
	if cfg.KafkaEnabled && cfg.KafkaCoordinateTopic != "" && updates != nil {
		coords = kafkaadapter.NewCoordinateReader(cfg, logger)
		go func() {
			if err := coords.Run(ctx, updates); err != nil {
				logger.Error("coordinate reader error", "error", err)
			}
		}()
	}

	ticker, err := scheduler.NewTicker(cfg.TickInterval)
	if err != nil {
		logger.Error("failed to create ticker", "error", err)
		os.Exit(1)
	}
	ticker.Start()

	loop := scheduler.NewLoop(sched, resolver, updates, ticker.C(), logger)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := loop.Run(ctx); err != nil {
			logger.Error("control loop error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	ticker.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("cycle still running at shutdown deadline")
	}
	if coords != nil {
		if err := coords.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	closeWriter(writer, logger)

	logger.Info("shutdown complete")
}

func locationOptions(cfg *config.Config) location.Options {
	opts := location.Options{FixedCode: cfg.LocationCode, Dynamic: cfg.DynamicLocation}
	if cfg.HasStatic {
		opts.Static = &domain.Coordinate{Lat: float32(cfg.Latitude), Lon: float32(cfg.Longitude)}
	}
	return opts
}

// runOnce performs a single cycle and prints every published value.
func runOnce(ctx context.Context, sched *scheduler.Scheduler, store *memory.Store) int {
	sched.RequestUpdate(ctx)
	sched.Wait()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(store.Snapshot()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if err := sched.LastError(); err != nil {
		fmt.Fprintln(os.Stderr, "cycle failed:", err)
		return 1
	}
	return 0
}

func closeWriter(w *kafkaadapter.Writer, logger *slog.Logger) {
	if w == nil {
		return
	}
	if err := w.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}
}
