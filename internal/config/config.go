package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"gopkg.in/yaml.v3"
)

// Config holds all service settings. Values come from environment
// variables, falling back to an optional YAML file named by CONFIG_FILE,
// then to built-in defaults.
type Config struct {
	BaseURL string

	// Location: exactly one of LocationCode, Latitude/Longitude or
	// DynamicLocation.
	LocationCode    string
	Latitude        float64
	Longitude       float64
	HasStatic       bool
	DynamicLocation bool

	EnableObservations bool
	EnableForecast     bool
	EnableWarnings     bool

	PollInterval    time.Duration
	BackoffInterval time.Duration
	TickInterval    time.Duration
	FetchTimeout    time.Duration

	GeocodeCacheSize       int
	GeocodeBreakerFailures int

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	KafkaEnabled         bool
	KafkaBrokers         []string
	KafkaSinkTopic       string
	KafkaCoordinateTopic string
	KafkaGroupID         string
}

// source resolves one setting: environment first, then the file, then the
// default.
type source map[string]string

func (s source) get(key, def string) string {
	if v, ok := s[strings.ToLower(key)]; ok && v != "" {
		def = v
	}
	return sharedcfg.EnvOrDefault(key, def)
}

// Load reads configuration, applying defaults where unset.
func Load() (*Config, error) {
	src, err := readFile(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return nil, err
	}

	shutdownTimeout, err := parseShutdownTimeout(src)
	if err != nil {
		return nil, err
	}

	var p parser
	cfg := &Config{
		BaseURL:      src.get("BOM_BASE_URL", "https://api.weather.bom.gov.au/v1"),
		LocationCode: strings.TrimSpace(src.get("BOM_LOCATION_CODE", "")),

		DynamicLocation:    p.boolean("BOM_DYNAMIC_LOCATION", src.get("BOM_DYNAMIC_LOCATION", "false")),
		EnableObservations: p.boolean("ENABLE_OBSERVATIONS", src.get("ENABLE_OBSERVATIONS", "true")),
		EnableForecast:     p.boolean("ENABLE_FORECAST", src.get("ENABLE_FORECAST", "true")),
		EnableWarnings:     p.boolean("ENABLE_WARNINGS", src.get("ENABLE_WARNINGS", "true")),

		PollInterval:    p.duration("POLL_INTERVAL", src.get("POLL_INTERVAL", "900s")),
		BackoffInterval: p.duration("BACKOFF_INTERVAL", src.get("BACKOFF_INTERVAL", "60s")),
		TickInterval:    p.duration("TICK_INTERVAL", src.get("TICK_INTERVAL", "30s")),
		FetchTimeout:    p.duration("FETCH_TIMEOUT", src.get("FETCH_TIMEOUT", "5s")),

		GeocodeCacheSize:       p.integer("GEOCODE_CACHE_SIZE", src.get("GEOCODE_CACHE_SIZE", "64")),
		GeocodeBreakerFailures: p.integer("GEOCODE_BREAKER_FAILURES", src.get("GEOCODE_BREAKER_FAILURES", "3")),

		HTTPAddr:        src.get("HTTP_ADDR", ":8080"),
		LogLevel:        src.get("LOG_LEVEL", "info"),
		LogFormat:       src.get("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		KafkaEnabled:         p.boolean("KAFKA_ENABLED", src.get("KAFKA_ENABLED", "false")),
		KafkaBrokers:         sharedcfg.ParseBrokers(src.get("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic:       src.get("KAFKA_SINK_TOPIC", "weather-bom-readings"),
		KafkaCoordinateTopic: src.get("KAFKA_COORDINATE_TOPIC", ""),
		KafkaGroupID:         src.get("KAFKA_GROUP_ID", "weather-bom"),
	}

	lat, lon := src.get("BOM_LATITUDE", ""), src.get("BOM_LONGITUDE", "")
	if (lat == "") != (lon == "") {
		return nil, errors.New("BOM_LATITUDE and BOM_LONGITUDE must be set together")
	}
	if lat != "" {
		cfg.Latitude = p.float("BOM_LATITUDE", lat)
		cfg.Longitude = p.float("BOM_LONGITUDE", lon)
		cfg.HasStatic = true
	}

	if p.err != nil {
		return nil, p.err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	methods := 0
	if c.LocationCode != "" {
		methods++
	}
	if c.HasStatic {
		methods++
	}
	if c.DynamicLocation {
		methods++
	}
	switch {
	case methods == 0:
		return errors.New("one of BOM_LOCATION_CODE, BOM_LATITUDE/BOM_LONGITUDE or BOM_DYNAMIC_LOCATION is required")
	case methods > 1:
		return errors.New("only one of BOM_LOCATION_CODE, BOM_LATITUDE/BOM_LONGITUDE or BOM_DYNAMIC_LOCATION may be set")
	}
	if c.HasStatic {
		if c.Latitude < -90 || c.Latitude > 90 {
			return fmt.Errorf("BOM_LATITUDE must be between -90 and 90, got %g", c.Latitude)
		}
		if c.Longitude < -180 || c.Longitude > 180 {
			return fmt.Errorf("BOM_LONGITUDE must be between -180 and 180, got %g", c.Longitude)
		}
	}
	if !c.EnableObservations && !c.EnableForecast && !c.EnableWarnings {
		return errors.New("at least one feed must be enabled")
	}
	if c.BaseURL == "" {
		return errors.New("BOM_BASE_URL is required")
	}
	if c.PollInterval <= 0 || c.BackoffInterval <= 0 || c.TickInterval <= 0 {
		return errors.New("POLL_INTERVAL, BACKOFF_INTERVAL and TICK_INTERVAL must be positive")
	}
	if c.BackoffInterval > c.PollInterval {
		return errors.New("BACKOFF_INTERVAL must not exceed POLL_INTERVAL")
	}
	if c.FetchTimeout < time.Second || c.FetchTimeout > 9*time.Second {
		return fmt.Errorf("FETCH_TIMEOUT must be between 1s and 9s, got %s", c.FetchTimeout)
	}
	if c.GeocodeCacheSize <= 0 {
		return errors.New("GEOCODE_CACHE_SIZE must be positive")
	}
	if c.GeocodeBreakerFailures < 0 {
		return errors.New("GEOCODE_BREAKER_FAILURES must not be negative")
	}
	if c.KafkaEnabled {
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required")
		}
		if c.KafkaSinkTopic == "" {
			return errors.New("KAFKA_SINK_TOPIC is required")
		}
		if c.KafkaCoordinateTopic != "" && !c.DynamicLocation {
			return errors.New("KAFKA_COORDINATE_TOPIC requires BOM_DYNAMIC_LOCATION")
		}
	}
	return nil
}

// LogValue renders the effective configuration for the start-up log line.
func (c *Config) LogValue() slog.Value {
	location := "dynamic"
	switch {
	case c.LocationCode != "":
		location = "code " + c.LocationCode
	case c.HasStatic:
		location = fmt.Sprintf("static %.6f,%.6f", c.Latitude, c.Longitude)
	}
	return slog.GroupValue(
		slog.String("base_url", c.BaseURL),
		slog.String("location", location),
		slog.Bool("observations", c.EnableObservations),
		slog.Bool("forecast", c.EnableForecast),
		slog.Bool("warnings", c.EnableWarnings),
		slog.Duration("poll_interval", c.PollInterval),
		slog.Duration("backoff_interval", c.BackoffInterval),
		slog.Duration("tick_interval", c.TickInterval),
		slog.Duration("fetch_timeout", c.FetchTimeout),
		slog.Bool("kafka", c.KafkaEnabled),
	)
}

func readFile(path string) (source, error) {
	if path == "" {
		return source{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	raw := map[string]string{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	src := make(source, len(raw))
	for k, v := range raw {
		src[strings.ToLower(k)] = v
	}
	return src, nil
}

func parseShutdownTimeout(src source) (time.Duration, error) {
	if os.Getenv("SHUTDOWN_TIMEOUT") == "" {
		if v, ok := src["shutdown_timeout"]; ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil || d <= 0 {
				return 0, errors.New("invalid shutdown_timeout in config file")
			}
			return d, nil
		}
	}
	return sharedcfg.ParseShutdownTimeout()
}

// parser keeps the first conversion error so Load can report it once.
type parser struct {
	err error
}

func (p *parser) fail(key, value string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
}

func (p *parser) boolean(key, value string) bool {
	b, err := strconv.ParseBool(value)
	if err != nil {
		p.fail(key, value, err)
	}
	return b
}

func (p *parser) duration(key, value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		p.fail(key, value, err)
	}
	return d
}

func (p *parser) integer(key, value string) int {
	n, err := strconv.Atoi(value)
	if err != nil {
		p.fail(key, value, err)
	}
	return n
}

func (p *parser) float(key, value string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err == nil && (math.IsNaN(f) || math.IsInf(f, 0)) {
		err = errors.New("not a finite number")
	}
	if err != nil {
		p.fail(key, value, err)
	}
	return f
}
