package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Pipeline modes.
const (
	ModeMatch      = "match"
	ModeTimeSeries = "timeseries"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// FLARECAST property service.
	FlarecastURL       string
	FlarecastDataset   string
	FlarecastTimeout   time.Duration
	FlarecastRateLimit float64 // requests per second, 0 = unlimited
	FlarecastCacheSize int
	FetchSliceSize     time.Duration
	PropertyType       string

	// Matching.
	Mode               string
	MatchTolerance     float64
	MatchWindowBefore  time.Duration
	MatchWindowAfter   time.Duration
	RegionNumberOffset int
	SeriesHours        int
	EventTypes         []string
	DataStart          time.Time
	Workers            int

	// Input and output.
	CatalogPath    string
	OutputPath     string
	KafkaEnabled   bool
	KafkaBrokers   []string
	KafkaSinkTopic string
}

// SeriesLength is the number of hourly samples per time series.
func (c *Config) SeriesLength() int {
	return c.SeriesHours + 1
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	flarecastTimeout, err := parsePositiveDuration("FLARECAST_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	sliceSize, err := parsePositiveDuration("FETCH_SLICE_SIZE", "720h")
	if err != nil {
		return nil, err
	}
	windowBefore, err := parsePositiveDuration("MATCH_WINDOW_BEFORE", "60m")
	if err != nil {
		return nil, err
	}
	windowAfter, err := parsePositiveDuration("MATCH_WINDOW_AFTER", "5m")
	if err != nil {
		return nil, err
	}

	rateLimit, err := parseFloat("FLARECAST_RATE_LIMIT", "0")
	if err != nil || rateLimit < 0 {
		return nil, errors.New("invalid FLARECAST_RATE_LIMIT")
	}
	tolerance, err := parseFloat("MATCH_TOLERANCE", "15.0")
	if err != nil || tolerance <= 0 {
		return nil, errors.New("invalid MATCH_TOLERANCE")
	}

	cacheSize, err := parseInt("FLARECAST_CACHE_SIZE", "256")
	if err != nil || cacheSize < 0 {
		return nil, errors.New("invalid FLARECAST_CACHE_SIZE")
	}
	offset, err := parseInt("REGION_NUMBER_OFFSET", "10000")
	if err != nil || offset < 0 {
		return nil, errors.New("invalid REGION_NUMBER_OFFSET")
	}
	seriesHours, err := parseInt("SERIES_HOURS", "24")
	if err != nil || seriesHours < 0 {
		return nil, errors.New("invalid SERIES_HOURS")
	}
	workers, err := parseInt("WORKERS", "1")
	if err != nil || workers < 1 || workers > 64 {
		return nil, errors.New("invalid WORKERS: must be between 1 and 64")
	}

	dataStart, err := time.Parse(time.DateOnly, sharedcfg.EnvOrDefault("DATA_START", "2012-09-01"))
	if err != nil {
		return nil, fmt.Errorf("invalid DATA_START: %w", err)
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		FlarecastURL:       strings.TrimRight(sharedcfg.EnvOrDefault("FLARECAST_URL", "http://api.flarecast.eu/property"), "/"),
		FlarecastDataset:   sharedcfg.EnvOrDefault("FLARECAST_DATASET", "production_02"),
		FlarecastTimeout:   flarecastTimeout,
		FlarecastRateLimit: rateLimit,
		FlarecastCacheSize: cacheSize,
		FetchSliceSize:     sliceSize,
		PropertyType:       sharedcfg.EnvOrDefault("PROPERTY_TYPE", "*"),

		Mode:               strings.ToLower(sharedcfg.EnvOrDefault("PIPELINE_MODE", ModeTimeSeries)),
		MatchTolerance:     tolerance,
		MatchWindowBefore:  windowBefore,
		MatchWindowAfter:   windowAfter,
		RegionNumberOffset: offset,
		SeriesHours:        seriesHours,
		EventTypes:         parseList(sharedcfg.EnvOrDefault("EVENT_TYPES", "swpc,hessi")),
		DataStart:          dataStart,
		Workers:            workers,

		CatalogPath:    sharedcfg.EnvOrDefault("CATALOG_PATH", "helcats_list.json"),
		OutputPath:     sharedcfg.EnvOrDefault("OUTPUT_PATH", "helcats_list_flarecast.json"),
		KafkaEnabled:   os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:   sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic: sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "matched-solar-events"),
	}

	if cfg.Mode != ModeMatch && cfg.Mode != ModeTimeSeries {
		return nil, fmt.Errorf("invalid PIPELINE_MODE %q: must be %q or %q", cfg.Mode, ModeMatch, ModeTimeSeries)
	}
	if cfg.FlarecastURL == "" {
		return nil, errors.New("FLARECAST_URL is required")
	}
	if cfg.FlarecastDataset == "" {
		return nil, errors.New("FLARECAST_DATASET is required")
	}
	if cfg.CatalogPath == "" {
		return nil, errors.New("CATALOG_PATH is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required when KAFKA_ENABLED is true")
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseFloat(key, def string) (float64, error) {
	return strconv.ParseFloat(sharedcfg.EnvOrDefault(key, def), 64)
}

func parseInt(key, def string) (int, error) {
	return strconv.Atoi(sharedcfg.EnvOrDefault(key, def))
}

func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
