package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/flare-region-etl/internal/adapter/catalog"
	"github.com/couchcryptid/flare-region-etl/internal/adapter/flarecast"
	"github.com/couchcryptid/flare-region-etl/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/flare-region-etl/internal/adapter/kafka"
	"github.com/couchcryptid/flare-region-etl/internal/config"
	"github.com/couchcryptid/flare-region-etl/internal/domain"
	"github.com/couchcryptid/flare-region-etl/internal/observability"
	"github.com/couchcryptid/flare-region-etl/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	client := flarecast.NewClient(flarecast.Options{
		BaseURL:   cfg.FlarecastURL,
		Dataset:   cfg.FlarecastDataset,
		Timeout:   cfg.FlarecastTimeout,
		RateLimit: cfg.FlarecastRateLimit,
	}, metrics, logger)
	var fetcher domain.PropertyFetcher = client
	if cfg.FlarecastCacheSize > 0 {
		fetcher = flarecast.NewCachedFetcher(client, cfg.FlarecastCacheSize, metrics)
	}
	logger.Info("flarecast client configured",
		"url", cfg.FlarecastURL,
		"dataset", cfg.FlarecastDataset,
		"rate_limit", cfg.FlarecastRateLimit,
		"cache_size", cfg.FlarecastCacheSize,
	)

	enricher := pipeline.NewRegionEnricher(
		fetcher,
		domain.NewMatcher(cfg.MatchTolerance),
		domain.NewAssembler(cfg.SeriesLength(), nil),
		pipeline.EnricherConfig{
			Mode:               cfg.Mode,
			DataStart:          cfg.DataStart,
			WindowBefore:       cfg.MatchWindowBefore,
			WindowAfter:        cfg.MatchWindowAfter,
			SliceSize:          cfg.FetchSliceSize,
			PropertyType:       cfg.PropertyType,
			RegionNumberOffset: cfg.RegionNumberOffset,
		},
		metrics, logger,
	)

	loaders := []pipeline.BatchLoader{catalog.NewFileWriter(cfg.OutputPath, logger)}
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaSinkTopic, logger)
		loaders = append(loaders, writer)
		logger.Info("kafka sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaSinkTopic)
	}

	p := pipeline.New(catalog.NewReader(cfg.CatalogPath, logger), enricher, loaders, logger, metrics, pipeline.Options{
		EventTypes: cfg.EventTypes,
		Workers:    cfg.Workers,
	})

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	logger.Info("catalog run starting", "catalog", cfg.CatalogPath, "output", cfg.OutputPath, "mode", cfg.Mode)
	report, runErr := p.Run(ctx)
	if runErr != nil {
		logger.Error("pipeline error", "error", runErr)
	} else {
		logger.Info("catalog run complete",
			"selected", report.Selected,
			"matched", report.Matched(),
			"matched_number", report.MatchedByNumber,
			"matched_position", report.MatchedByPosition,
			"unmatched", report.Unmatched,
			"skipped", report.Skipped(),
		)
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
	if runErr != nil {
		stop()
		cancel()
		os.Exit(1)
	}
}
