package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/scimma/lsst-quality-filter/cmd/server"
	"github.com/scimma/lsst-quality-filter/internal/config"
	"github.com/scimma/lsst-quality-filter/internal/db"
	"github.com/scimma/lsst-quality-filter/internal/engine"
	applogger "github.com/scimma/lsst-quality-filter/internal/logger"
	"github.com/scimma/lsst-quality-filter/internal/manifest/filters"
	"github.com/scimma/lsst-quality-filter/internal/metrics"
	"github.com/scimma/lsst-quality-filter/internal/state"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (default $LSST_FILTER_CONFIG or ~/.lsst-filter/config.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := applogger.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("LSST transient quality filter - local harness")

	filter, err := engine.NewQualityFilter(filters.ScimmaQuality())
	if err != nil {
		logger.Fatal("Invalid filter manifest", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	filterMetrics := metrics.NewFilterMetrics(reg)

	opts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithMetrics(filterMetrics),
	}

	// Initialize storage
	var store state.LocusStore
	pgStore, err := db.NewPostgresStore(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Warn("Failed to connect to PostgreSQL, falling back to in-memory storage", zap.Error(err))
		store = state.NewMemoryStore()
	} else {
		logger.Info("Connected to PostgreSQL")
		store = pgStore
		opts = append(opts, engine.WithReportSink(pgStore))
		defer pgStore.Close()
	}

	runner := engine.NewRunner(filter, opts...)
	apiServer := server.NewAPIServer(store, runner, filterMetrics, reg, logger)

	go func() {
		if err := apiServer.Start(cfg.APIAddress); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("API server failed", zap.Error(err))
		}
	}()

	m := filter.Manifest()
	logger.Info("Filter ready",
		zap.String("filter", m.Name),
		zap.String("output_tag", m.OutputTag),
		zap.String("survey", m.TriggeringSurvey),
		zap.String("addr", cfg.APIAddress))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}
