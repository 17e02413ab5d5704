package server

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/scimma/lsst-quality-filter/internal/engine"
	"github.com/scimma/lsst-quality-filter/internal/metrics"
	"github.com/scimma/lsst-quality-filter/internal/state"
)

type APIServer struct {
	store    state.LocusStore
	runner   *engine.Runner
	metrics  *metrics.FilterMetrics
	gatherer prometheus.Gatherer
	logger   *zap.Logger
	router   *mux.Router
	server   *http.Server
}

// NewAPIServer wires the routes. m and gatherer may be nil, in which case
// request metrics and /metrics are disabled.
func NewAPIServer(store state.LocusStore, runner *engine.Runner, m *metrics.FilterMetrics, gatherer prometheus.Gatherer, logger *zap.Logger) *APIServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	api := &APIServer{
		store:    store,
		runner:   runner,
		metrics:  m,
		gatherer: gatherer,
		logger:   logger,
		router:   mux.NewRouter(),
	}
	api.registerRoutes()
	return api
}

func (api *APIServer) registerRoutes() {
	api.router.Use(api.loggingMiddleware)
	if api.metrics != nil {
		api.router.Use(api.metricsMiddleware)
	}

	// Filter
	api.router.HandleFunc("/api/v1/filter", api.handleManifest).Methods(http.MethodGet)
	api.router.HandleFunc("/api/v1/filter/run", api.handleRun).Methods(http.MethodPost)

	// Loci and tags
	api.router.HandleFunc("/api/v1/loci/{id}", api.handleLocus).Methods(http.MethodGet)
	api.router.HandleFunc("/api/v1/tags/{tag}/loci", api.handleTagLoci).Methods(http.MethodGet)

	// Reports
	api.router.HandleFunc("/api/v1/reports", api.handleReports).Methods(http.MethodGet)
	api.router.HandleFunc("/api/v1/stats", api.handleStats).Methods(http.MethodGet)

	// Health check
	api.router.HandleFunc("/health", api.handleHealth).Methods(http.MethodGet)
	api.router.HandleFunc("/ready", api.handleReady).Methods(http.MethodGet)

	if api.gatherer != nil {
		api.router.Handle("/metrics", promhttp.HandlerFor(api.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
}

func (api *APIServer) Handler() http.Handler {
	return api.corsMiddleware(api.router)
}

func (api *APIServer) Start(addr string) error {
	api.logger.Info("Starting API server", zap.String("addr", addr))
	api.server = &http.Server{
		Addr:    addr,
		Handler: api.Handler(),
	}
	return api.server.ListenAndServe()
}

func (api *APIServer) Shutdown(ctx context.Context) error {
	if api.server == nil {
		return nil
	}
	api.logger.Info("Shutting down API server")
	return api.server.Shutdown(ctx)
}
