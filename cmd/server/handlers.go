package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/scimma/lsst-quality-filter/internal/db"
	"github.com/scimma/lsst-quality-filter/internal/engine"
	"github.com/scimma/lsst-quality-filter/internal/formatting"
	"github.com/scimma/lsst-quality-filter/internal/properties"
	"github.com/scimma/lsst-quality-filter/internal/types"
)

const maxBodyBytes = 4 << 20

// GET /api/v1/filter
func (api *APIServer) handleManifest(w http.ResponseWriter, r *http.Request) {
	api.respondJSON(w, http.StatusOK, api.runner.Filter().Manifest())
}

// POST /api/v1/filter/run
// Body: {"locus_id": "ANT...", "ra": 1.0, "dec": 2.0, "alerts": [{"alert_id": "...", "mjd": 61000.5, "properties": {...}}]}
func (api *APIServer) handleRun(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var locus types.Locus
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&locus); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if locus.ID == "" {
		http.Error(w, "locus_id is required", http.StatusBadRequest)
		return
	}

	report, runErr := api.runner.Run(r.Context(), &locus)

	if err := api.store.Record(locus); err != nil {
		api.logger.Error("Failed to record locus", zap.String("locus_id", locus.ID), zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if runErr != nil {
		status := http.StatusInternalServerError
		if isValidationError(runErr) {
			status = http.StatusUnprocessableEntity
		}
		api.respondJSON(w, status, report)
		return
	}

	for _, tag := range report.NewTags {
		if err := api.store.Tag(locus.ID, tag); err != nil {
			api.logger.Error("Failed to tag locus", zap.String("locus_id", locus.ID), zap.String("tag", tag), zap.Error(err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	api.respondJSON(w, http.StatusOK, map[string]interface{}{
		"report":  report,
		"verdict": formatting.VerdictLine(report),
	})
}

func isValidationError(err error) bool {
	return errors.Is(err, properties.ErrMissingField) ||
		errors.Is(err, properties.ErrTypeMismatch) ||
		errors.Is(err, types.ErrNoAlerts)
}

// GET /api/v1/loci/{id}
func (api *APIServer) handleLocus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	locus, ok := api.store.Get(id)
	if !ok {
		http.Error(w, "Locus not found", http.StatusNotFound)
		return
	}
	api.respondJSON(w, http.StatusOK, locus)
}

// GET /api/v1/tags/{tag}/loci
func (api *APIServer) handleTagLoci(w http.ResponseWriter, r *http.Request) {
	tag := mux.Vars(r)["tag"]

	loci := api.store.ListByTag(tag)
	api.respondJSON(w, http.StatusOK, map[string]interface{}{
		"tag":   tag,
		"loci":  loci,
		"count": len(loci),
	})
}

// GET /api/v1/reports?check=pixel_edge&limit=50
func (api *APIServer) handleReports(w http.ResponseWriter, r *http.Request) {
	check := engine.Check(r.URL.Query().Get("check"))
	limit := 100
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	var reports []engine.Report
	if pgStore, ok := api.store.(*db.PostgresStore); ok {
		dbReports, err := pgStore.GetReports(r.Context(), check, limit)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		reports = dbReports
	} else {
		reports = api.runner.RecentReports(check, limit)
	}

	api.respondJSON(w, http.StatusOK, reports)
}

// GET /api/v1/stats
func (api *APIServer) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := api.runner.GetEvaluationStats()
	stats["tagged_loci"] = len(api.store.ListByTag(api.runner.Filter().OutputTag()))
	stats["recent"] = formatting.GenerateSummary(api.runner.RecentReports(engine.CheckNone, 100))
	api.respondJSON(w, http.StatusOK, stats)
}

// GET /health
func (api *APIServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status": "healthy",
		"time":   time.Now(),
	}
	status := http.StatusOK

	if pgStore, ok := api.store.(*db.PostgresStore); ok {
		if err := pgStore.Ping(); err != nil {
			health["status"] = "unhealthy"
			health["database"] = "disconnected"
			status = http.StatusServiceUnavailable
		} else {
			health["database"] = "connected"
		}
	}

	api.respondJSON(w, status, health)
}

// GET /ready
func (api *APIServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ready := map[string]interface{}{
		"ready":  true,
		"filter": api.runner.Filter().Manifest().Name,
	}
	api.respondJSON(w, http.StatusOK, ready)
}

func (api *APIServer) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		api.logger.Warn("Failed to encode response", zap.Error(err))
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (api *APIServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		api.logger.Info("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote", r.RemoteAddr),
			zap.Int("status", rw.statusCode),
			zap.Duration("duration", time.Since(start)))
	})
}

func (api *APIServer) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				path = tpl
			}
		}
		api.metrics.HTTPRequests.WithLabelValues(r.Method, path, strconv.Itoa(rw.statusCode)).Inc()
		api.metrics.HTTPRequestTime.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func (api *APIServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

