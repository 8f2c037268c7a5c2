package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/loopi346/MAIT-Privacy-Vault/pkg/cedula"
	"github.com/loopi346/MAIT-Privacy-Vault/pkg/common/config"
	"github.com/loopi346/MAIT-Privacy-Vault/pkg/common/models"
	"github.com/loopi346/MAIT-Privacy-Vault/pkg/deid"
	"github.com/loopi346/MAIT-Privacy-Vault/pkg/gateway/middleware"
	"github.com/loopi346/MAIT-Privacy-Vault/pkg/observability/metrics"
)

type App struct {
	service   *deid.Service
	generator deid.Generator
	policy    cedula.Policy
	cfg       *config.Config
	started   time.Time
}

func (a *App) Router() http.Handler {
	router := mux.NewRouter()
	router.Use(middleware.Recovery, middleware.Logging, middleware.CORS)

	router.HandleFunc("/health", a.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/ready", a.handleReady).Methods(http.MethodGet)
	router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w)
	}).Methods(http.MethodGet)

	api := router.NewRoute().Subrouter()
	api.Use(middleware.RateLimit(a.cfg.RateLimitRPS, a.cfg.RateLimitBurst), middleware.BodyLimit(a.cfg.MaxRequestBody))
	deid.NewHTTPHandler(a.service, a.generator, a.policy, a.cfg.MaxRequestBody).Register(api)

	return router
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	db := "connected"
	if err := a.service.Ping(r.Context()); err != nil {
		db = "disconnected"
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(models.HealthResponse{
		HTTP:          "ok",
		DB:            db,
		UptimeSeconds: int64(time.Since(a.started).Seconds()),
	})
}

func (a *App) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := a.service.Ping(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"not ready"}`))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
