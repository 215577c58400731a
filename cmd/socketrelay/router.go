package main

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ramory-l/socketrelay"
	"github.com/ramory-l/socketrelay/internal/config"
)

func newRouter(relay *socketrelay.Server, registry *prometheus.Registry, cfg *config.Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Handle(mountPath(cfg.Path)+"*", relay)
	r.Get("/healthz", healthHandler(relay))

	if cfg.Metrics {
		r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	return r
}

type health struct {
	Status    string `json:"status"`
	Sessions  int    `json:"sessions"`
	Connected int    `json:"connected"`
}

func healthHandler(relay *socketrelay.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(health{
			Status:    "ok",
			Sessions:  relay.SessionCount(),
			Connected: relay.ConnectedCount(),
		})
	}
}

// mountPath returns path with exactly one trailing slash.
func mountPath(path string) string {
	return strings.TrimRight(path, "/") + "/"
}
