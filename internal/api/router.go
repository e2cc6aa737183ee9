// Redis Backup Service - Scheduled Redis Snapshots, Retention and Restore
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/redisbackup

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/redisbackup/internal/middleware"
)

// Router wires handlers and middleware.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
	recorder      middleware.RequestRecorder
	gatherer      prometheus.Gatherer
}

// NewRouter creates a router. recorder receives request metrics and gatherer
// backs /metrics.
func NewRouter(handler *Handler, chiMW *ChiMiddleware, recorder middleware.RequestRecorder, gatherer prometheus.Gatherer) *Router {
	if chiMW == nil {
		chiMW = NewChiMiddleware(nil)
	}
	return &Router{
		handler:       handler,
		chiMiddleware: chiMW,
		recorder:      recorder,
		gatherer:      gatherer,
	}
}

// Setup returns the complete HTTP handler.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())
	if router.recorder != nil {
		r.Use(middleware.PrometheusMetrics(router.recorder))
	}
	r.Use(middleware.AccessLog)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		respondError(w, req, http.StatusNotFound, &APIError{Code: "NOT_FOUND", Message: "route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		respondError(w, req, http.StatusMethodNotAllowed, &APIError{Code: "METHOD_NOT_ALLOWED", Message: "method not allowed"})
	})

	r.Get("/", router.handler.Root)
	r.Get("/health", router.handler.Health)
	if router.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(router.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitByIP())

		r.Post("/backup/trigger", router.handler.TriggerBackup)
		r.Get("/backup/status/{task_id}", router.handler.BackupStatus)
		r.Get("/backups", router.handler.ListBackups)
		r.Post("/backups/{id}/important", router.handler.MarkImportant)
		r.Post("/restore", router.handler.Restore)
		r.Get("/restore/status/{task_id}", router.handler.RestoreStatus)
	})

	return r
}
