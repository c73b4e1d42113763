package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// healthCheckTimeout bounds each component check during a health request.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// Health check
	r.Get("/health", s.handleHealth)

	// Sensor reading endpoints
	r.Route("/sensor", func(r chi.Router) {
		r.Get("/latest", s.handleLatestReading)
		r.Get("/history", s.handleReadingHistory)
	})

	// Action history
	r.Get("/actions", s.handleListActions)

	// Realtime channel
	r.Get("/ws", s.handleWebSocket)

	return r
}

// handleHealth returns the server health status with per-component detail.
//
// The endpoint always answers 200; a degraded component is reported in the
// body so monitoring can distinguish "bridge up, broker down" from "bridge
// down".
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	components := make(map[string]string)
	status := "ok"

	check := func(name string, hc HealthChecker) {
		if hc == nil {
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		if err := hc.HealthCheck(ctx); err != nil {
			components[name] = err.Error()
			status = "degraded"
			return
		}
		components[name] = "ok"
	}

	check("database", s.database)
	check("mqtt", s.mqtt)

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     status,
		"version":    s.version,
		"components": components,
		"clients":    s.hub.ClientCount(),
	})
}
