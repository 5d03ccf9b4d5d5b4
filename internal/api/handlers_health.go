// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/tomtom215/reelgraph/internal/logging"
	"github.com/tomtom215/reelgraph/internal/models"
)

// ComponentHealth is the result of one health check.
type ComponentHealth struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthStatus is the body of the health endpoints.
type HealthStatus struct {
	Status     string                     `json:"status"`
	Uptime     float64                    `json:"uptime_seconds"`
	Components map[string]ComponentHealth `json:"components,omitempty"`
}

const (
	healthHealthy  = "healthy"
	healthDegraded = "degraded"
)

// Health handles GET /health. It always answers 200 and reports failing
// components as degraded.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	respondData(w, http.StatusOK, h.checkHealth(r.Context()), start, models.Metadata{})
}

// HealthLive handles GET /health/live.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	start := time.Now()
	respondData(w, http.StatusOK, HealthStatus{
		Status: healthHealthy,
		Uptime: time.Since(h.startTime).Seconds(),
	}, start, models.Metadata{})
}

// HealthReady handles GET /health/ready. It answers 503 while any
// component check fails.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	health := h.checkHealth(r.Context())
	if health.Status != healthHealthy {
		respondError(w, http.StatusServiceUnavailable, &models.APIError{
			Code:    ErrCodeUnavailable,
			Message: "one or more components are unavailable",
			Details: map[string]interface{}{"components": health.Components},
		})
		return
	}
	respondData(w, http.StatusOK, health, start, models.Metadata{})
}

func (h *Handler) checkHealth(ctx context.Context) HealthStatus {
	health := HealthStatus{
		Status:     healthHealthy,
		Uptime:     time.Since(h.startTime).Seconds(),
		Components: make(map[string]ComponentHealth, len(h.checks)),
	}

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, h.healthTimeout)
		err := h.checks[name](checkCtx)
		cancel()

		if err != nil {
			health.Status = healthDegraded
			health.Components[name] = ComponentHealth{Status: healthDegraded, Error: err.Error()}
			logger := logging.FromContext(ctx, h.logger)
			logger.Warn().Err(err).Str("component", name).Msg("Health check failed")
			continue
		}
		health.Components[name] = ComponentHealth{Status: healthHealthy}
	}
	return health
}
