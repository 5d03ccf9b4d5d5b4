// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/reelgraph/internal/middleware"
	"github.com/tomtom215/reelgraph/internal/models"
	syncpkg "github.com/tomtom215/reelgraph/internal/sync"
)

// AdminStatus is the body of GET /api/v1/admin/status.
type AdminStatus struct {
	Sync           syncpkg.Status             `json:"sync"`
	PendingChanges *int                       `json:"pending_changes,omitempty"`
	Endpoints      []middleware.EndpointStats `json:"endpoints,omitempty"`
}

// RebuildGraph handles POST /api/v1/admin/rebuild/graph.
func (h *Handler) RebuildGraph(w http.ResponseWriter, r *http.Request) {
	h.rebuild(w, r, syncpkg.IndexGraph, h.rebuilder.RebuildGraph)
}

// RebuildVector handles POST /api/v1/admin/rebuild/vector.
func (h *Handler) RebuildVector(w http.ResponseWriter, r *http.Request) {
	h.rebuild(w, r, syncpkg.IndexVector, h.rebuilder.RebuildVector)
}

// rebuild runs fn to completion even if the client disconnects. A rebuild
// already in progress is 409; a failed rebuild is 500 with its report.
func (h *Handler) rebuild(w http.ResponseWriter, r *http.Request, index string, fn func(context.Context) (syncpkg.IndexReport, error)) {
	start := time.Now()
	ctx := context.WithoutCancel(r.Context())
	if h.rebuildTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.rebuildTimeout)
		defer cancel()
	}

	logger := h.requestLogger(r)
	logger.Info().Str("index", index).Msg("Admin rebuild requested")

	report, err := fn(ctx)
	switch {
	case err == nil:
		respondData(w, http.StatusOK, report, start, models.Metadata{})
	case errors.Is(err, syncpkg.ErrRebuildInProgress):
		respondError(w, http.StatusConflict, &models.APIError{
			Code:    ErrCodeConflict,
			Message: err.Error(),
			Details: map[string]interface{}{"index": index},
		})
	default:
		logger.Error().Err(err).Str("index", index).Msg("Admin rebuild failed")
		respondError(w, http.StatusInternalServerError, &models.APIError{
			Code:    ErrCodeRebuildFailed,
			Message: index + " rebuild failed: " + err.Error(),
			Details: map[string]interface{}{"index": index, "report": report},
		})
	}
}

// AdminStatus handles GET /api/v1/admin/status: rebuild state, retry
// backlog and per-endpoint latency.
func (h *Handler) AdminStatus(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := AdminStatus{Sync: h.rebuilder.Status()}

	if h.pending != nil {
		n, err := h.pending.Len()
		if err != nil {
			logger := h.requestLogger(r)
			logger.Warn().Err(err).Msg("Failed to count pending changes")
		} else {
			status.PendingChanges = &n
		}
	}
	if h.perf != nil {
		status.Endpoints = h.perf.Stats()
	}
	respondData(w, http.StatusOK, status, start, models.Metadata{})
}
