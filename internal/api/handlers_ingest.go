// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/reelgraph/internal/ingest"
	"github.com/tomtom215/reelgraph/internal/models"
)

// createdStatus is 201 for new resources and 200 for updates.
func createdStatus(created bool) int {
	if created {
		return http.StatusCreated
	}
	return http.StatusOK
}

// CreateUser handles POST /api/v1/users.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req CreateUserRequest
	if err := decodeJSON(r, w, &req); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	if !validateRequest(w, &req) {
		return
	}

	user, err := h.ingestor.RegisterUser(r.Context(), models.User{
		ID:        req.ID,
		Username:  req.Username,
		BirthDate: req.BirthDate,
	})
	var data interface{}
	if user != nil {
		data = user
	}
	h.respondWrite(w, r, http.StatusCreated, data, start, err)
}

// RecordWatch handles POST /api/v1/watch-history. Re-posting the same user
// and movie updates the rating and timestamp and answers 200.
func (h *Handler) RecordWatch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req WatchRequest
	if err := decodeJSON(r, w, &req); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	if !validateRequest(w, &req) {
		return
	}

	watchedAt := time.Now().UTC()
	if req.WatchedAt != nil && !req.WatchedAt.IsZero() {
		watchedAt = req.WatchedAt.UTC()
	}

	res, err := h.ingestor.RecordWatch(r.Context(), ingest.WatchRequest{
		Username:  req.Username,
		MovieID:   req.MovieID,
		Rating:    req.Rating,
		WatchedAt: watchedAt,
	})
	if res == nil {
		h.respondWrite(w, r, http.StatusOK, nil, start, err)
		return
	}
	h.respondWrite(w, r, createdStatus(res.Created), res, start, err)
}

// WatchHistory handles GET /api/v1/users/{username}/watch-history.
func (h *Handler) WatchHistory(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	history, err := h.ingestor.WatchHistory(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, history, start, models.Metadata{Count: len(history)})
}

// FollowPerson handles POST /api/v1/users/{username}/follows/{personID}.
func (h *Handler) FollowPerson(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	username := chi.URLParam(r, "username")
	personID, err := int64Param(r, "personID")
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	created, err := h.ingestor.Follow(r.Context(), username, personID)
	if err != nil && !models.IsQueued(err) {
		h.respondServiceError(w, r, err)
		return
	}
	resp := &FollowResponse{Username: username, PersonID: personID, Created: created}
	h.respondWrite(w, r, createdStatus(created), resp, start, err)
}

// AddMovieByIMDb handles POST /api/v1/movies/imdb. The body names an IMDb
// title id or URL; details come from the enrichment service.
func (h *Handler) AddMovieByIMDb(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req IMDbRequest
	if err := decodeJSON(r, w, &req); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	if !validateRequest(w, &req) {
		return
	}

	res, err := h.ingestor.AddMovieByIMDb(r.Context(), req.IMDb)
	if res == nil {
		h.respondWrite(w, r, http.StatusOK, nil, start, err)
		return
	}
	h.respondWrite(w, r, createdStatus(res.Created), res, start, err)
}
