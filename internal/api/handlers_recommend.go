// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/reelgraph/internal/models"
	"github.com/tomtom215/reelgraph/internal/recommend"
)

// respondRecommendation writes a strategy result. Degraded results are
// still 200 with an empty list.
func (h *Handler) respondRecommendation(w http.ResponseWriter, r *http.Request, start time.Time, res recommend.Result, err error) {
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, res.RecommendationList, start, models.Metadata{
		Count:    len(res.Movies),
		Strategy: res.Strategy,
		Degraded: res.Degraded,
	})
}

// RecommendCollaborative handles GET /api/v1/recommendations/users/{username}/collaborative.
// Movies watched by users who share a watched movie with username.
func (h *Handler) RecommendCollaborative(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	res, err := h.recommender.UserBased(r.Context(), chi.URLParam(r, "username"))
	h.respondRecommendation(w, r, start, res, err)
}

// RecommendFollows handles GET /api/v1/recommendations/users/{username}/follows.
func (h *Handler) RecommendFollows(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	res, err := h.recommender.FollowBased(r.Context(), chi.URLParam(r, "username"))
	h.respondRecommendation(w, r, start, res, err)
}

// RecommendMovieGraph handles GET /api/v1/recommendations/movies/{movieID}/graph.
func (h *Handler) RecommendMovieGraph(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	movieID, err := int64Param(r, "movieID")
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	res, err := h.recommender.ContentGraph(r.Context(), movieID)
	h.respondRecommendation(w, r, start, res, err)
}

// RecommendMovieSemantic handles GET /api/v1/recommendations/movies/{movieID}/semantic.
// ?genres=true restricts results to the source movie's leading genres.
func (h *Handler) RecommendMovieSemantic(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	movieID, err := int64Param(r, "movieID")
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	includeGenres, err := boolQuery(r, "genres")
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	res, err := h.recommender.ContentSemantic(r.Context(), movieID, includeGenres)
	h.respondRecommendation(w, r, start, res, err)
}

// SearchPlot handles GET /api/v1/search/plot?q=...
func (h *Handler) SearchPlot(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	res, err := h.recommender.SearchByPlot(r.Context(), r.URL.Query().Get("q"))
	h.respondRecommendation(w, r, start, res, err)
}
