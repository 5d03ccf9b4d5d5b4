// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/tomtom215/reelgraph/docs" // registers the swagger document
	"github.com/tomtom215/reelgraph/internal/middleware"
	"github.com/tomtom215/reelgraph/internal/models"
)

// Router wires handlers and middleware into a chi.Router.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a Router. A nil mc uses DefaultChiMiddlewareConfig.
func NewRouter(handler *Handler, mc *ChiMiddlewareConfig) *Router {
	return &Router{
		handler:       handler,
		chiMiddleware: NewChiMiddleware(mc),
	}
}

// SetupChi builds the route tree.
func (router *Router) SetupChi() http.Handler {
	h := router.handler
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())
	r.Use(middleware.Metrics)
	if h.perf != nil {
		r.Use(h.perf.Middleware)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, &models.APIError{Code: ErrCodeNotFound, Message: "no route for " + r.URL.Path})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, &models.APIError{Code: ErrCodeMethodNotAllowed, Message: r.Method + " not allowed"})
	})

	r.Route("/health", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Get("/", h.Health)
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Use(chimiddleware.Compress(5, "application/json"))
		r.Use(router.chiMiddleware.RateLimit())

		r.Route("/recommendations", func(r chi.Router) {
			r.Get("/users/{username}/collaborative", h.RecommendCollaborative)
			r.Get("/users/{username}/follows", h.RecommendFollows)
			r.Get("/movies/{movieID}/graph", h.RecommendMovieGraph)
			r.Get("/movies/{movieID}/semantic", h.RecommendMovieSemantic)
		})
		r.Get("/search/plot", h.SearchPlot)
		r.Get("/users/{username}/watch-history", h.WatchHistory)

		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimitCustom(RateLimitWrite))
			r.Post("/users", h.CreateUser)
			r.Post("/users/{username}/follows/{personID}", h.FollowPerson)
			r.Post("/watch-history", h.RecordWatch)
			r.Post("/movies/imdb", h.AddMovieByIMDb)
		})

		if h.rebuilder != nil {
			r.Route("/admin", func(r chi.Router) {
				r.Get("/status", h.AdminStatus)
				r.With(router.chiMiddleware.RateLimitCustom(RateLimitAdmin)).Post("/rebuild/graph", h.RebuildGraph)
				r.With(router.chiMiddleware.RateLimitCustom(RateLimitAdmin)).Post("/rebuild/vector", h.RebuildVector)
			})
		}
	})

	return r
}
