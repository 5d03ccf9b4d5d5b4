// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

/*
Package api provides the HTTP surface of reelgraph using the Chi router.

Every endpoint answers with the models.APIResponse envelope:

	{"status": "success", "data": {...}, "metadata": {"timestamp": "...", "query_time_ms": 3}}

Endpoints:

	GET  /health                                               liveness and component checks
	GET  /metrics                                              Prometheus exposition
	GET  /swagger/index.html                                   Swagger UI over /swagger/doc.json
	GET  /api/v1/recommendations/users/{username}/collaborative
	GET  /api/v1/recommendations/users/{username}/follows
	GET  /api/v1/recommendations/movies/{movieID}/graph
	GET  /api/v1/recommendations/movies/{movieID}/semantic     ?genres=true adds the genre filter
	GET  /api/v1/search/plot                                   ?q=<plot text>
	POST /api/v1/users
	GET  /api/v1/users/{username}/watch-history
	POST /api/v1/users/{username}/follows/{personID}
	POST /api/v1/watch-history
	POST /api/v1/movies/imdb
	GET  /api/v1/admin/status
	POST /api/v1/admin/rebuild/graph
	POST /api/v1/admin/rebuild/vector

Recommendation endpoints always answer 200. When an index fails or times
out the list is empty and metadata.degraded is true.

Error Mapping:

Service errors map to HTTP statuses in one place (respondServiceError):

  - models.ValidationError and malformed bodies: 400 VALIDATION_ERROR
  - models.NotFoundError: 404 NOT_FOUND
  - models.ConflictError, sync.ErrRebuildInProgress: 409 CONFLICT
  - queued models.DependencyError: 202 with status "accepted" and the stored data
  - other models.DependencyError: 503 DEPENDENCY_ERROR
  - anything else: 500 INTERNAL_ERROR

Middleware Stack:

Applied to all routes, outermost first: request id, real IP, panic
recovery, CORS, request metrics, performance monitor. API routes add
security headers and per-IP rate limiting through go-chi/httprate, with
a stricter limiter on write and admin routes.
*/
package api
