// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

package models

import (
	"time"
)

// APIResponse is the envelope used by every HTTP endpoint.
//
// Status field values:
//   - "success": Request completed successfully, see Data field
//   - "accepted": Write stored, index projection queued for retry
//   - "error": Request failed, see Error field for details
//
// Example successful response:
//
//	{
//	  "status": "success",
//	  "data": {"movies": [...], "genres": ["Action", "Drama"]},
//	  "metadata": {"timestamp": "2026-03-01T12:00:00Z", "query_time_ms": 12}
//	}
//
// Example error response:
//
//	{
//	  "status": "error",
//	  "error": {"code": "NOT_FOUND", "message": "movie 42 not found"},
//	  "metadata": {"timestamp": "2026-03-01T12:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response timing information.
//
// Fields:
//   - Timestamp: Server time when the response was generated
//   - QueryTimeMS: Time spent in the handler in milliseconds
//   - Count: Number of items in Data when it is a list (omitted otherwise)
//   - Strategy: Recommendation strategy that produced Data
//   - Degraded: An index failed or timed out and Data is an empty fallback
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	Count       int       `json:"count,omitempty"`
	Strategy    string    `json:"strategy,omitempty"`
	Degraded    bool      `json:"degraded,omitempty"`
}

// APIError is the structured error body.
//
// Error codes:
//   - VALIDATION_ERROR: Invalid input parameters
//   - NOT_FOUND: Referenced user, movie or person does not exist
//   - CONFLICT: Resource already exists or a rebuild is already running
//   - DEPENDENCY_ERROR: Graph, vector, embedding or enrichment service failed
//   - INTERNAL_ERROR: Programmer contract violation or unexpected failure
//   - RATE_LIMIT_EXCEEDED: Too many requests
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
