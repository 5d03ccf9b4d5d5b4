// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/reelgraph/internal/models"
	syncpkg "github.com/tomtom215/reelgraph/internal/sync"
)

// Error codes carried in models.APIError.Code.
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeConflict         = "CONFLICT"
	ErrCodeDependency       = "DEPENDENCY_ERROR"
	ErrCodeInternal         = "INTERNAL_ERROR"
	ErrCodeRateLimit        = "RATE_LIMIT_EXCEEDED"
	ErrCodeRebuildFailed    = "REBUILD_FAILED"
	ErrCodeUnavailable      = "SERVICE_UNAVAILABLE"
	ErrCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
)

// Response status values.
const (
	statusSuccess  = "success"
	statusAccepted = "accepted"
	statusError    = "error"
)

// classifyError maps a service error to an HTTP status and error body.
// Queued dependency errors are not errors to the client and are handled
// before this is called.
func classifyError(err error) (int, *models.APIError) {
	var (
		validation *models.ValidationError
		notFound   *models.NotFoundError
		dependency *models.DependencyError
	)

	switch {
	case errors.As(err, &validation):
		details := map[string]interface{}{}
		if validation.Field != "" {
			details["field"] = validation.Field
		}
		return http.StatusBadRequest, &models.APIError{Code: ErrCodeValidation, Message: validation.Error(), Details: details}
	case errors.As(err, &notFound):
		return http.StatusNotFound, &models.APIError{Code: ErrCodeNotFound, Message: notFound.Error()}
	case models.IsConflict(err), errors.Is(err, syncpkg.ErrRebuildInProgress):
		return http.StatusConflict, &models.APIError{Code: ErrCodeConflict, Message: err.Error()}
	case errors.As(err, &dependency):
		return http.StatusServiceUnavailable, &models.APIError{
			Code:    ErrCodeDependency,
			Message: dependency.Error(),
			Details: map[string]interface{}{"dependency": dependency.Dependency},
		}
	}
	return http.StatusInternalServerError, &models.APIError{Code: ErrCodeInternal, Message: "internal error"}
}
