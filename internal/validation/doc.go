// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

// Package validation provides struct validation using go-playground/validator v10.
//
// The package wraps a singleton validator configured with
// WithRequiredStructEnabled, reports fields by their JSON names, and
// translates failures into the VALIDATION_ERROR body used by the API.
//
// # Quick Start
//
//	type watchRequest struct {
//	    Username string   `json:"username" validate:"required,max=150"`
//	    MovieID  int64    `json:"movie_id" validate:"required,gt=0"`
//	    Rating   *float64 `json:"rating" validate:"omitempty,gte=0,lte=5,halfstep"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    respondError(w, http.StatusBadRequest, verr.ToAPIError())
//	    return
//	}
//
// # Custom Validators
//
//   - halfstep: numeric value is a multiple of 0.5 (ratings)
//   - imdbref: an IMDb title id ("tt0133093") or a URL containing one
//
// # Thread Safety
//
// GetValidator and ValidateStruct are safe for concurrent use. The
// validator caches struct metadata after the first call per type.
package validation
