// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/reelgraph/internal/logging"
	"github.com/tomtom215/reelgraph/internal/models"
	"github.com/tomtom215/reelgraph/internal/validation"
)

const maxRequestBodySize = 1 << 20

// respondJSON writes response with status.
func respondJSON(w http.ResponseWriter, status int, response *models.APIResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondData writes a success envelope. meta.Timestamp and QueryTimeMS
// are filled in from start.
func respondData(w http.ResponseWriter, status int, data interface{}, start time.Time, meta models.Metadata) {
	meta.Timestamp = time.Now()
	meta.QueryTimeMS = time.Since(start).Milliseconds()
	respondJSON(w, status, &models.APIResponse{
		Status:   statusSuccess,
		Data:     data,
		Metadata: meta,
	})
}

// respondError writes an error envelope.
func respondError(w http.ResponseWriter, status int, apiErr *models.APIError) {
	respondJSON(w, status, &models.APIResponse{
		Status:   statusError,
		Metadata: models.Metadata{Timestamp: time.Now()},
		Error:    apiErr,
	})
}

// respondWrite finishes a write endpoint. A nil err answers status with
// data. A queued dependency error means the catalog write committed and the
// index projection waits for retry, so the client gets 202 with data.
// Anything else goes through respondServiceError.
func (h *Handler) respondWrite(w http.ResponseWriter, r *http.Request, status int, data interface{}, start time.Time, err error) {
	switch {
	case err == nil:
		respondData(w, status, data, start, models.Metadata{})
	case models.IsQueued(err) && data != nil:
		respondJSON(w, http.StatusAccepted, &models.APIResponse{
			Status: statusAccepted,
			Data:   data,
			Metadata: models.Metadata{
				Timestamp:   time.Now(),
				QueryTimeMS: time.Since(start).Milliseconds(),
			},
		})
	default:
		h.respondServiceError(w, r, err)
	}
}

// respondServiceError maps err to its status and logs server-side failures.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, apiErr := classifyError(err)
	if status >= http.StatusInternalServerError {
		logger := logging.FromContext(r.Context(), h.logger)
		logger.Error().
			Err(err).
			Str("method", r.Method).
			Str("path", sanitizeLogValue(r.URL.Path)).
			Int("status", status).
			Msg("Request failed")
	}
	respondError(w, status, apiErr)
}

// decodeJSON reads a single JSON object from the body into dst and
// validates it. The returned error is already a ValidationError.
func decodeJSON(r *http.Request, w http.ResponseWriter, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return &models.ValidationError{Field: "body", Message: "request body is required"}
		case errors.As(err, &maxErr):
			return &models.ValidationError{Field: "body", Message: fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit)}
		}
		return &models.ValidationError{Field: "body", Message: "malformed JSON: " + err.Error()}
	}
	if dec.More() {
		return &models.ValidationError{Field: "body", Message: "request body must contain a single JSON object"}
	}
	return nil
}

// validateRequest runs struct validation and writes a 400 on failure.
// It reports whether the handler may continue.
func validateRequest(w http.ResponseWriter, req interface{}) bool {
	if verr := validation.ValidateStruct(req); verr != nil {
		respondError(w, http.StatusBadRequest, verr.ToAPIError())
		return false
	}
	return true
}

// int64Param parses the named URL parameter as a positive id.
func int64Param(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &models.ValidationError{Field: name, Message: "must be a positive integer"}
	}
	return id, nil
}

// boolQuery reads a boolean query flag. Absent means false.
func boolQuery(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, &models.ValidationError{Field: name, Message: "must be true or false"}
	}
	return v, nil
}

// sanitizeLogValue strips control characters so request data cannot forge
// log lines.
func sanitizeLogValue(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}
