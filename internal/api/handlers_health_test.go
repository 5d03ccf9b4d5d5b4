// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

package api

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestHealth(t *testing.T) {
	t.Parallel()
	checks := map[string]HealthCheck{
		"catalog": func(context.Context) error { return nil },
		"graph":   func(context.Context) error { return errors.New("connection refused") },
	}
	srv := newTestServer(t, Deps{Checks: checks})

	resp := do(t, srv, http.MethodGet, "/health", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.Code)
	}
	var got HealthStatus
	decodeData(t, decodeEnvelope(t, resp.Body), &got)

	want := HealthStatus{
		Status: healthDegraded,
		Components: map[string]ComponentHealth{
			"catalog": {Status: healthHealthy},
			"graph":   {Status: healthDegraded, Error: "connection refused"},
		},
	}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(HealthStatus{}, "Uptime")); diff != "" {
		t.Errorf("health mismatch (-want +got):\n%s", diff)
	}

	if resp := do(t, srv, http.MethodGet, "/health/ready", ""); resp.Code != http.StatusServiceUnavailable {
		t.Errorf("ready status = %d, want 503", resp.Code)
	}
	if resp := do(t, srv, http.MethodGet, "/health/live", ""); resp.Code != http.StatusOK {
		t.Errorf("live status = %d, want 200", resp.Code)
	}
}

func TestHealthReady(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, Deps{Checks: map[string]HealthCheck{
		"catalog": func(context.Context) error { return nil },
	}})

	if resp := do(t, srv, http.MethodGet, "/health/ready", ""); resp.Code != http.StatusOK {
		t.Errorf("ready status = %d, want 200", resp.Code)
	}
}

func TestHealthCheckTimeout(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, Deps{
		HealthTimeout: 1,
		Checks: map[string]HealthCheck{
			"vector": func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			},
		},
	})

	if resp := do(t, srv, http.MethodGet, "/health/ready", ""); resp.Code != http.StatusServiceUnavailable {
		t.Errorf("ready status = %d, want 503", resp.Code)
	}
}
