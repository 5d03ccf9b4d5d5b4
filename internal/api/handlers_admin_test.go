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
	"time"

	"github.com/tomtom215/reelgraph/internal/middleware"
	syncpkg "github.com/tomtom215/reelgraph/internal/sync"
)

func TestRebuild(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		target     string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"graph ok", "/api/v1/admin/rebuild/graph", nil, http.StatusOK, ""},
		{"vector ok", "/api/v1/admin/rebuild/vector", nil, http.StatusOK, ""},
		{"in progress", "/api/v1/admin/rebuild/graph", syncpkg.ErrRebuildInProgress, http.StatusConflict, ErrCodeConflict},
		{"failed", "/api/v1/admin/rebuild/vector", errors.New("embedding service down"), http.StatusInternalServerError, ErrCodeRebuildFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rb := &fakeRebuilder{report: syncpkg.IndexReport{Movies: 12}, err: tt.err}
			srv := newTestServer(t, Deps{Rebuilder: rb})

			resp := do(t, srv, http.MethodPost, tt.target, "")
			if resp.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", resp.Code, tt.wantStatus, resp.Body)
			}
			env := decodeEnvelope(t, resp.Body)
			if tt.wantCode == "" {
				var report syncpkg.IndexReport
				decodeData(t, env, &report)
				if report.Movies != 12 {
					t.Errorf("report = %+v", report)
				}
				return
			}
			if env.Error == nil || env.Error.Code != tt.wantCode {
				t.Errorf("error = %+v, want code %s", env.Error, tt.wantCode)
			}
		})
	}
}

func TestRebuild_IgnoresClientCancel(t *testing.T) {
	t.Parallel()
	var sawErr error
	h := NewHandler(Deps{Recommender: &fakeRecommender{}, Ingestor: &fakeIngestor{}, Rebuilder: &fakeRebuilder{}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := (&http.Request{Method: http.MethodPost}).WithContext(ctx)
	h.rebuild(newDiscardWriter(), req, syncpkg.IndexGraph, func(ctx context.Context) (syncpkg.IndexReport, error) {
		sawErr = ctx.Err()
		return syncpkg.IndexReport{}, nil
	})
	if sawErr != nil {
		t.Errorf("rebuild context err = %v, want nil", sawErr)
	}
}

func TestAdminStatus(t *testing.T) {
	t.Parallel()
	perf := middleware.NewPerformanceMonitor(10, time.Second)
	rb := &fakeRebuilder{status: syncpkg.Status{GraphRebuilding: true}}
	srv := newTestServer(t, Deps{Rebuilder: rb, Pending: fakePending(3), Performance: perf})

	do(t, srv, http.MethodGet, "/api/v1/search/plot?q=x", "")
	resp := do(t, srv, http.MethodGet, "/api/v1/admin/status", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.Code, resp.Body)
	}

	var got AdminStatus
	decodeData(t, decodeEnvelope(t, resp.Body), &got)
	if !got.Sync.GraphRebuilding {
		t.Error("sync.graph_rebuilding = false")
	}
	if got.PendingChanges == nil || *got.PendingChanges != 3 {
		t.Errorf("pending_changes = %v, want 3", got.PendingChanges)
	}
	if len(got.Endpoints) == 0 || got.Endpoints[0].Endpoint != "GET /api/v1/search/plot" {
		t.Errorf("endpoints = %+v", got.Endpoints)
	}
}

func TestAdminRoutesRequireRebuilder(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, Deps{})
	if resp := do(t, srv, http.MethodPost, "/api/v1/admin/rebuild/graph", ""); resp.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.Code)
	}
}

// discardWriter is a minimal ResponseWriter for direct handler calls.
type discardWriter struct{ header http.Header }

func newDiscardWriter() *discardWriter { return &discardWriter{header: http.Header{}} }

func (d *discardWriter) Header() http.Header         { return d.header }
func (d *discardWriter) Write(b []byte) (int, error) { return len(b), nil }
func (d *discardWriter) WriteHeader(int)             {}
