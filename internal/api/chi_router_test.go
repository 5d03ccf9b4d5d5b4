// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/reelgraph/internal/config"
	"github.com/tomtom215/reelgraph/internal/recommend"
)

func TestRouter_UnknownRouteAndMethod(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, Deps{})

	resp := do(t, srv, http.MethodGet, "/api/v1/nope", "")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.Code)
	}
	if env := decodeEnvelope(t, resp.Body); env.Error == nil || env.Error.Code != ErrCodeNotFound {
		t.Errorf("error = %+v", env.Error)
	}

	resp = do(t, srv, http.MethodDelete, "/api/v1/search/plot", "")
	if resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", resp.Code)
	}
}

func TestRouter_SecurityHeaders(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, Deps{Recommender: &fakeRecommender{result: sampleResult(recommend.StrategyPlotSearch)}})

	resp := do(t, srv, http.MethodGet, "/api/v1/search/plot?q=heist", "")
	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Cache-Control":          "no-store",
		"Content-Type":           "application/json",
	} {
		if got := resp.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
}

func TestRouter_RateLimit(t *testing.T) {
	t.Parallel()
	mc := ChiMiddlewareConfigFromServer(&config.ServerConfig{RateLimitReqs: 2, RateLimitWindow: time.Minute})
	h := NewHandler(Deps{Recommender: &fakeRecommender{}, Ingestor: &fakeIngestor{}})
	srv := NewRouter(h, mc).SetupChi()

	for i := 0; i < 2; i++ {
		if resp := do(t, srv, http.MethodGet, "/api/v1/search/plot?q=x", ""); resp.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, resp.Code)
		}
	}
	resp := do(t, srv, http.MethodGet, "/api/v1/search/plot?q=x", "")
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", resp.Code)
	}
	if env := decodeEnvelope(t, resp.Body); env.Error == nil || env.Error.Code != ErrCodeRateLimit {
		t.Errorf("error = %+v", env.Error)
	}

	if resp := do(t, srv, http.MethodGet, "/health/live", ""); resp.Code != http.StatusOK {
		t.Errorf("health is rate limited: %d", resp.Code)
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	t.Parallel()
	mc := DefaultChiMiddlewareConfig()
	mc.CORSAllowedOrigins = []string{"https://app.example.com"}
	srv := NewRouter(NewHandler(Deps{Recommender: &fakeRecommender{}, Ingestor: &fakeIngestor{}}), mc).SetupChi()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/watch-history", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/watch-history", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("disallowed origin got Access-Control-Allow-Origin = %q", got)
	}
}

func TestRouter_Metrics(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, Deps{})
	do(t, srv, http.MethodGet, "/health/live", "")

	resp := do(t, srv, http.MethodGet, "/metrics", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "api_requests_total") {
		t.Error("metrics output lacks api_requests_total")
	}
}

func TestRouter_SwaggerDoc(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, Deps{})

	resp := do(t, srv, http.MethodGet, "/swagger/doc.json", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.Code)
	}

	var doc struct {
		Swagger string                     `json:"swagger"`
		Info    struct{ Title string }     `json:"info"`
		Paths   map[string]json.RawMessage `json:"paths"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &doc); err != nil {
		t.Fatalf("doc.json is not valid JSON: %v", err)
	}
	if doc.Swagger != "2.0" || doc.Info.Title != "Reelgraph API" {
		t.Errorf("swagger %q title %q", doc.Swagger, doc.Info.Title)
	}
	for _, path := range []string{
		"/api/v1/recommendations/users/{username}/collaborative",
		"/api/v1/recommendations/movies/{movieID}/semantic",
		"/api/v1/search/plot",
		"/api/v1/watch-history",
		"/api/v1/admin/rebuild/vector",
	} {
		if _, ok := doc.Paths[path]; !ok {
			t.Errorf("doc.json lacks %s", path)
		}
	}
}
