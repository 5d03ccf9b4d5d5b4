// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/reelgraph/internal/catalog"
	"github.com/tomtom215/reelgraph/internal/ingest"
	"github.com/tomtom215/reelgraph/internal/models"
	"github.com/tomtom215/reelgraph/internal/recommend"
	syncpkg "github.com/tomtom215/reelgraph/internal/sync"
)

// envelope mirrors models.APIResponse with a raw data field.
type envelope struct {
	Status   string           `json:"status"`
	Data     json.RawMessage  `json:"data"`
	Metadata models.Metadata  `json:"metadata"`
	Error    *models.APIError `json:"error"`
}

func decodeEnvelope(t *testing.T, body io.Reader) envelope {
	t.Helper()
	var env envelope
	if err := json.NewDecoder(body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return env
}

func decodeData(t *testing.T, env envelope, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
}

type fakeRecommender struct {
	mu       sync.Mutex
	result   recommend.Result
	err      error
	username string
	movieID  int64
	genres   bool
	query    string
}

func (f *fakeRecommender) record(username string, movieID int64) (recommend.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.username, f.movieID = username, movieID
	return f.result, f.err
}

func (f *fakeRecommender) UserBased(_ context.Context, username string) (recommend.Result, error) {
	return f.record(username, 0)
}

func (f *fakeRecommender) FollowBased(_ context.Context, username string) (recommend.Result, error) {
	return f.record(username, 0)
}

func (f *fakeRecommender) ContentGraph(_ context.Context, movieID int64) (recommend.Result, error) {
	return f.record("", movieID)
}

func (f *fakeRecommender) ContentSemantic(_ context.Context, movieID int64, includeGenres bool) (recommend.Result, error) {
	f.mu.Lock()
	f.genres = includeGenres
	f.mu.Unlock()
	return f.record("", movieID)
}

func (f *fakeRecommender) SearchByPlot(_ context.Context, text string) (recommend.Result, error) {
	f.mu.Lock()
	f.query = text
	f.mu.Unlock()
	return f.record("", 0)
}

type fakeIngestor struct {
	mu      sync.Mutex
	calls   int
	user    *models.User
	watch   *ingest.WatchResult
	movie   *ingest.MovieResult
	history []catalog.WatchedMovie
	created bool
	err     error
	lastReq ingest.WatchRequest
	lastRef string
}

func (f *fakeIngestor) hit() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

func (f *fakeIngestor) RegisterUser(_ context.Context, u models.User) (*models.User, error) {
	f.hit()
	if f.user == nil {
		return nil, f.err
	}
	out := *f.user
	out.Username = u.Username
	return &out, f.err
}

func (f *fakeIngestor) RecordWatch(_ context.Context, req ingest.WatchRequest) (*ingest.WatchResult, error) {
	f.hit()
	f.mu.Lock()
	f.lastReq = req
	f.mu.Unlock()
	return f.watch, f.err
}

func (f *fakeIngestor) Follow(context.Context, string, int64) (bool, error) {
	f.hit()
	return f.created, f.err
}

func (f *fakeIngestor) AddMovieByIMDb(_ context.Context, ref string) (*ingest.MovieResult, error) {
	f.hit()
	f.mu.Lock()
	f.lastRef = ref
	f.mu.Unlock()
	return f.movie, f.err
}

func (f *fakeIngestor) WatchHistory(context.Context, string) ([]catalog.WatchedMovie, error) {
	f.hit()
	return f.history, f.err
}

type fakeRebuilder struct {
	report syncpkg.IndexReport
	err    error
	status syncpkg.Status
}

func (f *fakeRebuilder) RebuildGraph(context.Context) (syncpkg.IndexReport, error) {
	r := f.report
	r.Index = syncpkg.IndexGraph
	return r, f.err
}

func (f *fakeRebuilder) RebuildVector(context.Context) (syncpkg.IndexReport, error) {
	r := f.report
	r.Index = syncpkg.IndexVector
	return r, f.err
}

func (f *fakeRebuilder) Status() syncpkg.Status { return f.status }

type fakePending int

func (p fakePending) Len() (int, error) { return int(p), nil }

func queuedErr() error {
	return &models.DependencyError{Dependency: "graph", Op: "upsert", Err: errors.New("down"), Queued: true}
}

// newTestServer routes deps with rate limiting disabled.
func newTestServer(t *testing.T, deps Deps) http.Handler {
	t.Helper()
	if deps.Recommender == nil {
		deps.Recommender = &fakeRecommender{}
	}
	if deps.Ingestor == nil {
		deps.Ingestor = &fakeIngestor{}
	}
	mc := DefaultChiMiddlewareConfig()
	mc.RateLimitRequests = 0
	return NewRouter(NewHandler(deps), mc).SetupChi()
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}
