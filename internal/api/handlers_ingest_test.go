// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

package api

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/tomtom215/reelgraph/internal/catalog"
	"github.com/tomtom215/reelgraph/internal/ingest"
	"github.com/tomtom215/reelgraph/internal/models"
)

func TestRecordWatch(t *testing.T) {
	t.Parallel()
	rating := 4.5
	tests := []struct {
		name       string
		watch      *ingest.WatchResult
		err        error
		wantStatus int
		wantEnv    string
	}{
		{"new watch", &ingest.WatchResult{UserID: 1, MovieID: 2, Rating: &rating, AvgRating: 4.5, Created: true}, nil, http.StatusCreated, "success"},
		{"updated watch", &ingest.WatchResult{UserID: 1, MovieID: 2, Rating: &rating, AvgRating: 4.5}, nil, http.StatusOK, "success"},
		{"projection queued", &ingest.WatchResult{UserID: 1, MovieID: 2, Created: true}, queuedErr(), http.StatusAccepted, "accepted"},
		{"unknown user", nil, models.NewNotFound("user", "alice"), http.StatusNotFound, "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ing := &fakeIngestor{watch: tt.watch, err: tt.err}
			srv := newTestServer(t, Deps{Ingestor: ing})

			resp := do(t, srv, http.MethodPost, "/api/v1/watch-history",
				`{"username":"alice","movie_id":2,"rating":4.5,"watched_at":"2024-05-01T10:00:00Z"}`)
			if resp.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", resp.Code, tt.wantStatus, resp.Body)
			}
			if env := decodeEnvelope(t, resp.Body); env.Status != tt.wantEnv {
				t.Errorf("envelope status = %q, want %q", env.Status, tt.wantEnv)
			}

			want := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
			if !ing.lastReq.WatchedAt.Equal(want) || ing.lastReq.Rating == nil || *ing.lastReq.Rating != 4.5 {
				t.Errorf("request = %+v", ing.lastReq)
			}
		})
	}
}

func TestRecordWatch_DefaultsTimestamp(t *testing.T) {
	t.Parallel()
	ing := &fakeIngestor{watch: &ingest.WatchResult{UserID: 1, MovieID: 2, Created: true}}
	srv := newTestServer(t, Deps{Ingestor: ing})

	before := time.Now().Add(-time.Second)
	resp := do(t, srv, http.MethodPost, "/api/v1/watch-history", `{"username":"alice","movie_id":2}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", resp.Code, resp.Body)
	}
	if ing.lastReq.WatchedAt.Before(before) || ing.lastReq.Rating != nil {
		t.Errorf("request = %+v", ing.lastReq)
	}
}

func TestRecordWatch_RejectsBadBodies(t *testing.T) {
	t.Parallel()
	bodies := map[string]string{
		"empty":         "",
		"malformed":     `{"username":`,
		"unknown field": `{"username":"alice","movie_id":2,"stars":5}`,
		"no username":   `{"movie_id":2}`,
		"bad movie":     `{"username":"alice","movie_id":-1}`,
		"rating range":  `{"username":"alice","movie_id":2,"rating":6}`,
		"rating step":   `{"username":"alice","movie_id":2,"rating":3.3}`,
		"two objects":   `{"username":"alice","movie_id":2}{}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ing := &fakeIngestor{}
			srv := newTestServer(t, Deps{Ingestor: ing})

			resp := do(t, srv, http.MethodPost, "/api/v1/watch-history", body)
			if resp.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400: %s", resp.Code, resp.Body)
			}
			if env := decodeEnvelope(t, resp.Body); env.Error == nil || env.Error.Code != ErrCodeValidation {
				t.Errorf("error = %+v", env.Error)
			}
			if ing.calls != 0 {
				t.Errorf("ingestor called %d times", ing.calls)
			}
		})
	}
}

func TestCreateUser(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		user       *models.User
		err        error
		wantStatus int
	}{
		{"created", &models.User{ID: 9}, nil, http.StatusCreated},
		{"queued", &models.User{ID: 9}, queuedErr(), http.StatusAccepted},
		{"duplicate", nil, &models.ConflictError{Kind: "user", Key: "alice"}, http.StatusConflict},
		{"publish failed", &models.User{ID: 9}, models.NewDependency("queue", "publish", errors.New("closed")), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := newTestServer(t, Deps{Ingestor: &fakeIngestor{user: tt.user, err: tt.err}})

			resp := do(t, srv, http.MethodPost, "/api/v1/users", `{"username":"alice"}`)
			if resp.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", resp.Code, tt.wantStatus, resp.Body)
			}
			if tt.wantStatus >= 300 {
				return
			}
			var got models.User
			decodeData(t, decodeEnvelope(t, resp.Body), &got)
			if got.ID != 9 || got.Username != "alice" {
				t.Errorf("user = %+v", got)
			}
		})
	}
}

func TestFollowPerson(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		target     string
		created    bool
		err        error
		wantStatus int
	}{
		{"new follow", "/api/v1/users/alice/follows/5", true, nil, http.StatusCreated},
		{"existing follow", "/api/v1/users/alice/follows/5", false, nil, http.StatusOK},
		{"queued", "/api/v1/users/alice/follows/5", true, queuedErr(), http.StatusAccepted},
		{"unknown person", "/api/v1/users/alice/follows/5", false, models.NewNotFound("person", 5), http.StatusNotFound},
		{"bad person id", "/api/v1/users/alice/follows/x", false, nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := newTestServer(t, Deps{Ingestor: &fakeIngestor{created: tt.created, err: tt.err}})

			resp := do(t, srv, http.MethodPost, tt.target, "")
			if resp.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", resp.Code, tt.wantStatus, resp.Body)
			}
			if tt.wantStatus >= 300 {
				return
			}
			var got FollowResponse
			decodeData(t, decodeEnvelope(t, resp.Body), &got)
			if got != (FollowResponse{Username: "alice", PersonID: 5, Created: tt.created}) {
				t.Errorf("follow = %+v", got)
			}
		})
	}
}

func TestAddMovieByIMDb(t *testing.T) {
	t.Parallel()
	movie := &ingest.MovieResult{
		Movie:   models.Movie{ID: 11, Title: "The Matrix", IMDbID: "tt0133093", Genres: []string{"Action"}},
		Created: true,
	}
	tests := []struct {
		name       string
		body       string
		movie      *ingest.MovieResult
		err        error
		wantStatus int
	}{
		{"by id", `{"imdb":"tt0133093"}`, movie, nil, http.StatusCreated},
		{"by url", `{"imdb":"https://www.imdb.com/title/tt0133093/"}`, movie, nil, http.StatusCreated},
		{"not an imdb ref", `{"imdb":"the matrix"}`, nil, nil, http.StatusBadRequest},
		{"unknown title", `{"imdb":"tt0000001"}`, nil, models.NewNotFound("imdb title", "tt0000001"), http.StatusNotFound},
		{"lookup down", `{"imdb":"tt0133093"}`, nil, models.NewDependency("enrich", "lookup", errors.New("timeout")), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := newTestServer(t, Deps{Ingestor: &fakeIngestor{movie: tt.movie, err: tt.err}})

			resp := do(t, srv, http.MethodPost, "/api/v1/movies/imdb", tt.body)
			if resp.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", resp.Code, tt.wantStatus, resp.Body)
			}
		})
	}
}

func TestWatchHistory(t *testing.T) {
	t.Parallel()
	ing := &fakeIngestor{history: []catalog.WatchedMovie{
		{Movie: models.Movie{ID: 1, Title: "Heat"}, WatchedAt: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Popularity: 3},
	}}
	srv := newTestServer(t, Deps{Ingestor: ing})

	resp := do(t, srv, http.MethodGet, "/api/v1/users/alice/watch-history", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.Code, resp.Body)
	}
	env := decodeEnvelope(t, resp.Body)
	if env.Metadata.Count != 1 {
		t.Errorf("count = %d, want 1", env.Metadata.Count)
	}
}
