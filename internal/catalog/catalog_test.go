// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/tomtom215/reelgraph/internal/config"
	"github.com/tomtom215/reelgraph/internal/models"
)

// testDBSemaphore serializes DuckDB usage across tests. Concurrent CGO calls
// from many in-memory databases can hang under CI resource pressure.
var testDBSemaphore = make(chan struct{}, 1)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() { <-testDBSemaphore })

	s, err := New(&config.CatalogConfig{Path: ":memory:", MaxMemory: "256MB", Threads: 1})
	if err != nil {
		t.Fatalf("Failed to create test catalog: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func ptr(f float64) *float64 { return &f }

func mustMovie(t *testing.T, s *Store, title, imdb string, genres ...string) *models.Movie {
	t.Helper()
	ctx := context.Background()
	m := &models.Movie{Title: title, ReleaseYear: 1999, Duration: 120, IMDbID: imdb, Synopsis: title + " plot"}
	if _, err := s.CreateMovieIfAbsent(ctx, m); err != nil {
		t.Fatalf("CreateMovieIfAbsent(%s): %v", title, err)
	}
	if err := s.SetMovieGenres(ctx, m.ID, genres); err != nil {
		t.Fatalf("SetMovieGenres(%s): %v", title, err)
	}
	return m
}

func mustUser(t *testing.T, s *Store, name string) *models.User {
	t.Helper()
	u := &models.User{Username: name}
	if err := s.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser(%s): %v", name, err)
	}
	return u
}

func TestCreateUser(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	u := &models.User{Username: "alice", BirthDate: time.Date(1990, 5, 1, 0, 0, 0, 0, time.UTC)}
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID == 0 {
		t.Fatal("expected ID to be assigned")
	}

	got, err := s.GetUserByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if got.ID != u.ID || !got.BirthDate.Equal(u.BirthDate) {
		t.Errorf("got %+v, want %+v", got, u)
	}

	err = s.CreateUser(ctx, &models.User{Username: "alice"})
	if !models.IsConflict(err) {
		t.Errorf("duplicate username: got %v, want ConflictError", err)
	}

	if _, err := s.GetUserByUsername(ctx, "nobody"); !models.IsNotFound(err) {
		t.Errorf("missing user: got %v, want NotFoundError", err)
	}
}

func TestCreateMovieIfAbsent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	first := &models.Movie{Title: "The Matrix", ReleaseYear: 1999, IMDbID: "tt0133093"}
	created, err := s.CreateMovieIfAbsent(ctx, first)
	if err != nil || !created {
		t.Fatalf("first insert: created=%v err=%v", created, err)
	}

	second := &models.Movie{Title: "Different Title", IMDbID: "tt0133093"}
	created, err = s.CreateMovieIfAbsent(ctx, second)
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if created {
		t.Error("second insert with same IMDb id should not create")
	}
	if second.ID != first.ID || second.Title != "The Matrix" {
		t.Errorf("existing row not returned: %+v", second)
	}
}

func TestSetMovieGenresReplaces(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	m := mustMovie(t, s, "Heat", "tt0113277", "Crime", " Drama ", "Crime", "")
	got, err := s.GetMovie(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetMovie: %v", err)
	}
	if diff := cmp.Diff([]string{"Crime", "Drama"}, got.Genres); diff != "" {
		t.Errorf("genres mismatch (-want +got):\n%s", diff)
	}

	if err := s.SetMovieGenres(ctx, m.ID, []string{"Thriller"}); err != nil {
		t.Fatalf("SetMovieGenres: %v", err)
	}
	got, _ = s.GetMovie(ctx, m.ID)
	if diff := cmp.Diff([]string{"Thriller"}, got.Genres); diff != "" {
		t.Errorf("genres after replace (-want +got):\n%s", diff)
	}

	if _, err := s.GetMovie(ctx, 9999); !models.IsNotFound(err) {
		t.Errorf("missing movie: got %v, want NotFoundError", err)
	}
}

func TestUpsertWatchAndAvgRating(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	u1 := mustUser(t, s, "u1")
	u2 := mustUser(t, s, "u2")
	m := mustMovie(t, s, "Alien", "tt0078748", "Horror")

	created, err := s.UpsertWatch(ctx, models.WatchRecord{UserID: u1.ID, MovieID: m.ID, Rating: ptr(3)})
	if err != nil || !created {
		t.Fatalf("first watch: created=%v err=%v", created, err)
	}
	created, err = s.UpsertWatch(ctx, models.WatchRecord{UserID: u1.ID, MovieID: m.ID, Rating: ptr(4)})
	if err != nil || created {
		t.Fatalf("re-watch: created=%v err=%v", created, err)
	}
	if _, err := s.UpsertWatch(ctx, models.WatchRecord{UserID: u2.ID, MovieID: m.ID}); err != nil {
		t.Fatalf("unrated watch: %v", err)
	}

	w, err := s.GetWatch(ctx, u1.ID, m.ID)
	if err != nil {
		t.Fatalf("GetWatch: %v", err)
	}
	if w.RatingValue() != 4 {
		t.Errorf("rating = %v, want 4", w.RatingValue())
	}

	avg, err := s.RecomputeAvgRating(ctx, m.ID)
	if err != nil {
		t.Fatalf("RecomputeAvgRating: %v", err)
	}
	if avg != 4 {
		t.Errorf("avg = %v, want 4 (unrated watches are ignored)", avg)
	}

	pop, err := s.MoviePopularity(ctx, m.ID)
	if err != nil || pop != 2 {
		t.Errorf("popularity = %d, %v; want 2", pop, err)
	}

	history, err := s.UserWatchHistory(ctx, u1.ID)
	if err != nil {
		t.Fatalf("UserWatchHistory: %v", err)
	}
	if len(history) != 1 || history[0].Popularity != 2 || history[0].Movie.AvgRating != 4 {
		t.Errorf("history = %+v", history)
	}
}

func TestPeopleAndCredits(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	m := mustMovie(t, s, "Speed", "tt0111257", "Action")
	keanu := &models.Person{FirstName: "Keanu", LastName: "Reeves"}
	created, err := s.FindOrCreatePerson(ctx, keanu)
	if err != nil || !created {
		t.Fatalf("first person: created=%v err=%v", created, err)
	}
	again := &models.Person{FirstName: "Keanu", LastName: "Reeves"}
	created, err = s.FindOrCreatePerson(ctx, again)
	if err != nil || created || again.ID != keanu.ID {
		t.Fatalf("repeat person: created=%v id=%d err=%v", created, again.ID, err)
	}
	jan := &models.Person{FirstName: "Jan", LastName: "de Bont"}
	if _, err := s.FindOrCreatePerson(ctx, jan); err != nil {
		t.Fatal(err)
	}

	if err := s.SetMovieCredits(ctx, m.ID, models.RoleActor, []int64{keanu.ID, keanu.ID}); err != nil {
		t.Fatalf("SetMovieCredits actor: %v", err)
	}
	if err := s.SetMovieCredits(ctx, m.ID, models.RoleDirector, []int64{jan.ID}); err != nil {
		t.Fatalf("SetMovieCredits director: %v", err)
	}
	if err := s.SetMovieCredits(ctx, m.ID, models.Role("producer"), nil); !models.IsArgument(err) {
		t.Errorf("unknown role: got %v, want ArgumentError", err)
	}

	credits, err := s.MovieCredits(ctx, m.ID)
	if err != nil {
		t.Fatalf("MovieCredits: %v", err)
	}
	want := models.Credits{
		Actors:    []models.Person{*keanu},
		Directors: []models.Person{*jan},
	}
	if diff := cmp.Diff(want, credits); diff != "" {
		t.Errorf("credits mismatch (-want +got):\n%s", diff)
	}
}

func TestFollows(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	u := mustUser(t, s, "fan")
	p := &models.Person{FirstName: "Greta", LastName: "Gerwig"}
	if err := s.CreatePerson(ctx, p); err != nil {
		t.Fatal(err)
	}

	created, err := s.AddFollow(ctx, models.Follow{UserID: u.ID, PersonID: p.ID})
	if err != nil || !created {
		t.Fatalf("AddFollow: created=%v err=%v", created, err)
	}
	created, err = s.AddFollow(ctx, models.Follow{UserID: u.ID, PersonID: p.ID})
	if err != nil || created {
		t.Fatalf("repeat AddFollow: created=%v err=%v", created, err)
	}
	following, err := s.IsFollowing(ctx, u.ID, p.ID)
	if err != nil || !following {
		t.Errorf("IsFollowing = %v, %v", following, err)
	}
}

func TestForEachMovieBatch(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	var ids []int64
	for i, title := range []string{"A", "B", "C", "D", "E"} {
		m := mustMovie(t, s, title, "", "G"+title)
		ids = append(ids, m.ID)
		if i == 2 {
			p := &models.Person{FirstName: "Solo", LastName: "Actor"}
			if err := s.CreatePerson(ctx, p); err != nil {
				t.Fatal(err)
			}
			if err := s.SetMovieCredits(ctx, m.ID, models.RoleActor, []int64{p.ID}); err != nil {
				t.Fatal(err)
			}
		}
	}

	var (
		seen    []int64
		batches int
		actors  int
	)
	err := s.ForEachMovieBatch(ctx, 2, func(batch []MovieRecord) error {
		batches++
		for _, rec := range batch {
			seen = append(seen, rec.Movie.ID)
			if len(rec.Movie.Genres) != 1 || rec.Movie.Genres[0] != "G"+rec.Movie.Title {
				t.Errorf("movie %s genres = %v", rec.Movie.Title, rec.Movie.Genres)
			}
			actors += len(rec.Credits.Actors)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("ForEachMovieBatch: %v", err)
	}
	if batches != 3 {
		t.Errorf("batches = %d, want 3", batches)
	}
	if diff := cmp.Diff(ids, seen); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
	if actors != 1 {
		t.Errorf("actors = %d, want 1", actors)
	}

	stop := errors.New("stop")
	if err := s.ForEachMovieBatch(ctx, 2, func([]MovieRecord) error { return stop }); !errors.Is(err, stop) {
		t.Errorf("callback error not propagated: %v", err)
	}
	if err := s.ForEachMovieBatch(ctx, 0, func([]MovieRecord) error { return nil }); !models.IsArgument(err) {
		t.Errorf("zero batch size: got %v, want ArgumentError", err)
	}
}

func TestUpsertWatchStampsUpdatedAt(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	u := mustUser(t, s, "u1")
	m := mustMovie(t, s, "Alien", "tt0078748", "Horror")

	june := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	if _, err := s.UpsertWatch(ctx, models.WatchRecord{UserID: u.ID, MovieID: m.ID, Rating: ptr(2), WatchedAt: june}); err != nil {
		t.Fatal(err)
	}
	first, err := s.GetWatch(ctx, u.ID, m.ID)
	if err != nil {
		t.Fatalf("GetWatch: %v", err)
	}
	if first.UpdatedAt.IsZero() {
		t.Fatal("updated_at not set on insert")
	}

	// A backdated client time does not move the server stamp backwards.
	january := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := s.UpsertWatch(ctx, models.WatchRecord{UserID: u.ID, MovieID: m.ID, Rating: ptr(5), WatchedAt: january}); err != nil {
		t.Fatal(err)
	}
	second, err := s.GetWatch(ctx, u.ID, m.ID)
	if err != nil {
		t.Fatalf("GetWatch: %v", err)
	}
	if !second.UpdatedAt.After(first.UpdatedAt) {
		t.Errorf("updated_at = %v, want after %v", second.UpdatedAt, first.UpdatedAt)
	}
	if !second.WatchedAt.Equal(january) || second.RatingValue() != 5 {
		t.Errorf("row = %+v, want january rated 5", second)
	}

	var stamped bool
	if err := s.ForEachWatchBatch(ctx, 10, func(b []models.WatchRecord) error {
		for _, w := range b {
			stamped = w.UpdatedAt.Equal(second.UpdatedAt)
		}
		return nil
	}); err != nil {
		t.Fatalf("ForEachWatchBatch: %v", err)
	}
	if !stamped {
		t.Error("batch read did not carry updated_at")
	}
}

func TestForEachWatchAndFollowBatch(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	users := []*models.User{mustUser(t, s, "a"), mustUser(t, s, "b")}
	movies := []*models.Movie{mustMovie(t, s, "X", ""), mustMovie(t, s, "Y", ""), mustMovie(t, s, "Z", "")}
	p := &models.Person{FirstName: "P"}
	if err := s.CreatePerson(ctx, p); err != nil {
		t.Fatal(err)
	}

	for _, u := range users {
		for _, m := range movies {
			if _, err := s.UpsertWatch(ctx, models.WatchRecord{UserID: u.ID, MovieID: m.ID, Rating: ptr(5)}); err != nil {
				t.Fatal(err)
			}
		}
		if _, err := s.AddFollow(ctx, models.Follow{UserID: u.ID, PersonID: p.ID}); err != nil {
			t.Fatal(err)
		}
	}

	var watches int
	if err := s.ForEachWatchBatch(ctx, 4, func(b []models.WatchRecord) error {
		watches += len(b)
		return nil
	}); err != nil {
		t.Fatalf("ForEachWatchBatch: %v", err)
	}
	if watches != 6 {
		t.Errorf("watches = %d, want 6", watches)
	}

	var follows int
	if err := s.ForEachFollowBatch(ctx, 1, func(b []models.Follow) error {
		follows += len(b)
		return nil
	}); err != nil {
		t.Fatalf("ForEachFollowBatch: %v", err)
	}
	if follows != 2 {
		t.Errorf("follows = %d, want 2", follows)
	}

	var userCount int
	if err := s.ForEachUserBatch(ctx, 10, func(b []models.User) error {
		userCount += len(b)
		return nil
	}); err != nil {
		t.Fatalf("ForEachUserBatch: %v", err)
	}

	c, err := s.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	want := Counts{Users: 2, Movies: 3, People: 1, Follows: 2, Watches: 6}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Errorf("counts mismatch (-want +got):\n%s", diff)
	}
	if userCount != 2 {
		t.Errorf("users streamed = %d, want 2", userCount)
	}
}
