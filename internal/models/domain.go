// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

package models

import (
	"sort"
	"time"
)

// User is a catalog member. Username is unique and is how recommendation
// queries address users.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username" validate:"required,min=1,max=150"`
	BirthDate time.Time `json:"birth_date,omitempty"`
}

// Movie is a catalog title.
type Movie struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	ReleaseYear int      `json:"release_year"`
	Synopsis    string   `json:"synopsis,omitempty"`
	Duration    int      `json:"duration"` // minutes
	PosterURL   string   `json:"poster_url,omitempty"`
	IMDbID      string   `json:"imdb_id,omitempty"`
	AvgRating   float64  `json:"avg_rating"`
	Genres      []string `json:"genres"`
}

// Role is the part a person played in a movie.
type Role string

// Person roles.
const (
	RoleActor    Role = "actor"
	RoleDirector Role = "director"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleActor || r == RoleDirector
}

// Person is an actor or director.
type Person struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	BirthYear int    `json:"birth_year,omitempty"`
}

// FullName joins first and last name.
func (p Person) FullName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	default:
		return p.FirstName + " " + p.LastName
	}
}

// Credits lists the people attached to a movie.
type Credits struct {
	Actors    []Person `json:"actors"`
	Directors []Person `json:"directors"`
}

// WatchRecord is one row of a user's watch history. Rating is nil when the
// user watched without rating. UpdatedAt is stamped by the catalog on every
// write and is never taken from the client.
type WatchRecord struct {
	UserID    int64     `json:"user_id"`
	MovieID   int64     `json:"movie_id"`
	WatchedAt time.Time `json:"watched_at"`
	Rating    *float64  `json:"rating,omitempty"`
	UpdatedAt time.Time `json:"-"`
}

// RatingValue returns the rating or 0 when unrated.
func (w WatchRecord) RatingValue() float64 {
	if w.Rating == nil {
		return 0
	}
	return *w.Rating
}

// Follow links a user to a person they follow.
type Follow struct {
	UserID   int64 `json:"user_id"`
	PersonID int64 `json:"person_id"`
}

// MovieSummary is one recommended movie. Popularity, AvgRating and Score are
// set only by the strategies that compute them.
type MovieSummary struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Duration    int      `json:"duration"`
	PosterURL   string   `json:"poster_url,omitempty"`
	ReleaseYear int      `json:"release_year"`
	Synopsis    string   `json:"synopsis,omitempty"`
	Genres      []string `json:"genres"`
	Popularity  *int64   `json:"popularity,omitempty"`
	AvgRating   *float64 `json:"avg_rating,omitempty"`
	IMDbID      string   `json:"imdb_id,omitempty"`
	Score       *float64 `json:"score,omitempty"`
}

// RecommendationList is the result of every recommendation strategy.
type RecommendationList struct {
	Movies []MovieSummary `json:"movies"`
	Genres []string       `json:"genres"`
}

// NewRecommendationList wraps movies and derives the flat genre list.
// A nil slice becomes an empty list so JSON renders [] instead of null.
func NewRecommendationList(movies []MovieSummary) RecommendationList {
	if movies == nil {
		movies = []MovieSummary{}
	}
	return RecommendationList{Movies: movies, Genres: CollectGenres(movies)}
}

// CollectGenres returns the sorted, deduplicated genre names across movies.
func CollectGenres(movies []MovieSummary) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for i := range movies {
		for _, g := range movies[i].Genres {
			if g == "" {
				continue
			}
			if _, ok := seen[g]; ok {
				continue
			}
			seen[g] = struct{}{}
			out = append(out, g)
		}
	}
	sort.Strings(out)
	return out
}

// DedupeByID removes repeated movie ids. The surviving entry keeps the
// position of the first occurrence and the contents of the last.
func DedupeByID(movies []MovieSummary) []MovieSummary {
	if len(movies) == 0 {
		return movies
	}
	index := make(map[int64]int, len(movies))
	out := make([]MovieSummary, 0, len(movies))
	for i := range movies {
		if pos, ok := index[movies[i].ID]; ok {
			out[pos] = movies[i]
			continue
		}
		index[movies[i].ID] = len(out)
		out = append(out, movies[i])
	}
	return out
}
