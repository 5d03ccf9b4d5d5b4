// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

package api

import "time"

// CreateUserRequest is the body of POST /api/v1/users.
type CreateUserRequest struct {
	ID        int64     `json:"id" validate:"gte=0"`
	Username  string    `json:"username" validate:"required,max=150"`
	BirthDate time.Time `json:"birth_date"`
}

// WatchRequest is the body of POST /api/v1/watch-history.
type WatchRequest struct {
	Username  string     `json:"username" validate:"required,max=150"`
	MovieID   int64      `json:"movie_id" validate:"required,gt=0"`
	Rating    *float64   `json:"rating" validate:"omitempty,gte=0,lte=5,halfstep"`
	WatchedAt *time.Time `json:"watched_at"`
}

// IMDbRequest is the body of POST /api/v1/movies/imdb.
type IMDbRequest struct {
	IMDb string `json:"imdb" validate:"required,imdbref"`
}

// FollowResponse reports a follow.
type FollowResponse struct {
	Username string `json:"username"`
	PersonID int64  `json:"person_id"`
	Created  bool   `json:"created"`
}
