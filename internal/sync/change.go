// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

package sync

import (
	"fmt"
	"time"

	"github.com/tomtom215/reelgraph/internal/models"
)

// ChangeKind names the catalog entity a Change refers to.
type ChangeKind string

// Change kinds.
const (
	ChangeMovie  ChangeKind = "movie"
	ChangeUser   ChangeKind = "user"
	ChangeWatch  ChangeKind = "watch"
	ChangeFollow ChangeKind = "follow"
)

// Change identifies a catalog write that the indexes must reflect. It carries
// keys only: applying a change reads the current catalog state, so replaying
// an old change never writes stale attributes.
type Change struct {
	// ID is assigned when the change is queued for retry.
	ID        string     `json:"id,omitempty"`
	Kind      ChangeKind `json:"kind"`
	UserID    int64      `json:"user_id,omitempty"`
	MovieID   int64      `json:"movie_id,omitempty"`
	PersonID  int64      `json:"person_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// MovieChange reports a created or updated movie, with its genres and credits.
func MovieChange(movieID int64) Change {
	return Change{Kind: ChangeMovie, MovieID: movieID, CreatedAt: time.Now().UTC()}
}

// UserChange reports a registered user.
func UserChange(userID int64) Change {
	return Change{Kind: ChangeUser, UserID: userID, CreatedAt: time.Now().UTC()}
}

// WatchChange reports a created or updated watch record.
func WatchChange(userID, movieID int64) Change {
	return Change{Kind: ChangeWatch, UserID: userID, MovieID: movieID, CreatedAt: time.Now().UTC()}
}

// FollowChange reports a new follow.
func FollowChange(userID, personID int64) Change {
	return Change{Kind: ChangeFollow, UserID: userID, PersonID: personID, CreatedAt: time.Now().UTC()}
}

// Validate checks that the keys required by Kind are present.
func (c Change) Validate() error {
	missing := func(field string) error {
		return &models.ArgumentError{Message: fmt.Sprintf("%s change without %s", c.Kind, field)}
	}
	switch c.Kind {
	case ChangeMovie:
		if c.MovieID <= 0 {
			return missing("movie_id")
		}
	case ChangeUser:
		if c.UserID <= 0 {
			return missing("user_id")
		}
	case ChangeWatch:
		if c.UserID <= 0 {
			return missing("user_id")
		}
		if c.MovieID <= 0 {
			return missing("movie_id")
		}
	case ChangeFollow:
		if c.UserID <= 0 {
			return missing("user_id")
		}
		if c.PersonID <= 0 {
			return missing("person_id")
		}
	default:
		return &models.ArgumentError{Message: fmt.Sprintf("unknown change kind %q", c.Kind)}
	}
	return nil
}

// String renders the change for logs.
func (c Change) String() string {
	switch c.Kind {
	case ChangeMovie:
		return fmt.Sprintf("movie:%d", c.MovieID)
	case ChangeUser:
		return fmt.Sprintf("user:%d", c.UserID)
	case ChangeWatch:
		return fmt.Sprintf("watch:%d:%d", c.UserID, c.MovieID)
	case ChangeFollow:
		return fmt.Sprintf("follow:%d:%d", c.UserID, c.PersonID)
	default:
		return string(c.Kind)
	}
}
