// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

package graph

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tomtom215/reelgraph/internal/models"
)

type memWatch struct {
	rating    *float64
	updatedAt int64
}

type memPerson struct {
	person models.Person
	roles  map[models.Role]struct{}
}

type memMovie struct {
	movie  models.Movie
	genres map[string]struct{}
}

// MemoryIndex is an in-process Index with the same semantics as Neo4jIndex.
// It is safe for concurrent use.
type MemoryIndex struct {
	mu sync.RWMutex

	users     map[int64]models.User
	usernames map[string]int64
	movies    map[int64]*memMovie
	people    map[int64]*memPerson
	genres    map[string]map[int64]struct{} // genre -> movies

	acts     map[int64]map[int64]struct{} // person -> movies
	directs  map[int64]map[int64]struct{} // person -> movies
	follows  map[int64]map[int64]struct{} // user -> people
	watched  map[int64]map[int64]*memWatch
	watchers map[int64]map[int64]struct{} // movie -> users
}

var _ Index = (*MemoryIndex)(nil)

// NewMemoryIndex returns an empty index.
func NewMemoryIndex() *MemoryIndex {
	g := &MemoryIndex{}
	g.reset()
	return g
}

func (g *MemoryIndex) reset() {
	g.users = make(map[int64]models.User)
	g.usernames = make(map[string]int64)
	g.movies = make(map[int64]*memMovie)
	g.people = make(map[int64]*memPerson)
	g.genres = make(map[string]map[int64]struct{})
	g.acts = make(map[int64]map[int64]struct{})
	g.directs = make(map[int64]map[int64]struct{})
	g.follows = make(map[int64]map[int64]struct{})
	g.watched = make(map[int64]map[int64]*memWatch)
	g.watchers = make(map[int64]map[int64]struct{})
}

func link(m map[int64]map[int64]struct{}, from, to int64) {
	set, ok := m[from]
	if !ok {
		set = make(map[int64]struct{})
		m[from] = set
	}
	set[to] = struct{}{}
}

// EnsureSchema is a no-op.
func (g *MemoryIndex) EnsureSchema(ctx context.Context) error {
	return ctx.Err()
}

// UpsertUser creates the user node if absent.
func (g *MemoryIndex) UpsertUser(ctx context.Context, u models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.upsertUserLocked(u)
	return nil
}

func (g *MemoryIndex) upsertUserLocked(u models.User) {
	if _, ok := g.users[u.ID]; ok {
		return
	}
	g.users[u.ID] = u
	if _, taken := g.usernames[u.Username]; !taken {
		g.usernames[u.Username] = u.ID
	}
}

// BatchUpsertUsers creates absent user nodes.
func (g *MemoryIndex) BatchUpsertUsers(ctx context.Context, users []models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range users {
		g.upsertUserLocked(users[i])
	}
	return nil
}

// UpsertMovie creates the movie node if absent and merges its genre edges.
func (g *MemoryIndex) UpsertMovie(ctx context.Context, m models.Movie, genres []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	node, ok := g.movies[m.ID]
	if !ok {
		m.Genres = nil
		m.AvgRating = 0
		node = &memMovie{movie: m, genres: make(map[string]struct{})}
		g.movies[m.ID] = node
	}
	for _, name := range sortedGenres(genres) {
		node.genres[name] = struct{}{}
		set, ok := g.genres[name]
		if !ok {
			set = make(map[int64]struct{})
			g.genres[name] = set
		}
		set[m.ID] = struct{}{}
	}
	return nil
}

// UpsertPerson creates the person node if absent and adds the role.
func (g *MemoryIndex) UpsertPerson(ctx context.Context, p models.Person, role models.Role) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !role.Valid() {
		return &models.ArgumentError{Message: fmt.Sprintf("unknown person role %q", role)}
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	node, ok := g.people[p.ID]
	if !ok {
		node = &memPerson{person: p, roles: make(map[models.Role]struct{})}
		g.people[p.ID] = node
	}
	node.roles[role] = struct{}{}
	return nil
}

// UpsertActsEdge merges Person -ACTS-> Movie when both exist.
func (g *MemoryIndex) UpsertActsEdge(ctx context.Context, personID, movieID int64) error {
	return g.upsertCreditEdge(ctx, g.acts, personID, movieID)
}

// UpsertDirectsEdge merges Person -DIRECTS-> Movie when both exist.
func (g *MemoryIndex) UpsertDirectsEdge(ctx context.Context, personID, movieID int64) error {
	return g.upsertCreditEdge(ctx, g.directs, personID, movieID)
}

func (g *MemoryIndex) upsertCreditEdge(ctx context.Context, edges map[int64]map[int64]struct{}, personID, movieID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.people[personID]; !ok {
		return nil
	}
	if _, ok := g.movies[movieID]; !ok {
		return nil
	}
	link(edges, personID, movieID)
	return nil
}

// UpsertFollowsEdge merges User -FOLLOWS-> Person when both exist.
func (g *MemoryIndex) UpsertFollowsEdge(ctx context.Context, userID, personID int64) error {
	return g.BatchUpsertFollowsEdges(ctx, []models.Follow{{UserID: userID, PersonID: personID}})
}

// BatchUpsertFollowsEdges merges many FOLLOWS edges.
func (g *MemoryIndex) BatchUpsertFollowsEdges(ctx context.Context, follows []models.Follow) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, f := range follows {
		if _, ok := g.users[f.UserID]; !ok {
			continue
		}
		if _, ok := g.people[f.PersonID]; !ok {
			continue
		}
		link(g.follows, f.UserID, f.PersonID)
	}
	return nil
}

// UpsertWatchedEdge merges User -WATCHED-> Movie and reconciles the rating.
func (g *MemoryIndex) UpsertWatchedEdge(ctx context.Context, e WatchedEdge) error {
	return g.BatchUpsertWatchedEdges(ctx, []WatchedEdge{e})
}

// BatchUpsertWatchedEdges merges many WATCHED edges under one lock.
func (g *MemoryIndex) BatchUpsertWatchedEdges(ctx context.Context, edges []WatchedEdge) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range edges {
		g.upsertWatchedLocked(edges[i])
	}
	return nil
}

func (g *MemoryIndex) upsertWatchedLocked(e WatchedEdge) {
	if _, ok := g.users[e.UserID]; !ok {
		return
	}
	if _, ok := g.movies[e.MovieID]; !ok {
		return
	}

	stamp := updatedAt(e)
	var rating *float64
	if e.Rating != nil {
		r := *e.Rating
		rating = &r
	}

	byMovie, ok := g.watched[e.UserID]
	if !ok {
		byMovie = make(map[int64]*memWatch)
		g.watched[e.UserID] = byMovie
	}
	if w, ok := byMovie[e.MovieID]; ok {
		if stamp >= w.updatedAt {
			w.rating = rating
			w.updatedAt = stamp
		}
		return
	}
	byMovie[e.MovieID] = &memWatch{rating: rating, updatedAt: stamp}
	link(g.watchers, e.MovieID, e.UserID)
}

// UserBased ranks movies watched by co-watchers of username.
func (g *MemoryIndex) UserBased(ctx context.Context, username string, limit int) ([]models.MovieSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	userID, ok := g.usernames[username]
	if !ok {
		return []models.MovieSummary{}, nil
	}
	seen := g.watched[userID]

	others := make(map[int64]struct{})
	for movieID := range seen {
		for other := range g.watchers[movieID] {
			if other != userID {
				others[other] = struct{}{}
			}
		}
	}

	type tally struct {
		popularity int64
		sum        float64
		rated      int
	}
	tallies := make(map[int64]*tally)
	for other := range others {
		for movieID, w := range g.watched[other] {
			if _, mine := seen[movieID]; mine {
				continue
			}
			t, ok := tallies[movieID]
			if !ok {
				t = &tally{}
				tallies[movieID] = t
			}
			t.popularity++
			if w.rating != nil {
				t.sum += *w.rating
				t.rated++
			}
		}
	}

	out := make([]models.MovieSummary, 0, len(tallies))
	for movieID, t := range tallies {
		s := g.summaryLocked(movieID)
		pop := t.popularity
		var avg float64
		if t.rated > 0 {
			avg = t.sum / float64(t.rated)
		}
		s.Popularity = &pop
		s.AvgRating = &avg
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if *a.AvgRating != *b.AvgRating {
			return *a.AvgRating > *b.AvgRating
		}
		if *a.Popularity != *b.Popularity {
			return *a.Popularity > *b.Popularity
		}
		return a.ID < b.ID
	})
	return truncate(out, limitOr(limit, DefaultUserBasedLimit)), nil
}

// FollowBased lists unwatched movies by people username follows.
func (g *MemoryIndex) FollowBased(ctx context.Context, username string, limit int) ([]models.MovieSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	userID, ok := g.usernames[username]
	if !ok {
		return []models.MovieSummary{}, nil
	}
	seen := g.watched[userID]

	candidates := make(map[int64]struct{})
	for personID := range g.follows[userID] {
		for _, edges := range []map[int64]map[int64]struct{}{g.acts, g.directs} {
			for movieID := range edges[personID] {
				if _, mine := seen[movieID]; !mine {
					candidates[movieID] = struct{}{}
				}
			}
		}
	}

	out := make([]models.MovieSummary, 0, len(candidates))
	for movieID := range candidates {
		s := g.summaryLocked(movieID)
		avg := g.avgRatingLocked(movieID)
		s.AvgRating = &avg
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return truncate(out, limitOr(limit, DefaultFollowBasedLimit)), nil
}

// ContentBased lists other movies sharing a genre with movieID.
func (g *MemoryIndex) ContentBased(ctx context.Context, movieID int64, limit int) ([]models.MovieSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	node, ok := g.movies[movieID]
	if !ok {
		return []models.MovieSummary{}, nil
	}
	candidates := make(map[int64]struct{})
	for name := range node.genres {
		for other := range g.genres[name] {
			if other != movieID {
				candidates[other] = struct{}{}
			}
		}
	}

	out := make([]models.MovieSummary, 0, len(candidates))
	for id := range candidates {
		out = append(out, g.summaryLocked(id))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return truncate(out, limitOr(limit, DefaultContentLimit)), nil
}

func (g *MemoryIndex) summaryLocked(movieID int64) models.MovieSummary {
	node := g.movies[movieID]
	genres := make([]string, 0, len(node.genres))
	for name := range node.genres {
		genres = append(genres, name)
	}
	sort.Strings(genres)
	m := node.movie
	return models.MovieSummary{
		ID:          m.ID,
		Title:       m.Title,
		Duration:    m.Duration,
		PosterURL:   m.PosterURL,
		ReleaseYear: m.ReleaseYear,
		Synopsis:    m.Synopsis,
		IMDbID:      m.IMDbID,
		Genres:      genres,
	}
}

func (g *MemoryIndex) avgRatingLocked(movieID int64) float64 {
	var sum float64
	var n int
	for userID := range g.watchers[movieID] {
		if w := g.watched[userID][movieID]; w != nil && w.rating != nil {
			sum += *w.rating
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func truncate(movies []models.MovieSummary, limit int) []models.MovieSummary {
	if len(movies) > limit {
		return movies[:limit]
	}
	return movies
}

// DeleteAll removes every node and edge.
func (g *MemoryIndex) DeleteAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reset()
	return nil
}

// Ping always succeeds.
func (g *MemoryIndex) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op.
func (g *MemoryIndex) Close(context.Context) error {
	return nil
}

// Stats reports node and edge totals.
func (g *MemoryIndex) Stats() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s := Stats{
		Users:  len(g.users),
		Movies: len(g.movies),
		People: len(g.people),
		Genres: len(g.genres),
	}
	for _, set := range g.acts {
		s.Acts += len(set)
	}
	for _, set := range g.directs {
		s.Directs += len(set)
	}
	for _, set := range g.follows {
		s.Follows += len(set)
	}
	for _, set := range g.watched {
		s.Watched += len(set)
	}
	return s
}

// Stats counts nodes and edges in a MemoryIndex.
type Stats struct {
	Users, Movies, People, Genres   int
	Acts, Directs, Follows, Watched int
}
