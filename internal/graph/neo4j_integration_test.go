// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

//go:build integration

package graph

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/tomtom215/reelgraph/internal/models"
	"github.com/tomtom215/reelgraph/internal/testinfra"
)

// TestNeo4jIndex_Integration runs the same scenarios as the memory engine
// against a real server so both engines stay interchangeable.
func TestNeo4jIndex_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	testinfra.SkipIfNoDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	opts := []testinfra.Neo4jOption{testinfra.WithNeo4jStartTimeout(3 * time.Minute)}
	if image := os.Getenv("NEO4J_TEST_IMAGE"); image != "" {
		opts = append(opts, testinfra.WithNeo4jImage(image))
	}
	neo, err := testinfra.NewNeo4jContainer(ctx, opts...)
	if err != nil {
		t.Fatalf("Failed to create Neo4j container: %v", err)
	}
	defer testinfra.CleanupContainer(t, ctx, neo.Container)

	g, err := New(neo.GraphConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer g.Close(ctx) //nolint:errcheck

	if err := g.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	// Constraints are idempotent.
	if err := g.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema twice: %v", err)
	}

	mem := NewMemoryIndex()
	seedWatchGraph(t, g)
	seedWatchGraph(t, mem)

	t.Run("user based matches memory engine", func(t *testing.T) {
		want, err := mem.UserBased(ctx, "u1", 0)
		if err != nil {
			t.Fatal(err)
		}
		got, err := g.UserBased(ctx, "u1", 0)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("engines disagree (-memory +neo4j):\n%s", diff)
		}
	})

	t.Run("content based", func(t *testing.T) {
		got, err := g.ContentBased(ctx, 1, 0)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]int64{3}, ids(got)); diff != "" {
			t.Errorf("content ids mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("older rating does not overwrite", func(t *testing.T) {
		later := epoch.Add(time.Hour)
		for _, e := range []WatchedEdge{
			{UserID: 2, MovieID: 3, Rating: ptr(1.0), WatchedAt: later},
			{UserID: 2, MovieID: 3, Rating: ptr(5.0), WatchedAt: epoch},
		} {
			if err := g.UpsertWatchedEdge(ctx, e); err != nil {
				t.Fatal(err)
			}
		}
		got, err := g.UserBased(ctx, "u1", 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 || got[0].AvgRating == nil || *got[0].AvgRating != 1.0 {
			t.Errorf("got %+v, want movie 3 with avg 1.0", got)
		}
	})

	t.Run("follow based", func(t *testing.T) {
		if err := g.UpsertPerson(ctx, models.Person{ID: 100, FirstName: "Ann"}, models.RoleActor); err != nil {
			t.Fatal(err)
		}
		if err := g.UpsertActsEdge(ctx, 100, 3); err != nil {
			t.Fatal(err)
		}
		if err := g.UpsertFollowsEdge(ctx, 1, 100); err != nil {
			t.Fatal(err)
		}
		// Missing endpoint: no-op.
		if err := g.UpsertFollowsEdge(ctx, 1, 999); err != nil {
			t.Fatal(err)
		}
		got, err := g.FollowBased(ctx, "u1", 0)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]int64{3}, ids(got)); diff != "" {
			t.Errorf("follow ids mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("delete all", func(t *testing.T) {
		if err := g.DeleteAll(ctx); err != nil {
			t.Fatal(err)
		}
		got, err := g.UserBased(ctx, "u1", 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 0 {
			t.Errorf("UserBased after DeleteAll = %v", ids(got))
		}
	})
}
