// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

// Package testinfra provides containers for integration tests.
//
// Tests using this package carry the integration build tag and skip when
// Docker is unavailable:
//
//	func TestGraphAgainstNeo4j(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    ctx := context.Background()
//	    neo, err := testinfra.NewNeo4jContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, neo.Container)
//
//	    cfg := neo.GraphConfig()
//	    // build graph.New(cfg) and run queries
//	}
//
// First runs download the image; later runs use the local cache.
package testinfra
