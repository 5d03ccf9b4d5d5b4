// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

/*
Package graph is the relationship index behind the collaborative, follow
and genre-overlap recommendation strategies.

Model:

	(:User {id, username, birthDate})
	(:Movie {id, title, releaseYear, synopsis, duration, posterUrl, imdbId})
	(:Person:Actor|Director {id, firstName, lastName, birthYear})
	(:Genre {name})

	(:User)-[:WATCHED {rating, updatedAt}]->(:Movie)
	(:Person)-[:ACTS]->(:Movie)
	(:Person)-[:DIRECTS]->(:Movie)
	(:Movie)-[:BELONGS]->(:Genre)
	(:User)-[:FOLLOWS]->(:Person)

Engines:

  - Neo4jIndex runs Cypher through a Runner. DriverRunner executes with
    neo4j.ExecuteQuery and the eager result transformer; tests substitute
    a scripted Runner.
  - MemoryIndex keeps the same model in process, guarded by a RWMutex. It
    backs unit tests and the "memory" backend for local development.

Both engines give identical answers for the same sequence of writes.
*/
package graph
