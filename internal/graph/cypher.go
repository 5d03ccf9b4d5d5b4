// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

package graph

var schemaCypher = []string{
	`CREATE CONSTRAINT user_id IF NOT EXISTS FOR (u:User) REQUIRE u.id IS UNIQUE`,
	`CREATE CONSTRAINT movie_id IF NOT EXISTS FOR (m:Movie) REQUIRE m.id IS UNIQUE`,
	`CREATE CONSTRAINT person_id IF NOT EXISTS FOR (p:Person) REQUIRE p.id IS UNIQUE`,
	`CREATE CONSTRAINT genre_name IF NOT EXISTS FOR (g:Genre) REQUIRE g.name IS UNIQUE`,
	`CREATE INDEX user_username IF NOT EXISTS FOR (u:User) ON (u.username)`,
}

const upsertUserCypher = `
MERGE (u:User {id: $id})
ON CREATE SET u.username = $username, u.birthDate = $birth_date`

const batchUpsertUsersCypher = `
UNWIND $rows AS row
MERGE (u:User {id: row.id})
ON CREATE SET u.username = row.username, u.birthDate = row.birth_date`

const upsertMovieCypher = `
MERGE (m:Movie {id: $id})
ON CREATE SET m.title = $title, m.releaseYear = $release_year, m.synopsis = $synopsis,
              m.duration = $duration, m.posterUrl = $poster_url, m.imdbId = $imdb_id
WITH m
FOREACH (name IN $genres |
  MERGE (g:Genre {name: name})
  MERGE (m)-[:BELONGS]->(g))`

// Role labels cannot be parameters, so there is one statement per role.
const upsertActorCypher = `
MERGE (p:Person {id: $id})
ON CREATE SET p.firstName = $first_name, p.lastName = $last_name, p.birthYear = $birth_year
SET p:Actor`

const upsertDirectorCypher = `
MERGE (p:Person {id: $id})
ON CREATE SET p.firstName = $first_name, p.lastName = $last_name, p.birthYear = $birth_year
SET p:Director`

const upsertActsCypher = `
MATCH (p:Person {id: $person_id}), (m:Movie {id: $movie_id})
MERGE (p)-[:ACTS]->(m)`

const upsertDirectsCypher = `
MATCH (p:Person {id: $person_id}), (m:Movie {id: $movie_id})
MERGE (p)-[:DIRECTS]->(m)`

const upsertFollowsCypher = `
MATCH (u:User {id: $user_id}), (p:Person {id: $person_id})
MERGE (u)-[:FOLLOWS]->(p)`

const batchUpsertFollowsCypher = `
UNWIND $rows AS row
MATCH (u:User {id: row.user_id}), (p:Person {id: row.person_id})
MERGE (u)-[:FOLLOWS]->(p)`

// A write whose updatedAt is older than the stored one keeps the stored rating.
const watchedMergeClause = `
MERGE (u)-[w:WATCHED]->(m)
ON CREATE SET w.rating = $rating, w.updatedAt = $updated_at
ON MATCH SET
  w.rating = CASE WHEN w.updatedAt IS NULL OR $updated_at >= w.updatedAt THEN $rating ELSE w.rating END,
  w.updatedAt = CASE WHEN w.updatedAt IS NULL OR $updated_at >= w.updatedAt THEN $updated_at ELSE w.updatedAt END`

const upsertWatchedCypher = `
MATCH (u:User {id: $user_id}), (m:Movie {id: $movie_id})` + watchedMergeClause

const batchUpsertWatchedCypher = `
UNWIND $rows AS row
MATCH (u:User {id: row.user_id}), (m:Movie {id: row.movie_id})
MERGE (u)-[w:WATCHED]->(m)
ON CREATE SET w.rating = row.rating, w.updatedAt = row.updated_at
ON MATCH SET
  w.rating = CASE WHEN w.updatedAt IS NULL OR row.updated_at >= w.updatedAt THEN row.rating ELSE w.rating END,
  w.updatedAt = CASE WHEN w.updatedAt IS NULL OR row.updated_at >= w.updatedAt THEN row.updated_at ELSE w.updatedAt END`

// Co-watchers are collected distinct first so a co-watcher sharing several
// movies with the subject counts once per candidate.
const userBasedCypher = `
MATCH (u:User {username: $username})-[:WATCHED]->(:Movie)<-[:WATCHED]-(other:User)
WHERE other <> u
WITH u, COLLECT(DISTINCT other) AS others
UNWIND others AS other
MATCH (other)-[r:WATCHED]->(rec:Movie)
WHERE NOT (u)-[:WATCHED]->(rec)
WITH rec, COUNT(DISTINCT other) AS popularity, COALESCE(AVG(r.rating), 0.0) AS avg_rating
OPTIONAL MATCH (rec)-[:BELONGS]->(g:Genre)
WITH rec, popularity, avg_rating, COLLECT(DISTINCT g.name) AS genres
RETURN rec.id AS id, rec.title AS title, rec.duration AS duration,
       rec.posterUrl AS poster_url, rec.releaseYear AS release_year,
       rec.synopsis AS synopsis, rec.imdbId AS imdb_id,
       genres, popularity, avg_rating
ORDER BY avg_rating DESC, popularity DESC, id ASC
LIMIT $limit`

const followBasedCypher = `
MATCH (u:User {username: $username})-[:FOLLOWS]->(:Person)-[:ACTS|DIRECTS]->(m:Movie)
WHERE NOT (u)-[:WATCHED]->(m)
WITH DISTINCT m
OPTIONAL MATCH (m)<-[r:WATCHED]-(:User)
WITH m, COALESCE(AVG(r.rating), 0.0) AS avg_rating
OPTIONAL MATCH (m)-[:BELONGS]->(g:Genre)
WITH m, avg_rating, COLLECT(DISTINCT g.name) AS genres
RETURN m.id AS id, m.title AS title, m.duration AS duration,
       m.posterUrl AS poster_url, m.releaseYear AS release_year,
       m.synopsis AS synopsis, m.imdbId AS imdb_id,
       avg_rating, genres
ORDER BY id ASC
LIMIT $limit`

const contentBasedCypher = `
MATCH (m:Movie {id: $movie_id})-[:BELONGS]->(:Genre)<-[:BELONGS]-(rec:Movie)
WHERE rec.id <> $movie_id
WITH DISTINCT rec
OPTIONAL MATCH (rec)-[:BELONGS]->(g:Genre)
WITH rec, COLLECT(DISTINCT g.name) AS genres
RETURN rec.id AS id, rec.title AS title, rec.duration AS duration,
       rec.posterUrl AS poster_url, rec.releaseYear AS release_year,
       rec.synopsis AS synopsis, rec.imdbId AS imdb_id, genres
ORDER BY id ASC
LIMIT $limit`

// deleteBatchCypher removes up to $limit nodes per call; DeleteAll loops
// until a call deletes nothing so one transaction never holds the whole graph.
const deleteBatchCypher = `
MATCH (n)
WITH n LIMIT $limit
DETACH DELETE n
RETURN count(n) AS deleted`
