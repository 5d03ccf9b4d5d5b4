// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

// Package docs registers the Swagger 2.0 description of the HTTP API with
// swag so http-swagger can serve it at /swagger/doc.json.
//
// The document is maintained by hand next to internal/api/chi_router.go.
// Add a path here whenever a route is added there.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "license": {
            "name": "AGPL-3.0-or-later"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "tags": ["health"],
                "summary": "Per-component health, healthy or degraded",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "Health report", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/health/live": {
            "get": {
                "tags": ["health"],
                "summary": "Liveness probe",
                "responses": {"200": {"description": "Process is running"}}
            }
        },
        "/health/ready": {
            "get": {
                "tags": ["health"],
                "summary": "Readiness probe",
                "responses": {
                    "200": {"description": "Ready to serve"},
                    "503": {"description": "Not ready"}
                }
            }
        },
        "/api/v1/recommendations/users/{username}/collaborative": {
            "get": {
                "tags": ["recommendations"],
                "summary": "Movies watched by users with overlapping history",
                "produces": ["application/json"],
                "parameters": [{"$ref": "#/parameters/username"}],
                "responses": {
                    "200": {"description": "Recommendations, empty for unknown users or a degraded index", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/api/v1/recommendations/users/{username}/follows": {
            "get": {
                "tags": ["recommendations"],
                "summary": "Movies featuring people the user follows",
                "produces": ["application/json"],
                "parameters": [{"$ref": "#/parameters/username"}],
                "responses": {
                    "200": {"description": "Recommendations, empty for unknown users or a degraded index", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/api/v1/recommendations/movies/{movieID}/graph": {
            "get": {
                "tags": ["recommendations"],
                "summary": "Movies sharing genres and people with the source movie",
                "produces": ["application/json"],
                "parameters": [{"$ref": "#/parameters/movieID"}],
                "responses": {
                    "200": {"description": "Recommendations, empty when nothing matches", "schema": {"$ref": "#/definitions/Envelope"}},
                    "400": {"description": "Malformed movie id", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/api/v1/recommendations/movies/{movieID}/semantic": {
            "get": {
                "tags": ["recommendations"],
                "summary": "Movies whose synopsis embeds close to the source movie",
                "produces": ["application/json"],
                "parameters": [
                    {"$ref": "#/parameters/movieID"},
                    {"name": "genres", "in": "query", "type": "boolean", "description": "Restrict to the source movie's leading genres"}
                ],
                "responses": {
                    "200": {"description": "Recommendations, empty when nothing matches", "schema": {"$ref": "#/definitions/Envelope"}},
                    "400": {"description": "Malformed parameter", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/api/v1/search/plot": {
            "get": {
                "tags": ["recommendations"],
                "summary": "Movies whose synopsis matches free text",
                "produces": ["application/json"],
                "parameters": [{"name": "q", "in": "query", "type": "string", "description": "Plot description"}],
                "responses": {
                    "200": {"description": "Matches, empty for blank text", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/api/v1/users/{username}/watch-history": {
            "get": {
                "tags": ["catalog"],
                "summary": "A user's watched movies, newest first",
                "produces": ["application/json"],
                "parameters": [{"$ref": "#/parameters/username"}],
                "responses": {
                    "200": {"description": "Watch history", "schema": {"$ref": "#/definitions/Envelope"}},
                    "404": {"description": "Unknown user", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/api/v1/users": {
            "post": {
                "tags": ["catalog"],
                "summary": "Register a user",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateUserRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/Envelope"}},
                    "202": {"description": "Stored, index update queued", "schema": {"$ref": "#/definitions/Envelope"}},
                    "400": {"description": "Invalid body", "schema": {"$ref": "#/definitions/Envelope"}},
                    "409": {"description": "Username taken", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/api/v1/users/{username}/follows/{personID}": {
            "post": {
                "tags": ["catalog"],
                "summary": "Follow an actor or director",
                "produces": ["application/json"],
                "parameters": [
                    {"$ref": "#/parameters/username"},
                    {"name": "personID", "in": "path", "required": true, "type": "integer", "format": "int64"}
                ],
                "responses": {
                    "200": {"description": "Already following", "schema": {"$ref": "#/definitions/Envelope"}},
                    "201": {"description": "Followed", "schema": {"$ref": "#/definitions/Envelope"}},
                    "202": {"description": "Stored, index update queued", "schema": {"$ref": "#/definitions/Envelope"}},
                    "404": {"description": "Unknown user or person", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/api/v1/watch-history": {
            "post": {
                "tags": ["catalog"],
                "summary": "Record or update a watch",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/WatchRequest"}}],
                "responses": {
                    "200": {"description": "Updated", "schema": {"$ref": "#/definitions/Envelope"}},
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/Envelope"}},
                    "202": {"description": "Stored, index update queued", "schema": {"$ref": "#/definitions/Envelope"}},
                    "400": {"description": "Invalid body", "schema": {"$ref": "#/definitions/Envelope"}},
                    "404": {"description": "Unknown user or movie", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/api/v1/movies/imdb": {
            "post": {
                "tags": ["catalog"],
                "summary": "Add a movie from its IMDb id or URL",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/IMDbRequest"}}],
                "responses": {
                    "200": {"description": "Already in the catalog", "schema": {"$ref": "#/definitions/Envelope"}},
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/Envelope"}},
                    "202": {"description": "Stored, index update queued", "schema": {"$ref": "#/definitions/Envelope"}},
                    "400": {"description": "Malformed reference", "schema": {"$ref": "#/definitions/Envelope"}},
                    "503": {"description": "Metadata service unavailable", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/api/v1/admin/status": {
            "get": {
                "tags": ["admin"],
                "summary": "Index sync status",
                "produces": ["application/json"],
                "responses": {"200": {"description": "Status", "schema": {"$ref": "#/definitions/Envelope"}}}
            }
        },
        "/api/v1/admin/rebuild/graph": {
            "post": {
                "tags": ["admin"],
                "summary": "Rebuild the graph index from the catalog",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "Rebuild report", "schema": {"$ref": "#/definitions/Envelope"}},
                    "409": {"description": "A rebuild is already running", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/api/v1/admin/rebuild/vector": {
            "post": {
                "tags": ["admin"],
                "summary": "Rebuild the vector index from the catalog",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "Rebuild report", "schema": {"$ref": "#/definitions/Envelope"}},
                    "409": {"description": "A rebuild is already running", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        }
    },
    "parameters": {
        "username": {"name": "username", "in": "path", "required": true, "type": "string"},
        "movieID": {"name": "movieID", "in": "path", "required": true, "type": "integer", "format": "int64"}
    },
    "definitions": {
        "Envelope": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["success", "error"]},
                "data": {"type": "object"},
                "metadata": {
                    "type": "object",
                    "properties": {
                        "timestamp": {"type": "string", "format": "date-time"},
                        "query_time_ms": {"type": "integer"},
                        "count": {"type": "integer"}
                    }
                },
                "error": {
                    "type": "object",
                    "properties": {
                        "code": {"type": "string"},
                        "message": {"type": "string"},
                        "details": {"type": "object"}
                    }
                }
            }
        },
        "CreateUserRequest": {
            "type": "object",
            "required": ["username"],
            "properties": {
                "id": {"type": "integer", "format": "int64"},
                "username": {"type": "string", "maxLength": 150},
                "birth_date": {"type": "string", "format": "date-time"}
            }
        },
        "WatchRequest": {
            "type": "object",
            "required": ["username", "movie_id"],
            "properties": {
                "username": {"type": "string", "maxLength": 150},
                "movie_id": {"type": "integer", "format": "int64"},
                "rating": {"type": "number", "minimum": 0, "maximum": 5, "multipleOf": 0.5},
                "watched_at": {"type": "string", "format": "date-time"}
            }
        },
        "IMDbRequest": {
            "type": "object",
            "required": ["imdb"],
            "properties": {
                "imdb": {"type": "string", "example": "tt0133093"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Reelgraph API",
	Description:      "Movie recommendations from a relationship graph and a semantic vector index over one catalog.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
