// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

//go:build integration

package testinfra

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/tomtom215/reelgraph/internal/config"
)

const (
	// DefaultNeo4jImage is the Neo4j community image used by integration tests.
	DefaultNeo4jImage = "neo4j:5.26-community"

	// DefaultNeo4jPassword is the password configured through NEO4J_AUTH.
	DefaultNeo4jPassword = "reelgraph-test"

	neo4jBoltPort = "7687"
	neo4jHTTPPort = "7474"
)

// Neo4jContainer is a running Neo4j server.
type Neo4jContainer struct {
	testcontainers.Container
	BoltURI  string
	Username string
	Password string
}

// Neo4jOption configures the Neo4j container.
type Neo4jOption func(*neo4jConfig)

type neo4jConfig struct {
	image        string
	password     string
	startTimeout time.Duration
}

// WithNeo4jImage sets a custom Neo4j image.
func WithNeo4jImage(image string) Neo4jOption {
	return func(c *neo4jConfig) {
		c.image = image
	}
}

// WithNeo4jStartTimeout sets how long to wait for Bolt to accept connections.
func WithNeo4jStartTimeout(timeout time.Duration) Neo4jOption {
	return func(c *neo4jConfig) {
		c.startTimeout = timeout
	}
}

// NewNeo4jContainer starts Neo4j and waits until Bolt is listening.
func NewNeo4jContainer(ctx context.Context, opts ...Neo4jOption) (*Neo4jContainer, error) {
	cfg := &neo4jConfig{
		image:        DefaultNeo4jImage,
		password:     DefaultNeo4jPassword,
		startTimeout: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	req := testcontainers.ContainerRequest{
		Image:        cfg.image,
		ExposedPorts: []string{neo4jBoltPort + "/tcp", neo4jHTTPPort + "/tcp"},
		Env: map[string]string{
			"NEO4J_AUTH":                         "neo4j/" + cfg.password,
			"NEO4J_server_memory_heap_max__size": "512m",
		},
		WaitingFor: wait.ForAll(
			wait.ForLog("Started."),
			wait.ForListeningPort(neo4jBoltPort+"/tcp"),
		).WithStartupTimeout(cfg.startTimeout),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("create neo4j container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get container host: %w", err)
	}
	port, err := container.MappedPort(ctx, neo4jBoltPort)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get mapped port: %w", err)
	}

	return &Neo4jContainer{
		Container: container,
		BoltURI:   fmt.Sprintf("neo4j://%s:%s", host, port.Port()),
		Username:  "neo4j",
		Password:  cfg.password,
	}, nil
}

// GraphConfig returns a graph configuration pointing at the container.
func (c *Neo4jContainer) GraphConfig() *config.GraphConfig {
	return &config.GraphConfig{
		Backend:      "neo4j",
		URI:          c.BoltURI,
		Username:     c.Username,
		Password:     c.Password,
		Database:     "neo4j",
		QueryTimeout: 30 * time.Second,
		MaxPoolSize:  10,
	}
}
