// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

package models

import (
	"errors"
	"fmt"
)

// NotFoundError reports a user, movie or person missing from the primary store.
type NotFoundError struct {
	Kind string // "user", "movie", "person"
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.Key)
}

// NewNotFound builds a NotFoundError for any printable key.
func NewNotFound(kind string, key interface{}) *NotFoundError {
	return &NotFoundError{Kind: kind, Key: fmt.Sprint(key)}
}

// ValidationError reports malformed caller input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// DependencyError reports an unreachable or failing external store or service.
// Queued is set when a write path handed the change to the retry queue.
type DependencyError struct {
	Dependency string // "graph", "vector", "embedding", "enrich", "catalog", "queue"
	Op         string
	Err        error
	Queued     bool
}

func (e *DependencyError) Error() string {
	msg := fmt.Sprintf("%s %s failed", e.Dependency, e.Op)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Queued {
		msg += " (queued for retry)"
	}
	return msg
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}

// NewDependency wraps err as a DependencyError.
func NewDependency(dependency, op string, err error) *DependencyError {
	return &DependencyError{Dependency: dependency, Op: op, Err: err}
}

// ArgumentError reports a programmer contract violation.
type ArgumentError struct {
	Message string
}

func (e *ArgumentError) Error() string {
	return "invalid argument: " + e.Message
}

// IsNotFound reports whether err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsValidation reports whether err wraps a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsDependency reports whether err wraps a DependencyError.
func IsDependency(err error) bool {
	var target *DependencyError
	return errors.As(err, &target)
}

// IsQueued reports whether err is a DependencyError whose change was queued for retry.
func IsQueued(err error) bool {
	var target *DependencyError
	return errors.As(err, &target) && target.Queued
}

// IsArgument reports whether err wraps an ArgumentError.
func IsArgument(err error) bool {
	var target *ArgumentError
	return errors.As(err, &target)
}

// ConflictError reports a write that collides with existing state, such as a
// taken username.
type ConflictError struct {
	Kind string
	Key  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s already exists", e.Kind, e.Key)
}

// IsConflict reports whether err wraps a ConflictError.
func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}
