// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

package ingest

import (
	"errors"
	"net/url"
	"regexp"
	"strings"

	"github.com/tomtom215/reelgraph/internal/models"
)

var (
	imdbIDPattern     = regexp.MustCompile(`^tt\d{7,10}$`)
	errEnrichDisabled = errors.New("movie lookup is not configured")
)

// ParseIMDbRef extracts the title id from "tt0133093" or a title URL such
// as "https://www.imdb.com/title/tt0133093/".
func ParseIMDbRef(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", &models.ValidationError{Field: "imdb", Message: "an IMDb id or URL is required"}
	}
	if imdbIDPattern.MatchString(ref) {
		return ref, nil
	}

	u, err := url.Parse(ref)
	if err == nil && u.Host != "" {
		segments := strings.Split(strings.Trim(u.Path, "/"), "/")
		for i := len(segments) - 1; i >= 0; i-- {
			if imdbIDPattern.MatchString(segments[i]) {
				return segments[i], nil
			}
		}
	}
	return "", &models.ValidationError{Field: "imdb", Message: "no IMDb title id in " + ref}
}

// SplitName splits a credited name on its first space. Birth year is
// unknown and stays 0.
func SplitName(name string) models.Person {
	name = strings.TrimSpace(name)
	first, last, _ := strings.Cut(name, " ")
	return models.Person{FirstName: first, LastName: strings.TrimSpace(last)}
}
