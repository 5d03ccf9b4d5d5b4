// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

package enrich

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/reelgraph/internal/breaker"
	"github.com/tomtom215/reelgraph/internal/config"
	"github.com/tomtom215/reelgraph/internal/metrics"
	"github.com/tomtom215/reelgraph/internal/models"
)

const (
	maxErrorBodySize = 4 * 1024
	notAvailable     = "N/A"
)

// MovieDetails is the subset of an OMDb record reelgraph stores.
type MovieDetails struct {
	IMDbID    string
	Title     string
	Year      int
	Runtime   int // minutes
	Genres    []string
	Directors []string
	Actors    []string
	Plot      string
	PosterURL string
	Language  string
}

type omdbResponse struct {
	Response string `json:"Response"`
	Error    string `json:"Error"`
	IMDbID   string `json:"imdbID"`
	Title    string `json:"Title"`
	Year     string `json:"Year"`
	Runtime  string `json:"Runtime"`
	Genre    string `json:"Genre"`
	Director string `json:"Director"`
	Actors   string `json:"Actors"`
	Plot     string `json:"Plot"`
	Poster   string `json:"Poster"`
	Language string `json:"Language"`
}

// Client fetches movie details by IMDb id.
type Client struct {
	client  *http.Client
	baseURL string
	apiKey  string
	timeout time.Duration
	limiter *rate.Limiter
	breaker *breaker.Breaker
}

// NewClient creates a client for cfg.BaseURL.
func NewClient(cfg *config.EnrichConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("enrich base url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &Client{
		client:  &http.Client{Timeout: timeout},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		timeout: timeout,
		limiter: rate.NewLimiter(limit, 1),
		breaker: breaker.New("omdb"),
	}, nil
}

// Lookup fetches the details of imdbID.
func (c *Client) Lookup(ctx context.Context, imdbID string) (*MovieDetails, error) {
	if imdbID == "" {
		return nil, &models.ValidationError{Field: "imdb_id", Message: "must not be empty"}
	}

	start := time.Now()
	resp, err := c.lookup(ctx, imdbID)
	if err != nil {
		metrics.RecordEnrich("error", time.Since(start))
		return nil, models.NewDependency("enrich", "lookup", err)
	}
	if resp.Response != "True" {
		metrics.RecordEnrich("not_found", time.Since(start))
		return nil, models.NewNotFound("imdb title", imdbID)
	}
	metrics.RecordEnrich("ok", time.Since(start))

	details := resp.details()
	if details.IMDbID == "" {
		details.IMDbID = imdbID
	}
	return details, nil
}

func (c *Client) lookup(ctx context.Context, imdbID string) (*omdbResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	return breaker.Do(c.breaker, func() (*omdbResponse, error) {
		return c.get(ctx, imdbID)
	})
}

func (c *Client) get(ctx context.Context, imdbID string) (*omdbResponse, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	q := u.Query()
	q.Set("i", imdbID)
	q.Set("plot", "full")
	if c.apiKey != "" {
		q.Set("apikey", c.apiKey)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, fmt.Errorf("omdb returned %d: %s", resp.StatusCode, snippet)
	}

	var decoded omdbResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &decoded, nil
}

func (r *omdbResponse) details() *MovieDetails {
	return &MovieDetails{
		IMDbID:    clean(r.IMDbID),
		Title:     clean(r.Title),
		Year:      ParseYear(r.Year),
		Runtime:   ParseRuntime(r.Runtime),
		Genres:    SplitList(r.Genre),
		Directors: SplitList(r.Director),
		Actors:    SplitList(r.Actors),
		Plot:      clean(r.Plot),
		PosterURL: clean(r.Poster),
		Language:  clean(r.Language),
	}
}

func clean(s string) string {
	s = strings.TrimSpace(s)
	if s == notAvailable {
		return ""
	}
	return s
}

// ParseRuntime reads the leading minute count of "142 min". Anything else
// is 0.
func ParseRuntime(s string) int {
	field, _, _ := strings.Cut(clean(s), " ")
	n, err := strconv.Atoi(field)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// ParseYear reads the leading four-digit year of "1999" or "1999–2002".
// Anything else is 0.
func ParseYear(s string) int {
	s = clean(s)
	if len(s) < 4 {
		return 0
	}
	n, err := strconv.Atoi(s[:4])
	if err != nil {
		return 0
	}
	return n
}

// SplitList splits a comma separated OMDb field, dropping blanks and "N/A".
func SplitList(s string) []string {
	s = clean(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = clean(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
