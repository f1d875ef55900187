// Package tmdb is a small client for The Movie Database search, detail and
// credits endpoints. Each Lookup is normalized into a storage.Movie.
package tmdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/runnerr0/marquee/internal/logging"
	"github.com/runnerr0/marquee/internal/metrics"
	"github.com/runnerr0/marquee/internal/storage"
)

const breakerName = "tmdb-api"

// Config configures a Client.
type Config struct {
	APIKey       string
	BaseURL      string
	ImageBaseURL string
	Timeout      time.Duration

	// RequestsPerSecond paces outbound calls; zero disables pacing.
	RequestsPerSecond float64
	Burst             int

	// HTTPClient overrides the default client (tests).
	HTTPClient *http.Client
}

// Client calls the TMDB v3 API. Calls are never retried.
type Client struct {
	apiKey       string
	baseURL      string
	imageBaseURL string
	http         *http.Client
	limiter      *rate.Limiter
	cb           *gobreaker.CircuitBreaker[[]byte]
}

// New creates a Client.
//
// Circuit breaker: opens after 5 consecutive failures, stays open for 30s,
// then lets a single probe through. 4xx answers other than 429 mean the
// API is up and do not count as failures.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var se *StatusError
			if errors.As(err, &se) {
				return se.StatusCode >= 400 && se.StatusCode < 500 && se.StatusCode != http.StatusTooManyRequests
			}
			return errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	return &Client{
		apiKey:       cfg.APIKey,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		imageBaseURL: cfg.ImageBaseURL,
		http:         httpClient,
		limiter:      rate.NewLimiter(limit, burst),
		cb:           cb,
	}
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// Search returns the IDs of movies matching query, in API order.
func (c *Client) Search(ctx context.Context, query string) ([]int64, error) {
	body, err := c.get(ctx, "search", "/search/movie", url.Values{"query": {query}})
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	ids := make([]int64, 0, len(resp.Results))
	for _, r := range resp.Results {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

// Lookup fetches detail and credits for id and normalizes them. A credits
// failure leaves the director as "N/A"; a detail failure is returned.
func (c *Client) Lookup(ctx context.Context, id int64) (*storage.Movie, error) {
	idStr := strconv.FormatInt(id, 10)

	body, err := c.get(ctx, "movie", "/movie/"+idStr, nil)
	if err != nil {
		return nil, err
	}
	var details movieDetails
	if err := json.Unmarshal(body, &details); err != nil {
		return nil, fmt.Errorf("decode movie %d: %w", id, err)
	}

	director := NotAvailable
	body, err = c.get(ctx, "credits", "/movie/"+idStr+"/credits", nil)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Int64("movie_id", id).Msg("tmdb credits unavailable")
	} else {
		var credits creditsResponse
		if err := json.Unmarshal(body, &credits); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Int64("movie_id", id).Msg("tmdb credits undecodable")
		} else {
			director = findDirector(credits)
		}
	}

	return c.normalize(id, details, director), nil
}

func (c *Client) normalize(id int64, d movieDetails, director string) *storage.Movie {
	names := make([]string, 0, len(d.Genres))
	for _, g := range d.Genres {
		names = append(names, g.Name)
	}

	m := &storage.Movie{
		ID:          id,
		Title:       orNotAvailable(d.Title),
		Genre:       strings.Join(names, ", "),
		ReleaseDate: orNotAvailable(d.ReleaseDate),
		Director:    director,
	}
	if d.PosterPath != "" {
		m.PosterURL = c.imageBaseURL + d.PosterPath
	}
	return m
}

// findDirector returns the first crew member whose job is "Director".
func findDirector(credits creditsResponse) string {
	for _, member := range credits.Crew {
		if member.Job == "Director" {
			return orNotAvailable(member.Name)
		}
	}
	return NotAvailable
}

func orNotAvailable(s string) string {
	if s == "" {
		return NotAvailable
	}
	return s
}

// get performs a paced, breaker-guarded GET. endpoint is the metrics and
// log label; the API key never appears in logs.
func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("tmdb %s: %w", endpoint, err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)
	reqURL := c.baseURL + path + "?" + params.Encode()

	body, err := c.cb.Execute(func() ([]byte, error) {
		return c.do(ctx, endpoint, reqURL)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.TMDBRequestsTotal.WithLabelValues(endpoint, "rejected").Inc()
			return nil, fmt.Errorf("tmdb %s: %w", endpoint, err)
		}
		return nil, err
	}

	metrics.TMDBRequestsTotal.WithLabelValues(endpoint, "ok").Inc()
	return body, nil
}

func (c *Client) do(ctx context.Context, endpoint, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("tmdb %s: build request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.TMDBRequestsTotal.WithLabelValues(endpoint, "transport").Inc()
		// url.Error embeds the full URL, key included
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, fmt.Errorf("tmdb %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	logging.Ctx(ctx).Debug().
		Str("endpoint", endpoint).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("tmdb request")

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		metrics.TMDBRequestsTotal.WithLabelValues(endpoint, "status").Inc()
		return nil, &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tmdb %s: read body: %w", endpoint, err)
	}
	return body, nil
}
