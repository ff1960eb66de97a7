// Package client provides the League API HTTP client used to read ranked
// ladder pages.
//
// The client does not rate-limit or retry on its own: pacing is done by the
// caller through the ratelimit package and a failed page fails the run.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/ladder-ingest/pkg/league"
	"github.com/Sternrassler/ladder-ingest/pkg/pagination"
)

// ServerPlaceholder is replaced by the platform routing value in BaseURL.
const ServerPlaceholder = "{server}"

// DefaultBaseURL is the production League API host template.
const DefaultBaseURL = "https://" + ServerPlaceholder + ".api.riotgames.com"

// ServerKey is the record key the client adds to every entry. The API
// payload identifies queue, tier and division but not the server.
const ServerKey = "server"

// Prometheus metrics for League API requests.
var (
	apiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ladder_api_requests_total",
		Help: "Total League API requests by server and status",
	}, []string{"server", "status"})

	apiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ladder_api_request_duration_seconds",
		Help:    "League API request duration in seconds by server",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"server"})

	apiErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ladder_api_errors_total",
		Help: "Total League API errors by class",
	}, []string{"class"})
)

// Client reads league entries from the Riot League API.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// Token is sent as X-Riot-Token. It is passed through as is.
	Token string

	// User-Agent header
	UserAgent string

	// BaseURL is the API host. ServerPlaceholder, if present, is replaced by
	// the server's routing value; without it every server uses the same host.
	BaseURL string

	// Timeout per request
	Timeout time.Duration
}

// DefaultConfig returns a configuration for the production API.
func DefaultConfig(token, userAgent string) Config {
	return Config{
		Token:     token,
		UserAgent: userAgent,
		BaseURL:   DefaultBaseURL,
		Timeout:   30 * time.Second,
	}
}

// New creates a new League API client.
func New(cfg Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("api token is required")
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	probe := strings.ReplaceAll(cfg.BaseURL, ServerPlaceholder, "euw1")
	if u, err := url.Parse(probe); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		config: cfg,
		logger: log.With().Str("component", "riot-client").Logger(),
	}, nil
}

// EntriesURL returns the URL of one page of a bracket.
func (c *Client) EntriesURL(b league.Bracket, page int) string {
	host := strings.ReplaceAll(c.config.BaseURL, ServerPlaceholder, strings.ToLower(string(b.Server)))
	return fmt.Sprintf("%s/lol/league/v4/entries/%s/%s/%s?page=%d",
		strings.TrimRight(host, "/"),
		url.PathEscape(string(b.Queue)),
		url.PathEscape(string(b.Tier)),
		url.PathEscape(string(b.Division)),
		page,
	)
}

// Entries fetches one page of a bracket. Pages are numbered from 1; a page
// past the end of the ladder is empty.
//
// Every returned record carries the bracket's server under ServerKey.
// Non-2xx responses are returned as *APIError.
func (c *Client) Entries(ctx context.Context, b league.Bracket, page int) ([]league.Record, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if page < 1 {
		return nil, fmt.Errorf("page must be >= 1 (got %d)", page)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.EntriesURL(b, page), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.do(req, string(b.Server))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var entries []league.Record
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		apiErrorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Class:      ErrorClassDecode,
			Message:    "decode entries",
			Err:        err,
		}
	}

	for _, e := range entries {
		if e == nil {
			return nil, &APIError{
				StatusCode: resp.StatusCode,
				Class:      ErrorClassDecode,
				Message:    "null entry in page",
			}
		}
		e[ServerKey] = string(b.Server)
	}

	c.logger.Debug().
		Str("bracket", b.String()).
		Int("page", page).
		Int("entries", len(entries)).
		Msg("Fetched page")

	if entries == nil {
		entries = []league.Record{}
	}
	return entries, nil
}

// PageFunc binds Entries to a bracket for use with a pagination.Fetcher.
func (c *Client) PageFunc(b league.Bracket) pagination.PageFunc {
	return func(ctx context.Context, page int) ([]league.Record, error) {
		return c.Entries(ctx, b, page)
	}
}

// do sends req with auth headers and turns failures into *APIError.
// On success the caller owns the response body.
func (c *Client) do(req *http.Request, server string) (*http.Response, error) {
	startTime := time.Now()
	defer func() {
		apiRequestDuration.WithLabelValues(server).Observe(time.Since(startTime).Seconds())
	}()

	req.Header.Set("X-Riot-Token", c.config.Token)
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			apiRequestsTotal.WithLabelValues(server, "cancelled").Inc()
			return nil, ctxErr
		}
		apiErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		apiRequestsTotal.WithLabelValues(server, "network_error").Inc()
		c.logger.Error().Err(err).Str("server", server).Msg("HTTP request failed")
		return nil, &APIError{
			Class:   ErrorClassNetwork,
			Message: "request failed",
			Err:     err,
		}
	}

	apiRequestsTotal.WithLabelValues(server, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

		class := classifyStatus(resp.StatusCode)
		apiErrorsTotal.WithLabelValues(string(class)).Inc()

		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Class:      class,
			Message:    resp.Status,
		}
		if class == ErrorClassRateLimit {
			apiErr.RetryAfter = retryAfter(resp.Header)
		}

		c.logger.Warn().
			Str("server", server).
			Str("path", req.URL.Path).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("League API request error")
		return nil, apiErr
	}

	return resp, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
