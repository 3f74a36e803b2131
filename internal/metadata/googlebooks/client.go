package googlebooks

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://www.googleapis.com/books/v1"

// Client provides rate-limited access to the Google Books volumes API.
// All lookups pass through one limiter, so the spacing between outbound
// requests holds regardless of how many callers share the client.
type Client struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	baseURL     string
	logger      *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint, mainly for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient creates a new Books API client. Interval is the minimum
// spacing between requests; burst is 1 so bursts can never exceed it.
func NewClient(interval time.Duration, logger *slog.Logger, opts ...Option) *Client {
	if interval <= 0 {
		interval = time.Second
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		rateLimiter: rate.NewLimiter(rate.Every(interval), 1),
		baseURL:     defaultBaseURL,
		logger:      logger,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// wait blocks until the rate limiter allows a request.
func (c *Client) wait(ctx context.Context) error {
	return c.rateLimiter.Wait(ctx)
}
