package googlebooks

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// SearchKey identifies a book for lookup. ISBN wins when set; otherwise
// the title/author pair is used. Both forms hit the same endpoint with
// different query syntax.
type SearchKey struct {
	ISBN   string
	Title  string
	Author string
}

// Query renders the key as a Books API q parameter.
func (k SearchKey) Query() string {
	if k.ISBN != "" {
		return "isbn:" + k.ISBN
	}

	var parts []string
	if title := strings.TrimSpace(k.Title); title != "" {
		parts = append(parts, "intitle:"+title)
	}
	if author := strings.TrimSpace(k.Author); author != "" {
		parts = append(parts, "inauthor:"+author)
	}
	return strings.Join(parts, " ")
}

// Search looks up the single best-matching volume for the key. One key
// maps to at most one outbound request; the rate limiter is consulted
// before the request leaves.
func (c *Client) Search(ctx context.Context, key SearchKey) (*Volume, error) {
	query := key.Query()
	if query == "" {
		return nil, wrapError("search", "", ErrEmptyQuery)
	}

	if err := c.wait(ctx); err != nil {
		return nil, wrapError("search", query, fmt.Errorf("rate limit: %w", err))
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("maxResults", "1")

	searchURL := c.baseURL + "/volumes?" + params.Encode()

	c.logger.Debug("searching books api",
		"query", query,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, wrapError("search", query, fmt.Errorf("create request: %w", err))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, wrapError("search", query, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusForbidden:
		// The Books API signals an exhausted daily quota with 403.
		return nil, wrapError("search", query, ErrQuotaExceeded)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, wrapError("search", query, ErrRateLimited)
	case resp.StatusCode >= 500:
		return nil, wrapError("search", query, fmt.Errorf("%w: status %d", ErrServer, resp.StatusCode))
	default:
		return nil, wrapError("search", query, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var volumes volumesResponse
	if err := json.UnmarshalRead(resp.Body, &volumes); err != nil {
		return nil, wrapError("search", query, fmt.Errorf("parse response: %w", err))
	}

	if volumes.TotalItems == 0 || len(volumes.Items) == 0 {
		return nil, wrapError("search", query, ErrNotFound)
	}

	info := volumes.Items[0].VolumeInfo

	c.logger.Debug("books api hit",
		"query", query,
		"title", info.Title,
		"categories", len(info.Categories),
	)

	return &Volume{
		Title:      info.Title,
		Authors:    info.Authors,
		Categories: info.Categories,
		Language:   info.Language,
	}, nil
}
