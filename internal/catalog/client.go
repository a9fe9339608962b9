package catalog

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
)

const (
	defaultMaxResults = 12
	maxResultsLimit   = 40
)

// ErrNotFound is returned when a volume id is unknown to the catalog.
var ErrNotFound = errors.New("volume not found")

// Searcher is the catalog surface used by the library service.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]Volume, error)
	Volume(ctx context.Context, id string) (*Volume, error)
}

// Client provides access to the Google Books volumes API.
type Client struct {
	apiKey     string
	baseURL    string
	maxResults int
	httpClient *http.Client
}

var _ Searcher = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithAPIKey sets the optional API key sent as the key query parameter.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = strings.TrimSpace(key)
	}
}

// WithMaxResults sets the result count used when Search is called with limit <= 0.
func WithMaxResults(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxResults = clampLimit(n)
		}
	}
}

// New creates a catalog client rooted at baseURL (for example
// https://www.googleapis.com/books/v1).
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("catalog base url required")
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		maxResults: defaultMaxResults,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Search runs a free-text volume search returning at most limit items.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Volume, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}
	if limit <= 0 {
		limit = c.maxResults
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("maxResults", strconv.Itoa(clampLimit(limit)))

	var payload searchResponse
	if err := c.get(ctx, "/volumes", params, &payload); err != nil {
		return nil, fmt.Errorf("catalog search: %w", err)
	}
	volumes := make([]Volume, 0, len(payload.Items))
	for _, item := range payload.Items {
		if strings.TrimSpace(item.ID) == "" {
			continue
		}
		volumes = append(volumes, item)
	}
	return volumes, nil
}

// Volume fetches a single volume by its catalog id.
func (c *Client) Volume(ctx context.Context, id string) (*Volume, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("volume id must not be empty")
	}
	var payload Volume
	if err := c.get(ctx, "/volumes/"+url.PathEscape(id), url.Values{}, &payload); err != nil {
		return nil, fmt.Errorf("catalog volume %s: %w", id, err)
	}
	if payload.ID == "" {
		payload.ID = id
	}
	return &payload, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("parse catalog url: %w", err)
	}
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("catalog returned %d (latency=%v): %s", resp.StatusCode, latency, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode catalog response: %w", err)
	}
	return nil
}

func clampLimit(n int) int {
	switch {
	case n < 1:
		return 1
	case n > maxResultsLimit:
		return maxResultsLimit
	default:
		return n
	}
}
