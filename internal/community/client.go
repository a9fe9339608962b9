package community

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ErrNotFound is returned when Open Library has no matching resource.
var ErrNotFound = errors.New("community record not found")

// WorkKey is an Open Library work path such as /works/OL45804W.
type WorkKey string

// Ratings is the community rating aggregate for a work.
type Ratings struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// Empty reports whether the aggregate carries no usable data.
func (r Ratings) Empty() bool {
	return r.Count <= 0 || r.Average <= 0
}

// Client provides access to the Open Library API.
type Client struct {
	httpClient *http.Client
	userAgent  string
	baseURL    string
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
}

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

// WithBackoff sets the base delay between retries; attempt n waits base*2^(n-1).
func WithBackoff(base time.Duration) Option {
	return func(c *Client) {
		if base >= 0 {
			c.backoff = base
		}
	}
}

// NewClient creates an Open Library client. rps <= 0 disables rate limiting.
func NewClient(baseURL, userAgent string, rps, maxRetries int, opts ...Option) *Client {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Every(time.Second / time.Duration(rps))
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	c := &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		userAgent:  userAgent,
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		limiter:    rate.NewLimiter(limit, 1),
		maxRetries: maxRetries,
		backoff:    time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type editionResponse struct {
	Works []struct {
		Key string `json:"key"`
	} `json:"works"`
}

type searchResponse struct {
	NumFound int `json:"numFound"`
	Docs     []struct {
		Key   string `json:"key"`
		Title string `json:"title"`
	} `json:"docs"`
}

type ratingsResponse struct {
	Summary Ratings `json:"summary"`
}

type workResponse struct {
	// Description can be a string or {type: ..., value: ...}.
	Description json.RawMessage `json:"description"`
}

// WorkByISBN returns the work key of the edition with the given ISBN.
func (c *Client) WorkByISBN(ctx context.Context, isbn string) (WorkKey, error) {
	isbn = strings.TrimSpace(isbn)
	if isbn == "" {
		return "", ErrNotFound
	}
	var res editionResponse
	if err := c.get(ctx, fmt.Sprintf("%s/isbn/%s.json", c.baseURL, url.PathEscape(isbn)), &res); err != nil {
		return "", fmt.Errorf("isbn %s: %w", isbn, err)
	}
	for _, work := range res.Works {
		if key := normalizeWorkKey(work.Key); key != "" {
			return key, nil
		}
	}
	return "", ErrNotFound
}

// WorkBySearch returns the work key of the first search hit for title and author.
func (c *Client) WorkBySearch(ctx context.Context, title, author string) (WorkKey, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ErrNotFound
	}
	params := url.Values{}
	params.Set("title", title)
	if author = strings.TrimSpace(author); author != "" {
		params.Set("author", author)
	}
	params.Set("fields", "key,title")
	params.Set("limit", "1")

	var res searchResponse
	if err := c.get(ctx, c.baseURL+"/search.json?"+params.Encode(), &res); err != nil {
		return "", fmt.Errorf("search %q: %w", title, err)
	}
	if len(res.Docs) == 0 {
		return "", ErrNotFound
	}
	key := normalizeWorkKey(res.Docs[0].Key)
	if key == "" {
		return "", ErrNotFound
	}
	return key, nil
}

// Ratings returns the rating aggregate for a work.
func (c *Client) Ratings(ctx context.Context, work WorkKey) (Ratings, error) {
	if work == "" {
		return Ratings{}, ErrNotFound
	}
	var res ratingsResponse
	if err := c.get(ctx, c.baseURL+string(work)+"/ratings.json", &res); err != nil {
		return Ratings{}, fmt.Errorf("ratings %s: %w", work, err)
	}
	return res.Summary, nil
}

// Description returns the work's description text, which may be empty.
func (c *Client) Description(ctx context.Context, work WorkKey) (string, error) {
	if work == "" {
		return "", ErrNotFound
	}
	var res workResponse
	if err := c.get(ctx, c.baseURL+string(work)+".json", &res); err != nil {
		return "", fmt.Errorf("work %s: %w", work, err)
	}
	return decodeDescription(res.Description), nil
}

func decodeDescription(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return strings.TrimSpace(text)
	}
	var typed struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(raw, &typed); err == nil {
		return strings.TrimSpace(typed.Value)
	}
	return ""
}

func normalizeWorkKey(key string) WorkKey {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	if !strings.HasPrefix(key, "/") {
		key = "/" + key
	}
	if !strings.HasPrefix(key, "/works/") {
		return ""
	}
	return WorkKey(key)
}

func (c *Client) get(ctx context.Context, endpoint string, target any) error {
	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		if i > 0 {
			backoff := c.backoff * time.Duration(1<<uint(i-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		retry, err := c.do(ctx, endpoint, target)
		if err == nil {
			return nil
		}
		if !retry {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("after %d retries: %w", c.maxRetries, lastErr)
}

func (c *Client) do(ctx context.Context, endpoint string, target any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return true, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return false, ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return true, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	default:
		return false, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return false, fmt.Errorf("decode response: %w", err)
	}
	return false, nil
}
