package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Proxy calls a summary service over HTTP.
type Proxy struct {
	url        string
	httpClient *http.Client
}

// ProxyOption configures a Proxy.
type ProxyOption func(*Proxy)

// WithProxyHTTPClient overrides the default HTTP client.
func WithProxyHTTPClient(client *http.Client) ProxyOption {
	return func(p *Proxy) {
		if client != nil {
			p.httpClient = client
		}
	}
}

// NewProxy returns a Proxy posting to url.
func NewProxy(url string, timeout time.Duration, opts ...ProxyOption) *Proxy {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	p := &Proxy{
		url:        strings.TrimSpace(url),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type proxyResponse struct {
	Summary string `json:"summary"`
	Cached  bool   `json:"cached"`
	Error   string `json:"error"`
}

// Summarize posts req and returns the service's summary.
func (p *Proxy) Summarize(ctx context.Context, req Request) (string, error) {
	req = req.Normalized()
	if err := validate(req); err != nil {
		return "", err
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("summary proxy: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("summary proxy: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("summary proxy: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("summary proxy: read body: %w", err)
	}
	var parsed proxyResponse
	decodeErr := json.Unmarshal(raw, &parsed)
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(parsed.Error)
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return "", fmt.Errorf("summary proxy: http %d: %s", resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("summary proxy: decode response: %w", decodeErr)
	}
	text := strings.TrimSpace(parsed.Summary)
	if text == "" {
		return "", ErrNoSummary
	}
	return text, nil
}
