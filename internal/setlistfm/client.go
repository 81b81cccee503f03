// Package setlistfm is a client for the setlist.fm archive API.
package setlistfm

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

	"golang.org/x/time/rate"

	"conciertapp/internal/metrics"
)

const defaultBaseURL = "https://api.setlist.fm/rest/1.0/"

var (
	// ErrNotFound is returned when a setlist id does not exist.
	ErrNotFound = errors.New("setlist not found")
	// ErrNotConfigured means no API key was supplied.
	ErrNotConfigured = errors.New("setlist.fm api key not configured")
)

// APIError is a non-2xx response from setlist.fm.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("setlist.fm api error: %d %s - %s", e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

// Client talks to setlist.fm. Requests are rate limited to stay within the
// API's per-key quota.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option customises a Client.
type Option func(*Client)

// WithBaseURL overrides the API root.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		c.baseURL = baseURL
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.httpClient = client }
}

// WithRateLimit sets the sustained request rate and burst.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(limit, burst) }
}

// New creates a client. The default limit is 2 requests per second.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(2), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchSetlists returns one page of an artist's setlists, most recent first.
// A 404 (no results) yields an empty page.
func (c *Client) SearchSetlists(ctx context.Context, artistName string, page int) (*SearchPage, error) {
	if page < 1 {
		page = 1
	}
	params := url.Values{
		"artistName": []string{artistName},
		"p":          []string{strconv.Itoa(page)},
	}

	var result SearchPage
	if err := c.get(ctx, "search/setlists", params, &result); err != nil {
		if errors.Is(err, ErrNotFound) {
			return &SearchPage{Page: page}, nil
		}
		return nil, err
	}
	return &result, nil
}

// GetSetlist fetches a setlist by its archive id.
func (c *Client) GetSetlist(ctx context.Context, id string) (*Setlist, error) {
	var result Setlist
	if err := c.get(ctx, "setlist/"+url.PathEscape(id), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, result any) error {
	if c.apiKey == "" {
		return ErrNotConfigured
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	apiURL := c.baseURL + endpoint
	if len(params) > 0 {
		apiURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ProviderRequests.WithLabelValues("setlistfm", "failure").Inc()
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		metrics.ProviderRequests.WithLabelValues("setlistfm", "success").Inc()
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		metrics.ProviderRequests.WithLabelValues("setlistfm", "failure").Inc()
		body, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	metrics.ProviderRequests.WithLabelValues("setlistfm", "success").Inc()
	return nil
}
