package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// ClientType represents the type of HTTP client configuration
type ClientType string

const (
	// DefaultClient sends Go's default User-Agent and no extra headers
	DefaultClient ClientType = ""

	// BrowserClient uses browser-like headers to avoid 406 (Not Acceptable) errors
	// Some podcast hosts refuse feed requests that do not look like a browser
	BrowserClient ClientType = "browser"

	// CloudflareClient uses simple headers (like curl) to avoid 403 (Forbidden) errors
	// Cloudflare allows simple tools like curl but blocks browser-like User-Agents
	CloudflareClient ClientType = "cloudflare"
)

// ParseClientType maps a config value onto a ClientType.
func ParseClientType(s string) (ClientType, error) {
	switch ClientType(s) {
	case DefaultClient, BrowserClient, CloudflareClient:
		return ClientType(s), nil
	case "default":
		return DefaultClient, nil
	default:
		return DefaultClient, fmt.Errorf("unknown http client profile %q (want browser, cloudflare or default)", s)
	}
}

// HTTPError is returned when a server answers with a non-success status.
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected status code %d for %s", e.StatusCode, e.URL)
}

// HTTPClient wraps an http.Client with configuration
//
// No timeout is set: feed fetches and audio downloads may legitimately take a long time, and
// callers bound them with their context instead.
type HTTPClient struct {
	client     *http.Client
	clientType ClientType
}

// NewClient creates a new HTTP client with the specified type
func NewClient(clientType ClientType) *HTTPClient {
	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			// Follow up to 10 redirects; enclosure URLs commonly bounce through trackers
			if len(via) >= 10 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	return NewClientWith(clientType, client)
}

// NewClientWith wraps an existing http.Client.
func NewClientWith(clientType ClientType, client *http.Client) *HTTPClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPClient{
		client:     client,
		clientType: clientType,
	}
}

// Do executes an HTTP request with the appropriate headers for the client type
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	c.setHeaders(req)
	return c.client.Do(req)
}

// Get issues a GET request bound to ctx. The caller owns the response body.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// Head issues a HEAD request bound to ctx, following redirects.
func (c *HTTPClient) Head(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// GetOK issues a GET and returns an *HTTPError for any non-2xx status. On error the body has
// already been drained and closed.
func (c *HTTPClient) GetOK(ctx context.Context, url string) (*http.Response, error) {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		DrainAndClose(resp.Body)
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: url}
	}
	return resp, nil
}

// DrainAndClose discards what is left of a body so the connection can be reused.
func DrainAndClose(rc io.ReadCloser) {
	if rc == nil {
		return
	}
	_, _ = io.Copy(io.Discard, rc)
	_ = rc.Close()
}

// setHeaders sets the appropriate headers based on client type
func (c *HTTPClient) setHeaders(req *http.Request) {
	switch c.clientType {
	case BrowserClient:
		// Browser-like headers to avoid 406 (Not Acceptable) errors
		req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
		req.Header.Set("Accept", "application/rss+xml,application/xml;q=0.9,audio/*;q=0.8,*/*;q=0.7")
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		req.Header.Set("Connection", "keep-alive")

	case CloudflareClient:
		// Simple headers like curl to avoid 403 (Forbidden) errors from Cloudflare
		req.Header.Set("User-Agent", "curl/8.7.1")

	default:
		// Default: use Go's default User-Agent
	}
}
