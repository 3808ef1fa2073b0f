package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client fetches static resources (the page logo) from remote servers.
type Client struct {
	httpClient *http.Client
	maxBytes   int64
}

// NewBackendClient creates a new Client with the given request timeout and response size cap.
func NewBackendClient(timeout time.Duration, maxBytes int64) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxBytes: maxBytes,
	}
}

// Fetch performs a GET request and returns the body and its content type.
// Any non-2xx status is an error.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("%d %s for url: %s", resp.StatusCode, http.StatusText(resp.StatusCode), url)
	}

	// Read one byte past the cap so oversized bodies are detected rather than silently truncated.
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("reading response: %w", err)
	}
	if int64(len(body)) > c.maxBytes {
		return nil, "", fmt.Errorf("response from %s exceeds %d bytes", url, c.maxBytes)
	}

	return body, resp.Header.Get("Content-Type"), nil
}
