package notifier

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Shortener produces a shortened form of a full URL.
type Shortener interface {
	Shorten(ctx context.Context, fullURL string) (string, error)
}

// HTTPShortener calls a link-shortening service over HTTP. The service
// is expected to return the short URL as a plain-text body.
type HTTPShortener struct {
	endpoint   string
	httpClient *http.Client
}

// NewHTTPShortener creates a shortener client for the given endpoint.
func NewHTTPShortener(endpoint string, timeout time.Duration) (*HTTPShortener, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("shortener endpoint is required")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &HTTPShortener{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Shorten requests a shortened form of fullURL.
func (s *HTTPShortener) Shorten(ctx context.Context, fullURL string) (string, error) {
	u := s.endpoint + "?url=" + url.QueryEscape(fullURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("shortener error: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2048))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	short := strings.TrimSpace(string(body))
	if short == "" {
		return "", fmt.Errorf("shortener returned empty body")
	}
	return short, nil
}
