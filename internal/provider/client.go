// Package provider implements the external data sources: Descope user and
// audit search, LinkedIn organization posts, YouTube channel videos, and
// the IP geolocation fallback chain.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/nikhil-at-pieces/descope-sync/internal/domain"
	"github.com/nikhil-at-pieces/descope-sync/internal/ratelimit"
)

// Client wraps an HTTP client with JSON encoding and provider error
// classification. Network failures surface as transient errors so the
// fetch loop retries them.
type Client struct {
	http   *http.Client
	logger *slog.Logger
}

func NewClient(timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// PostJSON sends body as JSON and decodes the response into out.
func (c *Client) PostJSON(ctx context.Context, url string, headers map[string]string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, headers, out)
}

// GetJSON issues a GET and decodes the response into out.
func (c *Client) GetJSON(ctx context.Context, url string, headers map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.do(req, headers, out)
}

func (c *Client) do(req *http.Request, headers map[string]string, out any) error {
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return domain.ErrTransient("request %s: %v", req.URL.Path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.ErrTransient("read response %s: %v", req.URL.Path, err)
	}

	if resp.StatusCode >= 400 {
		return ratelimit.Classify(resp.StatusCode, errorMessage(raw))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response %s: %w", req.URL.Path, err)
	}
	return nil
}

// errorMessage pulls a human-readable message from an error response body.
// The body text is what distinguishes a daily quota from a burst limit.
func errorMessage(raw []byte) string {
	var envelope struct {
		Message          string `json:"message"`
		ErrorDescription string `json:"errorDescription"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil {
		if envelope.Message != "" {
			return envelope.Message
		}
		if envelope.ErrorDescription != "" {
			return envelope.ErrorDescription
		}
	}
	const maxBody = 512
	if len(raw) > maxBody {
		raw = raw[:maxBody]
	}
	return string(raw)
}
