// Package client implements the replica side of the sync protocol: an
// authenticated HTTP client plus the offline-deletion reconciler that
// keeps a local replica aligned with the server.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// MaxRetries is the maximum number of retry attempts for retryable errors
	MaxRetries = 3

	// DefaultBackoff is the initial backoff duration for exponential backoff
	DefaultBackoff = 1 * time.Second
)

// HTTPClient wraps http.Client with authentication and retry logic
// Automatically injects:
// - Authorization: Bearer <token> (production) OR X-Debug-Sub (dev mode)
// - X-Sync-Session: <session-id>
// - X-Correlation-ID: <uuid>
//
// Handles retries for:
// - 429 Too Many Requests: respect Retry-After, exponential backoff
// - 5xx server errors: exponential backoff
//
// Dev Mode: if Token is empty and DebugSub is set, the client sends the
// X-Debug-Sub header instead of a Bearer token.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	token      string
	debugSub   string
	sessionID  string
}

// NewHTTPClient creates a new authenticated HTTP client. A fresh sync
// session id is generated so the server can correlate all requests from
// one reconciliation run.
func NewHTTPClient(baseURL, token, debugSub string) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		token:      token,
		debugSub:   debugSub,
		sessionID:  uuid.New().String(),
	}
}

// BaseURL returns the server this client talks to.
func (c *HTTPClient) BaseURL() string { return c.baseURL }

// Do executes an HTTP request with auto-injection of auth headers and retry logic
func (c *HTTPClient) Do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	correlationID := uuid.New().String()

	logger := log.With().
		Str("method", method).
		Str("path", path).
		Str("correlationId", correlationID).
		Logger()

	return c.doWithRetry(ctx, method, path, body, &logger, correlationID, 0)
}

func (c *HTTPClient) doWithRetry(ctx context.Context, method, path string, body []byte, logger *zerolog.Logger, correlationID string, retryCount int) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Correlation-ID", correlationID)
	req.Header.Set("X-Sync-Session", c.sessionID)

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	} else if c.debugSub != "" {
		// Dev mode auth
		req.Header.Set("X-Debug-Sub", c.debugSub)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		logger.Error().Err(err).Dur("duration", duration).Msg("HTTP request failed")
		if retryCount >= MaxRetries || ctx.Err() != nil {
			return nil, err
		}
		backoff(ctx, retryCount)
		return c.doWithRetry(ctx, method, path, body, logger, correlationID, retryCount+1)
	}

	logger.Debug().
		Int("status", resp.StatusCode).
		Dur("duration", duration).
		Int("retryCount", retryCount).
		Msg("HTTP request completed")

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return c.handleRateLimit(ctx, method, path, body, resp, logger, correlationID, retryCount)

	case resp.StatusCode >= 500:
		resp.Body.Close()
		if retryCount >= MaxRetries {
			return nil, fmt.Errorf("server error %d after %d retries", resp.StatusCode, retryCount)
		}
		logger.Warn().Int("status", resp.StatusCode).Msg("server error, retrying")
		backoff(ctx, retryCount)
		return c.doWithRetry(ctx, method, path, body, logger, correlationID, retryCount+1)

	default:
		// Success or non-retryable error - return as-is
		return resp, nil
	}
}

// handleRateLimit handles 429 by honoring Retry-After when present and
// falling back to exponential backoff.
func (c *HTTPClient) handleRateLimit(ctx context.Context, method, path string, body []byte, resp *http.Response, logger *zerolog.Logger, correlationID string, retryCount int) (*http.Response, error) {
	resp.Body.Close()

	if retryCount >= MaxRetries {
		logger.Warn().Msg("429 Too Many Requests - max retries exceeded")
		return nil, fmt.Errorf("rate limited after %d retries", retryCount)
	}

	wait := DefaultBackoff << retryCount
	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
			wait = time.Duration(secs) * time.Second
		}
	}

	logger.Warn().Dur("wait", wait).Msg("429 Too Many Requests - backing off")

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(wait):
	}

	return c.doWithRetry(ctx, method, path, body, logger, correlationID, retryCount+1)
}

func backoff(ctx context.Context, retryCount int) {
	select {
	case <-ctx.Done():
	case <-time.After(DefaultBackoff << retryCount):
	}
}
