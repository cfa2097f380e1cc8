package upstream

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"time"

	"tilehub/atlas/pkg/config"
	"tilehub/atlas/pkg/telemetry/logging"
)

// maxBodySize caps upstream response bodies. Style documents and tiles are
// both far below this; anything larger indicates a misbehaving upstream.
const maxBodySize = 32 << 20 // 32MB

// Result is a successful upstream fetch.
type Result struct {
	// Body is the response payload.
	Body []byte

	// ContentType is the Content-Type header value.
	ContentType string

	// StatusCode is the HTTP status (always 2xx here).
	StatusCode int
}

// Client performs upstream HTTP fetches with connection pooling, bounded
// timeouts, and retry with exponential backoff for transient failures.
// URLs are redacted before appearing in any log line.
type Client struct {
	httpClient *http.Client
	maxRetries int
	redactor   *logging.Redactor
	logger     *slog.Logger
}

// NewClient creates an upstream fetch client from configuration.
func NewClient(cfg config.UpstreamConfig, redactor *logging.Redactor) *Client {
	transport := &http.Transport{
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}

	if redactor == nil {
		redactor = logging.NewRedactor()
	}

	return &Client{
		httpClient: &http.Client{Transport: transport},
		maxRetries: cfg.MaxRetries,
		redactor:   redactor,
		logger:     slog.Default().With("component", "upstream"),
	}
}

// Fetch retrieves rawURL with the given per-call timeout. Transient errors
// (network failures, 5xx) are retried with exponential backoff; 4xx are not.
// A 404 surfaces as NotFoundError, a deadline as TimeoutError, and any other
// non-2xx as StatusError. Upstream error bodies are discarded, never
// returned.
func (c *Client) Fetch(ctx context.Context, rawURL string, timeout time.Duration) (*Result, error) {
	host := hostOf(rawURL)
	safeURL := c.redactor.RedactURL(rawURL)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * 500 * time.Millisecond
			c.logger.Debug("retrying upstream fetch",
				"url", safeURL,
				"attempt", attempt,
				"backoff", backoff,
			)
			select {
			case <-ctx.Done():
				return nil, c.ctxError(ctx, host, timeout)
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create upstream request: %w", err)
		}
		req.Header.Set("User-Agent", "atlas-proxy")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, c.ctxError(ctx, host, timeout)
			}
			lastErr = err
			c.logger.Warn("upstream fetch failed, will retry",
				"url", safeURL,
				"attempt", attempt+1,
				"error", err,
			)
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
			resp.Body.Close()
			if err != nil {
				if ctx.Err() != nil {
					return nil, c.ctxError(ctx, host, timeout)
				}
				lastErr = err
				continue
			}
			return &Result{
				Body:        body,
				ContentType: resp.Header.Get("Content-Type"),
				StatusCode:  resp.StatusCode,
			}, nil
		}

		// Discard the error body; it may contain credentials or
		// internal paths and is never propagated.
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil, &NotFoundError{Host: host}

		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			return nil, &StatusError{Host: host, StatusCode: resp.StatusCode}

		default:
			lastErr = &StatusError{Host: host, StatusCode: resp.StatusCode}
			c.logger.Warn("upstream returned server error, will retry",
				"url", safeURL,
				"status", resp.StatusCode,
				"attempt", attempt+1,
			)
		}
	}

	if statusErr, ok := lastErr.(*StatusError); ok {
		return nil, statusErr
	}
	return nil, fmt.Errorf("upstream %q fetch failed after %d attempts: %w", host, c.maxRetries+1, lastErr)
}

func (c *Client) ctxError(ctx context.Context, host string, timeout time.Duration) error {
	if ctx.Err() == context.DeadlineExceeded {
		return &TimeoutError{Host: host, Timeout: timeout}
	}
	return ctx.Err()
}

func hostOf(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		return u.Host
	}
	return "unknown"
}
