package request

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"helpnow/pkg/tracker"
	"helpnow/pkg/version"
)

var defaultUserAgent = fmt.Sprintf("HelpNow first-aid assistant (HelpNow/%s)", version.Version)

// maxBodyBytes bounds how much of a response is read into memory.
const maxBodyBytes = 4 << 20

// StatusError is returned for non-2xx responses. Body holds the (possibly
// truncated) response body so callers can log or surface it.
type StatusError struct {
	URL        string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api error: status %d from %s", e.StatusCode, e.URL)
}

// Options configures a Client.
type Options struct {
	// Retries is the number of extra attempts on 429/5xx or transport errors.
	// Zero means a single attempt.
	Retries int
	// Timeout bounds a single attempt. Zero leaves it to the caller's context.
	Timeout time.Duration
	// BaseDelay is the first backoff step between retries.
	BaseDelay time.Duration
}

// Client performs outbound HTTP requests with tracking and optional retries.
type Client struct {
	httpClient *http.Client
	tracker    *tracker.Tracker
	backoff    *ProviderBackoff
	retries    int
	baseDelay  time.Duration
}

// New creates a new Client.
func New(t *tracker.Tracker, opts Options) *Client {
	if t == nil {
		t = tracker.New()
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 500 * time.Millisecond
	}
	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		tracker:    t,
		backoff:    NewProviderBackoff(opts.BaseDelay, 30*time.Second),
		retries:    opts.Retries,
		baseDelay:  opts.BaseDelay,
	}
}

// Tracker returns the tracker fed by this client.
func (c *Client) Tracker() *tracker.Tracker {
	return c.tracker
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, u string, headers map[string]string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, u, nil, headers)
}

// Post performs a POST request with the given content type.
func (c *Client) Post(ctx context.Context, u string, body []byte, contentType string) ([]byte, error) {
	return c.PostWithHeaders(ctx, u, body, map[string]string{"Content-Type": contentType})
}

// PostWithHeaders performs a POST request with custom headers.
func (c *Client) PostWithHeaders(ctx context.Context, u string, body []byte, headers map[string]string) ([]byte, error) {
	return c.do(ctx, http.MethodPost, u, body, headers)
}

// ProviderFor returns the tracking key for a URL.
func ProviderFor(u string) string {
	parsed, err := url.Parse(u)
	if err != nil {
		return "unknown"
	}
	return normalizeProvider(parsed.Host)
}

func normalizeProvider(host string) string {
	host = strings.ToLower(host)
	if h, _, ok := strings.Cut(host, ":"); ok {
		host = h
	}
	switch {
	case strings.HasSuffix(host, "cerebras.ai"):
		return "cerebras"
	case strings.HasSuffix(host, "groq.com"):
		return "groq"
	case strings.HasSuffix(host, "openai.com"):
		return "openai"
	case strings.HasSuffix(host, "googleapis.com"):
		return "gemini"
	case strings.HasSuffix(host, "pollinations.ai"):
		return "pollinations"
	case strings.HasSuffix(host, "placeholder.com"):
		return "placeholder"
	}
	return host
}

func (c *Client) do(ctx context.Context, method, u string, body []byte, headers map[string]string) ([]byte, error) {
	parsed, err := url.Parse(u)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	provider := normalizeProvider(parsed.Host)

	if c.retries > 0 {
		if err := c.backoff.Wait(ctx, provider); err != nil {
			return nil, err
		}
	}

	result, err := c.executeWithBackoff(ctx, method, u, body, headers, provider)
	if err != nil {
		c.tracker.TrackAPIFailure(provider)
		if c.retries > 0 {
			c.backoff.RecordFailure(provider)
		}
		return nil, err
	}
	c.tracker.TrackAPISuccess(provider)
	if c.retries > 0 {
		c.backoff.RecordSuccess(provider)
	}
	return result, nil
}

// executeWithBackoff attempts the request up to 1+retries times, backing off
// on 429, 5xx and transport errors.
func (c *Client) executeWithBackoff(ctx context.Context, method, u string, body []byte, headers map[string]string, provider string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			sleepDur := time.Duration(math.Pow(2, float64(attempt-1))) * c.baseDelay
			select {
			case <-time.After(sleepDur):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, u, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		if body == nil {
			req.Body = http.NoBody
		}
		applyHeaders(req, headers)

		slog.Debug("Network Request", "provider", provider, "method", method, "path", req.URL.Path, "attempt", attempt+1)
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Warn("Request failed", "provider", provider, "attempt", attempt+1, "error", err)
			lastErr = err
			continue
		}

		data, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			slog.Warn("API Backoff", "provider", provider, "status", resp.StatusCode, "attempt", attempt+1)
			lastErr = &StatusError{URL: u, StatusCode: resp.StatusCode, Body: data}
			continue
		}
		if resp.StatusCode >= 400 {
			return nil, &StatusError{URL: u, StatusCode: resp.StatusCode, Body: data}
		}
		if readErr != nil {
			return nil, fmt.Errorf("read error: %w", readErr)
		}
		return data, nil
	}

	if lastErr == nil {
		lastErr = errors.New("request not attempted")
	}
	return nil, lastErr
}

func applyHeaders(req *http.Request, headers map[string]string) {
	uaSet := false
	for k, v := range headers {
		req.Header.Set(k, v)
		if http.CanonicalHeaderKey(k) == "User-Agent" {
			uaSet = true
		}
	}
	if !uaSet {
		req.Header.Set("User-Agent", defaultUserAgent)
	}
}
