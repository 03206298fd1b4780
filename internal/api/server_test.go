package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helpnow/pkg/config"
	"helpnow/pkg/logging"
	"helpnow/pkg/version"
)

func TestHealthAndVersion(t *testing.T) {
	ts, _ := newTestServer(t, &fakeGenerator{scenario: snakeBite}, config.RateLimitConfig{})

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/api/version")
	require.NoError(t, err)
	defer resp.Body.Close()
	var v map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	assert.Equal(t, version.Version, v["version"])
}

func TestRateLimit(t *testing.T) {
	gen := &fakeGenerator{scenario: snakeBite}
	ts, tr := newTestServer(t, gen, config.RateLimitConfig{
		Enabled:   true,
		PerSecond: 0.001,
		Burst:     2,
		IdleTTL:   config.Duration(time.Minute),
	})

	for i := 0; i < 2; i++ {
		status, _, _ := postGuide(t, ts.URL+"/guide", `{"query":"help"}`)
		require.Equal(t, http.StatusOK, status)
	}

	status, body, hdr := postGuide(t, ts.URL+"/guide", `{"query":"help"}`)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, ThrottledMessage, body["error"])
	assert.NotEmpty(t, body["timestamp"])
	assert.Equal(t, "1000", hdr.Get("Retry-After"))
	assert.Len(t, gen.calls(), 2)
	assert.Equal(t, int64(1), tr.Snapshot()["guide"].Throttled)

	// Health is not limited.
	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRateLimiter_Refills(t *testing.T) {
	rl := NewRateLimiter(config.RateLimitConfig{Enabled: true, PerSecond: 1, Burst: 1}, nil)
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }

	h := rl.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	do := func(remote string) int {
		req := httptest.NewRequest(http.MethodPost, "/guide", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do("10.0.0.1:5000"))
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.1:5001"), "same host, other port")
	assert.Equal(t, http.StatusOK, do("10.0.0.2:5000"), "other clients have their own bucket")

	clock = clock.Add(time.Second)
	assert.Equal(t, http.StatusOK, do("10.0.0.1:5000"))
	assert.Equal(t, 2, rl.Clients())
}

func TestRateLimiter_Disabled(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	rl := NewRateLimiter(config.RateLimitConfig{Enabled: false, PerSecond: 1, Burst: 1}, nil)
	h := rl.Wrap(next)

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/guide", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Zero(t, rl.Clients())

	var nilLimiter *RateLimiter
	assert.NotNil(t, nilLimiter.Wrap(next))
}

func TestStats(t *testing.T) {
	ts, tr := newTestServer(t, &fakeGenerator{scenario: snakeBite}, config.RateLimitConfig{})
	tr.TrackAPISuccess("cerebras")
	tr.TrackMalformed("cerebras")

	resp, err := http.Get(ts.URL + "/api/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	var stats StatsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, "cerebras", stats.LLMProvider)
	assert.Equal(t, int64(1), stats.Providers["cerebras"].APISuccess)
	assert.Equal(t, int64(1), stats.Providers["cerebras"].Malformed)
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRequestLog(t *testing.T) {
	buf := &lockedBuffer{}
	prev := logging.RequestLogger
	logging.RequestLogger = slog.New(slog.NewTextHandler(buf, nil))
	t.Cleanup(func() { logging.RequestLogger = prev })

	ts, _ := newTestServer(t, &fakeGenerator{scenario: snakeBite}, config.RateLimitConfig{})

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/guide", strings.NewReader(`{"query":"burn"}`))
	req.Header.Set(RequestIDHeader, "req-123")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "req-123", resp.Header.Get(RequestIDHeader))
	require.Eventually(t, func() bool { return buf.String() != "" }, time.Second, 5*time.Millisecond)
	line := buf.String()
	assert.Contains(t, line, "id=req-123")
	assert.Contains(t, line, "path=/guide")
	assert.Contains(t, line, "status=200")
}

func TestRecover_LoggedAsServerError(t *testing.T) {
	buf := &lockedBuffer{}
	prev := logging.RequestLogger
	logging.RequestLogger = slog.New(slog.NewTextHandler(buf, nil))
	t.Cleanup(func() { logging.RequestLogger = prev })

	h := withMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/guide", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "error")
	assert.Contains(t, buf.String(), "status=500")
}

func TestRecover_AfterHeadersWritten(t *testing.T) {
	h := withMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("partial"))
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "partial", rr.Body.String())
}
