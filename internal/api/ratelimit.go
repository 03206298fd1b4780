package api

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"helpnow/pkg/apisession"
	"helpnow/pkg/config"
	"helpnow/pkg/tracker"
)

// ThrottledMessage is the error returned to a client over its limit.
const ThrottledMessage = "Too many requests. Please wait a moment and try again."

// RateLimiter applies a token bucket per client address.
type RateLimiter struct {
	clients *apisession.Store[rate.Limiter]
	tracker *tracker.Tracker
	limit   rate.Limit
	enabled bool
	now     func() time.Time
}

// NewRateLimiter creates a RateLimiter from cfg. A disabled limiter passes
// every request through.
func NewRateLimiter(cfg config.RateLimitConfig, t *tracker.Tracker) *RateLimiter {
	limit := rate.Limit(cfg.PerSecond)
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	ttl := cfg.IdleTTL.Std()
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RateLimiter{
		clients: apisession.New(ttl, func() *rate.Limiter {
			return rate.NewLimiter(limit, burst)
		}),
		tracker: t,
		limit:   limit,
		enabled: cfg.Enabled && cfg.PerSecond > 0,
		now:     time.Now,
	}
}

// Clients returns the number of clients currently tracked.
func (rl *RateLimiter) Clients() int {
	if rl == nil {
		return 0
	}
	return rl.clients.Len()
}

// Wrap returns next guarded by the limiter.
func (rl *RateLimiter) Wrap(next http.Handler) http.Handler {
	if rl == nil || !rl.enabled {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := clientID(r)
		now := rl.now()
		if !rl.clients.Get(id).AllowN(now, 1) {
			slog.Warn("API: rate limit exceeded", "client", id)
			if rl.tracker != nil {
				rl.tracker.TrackThrottled("guide")
			}
			w.Header().Set("Retry-After", strconv.Itoa(rl.retryAfter()))
			writeFailure(w, http.StatusTooManyRequests, ThrottledMessage, now)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) retryAfter() int {
	return max(int(math.Ceil(1/float64(rl.limit))), 1)
}

func clientID(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
