package visual

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"helpnow/pkg/request"
	"helpnow/pkg/store"
)

// CacheKeyPrefix namespaces probe outcomes in the cache table.
const CacheKeyPrefix = "img:"

const (
	probeOK   = "ok"
	probeFail = "fail"
)

// Prober resolves a FallbackChain by fetching each URL until one returns an image.
type Prober struct {
	rc      *request.Client
	timeout time.Duration
	cache   store.CacheStore
}

// NewProber creates a Prober. timeout bounds each fetch; zero means none.
func NewProber(rc *request.Client, timeout time.Duration) *Prober {
	return &Prober{rc: rc, timeout: timeout}
}

// WithCache remembers probe outcomes per URL so revisited steps resolve
// without network traffic. Primary URLs carry a time seed and rarely
// repeat; the generic and placeholder alternatives do.
func (p *Prober) WithCache(c store.CacheStore) *Prober {
	p.cache = c
	return p
}

// Resolve walks the chain and returns the first loadable URL. ok is false
// when the chain ends Unavailable.
func (p *Prober) Resolve(ctx context.Context, chain *FallbackChain) (u string, ok bool) {
	u, ok = chain.Current()
	for ok {
		if ctx.Err() != nil {
			return "", false
		}
		if p.loadable(ctx, u) {
			chain.Loaded()
			return u, true
		}
		slog.Debug("Visual guide URL failed, trying next", "url", u)
		u, ok = chain.Fail()
	}
	return "", false
}

// outcome is the result of fetching one URL. Only definitive outcomes are
// cached; a transient failure is retried on the next walk.
type outcome int

const (
	outcomeImage outcome = iota
	outcomeNotImage
	outcomeTransient
)

func (p *Prober) loadable(ctx context.Context, u string) bool {
	if p.cache != nil {
		if v, hit := p.cache.GetCache(ctx, CacheKeyPrefix+u); hit {
			return string(v) == probeOK
		}
	}

	res := p.fetch(ctx, u)
	if p.cache != nil && res != outcomeTransient && ctx.Err() == nil {
		v := probeFail
		if res == outcomeImage {
			v = probeOK
		}
		if err := p.cache.SetCache(ctx, CacheKeyPrefix+u, []byte(v)); err != nil {
			slog.Warn("Failed to cache probe result", "url", u, "error", err)
		}
	}
	return res == outcomeImage
}

func (p *Prober) fetch(ctx context.Context, u string) outcome {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	body, err := p.rc.Get(ctx, u, map[string]string{"Accept": "image/*"})
	if err != nil {
		var se *request.StatusError
		if errors.As(err, &se) && definitiveStatus(se.StatusCode) {
			return outcomeNotImage
		}
		return outcomeTransient
	}
	if strings.HasPrefix(http.DetectContentType(body), "image/") {
		return outcomeImage
	}
	return outcomeNotImage
}

// definitiveStatus reports whether a failed status will not change on retry.
func definitiveStatus(code int) bool {
	return code >= 400 && code < 500 &&
		code != http.StatusRequestTimeout && code != http.StatusTooManyRequests
}
