package tracker

import (
	"sync"
	"sync/atomic"
)

// Tracker tracks upstream usage statistics per provider.
type Tracker struct {
	mu    sync.RWMutex
	stats map[string]*ProviderStats
}

// ProviderStats holds metrics for a specific provider.
// Fields are accessed atomically.
type ProviderStats struct {
	APISuccess     int64 `json:"api_success"`
	APIFailures    int64 `json:"api_failures"`
	EmptyResponses int64 `json:"empty_responses"`
	Malformed      int64 `json:"malformed"`
	Throttled      int64 `json:"throttled"`
}

// New creates a new Tracker.
func New() *Tracker {
	return &Tracker{
		stats: make(map[string]*ProviderStats),
	}
}

// getStats returns the stats object for a provider, creating it if needed.
func (t *Tracker) getStats(provider string) *ProviderStats {
	t.mu.RLock()
	s, ok := t.stats[provider]
	t.mu.RUnlock()
	if ok {
		return s
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok = t.stats[provider]; ok {
		return s
	}
	s = &ProviderStats{}
	t.stats[provider] = s
	return s
}

func (t *Tracker) TrackAPISuccess(provider string) {
	atomic.AddInt64(&t.getStats(provider).APISuccess, 1)
}

func (t *Tracker) TrackAPIFailure(provider string) {
	atomic.AddInt64(&t.getStats(provider).APIFailures, 1)
}

// TrackEmpty counts 2xx responses that carried no usable content.
func (t *Tracker) TrackEmpty(provider string) {
	atomic.AddInt64(&t.getStats(provider).EmptyResponses, 1)
}

// TrackMalformed counts content that could not be parsed into a guide.
func (t *Tracker) TrackMalformed(provider string) {
	atomic.AddInt64(&t.getStats(provider).Malformed, 1)
}

// TrackThrottled counts requests rejected by a rate limit.
func (t *Tracker) TrackThrottled(provider string) {
	atomic.AddInt64(&t.getStats(provider).Throttled, 1)
}

// Snapshot returns a copy of the current stats.
func (t *Tracker) Snapshot() map[string]ProviderStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make(map[string]ProviderStats, len(t.stats))
	for k, v := range t.stats {
		result[k] = ProviderStats{
			APISuccess:     atomic.LoadInt64(&v.APISuccess),
			APIFailures:    atomic.LoadInt64(&v.APIFailures),
			EmptyResponses: atomic.LoadInt64(&v.EmptyResponses),
			Malformed:      atomic.LoadInt64(&v.Malformed),
			Throttled:      atomic.LoadInt64(&v.Throttled),
		}
	}
	return result
}

// Reset zeroes all counters but keeps known providers.
func (t *Tracker) Reset() {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, v := range t.stats {
		atomic.StoreInt64(&v.APISuccess, 0)
		atomic.StoreInt64(&v.APIFailures, 0)
		atomic.StoreInt64(&v.EmptyResponses, 0)
		atomic.StoreInt64(&v.Malformed, 0)
		atomic.StoreInt64(&v.Throttled, 0)
	}
}
