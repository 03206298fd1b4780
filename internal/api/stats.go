package api

import (
	"net/http"
	"runtime"
	"time"

	"helpnow/pkg/tracker"
)

// StatsHandler serves GET /api/stats.
type StatsHandler struct {
	tracker *tracker.Tracker
	limiter *RateLimiter
	started time.Time
	llm     string
}

// NewStatsHandler creates a StatsHandler. llmType names the configured provider.
func NewStatsHandler(t *tracker.Tracker, rl *RateLimiter, llmType string) *StatsHandler {
	return &StatsHandler{
		tracker: t,
		limiter: rl,
		started: time.Now(),
		llm:     llmType,
	}
}

// StatsResponse is the body of GET /api/stats.
type StatsResponse struct {
	UptimeSec   int64                            `json:"uptime_sec"`
	MemoryMB    uint64                           `json:"memory_mb"`
	LLMProvider string                           `json:"llm_provider"`
	Clients     int                              `json:"rate_limited_clients"`
	Providers   map[string]tracker.ProviderStats `json:"providers"`
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	writeJSON(w, http.StatusOK, StatsResponse{
		UptimeSec:   int64(time.Since(h.started).Seconds()),
		MemoryMB:    mem.Alloc / 1024 / 1024,
		LLMProvider: h.llm,
		Clients:     h.limiter.Clients(),
		Providers:   h.tracker.Snapshot(),
	})
}
