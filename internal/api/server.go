package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"helpnow/pkg/config"
	"helpnow/pkg/version"
)

// NewServer creates and configures the HTTP server of the guide service.
func NewServer(cfg config.ServerConfig, guideH *GuideHandler, limiter *RateLimiter, stats *StatsHandler) *http.Server {
	mux := http.NewServeMux()

	// 1. Health Endpoint
	mux.HandleFunc("GET /health", handleHealth)

	// 2. Guide Endpoint
	guide := limiter.Wrap(guideH)
	mux.Handle("POST /guide", guide)
	mux.Handle("POST /api/guide", guide)

	// 3. Version and Stats Endpoints
	mux.HandleFunc("GET /api/version", handleVersion)
	if stats != nil {
		mux.Handle("GET /api/stats", stats)
	}

	readTimeout := cfg.ReadTimeout.Std()
	if readTimeout <= 0 {
		readTimeout = 15 * time.Second
	}
	writeTimeout := cfg.WriteTimeout.Std()
	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Second
	}

	return &http.Server{
		Addr:         cfg.Address,
		Handler:      withMiddleware(mux),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": version.Version})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to write response", "status", status, "error", err)
	}
}
