package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"helpnow/pkg/guide"
	"helpnow/pkg/model"
)

// TimestampLayout is ISO-8601 with milliseconds, as in error envelopes.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// maxRequestBytes bounds the guide request body.
const maxRequestBytes = 64 << 10

// Generator produces a scenario for a user's description.
type Generator interface {
	Generate(ctx context.Context, query string) (*model.EmergencyScenario, error)
}

// GuideHandler serves POST /guide.
type GuideHandler struct {
	gen Generator
	now func() time.Time
}

// NewGuideHandler creates a GuideHandler backed by gen.
func NewGuideHandler(gen Generator) *GuideHandler {
	return &GuideHandler{gen: gen, now: time.Now}
}

func (h *GuideHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req guide.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		slog.Debug("API: guide request decode error", "error", err)
		writeJSON(w, http.StatusBadRequest, guide.ErrorResponse{Error: guide.ErrQueryRequired})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, guide.ErrorResponse{Error: guide.ErrQueryRequired})
		return
	}

	scenario, err := h.gen.Generate(r.Context(), req.Query)
	if err != nil {
		var ve *guide.ValidationError
		if errors.As(err, &ve) {
			writeJSON(w, http.StatusBadRequest, guide.ErrorResponse{Error: ve.Message})
			return
		}
		slog.Error("API: guide generation failed", "error", err)
		h.writeFailure(w, http.StatusInternalServerError, guide.PublicMessage(err))
		return
	}

	writeJSON(w, http.StatusOK, scenario)
}

func (h *GuideHandler) writeFailure(w http.ResponseWriter, status int, msg string) {
	writeFailure(w, status, msg, h.now())
}

// writeFailure writes the {error, timestamp} envelope.
func writeFailure(w http.ResponseWriter, status int, msg string, at time.Time) {
	if msg == "" {
		msg = guide.DefaultFailureMessage
	}
	writeJSON(w, status, guide.ErrorResponse{
		Error:     msg,
		Timestamp: at.UTC().Format(TimestampLayout),
	})
}
