package guide

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"helpnow/pkg/llm"
	"helpnow/pkg/llm/prompts"
	"helpnow/pkg/model"
	"helpnow/pkg/visual"
)

// Profile is the LLM profile used for guide generation.
const Profile = "guide"

// Service turns a user utterance into an illustrated scenario.
type Service struct {
	llm     llm.Provider
	prompts *prompts.Manager
	aug     *visual.Augmenter
}

// NewService creates a guide Service.
func NewService(p llm.Provider, pm *prompts.Manager, aug *visual.Augmenter) *Service {
	return &Service{llm: p, prompts: pm, aug: aug}
}

// LLMProvider returns the provider used for generation.
func (s *Service) LLMProvider() llm.Provider {
	return s.llm
}

// Generate builds the prompt, asks the model once and assembles the result.
// Errors are *ValidationError, *llm.UpstreamError, *llm.EmptyResponseError,
// *llm.MalformedResponseError or *llm.ProfileError.
func (s *Service) Generate(ctx context.Context, query string) (*model.EmergencyScenario, error) {
	prompt, err := BuildPrompt(s.prompts, query)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var payload map[string]any
	if err := s.llm.GenerateJSON(ctx, Profile, prompt, &payload); err != nil {
		slog.Warn("Guide generation failed", "error", err, "elapsed", time.Since(start))
		return nil, err
	}
	if payload == nil {
		return nil, &llm.MalformedResponseError{Raw: "null", Err: fmt.Errorf("response is not a JSON object")}
	}

	scenario, err := Decode(Assemble(payload, s.aug))
	if err != nil {
		slog.Error("Guide response violates the scenario contract", "error", err)
		return nil, err
	}

	slog.Info("Guide generated", "title", scenario.Title, "steps", len(scenario.Steps), "elapsed", time.Since(start))
	return scenario, nil
}
