package llm

import (
	"context"
)

// Provider defines the interface for interacting with LLM services.
type Provider interface {
	// GenerateText sends a prompt and returns the text response.
	GenerateText(ctx context.Context, name, prompt string) (string, error)

	// GenerateJSON sends a prompt and unmarshals the response into target.
	// Code fences around the payload are removed before decoding.
	GenerateJSON(ctx context.Context, name, prompt string, target any) error

	// HealthCheck verifies that the provider is configured.
	HealthCheck(ctx context.Context) error

	// HasProfile checks if the provider has a specific profile configured.
	HasProfile(name string) bool
}

// ModelValidator is implemented by providers that can confirm, with a
// network call, that their configured models are served.
type ModelValidator interface {
	ValidateModels(ctx context.Context) error
}
