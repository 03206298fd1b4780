package groq

import (
	"helpnow/pkg/config"
	"helpnow/pkg/llm/openai"
	"helpnow/pkg/request"
)

const (
	groqBaseURL = "https://api.groq.com/openai/v1"
)

// NewClient creates a new Groq client using the generic OpenAI provider.
func NewClient(cfg config.LLMConfig, rc *request.Client) (*openai.Client, error) {
	cfg.Type = "groq"
	return openai.NewClient(cfg, groqBaseURL, rc)
}
