package cerebras

import (
	"helpnow/pkg/config"
	"helpnow/pkg/llm/openai"
	"helpnow/pkg/request"
)

const (
	cerebrasBaseURL = "https://api.cerebras.ai/v1"
)

// NewClient creates a new Cerebras client using the generic OpenAI provider.
func NewClient(cfg config.LLMConfig, rc *request.Client) (*openai.Client, error) {
	cfg.Type = "cerebras"
	return openai.NewClient(cfg, cerebrasBaseURL, rc)
}
