package guide

import (
	"fmt"

	"helpnow/pkg/config"
	"helpnow/pkg/llm"
	"helpnow/pkg/llm/cerebras"
	"helpnow/pkg/llm/gemini"
	"helpnow/pkg/llm/groq"
	"helpnow/pkg/llm/history"
	"helpnow/pkg/llm/openai"
	"helpnow/pkg/request"
)

const openAIBaseURL = "https://api.openai.com/v1"

// NewLLMProvider returns the provider selected by cfg, wrapped with the
// history log.
func NewLLMProvider(cfg config.LLMConfig, hist config.HistorySettings, rc *request.Client) (llm.Provider, error) {
	var (
		p   llm.Provider
		err error
	)
	switch cfg.Type {
	case "cerebras", "":
		p, err = cerebras.NewClient(cfg, rc)
	case "groq":
		p, err = groq.NewClient(cfg, rc)
	case "openai":
		p, err = openai.NewClient(cfg, openAIBaseURL, rc)
	case "gemini":
		p, err = gemini.NewClient(cfg, rc.Tracker())
	default:
		return nil, fmt.Errorf("unknown llm provider type: %s", cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	name := cfg.Type
	if name == "" {
		name = "cerebras"
	}
	return history.New(p, name, hist.Path, hist.Enabled), nil
}
