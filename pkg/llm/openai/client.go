package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"helpnow/pkg/config"
	"helpnow/pkg/llm"
	"helpnow/pkg/request"
)

// Client implements llm.Provider for any OpenAI-compatible API.
type Client struct {
	rc       *request.Client
	cfg      config.LLMConfig
	baseURL  string
	profiles map[string]string
	timeout  time.Duration
	label    string

	mu sync.RWMutex
}

// Request follows the OpenAI Chat Completions format. Sampling parameters
// are left to the provider defaults.
type Request struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Response follows the standard Chat Completions response format.
type Response struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewClient creates a new OpenAI-compatible client. The API key is resolved
// from cfg on every request.
func NewClient(cfg config.LLMConfig, defaultBaseURL string, rc *request.Client) (*Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL is required")
	}
	if rc == nil {
		return nil, fmt.Errorf("request client is required")
	}

	label := cfg.Type
	if label == "" {
		label = "openai"
	}

	return &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		cfg:      cfg,
		profiles: cfg.Profiles,
		timeout:  cfg.Timeout.Std(),
		rc:       rc,
		label:    label,
	}, nil
}

// Label returns the provider label.
func (c *Client) Label() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.label
}

// BaseURL returns the API root requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) GenerateText(ctx context.Context, name, prompt string) (string, error) {
	model, err := c.ResolveModel(name)
	if err != nil {
		return "", err
	}

	req := Request{
		Model: model,
		Messages: []Message{
			{Role: "user", Content: prompt},
		},
	}

	return c.Execute(ctx, req)
}

func (c *Client) GenerateJSON(ctx context.Context, name, prompt string, target any) error {
	respText, err := c.GenerateText(ctx, name, prompt)
	if err != nil {
		return err
	}

	if err := llm.DecodeJSON(respText, target); err != nil {
		slog.Error("LLM returned unparseable JSON", "provider", c.Label(), "profile", name, "raw", respText)
		c.rc.Tracker().TrackMalformed(c.Label())
		return err
	}
	return nil
}

// Execute posts a single chat completion. It never retries.
func (c *Client) Execute(ctx context.Context, oreq Request) (string, error) {
	label := c.Label()

	apiKey := c.cfg.APIKey()
	if apiKey == "" {
		return "", &llm.UpstreamError{Provider: label, StatusCode: 401, Err: llm.ErrMissingKey}
	}

	body, err := json.Marshal(oreq)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	headers := map[string]string{
		"Authorization": "Bearer " + apiKey,
		"Content-Type":  "application/json",
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	respBody, err := c.rc.PostWithHeaders(ctx, c.baseURL+"/chat/completions", body, headers)
	if err != nil {
		return "", toUpstreamError(label, err)
	}

	var oresp Response
	if err := json.Unmarshal(respBody, &oresp); err != nil {
		return "", &llm.UpstreamError{
			Provider: label,
			Body:     llm.Truncate(string(respBody), 512),
			Err:      fmt.Errorf("failed to unmarshal response: %w", err),
		}
	}

	if oresp.Error != nil {
		return "", &llm.UpstreamError{
			Provider: label,
			Err:      fmt.Errorf("api error: %s (%s)", oresp.Error.Message, oresp.Error.Type),
		}
	}

	if len(oresp.Choices) == 0 || strings.TrimSpace(oresp.Choices[0].Message.Content) == "" {
		c.rc.Tracker().TrackEmpty(label)
		return "", &llm.EmptyResponseError{Provider: label}
	}

	return oresp.Choices[0].Message.Content, nil
}

func toUpstreamError(label string, err error) error {
	var se *request.StatusError
	if errors.As(err, &se) {
		return &llm.UpstreamError{
			Provider:   label,
			StatusCode: se.StatusCode,
			Body:       llm.Truncate(string(se.Body), 512),
			Err:        err,
		}
	}
	return &llm.UpstreamError{Provider: label, Err: err}
}

// HealthCheck reports whether a credential and a guide model are configured.
// It does not contact the API.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.cfg.APIKey() == "" {
		if env := c.cfg.KeyEnvVar(); env != "" {
			return fmt.Errorf("%s: no api key (set llm.key or %s)", c.Label(), env)
		}
		return fmt.Errorf("%s: no api key configured", c.Label())
	}
	if len(c.profiles) == 0 {
		return fmt.Errorf("%s: no profiles configured", c.Label())
	}
	return nil
}

func (c *Client) HasProfile(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.profiles[name] != ""
}

func (c *Client) ResolveModel(intent string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if model, ok := c.profiles[intent]; ok && model != "" {
		return model, nil
	}
	return "", &llm.ProfileError{Profile: intent}
}
