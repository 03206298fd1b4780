package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/iterator"
	"google.golang.org/genai"

	"helpnow/pkg/config"
	"helpnow/pkg/llm"
	"helpnow/pkg/tracker"
)

const defaultModel = "gemini-2.5-flash"

// Client implements llm.Provider for Google Gemini.
type Client struct {
	cfg      config.LLMConfig
	profiles map[string]string // Map intent -> modelName
	timeout  time.Duration
	tracker  *tracker.Tracker

	// genai clients are bound to a key; rebuilt when the key changes.
	genaiClient *genai.Client
	clientKey   string

	mu sync.Mutex
}

// NewClient creates a new Gemini client. The API key is resolved on every call.
func NewClient(cfg config.LLMConfig, t *tracker.Tracker) (*Client, error) {
	if t == nil {
		t = tracker.New()
	}
	cfg.Type = "gemini"
	return &Client{
		cfg:      cfg,
		profiles: cfg.Profiles,
		timeout:  cfg.Timeout.Std(),
		tracker:  t,
	}, nil
}

// Close drops the underlying genai client.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.genaiClient = nil
	c.clientKey = ""
}

// client returns a genai client for the current key.
func (c *Client) client(ctx context.Context) (*genai.Client, error) {
	key := c.cfg.APIKey()
	if key == "" {
		return nil, &llm.UpstreamError{Provider: "gemini", StatusCode: 401, Err: llm.ErrMissingKey}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.genaiClient != nil && c.clientKey == key {
		return c.genaiClient, nil
	}

	cc := &genai.ClientConfig{APIKey: key, Backend: genai.BackendGeminiAPI}
	if c.cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: c.cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, &llm.UpstreamError{Provider: "gemini", Err: fmt.Errorf("failed to create genai client: %w", err)}
	}
	c.genaiClient = client
	c.clientKey = key
	return client, nil
}

// GenerateText sends a prompt and returns the text response.
func (c *Client) GenerateText(ctx context.Context, name, prompt string) (string, error) {
	return c.generate(ctx, name, prompt, &genai.GenerateContentConfig{})
}

// GenerateJSON sends a prompt and unmarshals the response into target.
func (c *Client) GenerateJSON(ctx context.Context, name, prompt string, target any) error {
	text, err := c.generate(ctx, name, prompt, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return err
	}

	if err := llm.DecodeJSON(text, target); err != nil {
		slog.Error("LLM returned unparseable JSON", "provider", "gemini", "profile", name, "raw", text)
		c.tracker.TrackMalformed("gemini")
		return err
	}
	return nil
}

func (c *Client) generate(ctx context.Context, name, prompt string, gcfg *genai.GenerateContentConfig) (string, error) {
	modelName, err := c.resolveModel(name)
	if err != nil {
		return "", err
	}

	client, err := c.client(ctx)
	if err != nil {
		return "", err
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := client.Models.GenerateContent(ctx, modelName, genai.Text(prompt), gcfg)
	if err != nil {
		c.tracker.TrackAPIFailure("gemini")
		return "", toUpstreamError(err)
	}

	text := getResponseText(resp)
	if strings.TrimSpace(text) == "" {
		c.tracker.TrackEmpty("gemini")
		return "", &llm.EmptyResponseError{Provider: "gemini"}
	}

	c.tracker.TrackAPISuccess("gemini")
	return text, nil
}

func toUpstreamError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &llm.UpstreamError{
			Provider:   "gemini",
			StatusCode: apiErr.Code,
			Body:       apiErr.Message,
			Err:        err,
		}
	}
	return &llm.UpstreamError{Provider: "gemini", Err: err}
}

func getResponseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

// HealthCheck reports whether a key is configured. It does not contact the API.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.cfg.APIKey() == "" {
		return fmt.Errorf("gemini: no api key (set llm.key or %s)", c.cfg.KeyEnvVar())
	}
	return nil
}

// HasProfile checks if the client has a model for the given intent.
func (c *Client) HasProfile(name string) bool {
	return c.profiles[name] != ""
}

// ValidateModels checks that every configured model is served for the key
// and logs the available gemini models when one is missing.
func (c *Client) ValidateModels(ctx context.Context) error {
	client, err := c.client(ctx)
	if err != nil {
		return err
	}

	models := make([]string, 0, len(c.profiles)+1)
	for _, m := range c.profiles {
		models = append(models, m)
	}
	if c.profiles["guide"] == "" {
		models = append(models, defaultModel)
	}

	var missing []string
	for _, model := range models {
		name := model
		if !strings.HasPrefix(name, "models/") {
			name = "models/" + name
		}
		if _, err := client.Models.Get(ctx, name, nil); err != nil {
			missing = append(missing, model)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	available := listGeminiModels(ctx, client)
	slog.Error("Configured gemini models not found", "missing", missing, "available", available)
	return fmt.Errorf("configured models %v not available", missing)
}

func listGeminiModels(ctx context.Context, client *genai.Client) []string {
	page, err := client.Models.List(ctx, nil)
	if err != nil {
		slog.Warn("Failed to list gemini models", "error", err)
		return nil
	}

	var names []string
	for {
		for _, m := range page.Items {
			if strings.Contains(strings.ToLower(m.Name), "gemini") {
				names = append(names, m.Name)
			}
		}
		page, err = page.Next(ctx)
		if errors.Is(err, genai.ErrPageDone) || errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			slog.Warn("Failed to list further gemini models", "error", err)
			break
		}
	}
	return names
}
