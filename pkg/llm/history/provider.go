package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"helpnow/pkg/llm"
)

// Provider wraps an llm.Provider and appends every exchange to a history file.
type Provider struct {
	inner   llm.Provider
	name    string
	logPath string
	enabled bool
	now     func() time.Time

	mu sync.Mutex
}

// New wraps inner. name labels entries; nothing is written unless enabled.
func New(inner llm.Provider, name, logPath string, enabled bool) *Provider {
	return &Provider{
		inner:   inner,
		name:    name,
		logPath: logPath,
		enabled: enabled,
		now:     time.Now,
	}
}

// GenerateText implements llm.Provider.
func (p *Provider) GenerateText(ctx context.Context, name, prompt string) (string, error) {
	res, err := p.inner.GenerateText(ctx, name, prompt)
	p.logRequest(name, prompt, res, err)
	return res, err
}

// GenerateJSON implements llm.Provider.
func (p *Provider) GenerateJSON(ctx context.Context, name, prompt string, target any) error {
	err := p.inner.GenerateJSON(ctx, name, prompt, target)
	var response string
	if err == nil {
		if b, mErr := json.MarshalIndent(target, "", "  "); mErr == nil {
			response = string(b)
		}
	}
	p.logRequest(name, prompt, response, err)
	return err
}

// HealthCheck implements llm.Provider.
func (p *Provider) HealthCheck(ctx context.Context) error {
	return p.inner.HealthCheck(ctx)
}

// HasProfile implements llm.Provider.
func (p *Provider) HasProfile(name string) bool {
	return p.inner.HasProfile(name)
}

// ValidateModels delegates to the wrapped provider when it supports model
// validation.
func (p *Provider) ValidateModels(ctx context.Context) error {
	if v, ok := p.inner.(llm.ModelValidator); ok {
		return v.ValidateModels(ctx)
	}
	return nil
}

func (p *Provider) logRequest(callName, prompt, response string, err error) {
	if p.logPath == "" || !p.enabled {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(p.logPath), 0o755); err != nil {
		return
	}
	file, fErr := os.OpenFile(p.logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if fErr != nil {
		return
	}
	defer file.Close()

	timestamp := p.now().Format("2006-01-02 15:04:05")
	label := strings.ToUpper(p.name)
	sep := strings.Repeat("-", 80)

	var entry string
	if err != nil {
		entry = fmt.Sprintf("[%s][%s] ERROR: %s - %v\n", timestamp, label, callName, err)
		var mre *llm.MalformedResponseError
		if errors.As(err, &mre) {
			entry += fmt.Sprintf("RAW:\n%s\n", llm.WordWrap(mre.Raw, 80))
		}
		entry += sep + "\n"
	} else {
		entry = fmt.Sprintf("[%s][%s] PROMPT: %s\nPROMPT_TEXT:\n%s\n\nRESPONSE:\n%s\n%s\n",
			timestamp, label, callName, prompt, llm.WordWrap(response, 80), sep)
	}

	_, _ = file.WriteString(entry)
}
