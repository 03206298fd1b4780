package guide

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helpnow/pkg/config"
	"helpnow/pkg/llm"
	"helpnow/pkg/llm/history"
	"helpnow/pkg/llm/prompts"
	"helpnow/pkg/request"
)

func newTestService(t *testing.T, p llm.Provider) *Service {
	t.Helper()
	pm, err := prompts.Default()
	require.NoError(t, err)
	return NewService(p, pm, fixedAugmenter())
}

func TestBuildPrompt(t *testing.T) {
	pm, err := prompts.Default()
	require.NoError(t, err)

	prompt, err := BuildPrompt(pm, "  someone is choking  ")
	require.NoError(t, err)
	assert.Contains(t, prompt, `said: "someone is choking".`)
	assert.Contains(t, prompt, "'action', 'warning', or 'info'")
	assert.Contains(t, prompt, "Not a Medical Emergency")

	for _, q := range []string{"", "   ", "\n\t"} {
		_, err := BuildPrompt(pm, q)
		var ve *ValidationError
		require.True(t, errors.As(err, &ve), "query %q", q)
		assert.Equal(t, ErrQueryRequired, ve.Error())
	}
}

func TestService_Generate(t *testing.T) {
	p := &stubProvider{reply: `{"title":"Bee Sting","steps":[
		{"instruction":"Scrape out the stinger","type":"action"},
		{"instruction":"Watch for swelling of the throat","type":"warning"},
		{"instruction":"A cold pack eases pain","type":"info"}]}`}
	svc := newTestService(t, p)

	s, err := svc.Generate(context.Background(), "I got stung by a bee")
	require.NoError(t, err)
	assert.Equal(t, "Bee Sting", s.Title)
	require.Len(t, s.Steps, 3)
	for i, step := range s.Steps {
		assert.NotEmpty(t, step.VisualURL, "step %d", i)
		assert.Len(t, step.AlternativeURLs, 2, "step %d", i)
	}
	assert.Len(t, p.prompts, 1)
}

func TestService_Generate_Errors(t *testing.T) {
	t.Run("ValidationSkipsLLM", func(t *testing.T) {
		p := &stubProvider{}
		_, err := newTestService(t, p).Generate(context.Background(), " ")
		var ve *ValidationError
		assert.True(t, errors.As(err, &ve))
		assert.Empty(t, p.prompts)
	})

	t.Run("UpstreamPassesThrough", func(t *testing.T) {
		p := &stubProvider{err: &llm.UpstreamError{Provider: "cerebras", StatusCode: 503}}
		_, err := newTestService(t, p).Generate(context.Background(), "burn")
		var ue *llm.UpstreamError
		assert.True(t, errors.As(err, &ue))
	})

	t.Run("NullPayload", func(t *testing.T) {
		p := &stubProvider{reply: `null`}
		_, err := newTestService(t, p).Generate(context.Background(), "burn")
		var me *llm.MalformedResponseError
		assert.True(t, errors.As(err, &me))
	})

	t.Run("ContractViolation", func(t *testing.T) {
		p := &stubProvider{reply: `{"title":"x"}`}
		_, err := newTestService(t, p).Generate(context.Background(), "burn")
		var me *llm.MalformedResponseError
		assert.True(t, errors.As(err, &me))
	})
}

func TestService_EndToEndWithOpenAICompatibleServer(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{\"choices\":[{\"message\":{\"content\":\"```json\\n{\\\"title\\\":\\\"Nosebleed\\\",\\\"steps\\\":[{\\\"instruction\\\":\\\"Lean forward\\\",\\\"type\\\":\\\"action\\\"}]}\\n```\"}}]}"))
	}))
	defer upstream.Close()

	cfg := config.DefaultConfig().LLM
	cfg.BaseURL = upstream.URL
	cfg.Key = "test"

	p, err := NewLLMProvider(cfg, config.HistorySettings{}, request.New(nil, request.Options{}))
	require.NoError(t, err)
	_, isHistory := p.(*history.Provider)
	assert.True(t, isHistory)

	s, err := newTestService(t, p).Generate(context.Background(), "my nose is bleeding")
	require.NoError(t, err)
	assert.Equal(t, "Nosebleed", s.Title)
	assert.Equal(t, "Lean forward", s.Steps[0].Instruction)
}

func TestNewLLMProvider_Types(t *testing.T) {
	rc := request.New(nil, request.Options{})
	for _, typ := range []string{"cerebras", "groq", "openai", "gemini"} {
		cfg := config.DefaultConfig().LLM
		cfg.Type = typ
		p, err := NewLLMProvider(cfg, config.HistorySettings{}, rc)
		require.NoError(t, err, typ)
		assert.True(t, p.HasProfile(Profile), typ)
	}

	cfg := config.DefaultConfig().LLM
	cfg.Type = "telepathy"
	_, err := NewLLMProvider(cfg, config.HistorySettings{}, rc)
	assert.Error(t, err)
}
