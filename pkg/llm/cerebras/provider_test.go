package cerebras

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helpnow/pkg/config"
	"helpnow/pkg/request"
)

func TestCerebras_DefaultBaseURL(t *testing.T) {
	c, err := NewClient(config.DefaultConfig().LLM, request.New(nil, request.Options{}))
	require.NoError(t, err)
	assert.Equal(t, "https://api.cerebras.ai/v1", c.BaseURL())
	assert.Equal(t, "cerebras", c.Label())
	assert.True(t, c.HasProfile("guide"))
}

func TestCerebras_BaseURLOverride(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"title\":\"t\"}"}}]}`))
	}))
	defer server.Close()

	cfg := config.DefaultConfig().LLM
	cfg.BaseURL = server.URL
	cfg.Key = "k"

	c, err := NewClient(cfg, request.New(nil, request.Options{}))
	require.NoError(t, err)

	var out map[string]string
	require.NoError(t, c.GenerateJSON(context.Background(), "guide", "p", &out))
	assert.Equal(t, "t", out["title"])
}
