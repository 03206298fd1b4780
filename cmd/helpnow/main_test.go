package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helpnow/pkg/config"
	"helpnow/pkg/tracker"
)

func TestInitGuideService(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.LLM.Type = "groq"

	svc, err := initGuideService(cfg, tracker.New())
	require.NoError(t, err)
	assert.True(t, svc.LLMProvider().HasProfile("guide"))

	cfg.LLM.PromptsDir = filepath.Join(t.TempDir(), "missing")
	_, err = initGuideService(cfg, tracker.New())
	assert.Error(t, err)
}

func TestRun_ServesHealthAndShutsDown(t *testing.T) {
	dir := t.TempDir()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	l.Close()

	cfg := config.DefaultConfig()
	cfg.Server.Address = addr
	cfg.Log.Server.Path = filepath.Join(dir, "logs", "server.log")
	cfg.Log.Requests.Path = filepath.Join(dir, "logs", "requests.log")
	cfg.History.LLM.Path = filepath.Join(dir, "logs", "llm.log")
	cfgPath := filepath.Join(dir, "helpnow.yaml")
	require.NoError(t, config.Save(cfgPath, cfg))

	t.Setenv("CEREBRAS_API_KEY", "")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfgPath, filepath.Join(dir, ".env")) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}

	_, err = os.Stat(cfg.Log.Requests.Path)
	assert.NoError(t, err)
}
