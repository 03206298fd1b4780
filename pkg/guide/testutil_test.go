package guide

import (
	"context"
	"encoding/json"
	"time"

	"helpnow/pkg/config"
	"helpnow/pkg/visual"
)

// stubProvider answers GenerateJSON with a canned model reply.
type stubProvider struct {
	reply   string
	err     error
	prompts []string
}

func (s *stubProvider) GenerateText(ctx context.Context, name, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.reply, s.err
}

func (s *stubProvider) GenerateJSON(ctx context.Context, name, prompt string, target any) error {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return s.err
	}
	return json.Unmarshal([]byte(s.reply), target)
}

func (s *stubProvider) HealthCheck(ctx context.Context) error { return nil }

func (s *stubProvider) HasProfile(name string) bool { return name == Profile }

func fixedAugmenter() *visual.Augmenter {
	a := visual.New(config.DefaultConfig().Visual)
	a.Clock = visual.FixedClock(time.UnixMilli(1000))
	return a
}
