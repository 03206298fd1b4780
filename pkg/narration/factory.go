package narration

import (
	"context"
	"fmt"

	"helpnow/pkg/audio"
	"helpnow/pkg/config"
	"helpnow/pkg/tracker"
	"helpnow/pkg/tts/edgetts"
)

// NewEngine returns the narration engine selected by cfg, or nil when
// narration is switched off. Audio files are written into dir.
func NewEngine(ctx context.Context, cfg config.TTSConfig, t *tracker.Tracker, player audio.Player, dir string) (Engine, error) {
	switch cfg.Engine {
	case "none", "":
		return nil, nil
	case "edge-tts":
		s := edgetts.SettingsFromEnv()
		if err := s.Validate(); err != nil {
			return nil, err
		}
		e, err := NewSpeakerEngine(ctx, edgetts.NewProvider(s, t), player, dir)
		if err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown tts engine: %s", cfg.Engine)
	}
}
