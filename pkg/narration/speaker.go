package narration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"helpnow/pkg/audio"
	"helpnow/pkg/tts"
)

// SpeakerEngine is an Engine that synthesises each utterance to a file with
// a tts.Provider and plays it through an audio.Player.
type SpeakerEngine struct {
	provider tts.Provider
	player   audio.Player
	dir      string
	voices   []Voice

	mu     sync.Mutex
	seq    uint64
	active *job
}

type job struct {
	seq    uint64
	u      *Utterance
	cancel context.CancelFunc

	// mu serialises the utterance callbacks so OnStart never follows a
	// terminal callback.
	mu      sync.Mutex
	started bool
	ended   atomic.Bool
}

// begin reports OnStart unless the utterance already ended.
func (j *job) begin() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.started || j.ended.Load() {
		return
	}
	j.started = true
	if j.u.OnStart != nil {
		j.u.OnStart()
	}
}

// finish reports the terminal callback of the utterance exactly once. A
// natural end that outran begin still reports OnStart first.
func (j *job) finish(reason string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.ended.Load() {
		return
	}
	j.ended.Store(true)
	if reason == "" {
		if !j.started && j.u.OnStart != nil {
			j.u.OnStart()
		}
		j.started = true
		if j.u.OnEnd != nil {
			j.u.OnEnd()
		}
		return
	}
	if j.u.OnError != nil {
		j.u.OnError(reason)
	}
}

// NewSpeakerEngine creates a SpeakerEngine writing audio files into dir.
func NewSpeakerEngine(ctx context.Context, provider tts.Provider, player audio.Player, dir string) (*SpeakerEngine, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create narration directory: %w", err)
	}
	tv, err := provider.Voices(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list voices: %w", err)
	}
	voices := make([]Voice, len(tv))
	for i, v := range tv {
		voices[i] = Voice{ID: v.ID, Name: v.Name, Language: v.Language}
	}
	return &SpeakerEngine{provider: provider, player: player, dir: dir, voices: voices}, nil
}

// Voices implements Engine.
func (e *SpeakerEngine) Voices() []Voice {
	return e.voices
}

// Speak implements Engine. Synthesis runs in the background; OnStart fires
// when playback begins.
func (e *SpeakerEngine) Speak(u *Utterance) error {
	if strings.TrimSpace(u.Text) == "" {
		return errors.New("nothing to speak")
	}
	e.Cancel()

	ctx, cancel := context.WithCancel(context.Background())
	e.mu.Lock()
	e.seq++
	j := &job{seq: e.seq, u: u, cancel: cancel}
	e.active = j
	e.mu.Unlock()

	go e.run(ctx, j)
	return nil
}

// Cancel implements Engine.
func (e *SpeakerEngine) Cancel() {
	e.mu.Lock()
	j := e.active
	e.active = nil
	e.mu.Unlock()

	if j == nil {
		return
	}
	j.cancel()
	e.player.Stop()
	j.finish(ReasonInterrupted)
}

type pausablePlayer interface {
	Pause()
	Resume()
	IsPaused() bool
}

// Pause implements Pauser. It only succeeds while audio is playing.
func (e *SpeakerEngine) Pause() bool {
	return e.setPaused(true)
}

// Resume implements Pauser.
func (e *SpeakerEngine) Resume() bool {
	return e.setPaused(false)
}

func (e *SpeakerEngine) setPaused(paused bool) bool {
	p, ok := e.player.(pausablePlayer)
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == nil || e.active.ended.Load() || p.IsPaused() == paused {
		return false
	}
	if paused {
		p.Pause()
	} else {
		p.Resume()
	}
	return true
}

// Close cancels narration and removes audio artifacts.
func (e *SpeakerEngine) Close() {
	e.Cancel()
	e.player.Shutdown()
}

func (e *SpeakerEngine) run(ctx context.Context, j *job) {
	defer j.cancel()

	voice := ""
	if j.u.Voice != nil {
		voice = j.u.Voice.ID
	}
	base := filepath.Join(e.dir, fmt.Sprintf("narration_%d", j.seq))
	format, err := e.provider.Synthesize(ctx, j.u.Text, voice, tts.Prosody{Rate: j.u.Rate, Pitch: j.u.Pitch}, base)
	if ctx.Err() != nil {
		j.finish(ReasonInterrupted)
		return
	}
	if err != nil {
		e.drop(j)
		j.finish(err.Error())
		return
	}

	path := base
	if !strings.HasSuffix(path, "."+format) {
		path += "." + format
	}
	if info, statErr := os.Stat(path); statErr != nil || info.Size() < tts.MinAudioSize {
		slog.Warn("Narration audio too small, skipping playback", "path", path)
		e.drop(j)
		j.finish("synthesis produced no audio")
		return
	}

	// Holding the lock across Play keeps a concurrent Cancel from slipping
	// between the currency check and the start of playback.
	e.mu.Lock()
	if e.active != j {
		e.mu.Unlock()
		_ = os.Remove(path)
		j.finish(ReasonInterrupted)
		return
	}
	err = e.player.Play(path, func() {
		e.drop(j)
		j.finish("")
	})
	e.mu.Unlock()

	if err != nil {
		e.drop(j)
		j.finish(err.Error())
		return
	}
	j.begin()
}

// drop clears j as the active job if it still is.
func (e *SpeakerEngine) drop(j *job) {
	e.mu.Lock()
	if e.active == j {
		e.active = nil
	}
	e.mu.Unlock()
}
