// Package audio plays synthesized narration through the system speaker.
package audio

import (
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"
)

// Player is the playback capability used by the narration engine.
type Player interface {
	// Play starts playback of an audio file, replacing anything playing.
	// onComplete runs when the file plays to its end, not when stopped.
	Play(filepath string, onComplete func()) error
	// Stop stops current playback.
	Stop()
	// Shutdown stops playback and removes the last narration file.
	Shutdown()
}

// Manager implements Player using gopxl/beep.
type Manager struct {
	mu                 sync.RWMutex
	ctrl               *beep.Ctrl
	volume             float64
	isPaused           bool
	lastNarrationFile  string
	speakerInitialized bool
	currentSampleRate  beep.SampleRate
	streamer           *effects.Volume
	trackStreamer      beep.StreamSeekCloser
	generation         uint64
}

// New creates a new Manager instance.
func New() *Manager {
	return &Manager{volume: 1.0}
}

// Play starts playback of an audio file.
func (m *Manager) Play(filepath string, onComplete func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopLocked()

	streamer, format, err := decodeStreamer(filepath)
	if err != nil {
		return err
	}

	if err := m.ensureSpeakerInitialized(streamer); err != nil {
		return err
	}

	resampled := beep.Resample(3, format.SampleRate, m.currentSampleRate, streamer)

	volStreamer := &effects.Volume{
		Streamer: resampled,
		Base:     2,
		Volume:   volumeToPower(m.volume),
		Silent:   m.volume <= 0.01,
	}

	m.streamer = volStreamer
	m.trackStreamer = streamer
	m.ctrl = &beep.Ctrl{Streamer: volStreamer}
	m.isPaused = false
	m.generation++
	gen := m.generation

	speaker.Play(beep.Seq(m.ctrl, beep.Callback(func() {
		// Leave the speaker goroutine before taking the lock.
		go func() {
			m.mu.Lock()
			current := m.generation == gen
			if current {
				m.ctrl = nil
				m.isPaused = false
				m.trackStreamer = nil
			}
			m.mu.Unlock()
			streamer.Close()

			if current && onComplete != nil {
				onComplete()
			}
		}()
	})))

	if m.lastNarrationFile != "" && m.lastNarrationFile != filepath {
		removeArtifact(m.lastNarrationFile)
	}
	m.lastNarrationFile = filepath

	slog.Debug("Playing audio", "path", filepath, "duration", format.SampleRate.D(streamer.Len()))
	return nil
}

// Pause pauses current playback.
func (m *Manager) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ctrl != nil {
		speaker.Lock()
		m.ctrl.Paused = true
		speaker.Unlock()
		m.isPaused = true
	}
}

// Resume resumes paused playback.
func (m *Manager) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ctrl != nil && m.isPaused {
		speaker.Lock()
		m.ctrl.Paused = false
		speaker.Unlock()
		m.isPaused = false
	}
}

// Stop stops current playback.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopLocked()
}

func (m *Manager) stopLocked() {
	m.generation++
	if m.trackStreamer != nil {
		m.trackStreamer.Close()
		m.trackStreamer = nil
	}
	if m.ctrl != nil {
		speaker.Clear()
		m.ctrl = nil
		m.isPaused = false
	}
}

func (m *Manager) ensureSpeakerInitialized(streamer beep.StreamSeekCloser) error {
	const targetSampleRate = 48000
	if !m.speakerInitialized {
		err := speaker.Init(beep.SampleRate(targetSampleRate), beep.SampleRate(targetSampleRate).N(time.Second/10))
		if err != nil {
			streamer.Close()
			slog.Error("Failed to initialize speaker", "error", err)
			return err
		}
		m.speakerInitialized = true
		m.currentSampleRate = beep.SampleRate(targetSampleRate)
	}
	return nil
}

// Shutdown stops playback and deletes any residual audio artifacts.
func (m *Manager) Shutdown() {
	m.Stop()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lastNarrationFile != "" {
		removeArtifact(m.lastNarrationFile)
		m.lastNarrationFile = ""
	}
}

// IsPaused returns true if playback is paused.
func (m *Manager) IsPaused() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isPaused
}

// SetVolume sets playback volume (0.0 to 1.0).
func (m *Manager) SetVolume(vol float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if vol < 0 {
		vol = 0
	} else if vol > 1 {
		vol = 1
	}
	m.volume = vol

	if m.streamer != nil {
		speaker.Lock()
		m.streamer.Volume = volumeToPower(vol)
		m.streamer.Silent = vol <= 0.01
		speaker.Unlock()
	}
}

func removeArtifact(path string) {
	if err := os.Remove(path); err == nil {
		slog.Debug("Audio: Cleaned up narration artifact", "path", path)
	} else if !os.IsNotExist(err) {
		slog.Warn("Audio: Failed to cleanup narration artifact", "path", path, "error", err)
	}
}

func decodeStreamer(path string) (beep.StreamSeekCloser, beep.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		slog.Error("Failed to open audio file", "path", path, "error", err)
		return nil, beep.Format{}, err
	}

	streamer, format, err := mp3.Decode(f)
	if err == nil {
		return streamer, format, nil
	}

	// Reopen for the WAV attempt; a failed MP3 decode leaves the offset unknown.
	f.Close()
	f, err = os.Open(path)
	if err != nil {
		return nil, beep.Format{}, err
	}

	streamer, format, err = wav.Decode(f)
	if err != nil {
		f.Close()
		slog.Error("Failed to decode audio file", "path", path, "error", err)
		return nil, beep.Format{}, err
	}

	return streamer, format, nil
}
