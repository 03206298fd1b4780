// Package narration reads guide steps aloud.
package narration

import (
	"log/slog"
	"strings"
	"sync"
)

// AudioState is the playback state reported to the presentation layer.
type AudioState string

const (
	AudioIdle    AudioState = "idle"
	AudioPlaying AudioState = "playing"
	AudioPaused  AudioState = "paused"
)

// Narration prosody.
const (
	DefaultRate  = 0.85
	DefaultPitch = 1.1
)

// ReasonInterrupted is the error reason reported for a cancelled utterance.
const ReasonInterrupted = "interrupted"

// Voice is a voice offered by an Engine.
type Voice struct {
	ID       string
	Name     string
	Language string
}

// Utterance is one piece of text handed to an Engine. The callbacks are
// invoked by the engine, possibly from another goroutine.
type Utterance struct {
	Text  string
	Voice *Voice
	Rate  float64
	Pitch float64

	OnStart func()
	OnEnd   func()
	OnError func(reason string)
}

// Engine is a speech synthesis capability that speaks one utterance at a
// time. Speak replaces whatever is being spoken; Cancel silences it and
// reports ReasonInterrupted to the utterance.
type Engine interface {
	Voices() []Voice
	Speak(u *Utterance) error
	Cancel()
}

// Pauser is implemented by engines that can hold an utterance mid-way.
type Pauser interface {
	Pause() bool
	Resume() bool
}

// Driver narrates text through an Engine and tracks the AudioState.
type Driver struct {
	engine      Engine
	preferences []string

	mu        sync.Mutex
	state     AudioState
	current   *Utterance
	observers []func(AudioState)
}

// NewDriver creates a Driver. A nil engine turns Play into a logged no-op.
func NewDriver(engine Engine, preferences []string) *Driver {
	return &Driver{
		engine:      engine,
		preferences: preferences,
		state:       AudioIdle,
	}
}

// Available reports whether an engine is attached.
func (d *Driver) Available() bool {
	return d.engine != nil
}

// State returns the current AudioState.
func (d *Driver) State() AudioState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Subscribe registers fn to be called on every state change.
func (d *Driver) Subscribe(fn func(AudioState)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.observers = append(d.observers, fn)
}

// Play cancels any utterance in progress and speaks text.
func (d *Driver) Play(text string) {
	if d.engine == nil {
		slog.Warn("Narration engine unavailable, skipping playback")
		return
	}

	u := &Utterance{
		Text:  text,
		Voice: SelectVoice(d.engine.Voices(), d.preferences),
		Rate:  DefaultRate,
		Pitch: DefaultPitch,
	}
	u.OnStart = func() { d.transition(u, AudioPlaying) }
	u.OnEnd = func() { d.transition(u, AudioIdle) }
	u.OnError = func(reason string) {
		if reason != ReasonInterrupted {
			slog.Error("Speech synthesis error", "error", reason)
		}
		d.transition(u, AudioIdle)
	}

	// Callbacks of the previous utterance are ignored from here on.
	d.mu.Lock()
	d.current = u
	d.update(AudioIdle)

	d.engine.Cancel()

	if err := d.engine.Speak(u); err != nil {
		slog.Error("Speech synthesis error", "error", err)
		d.transition(u, AudioIdle)
	}
}

// Stop cancels any utterance and forces the state to idle.
func (d *Driver) Stop() {
	if d.engine != nil {
		d.engine.Cancel()
	}
	d.mu.Lock()
	d.current = nil
	d.update(AudioIdle)
}

// Pause pauses a playing utterance. It reports false when nothing is
// playing or the engine cannot pause.
func (d *Driver) Pause() bool {
	return d.setPaused(AudioPlaying, AudioPaused, Pauser.Pause)
}

// Resume continues a paused utterance.
func (d *Driver) Resume() bool {
	return d.setPaused(AudioPaused, AudioPlaying, Pauser.Resume)
}

func (d *Driver) setPaused(from, to AudioState, op func(Pauser) bool) bool {
	p, ok := d.engine.(Pauser)
	if !ok {
		return false
	}
	d.mu.Lock()
	u := d.current
	if d.state != from || u == nil {
		d.mu.Unlock()
		return false
	}
	d.mu.Unlock()

	if !op(p) {
		return false
	}
	d.transition(u, to)
	return true
}

func (d *Driver) transition(u *Utterance, s AudioState) {
	d.mu.Lock()
	if d.current != u {
		d.mu.Unlock()
		return
	}
	d.update(s)
}

// update must be called with d.mu held; it releases the lock before
// notifying observers.
func (d *Driver) update(s AudioState) {
	if d.state == s {
		d.mu.Unlock()
		return
	}
	d.state = s
	observers := append([]func(AudioState){}, d.observers...)
	d.mu.Unlock()

	for _, fn := range observers {
		fn(s)
	}
}

// SelectVoice picks the narration voice: the first preference matched
// exactly and then partially by name or ID, else a voice whose name contains
// "female", else the first voice. It returns nil when voices is empty.
func SelectVoice(voices []Voice, preferences []string) *Voice {
	for _, pref := range preferences {
		for i := range voices {
			if voices[i].Name == pref || voices[i].ID == pref {
				return &voices[i]
			}
		}
		for i := range voices {
			if strings.Contains(voices[i].Name, pref) || strings.Contains(voices[i].ID, pref) {
				return &voices[i]
			}
		}
	}
	for i := range voices {
		if strings.Contains(strings.ToLower(voices[i].Name), "female") {
			return &voices[i]
		}
	}
	if len(voices) > 0 {
		return &voices[0]
	}
	return nil
}
