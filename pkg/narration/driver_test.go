package narration

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEngine records utterances and lets the test drive their callbacks.
type fakeEngine struct {
	mu        sync.Mutex
	voices    []Voice
	spoken    []*Utterance
	active    *Utterance
	cancels   int
	speakErr  error
	autoStart bool
}

func (f *fakeEngine) Voices() []Voice { return f.voices }

func (f *fakeEngine) Speak(u *Utterance) error {
	if f.speakErr != nil {
		return f.speakErr
	}
	f.mu.Lock()
	f.spoken = append(f.spoken, u)
	f.active = u
	f.mu.Unlock()
	if f.autoStart {
		u.OnStart()
	}
	return nil
}

func (f *fakeEngine) Cancel() {
	f.mu.Lock()
	u := f.active
	f.active = nil
	f.cancels++
	f.mu.Unlock()
	if u != nil {
		u.OnError(ReasonInterrupted)
	}
}

func (f *fakeEngine) audible() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.active == nil {
		return ""
	}
	return f.active.Text
}

func TestDriver_PlayLifecycle(t *testing.T) {
	eng := &fakeEngine{voices: []Voice{{ID: "v1", Name: "Voice One"}}}
	d := NewDriver(eng, nil)

	var states []AudioState
	d.Subscribe(func(s AudioState) { states = append(states, s) })

	d.Play("Check for breathing")
	require.Len(t, eng.spoken, 1)
	u := eng.spoken[0]
	assert.Equal(t, "Check for breathing", u.Text)
	assert.Equal(t, DefaultRate, u.Rate)
	assert.Equal(t, DefaultPitch, u.Pitch)
	assert.Equal(t, "v1", u.Voice.ID)
	assert.Equal(t, AudioIdle, d.State())

	u.OnStart()
	assert.Equal(t, AudioPlaying, d.State())
	u.OnEnd()
	assert.Equal(t, AudioIdle, d.State())
	assert.Equal(t, []AudioState{AudioPlaying, AudioIdle}, states)
}

func TestDriver_StopWhilePlaying(t *testing.T) {
	eng := &fakeEngine{autoStart: true}
	d := NewDriver(eng, nil)

	d.Play("Apply pressure")
	require.Equal(t, AudioPlaying, d.State())

	d.Stop()
	assert.Equal(t, AudioIdle, d.State())
	assert.Equal(t, "", eng.audible())
}

func TestDriver_SecondPlaySupersedesFirst(t *testing.T) {
	eng := &fakeEngine{autoStart: true}
	d := NewDriver(eng, nil)

	d.Play("first")
	first := eng.spoken[0]
	d.Play("second")

	assert.Equal(t, "second", eng.audible())
	assert.Equal(t, AudioPlaying, d.State())

	// Late callbacks from the superseded utterance are ignored.
	first.OnEnd()
	assert.Equal(t, AudioPlaying, d.State())
	first.OnError("synthesis-failed")
	assert.Equal(t, AudioPlaying, d.State())
}

func TestDriver_ErrorReturnsToIdle(t *testing.T) {
	eng := &fakeEngine{autoStart: true}
	d := NewDriver(eng, nil)

	d.Play("step")
	eng.spoken[0].OnError("audio-busy")
	assert.Equal(t, AudioIdle, d.State())

	eng.speakErr = errors.New("device lost")
	d.Play("again")
	assert.Equal(t, AudioIdle, d.State())
}

func TestDriver_NoEngine(t *testing.T) {
	d := NewDriver(nil, nil)
	assert.False(t, d.Available())
	d.Play("anything")
	d.Stop()
	assert.Equal(t, AudioIdle, d.State())
}

func TestSelectVoice(t *testing.T) {
	voices := []Voice{
		{ID: "a", Name: "Microsoft David - English (United States)"},
		{ID: "b", Name: "Google UK English Female"},
		{ID: "c", Name: "Samantha Enhanced"},
		{ID: "d", Name: "Some Female Voice"},
	}

	tests := []struct {
		name   string
		voices []Voice
		prefs  []string
		want   string
	}{
		{"ExactMatch", voices, []string{"Google UK English Female"}, "b"},
		{"PreferenceOrder", voices, []string{"Samantha", "Google UK English Female"}, "c"},
		{"PartialMatch", voices, []string{"Samantha"}, "c"},
		{"MatchByID", voices, []string{"a"}, "a"},
		{"FemaleFallback", []Voice{voices[0], voices[3]}, []string{"Zira"}, "d"},
		{"FirstFallback", []Voice{voices[0]}, []string{"Zira"}, "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectVoice(tt.voices, tt.prefs)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.ID)
		})
	}

	assert.Nil(t, SelectVoice(nil, []string{"Samantha"}))
}

type pausingEngine struct {
	fakeEngine
	paused bool
}

func (p *pausingEngine) Pause() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active == nil || p.paused {
		return false
	}
	p.paused = true
	return true
}

func (p *pausingEngine) Resume() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active == nil || !p.paused {
		return false
	}
	p.paused = false
	return true
}

func TestDriver_PauseResume(t *testing.T) {
	eng := &pausingEngine{fakeEngine: fakeEngine{autoStart: true}}
	d := NewDriver(eng, nil)

	assert.False(t, d.Pause(), "nothing to pause while idle")

	d.Play("Keep the limb still")
	require.Equal(t, AudioPlaying, d.State())

	assert.True(t, d.Pause())
	assert.Equal(t, AudioPaused, d.State())
	assert.False(t, d.Pause())

	assert.True(t, d.Resume())
	assert.Equal(t, AudioPlaying, d.State())

	assert.True(t, d.Pause())
	d.Stop()
	assert.Equal(t, AudioIdle, d.State())
	assert.False(t, d.Resume())
}

func TestDriver_PauseUnsupported(t *testing.T) {
	d := NewDriver(&fakeEngine{autoStart: true}, nil)
	d.Play("Apply pressure")
	assert.False(t, d.Pause())
	assert.Equal(t, AudioPlaying, d.State())
}
