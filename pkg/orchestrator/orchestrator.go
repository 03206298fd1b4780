// Package orchestrator drives the client flow from the emergency button to
// step-by-step guidance.
package orchestrator

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"helpnow/pkg/guide"
	"helpnow/pkg/logging"
	"helpnow/pkg/model"
	"helpnow/pkg/narration"
)

// AppState is the screen-level state of the client.
type AppState string

const (
	StateIdle       AppState = "idle"
	StateListening  AppState = "listening"
	StateProcessing AppState = "processing"
	StateGuidance   AppState = "guidance"
)

// GuideClient fetches a scenario for a transcript.
type GuideClient interface {
	Guide(ctx context.Context, query string) (*model.EmergencyScenario, error)
}

// SpeechRecognizer captures one utterance. Start returns immediately; the
// recognizer later calls exactly one of onResult or onError.
type SpeechRecognizer interface {
	Start(onResult func(transcript string), onError func(message string)) error
	Stop()
}

// SpeechNarrator speaks step instructions.
type SpeechNarrator interface {
	Play(text string)
	Stop()
	State() narration.AudioState
}

// Timer is the handle of a scheduled callback.
type Timer interface {
	Stop() bool
}

// Options tunes an Orchestrator.
type Options struct {
	NarrationDelay  time.Duration
	NavigationDelay time.Duration
	RequestTimeout  time.Duration
	AudioEnabled    bool

	// AfterFunc schedules delayed narration; defaults to time.AfterFunc.
	AfterFunc func(d time.Duration, f func()) Timer
	// Go runs the guide request; defaults to a new goroutine.
	Go func(f func())
}

// DefaultOptions returns the standard delays with narration enabled.
func DefaultOptions() Options {
	return Options{
		NarrationDelay:  500 * time.Millisecond,
		NavigationDelay: 300 * time.Millisecond,
		RequestTimeout:  30 * time.Second,
		AudioEnabled:    true,
	}
}

// View is an immutable snapshot of the orchestrator state.
type View struct {
	State        AppState
	Transcript   string
	Error        string
	Scenario     *model.EmergencyScenario
	CurrentStep  int
	AudioEnabled bool
	AudioState   narration.AudioState
}

// Step returns the step being shown, or nil outside guidance.
func (v View) Step() *model.EmergencyStep {
	if v.State != StateGuidance || v.Scenario == nil {
		return nil
	}
	return v.Scenario.Step(v.CurrentStep)
}

// Orchestrator is the client state machine. All mutation happens under one
// lock; observers run after the lock is released.
type Orchestrator struct {
	guide      GuideClient
	recognizer SpeechRecognizer
	narrator   SpeechNarrator
	opts       Options

	mu           sync.Mutex
	state        AppState
	transcript   string
	errMsg       string
	scenario     *model.EmergencyScenario
	step         int
	audioEnabled bool
	token        uint64
	cancelReq    context.CancelFunc
	pending      Timer
	observers    []func(View)
}

// New creates an Orchestrator in the idle state. recognizer may be nil when
// only typed input is available.
func New(g GuideClient, recognizer SpeechRecognizer, narrator SpeechNarrator, opts Options) *Orchestrator {
	if opts.AfterFunc == nil {
		opts.AfterFunc = func(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
	}
	if opts.Go == nil {
		opts.Go = func(f func()) { go f() }
	}
	return &Orchestrator{
		guide:        g,
		recognizer:   recognizer,
		narrator:     narrator,
		opts:         opts,
		state:        StateIdle,
		audioEnabled: opts.AudioEnabled,
	}
}

// Subscribe registers fn to be called with a fresh View after every change.
func (o *Orchestrator) Subscribe(fn func(View)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observers = append(o.observers, fn)
}

// Snapshot returns the current View.
func (o *Orchestrator) Snapshot() View {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.viewLocked()
}

func (o *Orchestrator) viewLocked() View {
	v := View{
		State:        o.state,
		Transcript:   o.transcript,
		Error:        o.errMsg,
		Scenario:     o.scenario,
		CurrentStep:  o.step,
		AudioEnabled: o.audioEnabled,
		AudioState:   narration.AudioIdle,
	}
	if o.narrator != nil {
		v.AudioState = o.narrator.State()
	}
	return v
}

// commit releases the lock and notifies observers of the new View.
func (o *Orchestrator) commit() {
	v := o.viewLocked()
	observers := append([]func(View){}, o.observers...)
	o.mu.Unlock()

	logging.TraceDefault("Client state", "state", v.State, "step", v.CurrentStep, "audio", v.AudioState)

	for _, fn := range observers {
		fn(v)
	}
}

// Start moves from idle to listening and starts the recognizer. It is
// ignored in any other state.
func (o *Orchestrator) Start() bool {
	o.mu.Lock()
	if o.state != StateIdle {
		o.mu.Unlock()
		return false
	}
	o.errMsg = ""
	o.transcript = ""
	o.state = StateListening
	o.commit()

	o.stopNarration()

	if o.recognizer == nil {
		return true
	}
	if err := o.recognizer.Start(o.onRecognized, o.onRecognizerError); err != nil {
		slog.Warn("Speech recognition unavailable", "error", err)
		o.onRecognizerError(err.Error())
		return false
	}
	return true
}

func (o *Orchestrator) onRecognized(transcript string) {
	o.SubmitTranscript(transcript)
}

func (o *Orchestrator) onRecognizerError(message string) {
	o.mu.Lock()
	if o.state != StateListening {
		o.mu.Unlock()
		return
	}
	o.state = StateIdle
	o.errMsg = message
	o.commit()
}

// SubmitTranscript issues the guide request for text. It is accepted from
// idle (typed input) and listening; blank text returns to idle with an
// error.
func (o *Orchestrator) SubmitTranscript(text string) bool {
	o.mu.Lock()
	if o.state != StateIdle && o.state != StateListening {
		o.mu.Unlock()
		return false
	}
	wasListening := o.state == StateListening

	q := strings.TrimSpace(text)
	if q == "" {
		o.state = StateIdle
		o.errMsg = guide.ErrQueryRequired
		o.commit()
		o.stopRecognizer(wasListening)
		return false
	}

	o.transcript = q
	o.errMsg = ""
	o.state = StateProcessing
	o.token++
	token := o.token

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if o.opts.RequestTimeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), o.opts.RequestTimeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	o.cancelReq = cancel
	o.commit()

	o.stopRecognizer(wasListening)

	slog.Info("Requesting guide", "query", q)
	o.opts.Go(func() {
		defer cancel()
		scenario, err := o.guide.Guide(ctx, q)
		o.resolve(token, scenario, err)
	})
	return true
}

func (o *Orchestrator) stopRecognizer(wasListening bool) {
	if wasListening && o.recognizer != nil {
		o.recognizer.Stop()
	}
}

func (o *Orchestrator) resolve(token uint64, scenario *model.EmergencyScenario, err error) {
	o.mu.Lock()
	if token != o.token || o.state != StateProcessing {
		o.mu.Unlock()
		slog.Debug("Discarding stale guide response", "token", token)
		return
	}
	o.cancelReq = nil

	if err == nil && (scenario == nil || len(scenario.Steps) == 0) {
		err = &guide.RemoteError{Message: "The AI returned an empty response."}
	}
	if err != nil {
		slog.Warn("Guide request failed", "error", err)
		o.state = StateIdle
		o.errMsg = guide.PublicMessage(err)
		o.commit()
		return
	}

	o.scenario = scenario
	o.step = 0
	o.state = StateGuidance
	if o.audioEnabled {
		o.scheduleNarrationLocked(o.opts.NarrationDelay)
	}
	o.commit()
	slog.Info("Guidance started", "title", scenario.Title, "steps", len(scenario.Steps))
}

// scheduleNarrationLocked narrates the current step after delay unless the
// scenario or step changes first.
func (o *Orchestrator) scheduleNarrationLocked(delay time.Duration) {
	if o.pending != nil {
		o.pending.Stop()
	}
	scenario, step := o.scenario, o.step
	o.pending = o.opts.AfterFunc(delay, func() {
		o.mu.Lock()
		if o.scenario != scenario || o.step != step || o.state != StateGuidance || !o.audioEnabled {
			o.mu.Unlock()
			return
		}
		text := scenario.Steps[step].Instruction
		o.mu.Unlock()

		if o.narrator != nil {
			o.narrator.Play(text)
		}
	})
}

func (o *Orchestrator) cancelPendingLocked() {
	if o.pending != nil {
		o.pending.Stop()
		o.pending = nil
	}
}

func (o *Orchestrator) stopNarration() {
	if o.narrator != nil {
		o.narrator.Stop()
	}
}

// Next advances one step; past the last step it starts over.
func (o *Orchestrator) Next() {
	o.stopNarration()

	o.mu.Lock()
	if o.state != StateGuidance || o.scenario == nil {
		o.mu.Unlock()
		return
	}
	if o.step >= o.scenario.LastIndex() {
		o.mu.Unlock()
		o.StartOver()
		return
	}
	o.step++
	if o.audioEnabled {
		o.scheduleNarrationLocked(o.opts.NavigationDelay)
	}
	o.commit()
}

// Previous goes back one step; it stays on step 0.
func (o *Orchestrator) Previous() {
	o.stopNarration()

	o.mu.Lock()
	if o.state != StateGuidance || o.scenario == nil || o.step == 0 {
		o.mu.Unlock()
		return
	}
	o.step--
	if o.audioEnabled {
		o.scheduleNarrationLocked(o.opts.NavigationDelay)
	}
	o.commit()
}

// StartOver returns to idle from any state, dropping the scenario, the
// transcript, the error and any in-flight request.
func (o *Orchestrator) StartOver() {
	o.stopNarration()

	o.mu.Lock()
	wasListening := o.state == StateListening
	o.cancelPendingLocked()
	if o.cancelReq != nil {
		o.cancelReq()
		o.cancelReq = nil
	}
	o.token++
	o.state = StateIdle
	o.scenario = nil
	o.step = 0
	o.transcript = ""
	o.errMsg = ""
	o.commit()

	o.stopRecognizer(wasListening)
}

// ToggleAudio flips narration on or off.
func (o *Orchestrator) ToggleAudio() {
	o.mu.Lock()
	enabled := !o.audioEnabled
	o.mu.Unlock()
	o.SetAudioEnabled(enabled)
}

// SetAudioEnabled switches narration. Disabling stops the current utterance.
func (o *Orchestrator) SetAudioEnabled(enabled bool) {
	if !enabled {
		o.stopNarration()
	}
	o.mu.Lock()
	o.audioEnabled = enabled
	if !enabled {
		o.cancelPendingLocked()
	}
	o.commit()
}

// Replay narrates the current step now.
func (o *Orchestrator) Replay() {
	o.mu.Lock()
	if o.state != StateGuidance || o.scenario == nil {
		o.mu.Unlock()
		return
	}
	text := o.scenario.Steps[o.step].Instruction
	o.cancelPendingLocked()
	o.mu.Unlock()

	if o.narrator != nil {
		o.narrator.Play(text)
	}
}

// StopAudio silences narration.
func (o *Orchestrator) StopAudio() {
	o.stopNarration()

	o.mu.Lock()
	o.cancelPendingLocked()
	o.commit()
}

// PauseAudio holds the current utterance when the narrator supports it.
func (o *Orchestrator) PauseAudio() bool {
	p, ok := o.narrator.(interface{ Pause() bool })
	return ok && p.Pause()
}

// ResumeAudio continues a paused utterance.
func (o *Orchestrator) ResumeAudio() bool {
	p, ok := o.narrator.(interface{ Resume() bool })
	return ok && p.Resume()
}

// DismissError clears the error message.
func (o *Orchestrator) DismissError() {
	o.mu.Lock()
	if o.errMsg == "" {
		o.mu.Unlock()
		return
	}
	o.errMsg = ""
	o.commit()
}

// Notify publishes the current View, e.g. after the narrator changed state.
func (o *Orchestrator) Notify() {
	o.mu.Lock()
	o.commit()
}
