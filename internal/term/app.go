package term

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"

	"helpnow/pkg/logging"
	"helpnow/pkg/model"
	"helpnow/pkg/orchestrator"
	"helpnow/pkg/preferences"
	"helpnow/pkg/visual"
)

// Resolver finds a loadable illustration in a fallback chain.
type Resolver interface {
	Resolve(ctx context.Context, chain *visual.FallbackChain) (string, bool)
}

// App connects terminal input and output to the orchestrator.
type App struct {
	orch   *orchestrator.Orchestrator
	prefs  *preferences.Manager
	rec    *LineRecognizer
	r      *Renderer
	images Resolver

	ctx context.Context

	mu       sync.Mutex
	scenario *model.EmergencyScenario
	visuals  map[int]VisualStatus
}

// NewApp creates an App. images may be nil, in which case primary URLs are
// shown without being fetched.
func NewApp(o *orchestrator.Orchestrator, prefs *preferences.Manager, rec *LineRecognizer, r *Renderer, images Resolver) *App {
	return &App{
		orch:    o,
		prefs:   prefs,
		rec:     rec,
		r:       r,
		images:  images,
		ctx:     context.Background(),
		visuals: make(map[int]VisualStatus),
	}
}

// Run shows the disclaimer if needed, then reads commands from in until EOF,
// quit or ctx is done.
func (a *App) Run(ctx context.Context, in io.Reader) error {
	a.ctx = ctx
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
		close(lines)
	}()

	next := func() (string, bool) {
		select {
		case <-ctx.Done():
			return "", false
		case l, ok := <-lines:
			return l, ok
		}
	}

	if !a.prefs.Get().DisclaimerAccepted {
		a.r.Screen(a.r.Disclaimer())
		if _, ok := next(); !ok {
			return a.exitErr(ctx, readErr)
		}
		if err := a.prefs.AcceptDisclaimer(ctx); err != nil {
			slog.Warn("Failed to store disclaimer acknowledgement", "error", err)
		}
	}

	a.orch.Subscribe(a.onView)
	a.prefs.Subscribe(func(p preferences.Prefs) {
		a.r.SetTheme(a.prefs.ResolvedTheme())
		a.redraw()
	})
	a.redraw()

	for {
		line, ok := next()
		if !ok {
			return a.exitErr(ctx, readErr)
		}
		if quit := a.Handle(line); quit {
			return nil
		}
	}
}

func (a *App) exitErr(ctx context.Context, readErr <-chan error) error {
	if ctx.Err() != nil {
		return nil
	}
	select {
	case err := <-readErr:
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
	default:
	}
	return nil
}

// Handle executes one input line and reports whether the user asked to quit.
func (a *App) Handle(line string) (quit bool) {
	if a.rec.Listening() {
		a.rec.Feed(line)
		return false
	}

	cmd := strings.ToLower(strings.TrimSpace(line))
	fields := strings.Fields(cmd)

	switch {
	case cmd == "quit" || cmd == "exit":
		return true
	case cmd == "about":
		a.r.Print(a.r.About())
		return false
	case cmd == "help" || cmd == "?":
		a.r.Print(a.r.Controls(a.orch.Snapshot().State))
		return false
	case cmd == "dismiss":
		a.orch.DismissError()
		return false
	case cmd == "audio":
		a.toggleAudio()
		return false
	case len(fields) == 2 && fields[0] == "theme":
		a.setTheme(fields[1])
		return false
	}

	switch a.orch.Snapshot().State {
	case orchestrator.StateIdle:
		switch cmd {
		case "":
			a.orch.Start()
		case "d":
			a.orch.DismissError()
		default:
			a.orch.SubmitTranscript(line)
		}
	case orchestrator.StateProcessing:
		if cmd == "h" || cmd == "home" {
			a.orch.StartOver()
		}
	case orchestrator.StateGuidance:
		switch cmd {
		case "", "n", "next":
			a.orch.Next()
		case "p", "prev", "previous", "back":
			a.orch.Previous()
		case "r", "replay":
			a.orch.Replay()
		case "s", "stop":
			a.orch.StopAudio()
		case "pause":
			a.orch.PauseAudio()
		case "resume":
			a.orch.ResumeAudio()
		case "a":
			a.toggleAudio()
		case "d":
			a.orch.DismissError()
		case "h", "home":
			a.orch.StartOver()
		}
	}
	return false
}

func (a *App) toggleAudio() {
	a.orch.ToggleAudio()
	if err := a.prefs.SetAudioEnabled(a.ctx, a.orch.Snapshot().AudioEnabled); err != nil {
		slog.Warn("Failed to store audio preference", "error", err)
	}
}

func (a *App) setTheme(name string) {
	t, err := preferences.ParseTheme(name)
	if err != nil {
		a.r.Print(a.r.ErrorBanner(err.Error()))
		return
	}
	if err := a.prefs.SetTheme(a.ctx, t); err != nil {
		slog.Warn("Failed to store theme", "error", err)
	}
}

// Visual returns the illustration state of step i of the current scenario.
func (a *App) Visual(i int) VisualStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.visuals[i]
}

func (a *App) onView(v orchestrator.View) {
	if step := v.Step(); step != nil {
		a.ensureVisual(v.Scenario, v.CurrentStep, step)
	} else if v.Scenario == nil {
		a.mu.Lock()
		a.scenario = nil
		a.visuals = make(map[int]VisualStatus)
		a.mu.Unlock()
	}
	a.draw(v)
}

// ensureVisual starts resolving the illustration of step i once per scenario.
func (a *App) ensureVisual(s *model.EmergencyScenario, i int, step *model.EmergencyStep) {
	a.mu.Lock()
	if a.scenario != s {
		a.scenario = s
		a.visuals = make(map[int]VisualStatus)
	}
	if _, seen := a.visuals[i]; seen {
		a.mu.Unlock()
		return
	}

	if a.images == nil {
		st := VisualStatus{State: visual.Unavailable}
		if step.VisualURL != "" {
			st = VisualStatus{State: visual.Loaded, URL: step.VisualURL}
		}
		a.visuals[i] = st
		a.mu.Unlock()
		return
	}
	a.visuals[i] = VisualStatus{State: visual.Loading}
	a.mu.Unlock()

	chain := visual.NewFallbackChain(step.VisualURL, step.AlternativeURLs)
	go func() {
		u, ok := a.images.Resolve(a.ctx, chain)
		st := VisualStatus{State: visual.Unavailable}
		if ok {
			st = VisualStatus{State: visual.Loaded, URL: u}
		}

		a.mu.Lock()
		if a.scenario != s {
			a.mu.Unlock()
			return
		}
		a.visuals[i] = st
		a.mu.Unlock()
		a.redraw()
	}()
}

func (a *App) redraw() {
	a.draw(a.orch.Snapshot())
}

func (a *App) draw(v orchestrator.View) {
	var b strings.Builder
	b.WriteString(a.r.Header(v, a.prefs.Get().Theme))
	if v.State == orchestrator.StateGuidance {
		b.WriteString(a.r.StepCard(v, a.Visual(v.CurrentStep)))
	} else {
		b.WriteString(a.r.Home(v))
	}
	b.WriteString("\n")
	if line := logging.GlobalLogCapture.GetLastLine(); line != "" {
		b.WriteString(a.r.paint(a.r.pal().Muted, FormatLogLine(line)) + "\n")
	}
	b.WriteString(a.r.Controls(v.State))
	a.r.Screen(b.String())
}
