package term

import (
	"fmt"
	"strings"

	"helpnow/pkg/model"
	"helpnow/pkg/narration"
	"helpnow/pkg/orchestrator"
	"helpnow/pkg/preferences"
	"helpnow/pkg/visual"
)

// Home screen status lines.
const (
	StatusIdle       = "Tap to start the emergency guide"
	StatusListening  = "Listening..."
	StatusProcessing = "Analyzing situation..."
)

// Step card labels.
const (
	LabelNext         = "NEXT STEP"
	LabelComplete     = "COMPLETE GUIDE"
	LabelPrevious     = "PREVIOUS"
	VisualLoading     = "Loading image..."
	VisualUnavailable = "Visual guide unavailable"
)

const (
	appName           = "HelpNow AI"
	appTagline        = "Immediate first aid guidance"
	emergencyReminder = "In an emergency, call your local emergency number first."

	progressBarWidth = 24
	screenRuleWidth  = 60
)

const (
	disclaimerTitle    = "Important Disclaimer"
	disclaimerAccept   = "I Understand"
	disclaimerContinue = "Press Enter to acknowledge."

	aboutTeam    = "Team CodeX"
	aboutPurpose = "HelpNow AI is designed to provide immediate first aid guidance in emergency situations."
)

var disclaimerParagraphs = []string{
	"This app is for informational purposes only and is not a substitute for professional medical advice.",
	"In a real emergency, always call your local emergency services (911, 999, 112, etc.) immediately.",
	"The guidance provided by this app should not replace proper first aid training or professional medical care. Always seek qualified medical assistance for serious injuries or conditions.",
	"By using this app, you acknowledge that the developers are not responsible for any actions taken based on the information provided.",
	"This app is designed to provide basic first aid guidance while you wait for professional help to arrive.",
}

var aboutMembers = []string{"Shiva Kumar S", "Ruthvik MT", "Pratham R Shetty", "Venugopala"}

// VisualStatus is the display state of the current step's illustration.
type VisualStatus struct {
	State visual.ChainState
	URL   string
}

func rule() string {
	return strings.Repeat("─", screenRuleWidth) + "\n"
}

// Disclaimer renders the first-use disclaimer.
func (r *Renderer) Disclaimer() string {
	p := r.pal()
	var b strings.Builder
	b.WriteString(r.paint(p.Warning, "⚠ "+disclaimerTitle) + "\n")
	b.WriteString(rule())
	for _, para := range disclaimerParagraphs {
		b.WriteString(wrap(para, screenRuleWidth))
		b.WriteString("\n")
	}
	b.WriteString(rule())
	fmt.Fprintf(&b, "[%s] %s\n", r.bold(disclaimerAccept), r.paint(p.Muted, disclaimerContinue))
	return b.String()
}

// About renders the about screen.
func (r *Renderer) About() string {
	p := r.pal()
	var b strings.Builder
	b.WriteString(r.bold("About "+appName) + "\n")
	b.WriteString(rule())
	b.WriteString(r.paint(p.Accent, aboutTeam) + "\n")
	b.WriteString("This project was developed by us\n")
	for _, m := range aboutMembers {
		fmt.Fprintf(&b, "  • %s\n", m)
	}
	b.WriteString("\n" + wrap(aboutPurpose, screenRuleWidth))
	b.WriteString(rule())
	return b.String()
}

// Header renders the title bar with the audio and theme indicators.
func (r *Renderer) Header(v orchestrator.View, theme preferences.Theme) string {
	p := r.pal()
	audio := "audio off"
	if v.AudioEnabled {
		audio = "audio on"
		switch v.AudioState {
		case narration.AudioPlaying:
			audio = "♪ speaking"
		case narration.AudioPaused:
			audio = "audio paused"
		}
	}
	left := r.paint(p.Accent, "✚ ") + r.bold(appName)
	right := r.paint(p.Muted, fmt.Sprintf("%s · %s theme", audio, theme))
	return left + "  " + right + "\n" + rule()
}

// Home renders the idle, listening and processing screens.
func (r *Renderer) Home(v orchestrator.View) string {
	p := r.pal()
	var b strings.Builder

	b.WriteString(r.paint(p.Muted, appTagline) + "\n\n")

	var status string
	switch v.State {
	case orchestrator.StateListening:
		status = r.paint(p.Accent, "● ") + StatusListening
	case orchestrator.StateProcessing:
		status = r.paint(p.Info, "◌ ") + StatusProcessing
	default:
		status = r.paint(p.Accent, "◉ ") + StatusIdle
	}
	b.WriteString("  " + r.bold(status) + "\n\n")

	if v.Transcript != "" {
		fmt.Fprintf(&b, "  %s\n\n", r.paint(p.Muted, fmt.Sprintf("%q", v.Transcript)))
	}
	if v.Error != "" {
		b.WriteString(r.ErrorBanner(v.Error))
	}
	b.WriteString(r.paint(p.Muted, emergencyReminder) + "\n")
	return b.String()
}

// ErrorBanner renders a dismissible error.
func (r *Renderer) ErrorBanner(msg string) string {
	p := r.pal()
	return r.paint(p.Error, "✖ "+msg) + "  " + r.paint(p.Muted, "(dismiss: d)") + "\n\n"
}

// StepCard renders the current step of the guidance screen.
func (r *Renderer) StepCard(v orchestrator.View, vis VisualStatus) string {
	step := v.Step()
	if step == nil {
		return ""
	}
	p := r.pal()
	total := len(v.Scenario.Steps)
	n := v.CurrentStep + 1

	var b strings.Builder
	b.WriteString(r.bold(v.Scenario.Title) + "\n\n")

	fmt.Fprintf(&b, "%s  %s %3d%%\n\n",
		r.bold(fmt.Sprintf("STEP %d OF %d", n, total)),
		r.paint(p.Accent, ProgressBar(n, total, progressBarWidth)),
		n*100/total,
	)

	kindColor := p.Text
	switch step.Kind {
	case model.StepWarning:
		kindColor = p.Warning
	case model.StepInfo:
		kindColor = p.Info
	}
	fmt.Fprintf(&b, "%s %s\n", r.paint(kindColor, step.Kind.Icon()), r.paint(kindColor, strings.ToUpper(string(step.Kind))))
	b.WriteString(wrap(step.Instruction, screenRuleWidth))
	b.WriteString("\n")

	switch vis.State {
	case visual.Loaded:
		fmt.Fprintf(&b, "%s %s\n", r.paint(p.Muted, "Visual guide:"), vis.URL)
	case visual.Unavailable:
		b.WriteString(r.paint(p.Muted, VisualUnavailable) + "\n")
	default:
		b.WriteString(r.paint(p.Muted, VisualLoading) + "\n")
	}
	b.WriteString("\n")

	if v.Error != "" {
		b.WriteString(r.ErrorBanner(v.Error))
	}

	next := LabelNext
	if n == total {
		next = LabelComplete
	}
	prev := "[p] " + LabelPrevious
	if n == 1 {
		prev = r.paint(p.Muted, prev)
	}
	fmt.Fprintf(&b, "%s    %s\n", prev, r.paint(p.Accent, "[n] "+next))
	return b.String()
}

// Controls renders the key help for a state.
func (r *Renderer) Controls(state orchestrator.AppState) string {
	var keys string
	switch state {
	case orchestrator.StateIdle:
		keys = "Enter: speak · type a description · audio · theme light|dark|system · about · quit"
	case orchestrator.StateListening:
		keys = "Say (type) what happened, then Enter"
	case orchestrator.StateProcessing:
		keys = "h: start over · quit"
	case orchestrator.StateGuidance:
		keys = "n/Enter: next · p: previous · r: replay · pause/resume · s: stop audio · a: audio on/off · h: start over"
	}
	return r.paint(r.pal().Muted, keys) + "\n"
}

// ProgressBar renders n of total as a bar of the given width.
func ProgressBar(n, total, width int) string {
	if total <= 0 || width <= 0 {
		return ""
	}
	n = max(0, min(n, total))
	filled := (n*width + total/2) / total
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// wrap breaks text into lines of at most width runes at spaces. Each line
// ends with a newline.
func wrap(text string, width int) string {
	var b strings.Builder
	line := 0
	for _, w := range strings.Fields(text) {
		wl := len([]rune(w))
		if line > 0 && line+1+wl > width {
			b.WriteString("\n")
			line = 0
		}
		if line > 0 {
			b.WriteString(" ")
			line++
		}
		b.WriteString(w)
		line += wl
	}
	b.WriteString("\n")
	return b.String()
}
