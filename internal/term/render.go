// Package term is the terminal presentation of the HelpNow client.
package term

import (
	"fmt"
	"io"
	"os"
	"sync"

	"helpnow/pkg/preferences"
)

// ANSI codes
const (
	ansiReset  = "\x1b[0m"
	ansiBold   = "\x1b[1m"
	ansiDim    = "\x1b[2m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
	ansiCyan   = "\x1b[36m"
	ansiGray   = "\x1b[90m"
	ansiWhite  = "\x1b[97m"
	ansiBlack  = "\x1b[30m"

	clearScreen = "\x1b[H\x1b[2J"
)

// Palette maps screen roles to colours for one theme.
type Palette struct {
	Text    string
	Accent  string
	Warning string
	Info    string
	Muted   string
	Error   string
}

var (
	darkPalette = Palette{
		Text:    ansiWhite,
		Accent:  ansiRed,
		Warning: ansiYellow,
		Info:    ansiCyan,
		Muted:   ansiGray,
		Error:   ansiRed,
	}
	lightPalette = Palette{
		Text:    ansiBlack,
		Accent:  ansiRed,
		Warning: ansiYellow,
		Info:    ansiBlue,
		Muted:   ansiDim,
		Error:   ansiRed,
	}
)

// PaletteFor returns the palette of a resolved theme.
func PaletteFor(t preferences.Theme) Palette {
	if t == preferences.ThemeLight {
		return lightPalette
	}
	return darkPalette
}

// Renderer writes screens to the terminal. Colours and screen clearing are
// disabled when the output is not a terminal.
type Renderer struct {
	mu      sync.Mutex
	out     io.Writer
	noColor bool
	palette Palette
}

// NewRenderer creates a renderer for out using the resolved theme.
func NewRenderer(out io.Writer, theme preferences.Theme) *Renderer {
	return NewRendererWithOptions(out, theme, !isTerminal(out))
}

// NewRendererWithOptions creates a renderer with explicit colour control.
func NewRendererWithOptions(out io.Writer, theme preferences.Theme, noColor bool) *Renderer {
	return &Renderer{out: out, noColor: noColor, palette: PaletteFor(theme)}
}

func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		stat, err := f.Stat()
		if err != nil {
			return false
		}
		return (stat.Mode() & os.ModeCharDevice) != 0
	}
	return false
}

// SetTheme switches the palette.
func (r *Renderer) SetTheme(t preferences.Theme) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.palette = PaletteFor(t)
}

// Screen replaces the terminal contents with s.
func (r *Renderer) Screen(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.noColor {
		fmt.Fprint(r.out, clearScreen)
	}
	fmt.Fprint(r.out, s)
}

// Print appends s below the current screen.
func (r *Renderer) Print(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprint(r.out, s)
}

// paint wraps s in the colour code c.
func (r *Renderer) paint(c, s string) string {
	r.mu.Lock()
	noColor := r.noColor
	r.mu.Unlock()
	if noColor || c == "" {
		return s
	}
	return c + s + ansiReset
}

func (r *Renderer) pal() Palette {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.palette
}

func (r *Renderer) bold(s string) string {
	return r.paint(ansiBold, s)
}

func (r *Renderer) ok(s string) string {
	return r.paint(ansiGreen, s)
}
