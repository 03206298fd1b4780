// Package preferences holds the user's client settings, read once from the
// state store and written back through a single setter.
package preferences

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"helpnow/pkg/store"
)

// Theme is the colour scheme preference.
type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// ParseTheme validates a stored or user-supplied theme name.
func ParseTheme(s string) (Theme, error) {
	switch t := Theme(strings.ToLower(strings.TrimSpace(s))); t {
	case ThemeLight, ThemeDark, ThemeSystem:
		return t, nil
	}
	return "", fmt.Errorf("unknown theme %q: must be light, dark or system", s)
}

// State keys.
const (
	KeyTheme              = "theme"
	KeyAudioEnabled       = "audio_enabled"
	KeyDisclaimerAccepted = "disclaimer_accepted"
)

// Prefs is a snapshot of the preferences.
type Prefs struct {
	Theme              Theme
	AudioEnabled       bool
	DisclaimerAccepted bool
}

// Defaults are used for keys that were never stored.
var Defaults = Prefs{Theme: ThemeSystem, AudioEnabled: true}

// Manager owns the preferences. Observers are called after every update.
type Manager struct {
	store      store.StateStore
	systemDark func() bool

	mu        sync.RWMutex
	prefs     Prefs
	observers []func(Prefs)
}

// Load reads the preferences from st. systemDark reports the terminal's
// colour scheme for ThemeSystem; nil uses SystemPrefersDark.
func Load(ctx context.Context, st store.StateStore, systemDark func() bool) *Manager {
	if systemDark == nil {
		systemDark = SystemPrefersDark
	}
	m := &Manager{store: st, systemDark: systemDark, prefs: Defaults}

	if v, ok := st.GetState(ctx, KeyTheme); ok {
		if t, err := ParseTheme(v); err == nil {
			m.prefs.Theme = t
		}
	}
	m.prefs.AudioEnabled = getBool(ctx, st, KeyAudioEnabled, Defaults.AudioEnabled)
	m.prefs.DisclaimerAccepted = getBool(ctx, st, KeyDisclaimerAccepted, Defaults.DisclaimerAccepted)
	return m
}

func getBool(ctx context.Context, st store.StateStore, key string, fallback bool) bool {
	v, ok := st.GetState(ctx, key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// Get returns the current preferences.
func (m *Manager) Get() Prefs {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.prefs
}

// ResolvedTheme returns ThemeLight or ThemeDark.
func (m *Manager) ResolvedTheme() Theme {
	m.mu.RLock()
	t := m.prefs.Theme
	m.mu.RUnlock()
	return Resolve(t, m.systemDark())
}

// Resolve maps a preference to the concrete theme.
func Resolve(t Theme, systemDark bool) Theme {
	if t == ThemeDark || (t == ThemeSystem && systemDark) {
		return ThemeDark
	}
	return ThemeLight
}

// Subscribe registers fn to be called with the new preferences after each
// update.
func (m *Manager) Subscribe(fn func(Prefs)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

// Update applies fn to a copy of the preferences, persists the changed keys
// and notifies observers. Nothing changes if persisting fails.
func (m *Manager) Update(ctx context.Context, fn func(*Prefs)) error {
	m.mu.Lock()
	next := m.prefs
	fn(&next)
	if _, err := ParseTheme(string(next.Theme)); err != nil {
		m.mu.Unlock()
		return err
	}

	if err := m.persist(ctx, m.prefs, next); err != nil {
		m.mu.Unlock()
		return err
	}
	changed := next != m.prefs
	m.prefs = next
	observers := append([]func(Prefs){}, m.observers...)
	m.mu.Unlock()

	if changed {
		for _, o := range observers {
			o(next)
		}
	}
	return nil
}

func (m *Manager) persist(ctx context.Context, prev, next Prefs) error {
	if prev.Theme != next.Theme {
		if err := m.store.SetState(ctx, KeyTheme, string(next.Theme)); err != nil {
			return fmt.Errorf("failed to save theme: %w", err)
		}
	}
	if prev.AudioEnabled != next.AudioEnabled {
		if err := m.store.SetState(ctx, KeyAudioEnabled, strconv.FormatBool(next.AudioEnabled)); err != nil {
			return fmt.Errorf("failed to save audio preference: %w", err)
		}
	}
	if prev.DisclaimerAccepted != next.DisclaimerAccepted {
		if err := m.store.SetState(ctx, KeyDisclaimerAccepted, strconv.FormatBool(next.DisclaimerAccepted)); err != nil {
			return fmt.Errorf("failed to save disclaimer acknowledgement: %w", err)
		}
	}
	return nil
}

// SetTheme stores a new theme.
func (m *Manager) SetTheme(ctx context.Context, t Theme) error {
	return m.Update(ctx, func(p *Prefs) { p.Theme = t })
}

// SetAudioEnabled stores the narration toggle.
func (m *Manager) SetAudioEnabled(ctx context.Context, enabled bool) error {
	return m.Update(ctx, func(p *Prefs) { p.AudioEnabled = enabled })
}

// AcceptDisclaimer records that the disclaimer was acknowledged.
func (m *Manager) AcceptDisclaimer(ctx context.Context) error {
	return m.Update(ctx, func(p *Prefs) { p.DisclaimerAccepted = true })
}

// SystemPrefersDark guesses the terminal background from COLORFGBG
// ("fg;bg"), where background colours 0-6 and 8 are dark.
func SystemPrefersDark() bool {
	v := os.Getenv("COLORFGBG")
	if v == "" {
		return false
	}
	parts := strings.Split(v, ";")
	bg, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return false
	}
	return (bg >= 0 && bg <= 6) || bg == 8
}
