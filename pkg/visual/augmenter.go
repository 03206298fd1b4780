package visual

import (
	"fmt"
	"strings"
	"time"

	"helpnow/pkg/config"
)

// promptWords is how many leading words of an instruction go into the image prompt.
const promptWords = 8

// Clock supplies the time used to seed image URLs.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant.
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }

// Augmenter derives illustration URLs for guide steps.
type Augmenter struct {
	BaseURL        string
	PlaceholderURL string
	Width          int
	Height         int
	Clock          Clock
}

// New creates an Augmenter from configuration using the system clock.
func New(cfg config.VisualConfig) *Augmenter {
	return &Augmenter{
		BaseURL:        strings.TrimSuffix(cfg.BaseURL, "/"),
		PlaceholderURL: strings.TrimSuffix(cfg.PlaceholderURL, "/"),
		Width:          cfg.Width,
		Height:         cfg.Height,
		Clock:          systemClock{},
	}
}

// Prompt builds the image prompt for an instruction from its first words.
func (a *Augmenter) Prompt(instruction string) string {
	words := strings.Fields(instruction)
	if len(words) > promptWords {
		words = words[:promptWords]
	}
	return "first aid " + strings.Join(words, " ") + " medical diagram illustration"
}

// PrimaryURL returns the generated-image URL for the step at index i. The
// seed is the current time in milliseconds plus i, so URLs differ per call.
func (a *Augmenter) PrimaryURL(instruction string, i int) string {
	seed := a.clock().Now().UnixMilli() + int64(i)
	return fmt.Sprintf("%s/prompt/%s?width=%d&height=%d&nologo=true&seed=%d",
		a.BaseURL, EncodeURIComponent(a.Prompt(instruction)), a.Width, a.Height, seed)
}

// AlternativeURLs returns the fallbacks for step i: a generic diagram, then a
// static placeholder labelled with the 1-based step number.
func (a *Augmenter) AlternativeURLs(i int) []string {
	generic := fmt.Sprintf("%s/prompt/%s?width=%d&height=%d&nologo=true",
		a.BaseURL, EncodeURIComponent("first aid medical diagram"), a.Width, a.Height)
	placeholder := fmt.Sprintf("%s/%dx%d/f8f9fa/6c757d?text=%s",
		a.PlaceholderURL, a.Width, a.Height, EncodeURIComponent(fmt.Sprintf("First Aid Step %d", i+1)))
	return []string{generic, placeholder}
}

func (a *Augmenter) clock() Clock {
	if a.Clock == nil {
		return systemClock{}
	}
	return a.Clock
}

// EncodeURIComponent percent-encodes s the way browsers do for a single URI
// component: letters, digits and -_.!~*'() are kept, everything else is
// UTF-8 percent-encoded with upper-case hex.
func EncodeURIComponent(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}
