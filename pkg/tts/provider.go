package tts

import (
	"context"
	"fmt"
	"math"
)

// MinAudioSize is the smallest synthesized file treated as usable audio.
const MinAudioSize = 1024

// Provider defines the interface for Text-To-Speech engines.
type Provider interface {
	// Synthesize renders text with the given voice and prosody to outputPath.
	// It returns the audio format ("mp3", "wav"); the file may carry that
	// extension appended.
	Synthesize(ctx context.Context, text, voice string, prosody Prosody, outputPath string) (string, error)

	// Voices returns the voices the provider can speak with.
	Voices(ctx context.Context) ([]Voice, error)
}

// Voice represents an available TTS voice.
type Voice struct {
	ID       string
	Name     string
	Language string
	IsNeural bool
}

// Prosody scales speaking rate and pitch. 1.0 is the engine default; zero
// values are treated as 1.0.
type Prosody struct {
	Rate  float64
	Pitch float64
}

// RatePercent renders the rate as a relative SSML value such as "-15%".
func (p Prosody) RatePercent() string {
	return relativePercent(p.Rate)
}

// PitchPercent renders the pitch as a relative SSML value such as "+10%".
func (p Prosody) PitchPercent() string {
	return relativePercent(p.Pitch)
}

func relativePercent(v float64) string {
	if v <= 0 {
		v = 1
	}
	return fmt.Sprintf("%+d%%", int(math.Round((v-1)*100)))
}
