package term

import (
	"errors"
	"sync"
)

// ErrRecognizerBusy is returned when Start is called while listening.
var ErrRecognizerBusy = errors.New("speech recognition already running")

// LineRecognizer stands in for a speech recognizer: while listening, the next
// line typed by the user is the transcript.
type LineRecognizer struct {
	mu       sync.Mutex
	onResult func(string)
	onError  func(string)
}

// NewLineRecognizer creates an idle recognizer.
func NewLineRecognizer() *LineRecognizer {
	return &LineRecognizer{}
}

// Start begins listening.
func (r *LineRecognizer) Start(onResult func(transcript string), onError func(message string)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.onResult != nil {
		return ErrRecognizerBusy
	}
	r.onResult, r.onError = onResult, onError
	return nil
}

// Stop ends listening without delivering a result.
func (r *LineRecognizer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onResult, r.onError = nil, nil
}

// Listening reports whether a transcript is awaited.
func (r *LineRecognizer) Listening() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.onResult != nil
}

// Feed delivers line as the transcript. It reports false when not listening.
func (r *LineRecognizer) Feed(line string) bool {
	r.mu.Lock()
	cb := r.onResult
	r.onResult, r.onError = nil, nil
	r.mu.Unlock()

	if cb == nil {
		return false
	}
	cb(line)
	return true
}

// Fail ends listening with an error message.
func (r *LineRecognizer) Fail(message string) bool {
	r.mu.Lock()
	cb := r.onError
	r.onResult, r.onError = nil, nil
	r.mu.Unlock()

	if cb == nil {
		return false
	}
	cb(message)
	return true
}
