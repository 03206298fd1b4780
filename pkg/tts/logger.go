package tts

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	logPath string
	logMu   sync.Mutex
)

// Entry is one synthesis attempt as written to the TTS history log.
type Entry struct {
	Provider string
	Voice    string
	Text     string
	Prosody  Prosody
	Bytes    int64
	Elapsed  time.Duration
	Err      error
}

// SetLogPath configures the TTS history file. An empty path disables it.
func SetLogPath(path string) {
	logMu.Lock()
	defer logMu.Unlock()
	logPath = path
}

// Log appends e to the TTS history file, if one is configured.
func Log(e Entry) {
	logMu.Lock()
	defer logMu.Unlock()
	if logPath == "" {
		return
	}

	_ = os.MkdirAll(filepath.Dir(logPath), 0o755)
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()

	outcome := "OK"
	if e.Err != nil {
		outcome = fmt.Sprintf("ERROR(%v)", e.Err)
	}
	_, _ = fmt.Fprintf(f, "[%s] [%s] %s voice=%s rate=%s pitch=%s bytes=%d took=%dms\n  %q\n",
		time.Now().Format("2006-01-02 15:04:05"), e.Provider, outcome,
		e.Voice, e.Prosody.RatePercent(), e.Prosody.PitchPercent(), e.Bytes, e.Elapsed.Milliseconds(), e.Text)
}
