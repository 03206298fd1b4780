package edgetts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"helpnow/pkg/tracker"
	"helpnow/pkg/tts"
)

// Settings holds the connection parameters of the Edge read-aloud service.
type Settings struct {
	BaseURL            string
	Origin             string
	UserAgent          string
	TrustedClientToken string
	GECVersion         string
}

// SettingsFromEnv reads Settings from the EDGE_TTS_* environment variables.
func SettingsFromEnv() Settings {
	return Settings{
		BaseURL:            os.Getenv("EDGE_TTS_BASE_URL"),
		Origin:             os.Getenv("EDGE_TTS_ORIGIN"),
		UserAgent:          os.Getenv("EDGE_TTS_USER_AGENT"),
		TrustedClientToken: os.Getenv("EDGE_TTS_TRUSTED_CLIENT_TOKEN"),
		GECVersion:         os.Getenv("EDGE_TTS_SEC_MS_GEC_VERSION"),
	}
}

// Validate reports the first missing setting.
func (s Settings) Validate() error {
	switch {
	case s.BaseURL == "":
		return errors.New("EDGE_TTS_BASE_URL environment variable is required")
	case s.Origin == "":
		return errors.New("EDGE_TTS_ORIGIN environment variable is required")
	case s.UserAgent == "":
		return errors.New("EDGE_TTS_USER_AGENT environment variable is required")
	case s.TrustedClientToken == "":
		return errors.New("EDGE_TTS_TRUSTED_CLIENT_TOKEN environment variable is required")
	case s.GECVersion == "":
		return errors.New("EDGE_TTS_SEC_MS_GEC_VERSION environment variable is required")
	}
	return nil
}

// Provider implements tts.Provider for Microsoft Edge TTS.
type Provider struct {
	settings Settings
	tracker  *tracker.Tracker
	now      func() time.Time
}

// NewProvider creates a new Edge TTS provider.
func NewProvider(s Settings, t *tracker.Tracker) *Provider {
	return &Provider{settings: s, tracker: t, now: time.Now}
}

// Synthesize generates an .mp3 file using Edge TTS.
func (p *Provider) Synthesize(ctx context.Context, text, voice string, prosody tts.Prosody, outputPath string) (format string, err error) {
	started := p.now()
	var written int64
	defer func() {
		tts.Log(tts.Entry{
			Provider: "EDGETTS",
			Voice:    voice,
			Text:     text,
			Prosody:  prosody,
			Bytes:    written,
			Elapsed:  p.now().Sub(started),
			Err:      err,
		})
	}()

	if voice == "" {
		return "", fmt.Errorf("voice ID is required")
	}
	if err := p.settings.Validate(); err != nil {
		return "", err
	}

	fullPath := outputPath
	if !strings.HasSuffix(strings.ToLower(fullPath), ".mp3") {
		fullPath += ".mp3"
	}
	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	conn, err := p.dial(ctx)
	if err != nil {
		p.track(false)
		return "", err
	}
	defer conn.Close()

	if err := p.sendConfig(conn); err != nil {
		return "", err
	}

	requestID := strings.ReplaceAll(uuid.New().String(), "-", "")
	if err := p.sendSSML(conn, voice, text, prosody, requestID); err != nil {
		return "", err
	}

	if err := p.consumeResponses(ctx, conn, file); err != nil {
		p.track(false)
		return "", err
	}
	if info, statErr := file.Stat(); statErr == nil {
		written = info.Size()
	}

	p.track(true)
	return "mp3", nil
}

func (p *Provider) track(ok bool) {
	if p.tracker == nil {
		return
	}
	if ok {
		p.tracker.TrackAPISuccess("edge-tts")
	} else {
		p.tracker.TrackAPIFailure("edge-tts")
	}
}

func (p *Provider) dial(ctx context.Context) (*websocket.Conn, error) {
	s := p.settings

	header := http.Header{}
	header.Set("Origin", s.Origin)
	header.Set("Pragma", "no-cache")
	header.Set("Cache-Control", "no-cache")
	header.Set("User-Agent", s.UserAgent)
	header.Set("Accept-Language", "en-US,en;q=0.9")

	muid := strings.ReplaceAll(uuid.New().String(), "-", "")
	header.Set("Cookie", fmt.Sprintf("muid=%s", muid))

	token := p.generateSecMSGec(s.TrustedClientToken)
	url := fmt.Sprintf("%s?TrustedClientToken=%s&Sec-MS-GEC=%s&Sec-MS-GEC-Version=%s",
		s.BaseURL, s.TrustedClientToken, token, s.GECVersion)

	var dialErr error
	for i := 0; i < 3; i++ {
		conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
		if err == nil {
			return conn, nil
		}
		dialErr = err
		if resp != nil {
			slog.Warn("EdgeTTS: handshake failure", "status", resp.Status, "status_code", resp.StatusCode)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
	return nil, fmt.Errorf("websocket dial failed after retries: %w", dialErr)
}

// generateSecMSGec derives the Sec-MS-GEC token: Windows file-time ticks
// rounded down to five minutes, concatenated with the client token, SHA-256.
func (p *Provider) generateSecMSGec(trustedClientToken string) string {
	ticks := p.now().Unix() + 11644473600
	ticks -= ticks % 300

	strToHash := fmt.Sprintf("%d0000000%s", ticks, trustedClientToken)

	hash := sha256.Sum256([]byte(strToHash))
	return strings.ToUpper(hex.EncodeToString(hash[:]))
}

func (p *Provider) sendConfig(conn *websocket.Conn) error {
	configMsg := "Content-Type:application/json; charset=utf-8\r\nPath:speech.config\r\n\r\n{\"context\":{\"synthesis\":{\"audio\":{\"metadataoptions\":{\"sentenceBoundaryEnabled\":\"false\",\"wordBoundaryEnabled\":\"false\"},\"outputFormat\":\"audio-24khz-48kbitrate-mono-mp3\"}}}}"
	if err := conn.WriteMessage(websocket.TextMessage, []byte(configMsg)); err != nil {
		return fmt.Errorf("failed to send speech.config: %w", err)
	}
	return nil
}

func (p *Provider) sendSSML(conn *websocket.Conn, voice, text string, prosody tts.Prosody, requestID string) error {
	ssml := buildSSML(voice, text, prosody)

	ssmlMsg := fmt.Sprintf("X-RequestId:%s\r\nContent-Type:application/ssml+xml\r\nPath:ssml\r\n\r\n%s", requestID, ssml)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(ssmlMsg)); err != nil {
		return fmt.Errorf("failed to send ssml: %w", err)
	}
	return nil
}

func buildSSML(voice, text string, prosody tts.Prosody) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"\"", "&quot;",
		"'", "&apos;",
	)
	escapedText := replacer.Replace(text)
	return fmt.Sprintf("<speak version='1.0' xmlns='http://www.w3.org/2001/10/synthesis' xml:lang='en-US'><voice name='%s'><prosody rate='%s' pitch='%s'>%s</prosody></voice></speak>",
		voice, prosody.RatePercent(), prosody.PitchPercent(), escapedText)
}

func (p *Provider) consumeResponses(ctx context.Context, conn *websocket.Conn, file *os.File) error {
	// Unblock ReadMessage when the caller gives up.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read message failed: %w", err)
		}

		switch msgType {
		case websocket.TextMessage:
			if strings.Contains(string(data), "Path:turn.end") {
				return nil
			}
		case websocket.BinaryMessage:
			if err := p.handleBinaryMessage(data, file); err != nil {
				return err
			}
		}
	}
}

func (p *Provider) handleBinaryMessage(data []byte, file *os.File) error {
	if len(data) < 2 {
		return nil
	}
	headerLength := int(uint16(data[0])<<8 | uint16(data[1]))
	if len(data) < 2+headerLength {
		return nil
	}
	audioData := data[2+headerLength:]
	if len(audioData) > 0 {
		if _, err := file.Write(audioData); err != nil {
			return fmt.Errorf("write audio data failed: %w", err)
		}
	}
	return nil
}

// Voices returns the English neural voices suitable for narration.
func (p *Provider) Voices(ctx context.Context) ([]tts.Voice, error) {
	return []tts.Voice{
		{ID: "en-US-AvaMultilingualNeural", Name: "Ava (Multilingual, Female)", Language: "en-US", IsNeural: true},
		{ID: "en-US-JennyNeural", Name: "Jenny (US, Female)", Language: "en-US", IsNeural: true},
		{ID: "en-GB-SoniaNeural", Name: "Sonia (UK, Female)", Language: "en-GB", IsNeural: true},
		{ID: "en-US-AndrewMultilingualNeural", Name: "Andrew (Multilingual, Male)", Language: "en-US", IsNeural: true},
		{ID: "en-IN-NeerjaNeural", Name: "Neerja (India, Female)", Language: "en-IN", IsNeural: true},
	}, nil
}
