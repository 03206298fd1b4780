package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	LLM       LLMConfig       `yaml:"llm"`
	Request   RequestConfig   `yaml:"request"`
	Visual    VisualConfig    `yaml:"visual"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Log       LogConfig       `yaml:"log"`
	History   HistoryConfig   `yaml:"history"`
	Client    ClientConfig    `yaml:"client"`
	TTS       TTSConfig       `yaml:"tts"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address      string   `yaml:"address"`
	ReadTimeout  Duration `yaml:"read_timeout"`
	WriteTimeout Duration `yaml:"write_timeout"`
}

// LLMConfig holds settings for the Large Language Model provider.
type LLMConfig struct {
	Type       string            `yaml:"type"`     // "cerebras", "groq", "openai", "gemini"
	BaseURL    string            `yaml:"base_url"` // Overrides the vendor default
	Key        string            `yaml:"key"`      // API Key, falls back to the vendor env var
	Profiles   map[string]string `yaml:"profiles"` // Map of intent -> model
	Timeout    Duration          `yaml:"timeout"`
	PromptsDir string            `yaml:"prompts_dir"` // Optional on-disk override of the embedded templates
}

// keyEnvVars maps provider types to the environment variable holding their credential.
var keyEnvVars = map[string]string{
	"cerebras": "CEREBRAS_API_KEY",
	"groq":     "GROQ_API_KEY",
	"openai":   "OPENAI_API_KEY",
	"gemini":   "GEMINI_API_KEY",
}

// APIKey returns the configured key, or the provider's environment variable.
// It is evaluated on every call so a rotated secret is picked up without restart.
func (c LLMConfig) APIKey() string {
	if c.Key != "" {
		return c.Key
	}
	if env, ok := keyEnvVars[c.Type]; ok {
		return os.Getenv(env)
	}
	return ""
}

// KeyEnvVar returns the environment variable consulted for the provider's key.
func (c LLMConfig) KeyEnvVar() string {
	return keyEnvVars[c.Type]
}

// RequestConfig holds outbound HTTP request settings.
type RequestConfig struct {
	Retries int      `yaml:"retries"`
	Timeout Duration `yaml:"timeout"`
}

// VisualConfig holds settings for the step illustration URLs.
type VisualConfig struct {
	BaseURL        string `yaml:"base_url"`
	PlaceholderURL string `yaml:"placeholder_url"`
	Width          int    `yaml:"width"`
	Height         int    `yaml:"height"`
}

// RateLimitConfig holds per-client limits for the guide endpoint.
type RateLimitConfig struct {
	Enabled   bool     `yaml:"enabled"`
	PerSecond float64  `yaml:"per_second"`
	Burst     int      `yaml:"burst"`
	IdleTTL   Duration `yaml:"idle_ttl"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server   LogSettings `yaml:"server"`
	Requests LogSettings `yaml:"requests"`
	Client   LogSettings `yaml:"client"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// HistoryConfig holds settings for prompt/response history files.
type HistoryConfig struct {
	LLM HistorySettings `yaml:"llm"`
	TTS HistorySettings `yaml:"tts"`
}

// HistorySettings toggles a single history file.
type HistorySettings struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// ClientConfig holds settings for the terminal client.
type ClientConfig struct {
	ServerURL       string   `yaml:"server_url"`
	DBPath          string   `yaml:"db_path"`
	NarrationDelay  Duration `yaml:"narration_delay"`
	NavigationDelay Duration `yaml:"navigation_delay"`
	RequestTimeout  Duration `yaml:"request_timeout"`
	CheckImages     bool     `yaml:"check_images"`
}

// TTSConfig holds Text-To-Speech settings for narration.
type TTSConfig struct {
	Engine           string   `yaml:"engine"` // "edge-tts", "none"
	VoicePreferences []string `yaml:"voice_preferences"`
	Volume           float64  `yaml:"volume"` // 0.0 to 1.0
}

// DefaultVoicePreferences is the ordered list of preferred narration voices.
var DefaultVoicePreferences = []string{
	"en-US-AvaMultilingualNeural",
	"en-GB-SoniaNeural",
	"Google UK English Female",
	"Microsoft Zira - English (United States)",
	"Google US English",
	"Microsoft Hazel - English (Great Britain)",
	"Samantha",
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address:      "localhost:3000",
			ReadTimeout:  Duration(15 * time.Second),
			WriteTimeout: Duration(30 * time.Second),
		},
		LLM: LLMConfig{
			Type: "cerebras",
			Profiles: map[string]string{
				"guide": "qwen-3-235b-a22b-instruct-2507",
			},
			Timeout: Duration(15 * time.Second),
		},
		Request: RequestConfig{
			Retries: 0,
			Timeout: Duration(30 * time.Second),
		},
		Visual: VisualConfig{
			BaseURL:        "https://image.pollinations.ai",
			PlaceholderURL: "https://via.placeholder.com",
			Width:          400,
			Height:         300,
		},
		RateLimit: RateLimitConfig{
			Enabled:   true,
			PerSecond: 0.5,
			Burst:     5,
			IdleTTL:   Duration(10 * time.Minute),
		},
		Log: LogConfig{
			Server: LogSettings{
				Path:  "./logs/server.log",
				Level: "INFO",
			},
			Requests: LogSettings{
				Path:  "./logs/requests.log",
				Level: "INFO",
			},
			Client: LogSettings{
				Path:  "./logs/client.log",
				Level: "INFO",
			},
		},
		History: HistoryConfig{
			LLM: HistorySettings{
				Enabled: false,
				Path:    "./logs/llm.log",
			},
			TTS: HistorySettings{
				Enabled: false,
				Path:    "./logs/tts.log",
			},
		},
		Client: ClientConfig{
			ServerURL:       "http://localhost:3000",
			DBPath:          "./data/helpnow.db",
			NarrationDelay:  Duration(500 * time.Millisecond),
			NavigationDelay: Duration(300 * time.Millisecond),
			RequestTimeout:  Duration(30 * time.Second),
			CheckImages:     false,
		},
		TTS: TTSConfig{
			Engine:           "edge-tts",
			VoicePreferences: append([]string(nil), DefaultVoicePreferences...),
			Volume:           1.0,
		},
	}
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment.
// Variables that are already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// If the file exists, it merges defaults with existing values but does NOT save back to disk.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	cfg.Client.DBPath = os.ExpandEnv(cfg.Client.DBPath)
	cfg.LLM.PromptsDir = os.ExpandEnv(cfg.LLM.PromptsDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail at request time.
func (c *Config) Validate() error {
	if _, ok := keyEnvVars[c.LLM.Type]; !ok {
		return fmt.Errorf("unknown llm type %q: must be one of cerebras, groq, openai, gemini", c.LLM.Type)
	}
	if c.LLM.Profiles["guide"] == "" {
		return fmt.Errorf("llm.profiles.guide must name a model")
	}
	if c.Visual.Width <= 0 || c.Visual.Height <= 0 {
		return fmt.Errorf("visual width/height must be positive, got %dx%d", c.Visual.Width, c.Visual.Height)
	}
	if !isHTTPURL(c.Visual.BaseURL) || !isHTTPURL(c.Visual.PlaceholderURL) {
		return fmt.Errorf("visual base_url and placeholder_url must be http(s) URLs")
	}
	switch c.TTS.Engine {
	case "edge-tts", "none", "":
	default:
		return fmt.Errorf("unknown tts engine %q", c.TTS.Engine)
	}
	if c.TTS.Volume < 0 || c.TTS.Volume > 1 {
		return fmt.Errorf("tts volume must be between 0 and 1, got %g", c.TTS.Volume)
	}
	return nil
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# HelpNow Configuration
# ---------------------
# Supported Units:
#   Duration: ns, us (or µs), ms, s, m, h, d (day), w (week)
# Credentials are read from the environment when llm.key is empty
# (CEREBRAS_API_KEY, GROQ_API_KEY, OPENAI_API_KEY, GEMINI_API_KEY).

`)
	data = append(header, data...)

	reType := regexp.MustCompile(`(?m)^(\s+)type:`)
	data = reType.ReplaceAll(data, []byte("${1}# Options: cerebras, groq, openai, gemini\n${1}type:"))

	reEngine := regexp.MustCompile(`(?m)^(\s+)engine:`)
	data = reEngine.ReplaceAll(data, []byte("${1}# Options: edge-tts, none\n${1}engine:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}
