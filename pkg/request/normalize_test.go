package request

import "testing"

func TestNormalizeProvider(t *testing.T) {
	tests := []struct {
		host     string
		expected string
	}{
		{"api.cerebras.ai", "cerebras"},
		{"api.groq.com", "groq"},
		{"api.openai.com", "openai"},
		{"generativelanguage.googleapis.com", "gemini"},
		{"image.pollinations.ai", "pollinations"},
		{"via.placeholder.com", "placeholder"},
		{"127.0.0.1:8080", "127.0.0.1"},
		{"other.com", "other.com"},
	}

	for _, tt := range tests {
		got := normalizeProvider(tt.host)
		if got != tt.expected {
			t.Errorf("normalizeProvider(%q) = %q; want %q", tt.host, got, tt.expected)
		}
	}
}

func TestProviderFor(t *testing.T) {
	if got := ProviderFor("https://api.cerebras.ai/v1/chat/completions"); got != "cerebras" {
		t.Errorf("ProviderFor = %q, want cerebras", got)
	}
	if got := ProviderFor("://bad"); got != "unknown" {
		t.Errorf("ProviderFor(bad) = %q, want unknown", got)
	}
}
