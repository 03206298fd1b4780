package guide

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"helpnow/pkg/llm"
)

func TestPublicMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"Nil", nil, ""},
		{"Validation", &ValidationError{Message: ErrQueryRequired}, "Query is required"},
		{"Status", &llm.UpstreamError{Provider: "cerebras", StatusCode: 503}, "Cerebras API request failed with status 503"},
		{"MissingKey", &llm.UpstreamError{Provider: "groq", StatusCode: 401, Err: llm.ErrMissingKey}, "Groq API request failed with status 401"},
		{"Timeout", &llm.UpstreamError{Provider: "cerebras", Err: context.DeadlineExceeded}, "Cerebras API request timed out"},
		{"Transport", &llm.UpstreamError{Provider: "openai", Err: errors.New("connection reset")}, "OpenAI API request failed"},
		{"Empty", &llm.EmptyResponseError{Provider: "cerebras"}, "The AI returned an empty response."},
		{"Malformed", fmt.Errorf("wrapped: %w", &llm.MalformedResponseError{Raw: "x"}), "The AI returned an invalid response format."},
		{"Remote", &RemoteError{StatusCode: 500, Message: "boom"}, "boom"},
		{"RemoteNoMessage", &RemoteError{StatusCode: 502}, DefaultFailureMessage},
		{"ClientTimeout", fmt.Errorf("guide request failed: %w", context.DeadlineExceeded), "The request timed out. Please try again."},
		{"Other", errors.New("secret internals"), DefaultFailureMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PublicMessage(tt.err); got != tt.want {
				t.Errorf("PublicMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}
