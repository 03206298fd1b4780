package guide

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"helpnow/pkg/llm"
)

// ErrQueryRequired is the message for an empty or whitespace query.
const ErrQueryRequired = "Query is required"

// DefaultFailureMessage is shown when a failure carries no better description.
const DefaultFailureMessage = "Failed to get a response from the AI."

// ValidationError reports unusable caller input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// RemoteError is a non-2xx answer from the guide endpoint.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return DefaultFailureMessage
	}
	return e.Message
}

// PublicMessage renders err as the user-facing error string of the guide
// endpoint. Internal details such as response bodies are left out.
func PublicMessage(err error) string {
	var (
		ve  *ValidationError
		ue  *llm.UpstreamError
		ee  *llm.EmptyResponseError
		me  *llm.MalformedResponseError
		pe  *llm.ProfileError
		rem *RemoteError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve):
		return ve.Message
	case errors.As(err, &rem):
		return rem.Error()
	case errors.As(err, &ee):
		return "The AI returned an empty response."
	case errors.As(err, &me):
		return "The AI returned an invalid response format."
	case errors.As(err, &ue):
		name := displayName(ue.Provider)
		switch {
		case errors.Is(err, llm.ErrMissingKey):
			return fmt.Sprintf("%s API request failed with status %d", name, ue.StatusCode)
		case errors.Is(err, context.DeadlineExceeded):
			return fmt.Sprintf("%s API request timed out", name)
		case ue.StatusCode != 0:
			return fmt.Sprintf("%s API request failed with status %d", name, ue.StatusCode)
		}
		return fmt.Sprintf("%s API request failed", name)
	case errors.As(err, &pe):
		return "The AI model is not configured."
	case errors.Is(err, context.DeadlineExceeded):
		return "The request timed out. Please try again."
	}
	return DefaultFailureMessage
}

func displayName(provider string) string {
	switch provider {
	case "openai":
		return "OpenAI"
	case "":
		return "LLM"
	}
	return strings.ToUpper(provider[:1]) + provider[1:]
}
