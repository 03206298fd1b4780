package llm

import (
	"errors"
	"fmt"
)

// UpstreamError reports a failed exchange with the LLM API: a non-2xx
// status, a transport failure, a timeout (StatusCode 0), a missing
// credential (StatusCode 401, no request sent) or an undecodable envelope.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("%s: upstream status %d: %v", e.Provider, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: upstream status %d", e.Provider, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: upstream request failed: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s: upstream request failed", e.Provider)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// ErrMissingKey is wrapped by the UpstreamError returned when no credential is configured.
var ErrMissingKey = errors.New("api key is missing")

// EmptyResponseError is returned when the API answered 2xx without usable content.
type EmptyResponseError struct {
	Provider string
}

func (e *EmptyResponseError) Error() string {
	return fmt.Sprintf("%s: no content in response", e.Provider)
}

// MalformedResponseError is returned when the model text is not the
// expected JSON document.
type MalformedResponseError struct {
	Raw string
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed model response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// ProfileError is returned when a call names a profile with no model.
type ProfileError struct {
	Profile string
}

func (e *ProfileError) Error() string {
	return fmt.Sprintf("profile %q not configured", e.Profile)
}
