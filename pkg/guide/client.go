package guide

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"helpnow/pkg/llm"
	"helpnow/pkg/model"
	"helpnow/pkg/request"
)

// Request is the body of a guide request.
type Request struct {
	Query string `json:"query"`
}

// ErrorResponse is the error envelope of the guide endpoint.
type ErrorResponse struct {
	Error     string `json:"error"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Client calls a remote guide endpoint.
type Client struct {
	rc      *request.Client
	baseURL string
}

// NewClient creates a Client for the service at baseURL.
func NewClient(rc *request.Client, baseURL string) *Client {
	return &Client{rc: rc, baseURL: strings.TrimSuffix(baseURL, "/")}
}

// Guide posts query to the endpoint. Non-2xx answers become *RemoteError
// carrying the server's message.
func (c *Client) Guide(ctx context.Context, query string) (*model.EmergencyScenario, error) {
	body, err := json.Marshal(Request{Query: query})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal guide request: %w", err)
	}

	respBody, err := c.rc.Post(ctx, c.baseURL+"/guide", body, "application/json")
	if err != nil {
		var se *request.StatusError
		if errors.As(err, &se) {
			var env ErrorResponse
			_ = json.Unmarshal(se.Body, &env)
			return nil, &RemoteError{StatusCode: se.StatusCode, Message: env.Error}
		}
		return nil, fmt.Errorf("guide request failed: %w", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(respBody, &payload); err != nil || payload == nil {
		if err == nil {
			err = errors.New("response is not a JSON object")
		}
		return nil, &llm.MalformedResponseError{Raw: string(respBody), Err: err}
	}
	return Decode(payload)
}
