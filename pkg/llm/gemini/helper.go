package gemini

import "helpnow/pkg/llm"

// resolveModel returns the model for the given intent. The "guide" intent
// falls back to the default model when no profile names one.
func (c *Client) resolveModel(intent string) (string, error) {
	if model := c.profiles[intent]; model != "" {
		return model, nil
	}
	if intent == "guide" {
		return defaultModel, nil
	}
	return "", &llm.ProfileError{Profile: intent}
}
