package guide

import (
	"strings"

	"helpnow/pkg/llm/prompts"
	"helpnow/pkg/model"
)

// PromptTemplate is the template rendered for a guide request.
const PromptTemplate = "guide/emergency.tmpl"

// PromptData is the input of the guide prompt template.
type PromptData struct {
	Query string
	Kinds []string
}

// BuildPrompt renders the guide prompt for a user utterance. A query that is
// empty after trimming is rejected with a *ValidationError.
func BuildPrompt(mgr *prompts.Manager, query string) (string, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return "", &ValidationError{Field: "query", Message: ErrQueryRequired}
	}

	kinds := make([]string, len(model.StepKinds))
	for i, k := range model.StepKinds {
		kinds[i] = "'" + string(k) + "'"
	}
	kinds[len(kinds)-1] = "or " + kinds[len(kinds)-1]

	return mgr.Render(PromptTemplate, PromptData{Query: q, Kinds: kinds})
}
