package guide

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/net/html"

	"helpnow/pkg/llm"
	"helpnow/pkg/model"
	"helpnow/pkg/visual"
)

//go:embed scenario.schema.json
var scenarioSchemaJSON []byte

const scenarioSchemaURL = "https://helpnow.local/schemas/scenario.schema.json"

var scenarioSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(scenarioSchemaURL, bytes.NewReader(scenarioSchemaJSON)); err != nil {
		panic(fmt.Sprintf("add scenario schema: %v", err))
	}
	return compiler.MustCompile(scenarioSchemaURL)
}

// Assemble adds visualUrl and alternativeUrls to every object in the
// payload's steps sequence. A payload without a steps sequence is returned
// unmodified. The title and any other fields pass through.
func Assemble(payload map[string]any, aug *visual.Augmenter) map[string]any {
	steps, ok := payload["steps"].([]any)
	if !ok {
		return payload
	}

	for i, raw := range steps {
		step, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		instruction, _ := step["instruction"].(string)
		step["visualUrl"] = aug.PrimaryURL(instruction, i)

		alts := aug.AlternativeURLs(i)
		anyAlts := make([]any, len(alts))
		for j, u := range alts {
			anyAlts[j] = u
		}
		step["alternativeUrls"] = anyAlts
	}
	return payload
}

// Validate checks a decoded JSON document against the scenario contract.
func Validate(payload any) error {
	if err := scenarioSchema.Validate(payload); err != nil {
		return fmt.Errorf("scenario contract: %w", err)
	}
	return nil
}

// Decode validates payload and converts it into a scenario. Contract
// violations are reported as *llm.MalformedResponseError. Markup in titles
// and instructions is reduced to plain text.
func Decode(payload map[string]any) (*model.EmergencyScenario, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, &llm.MalformedResponseError{Err: err}
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &llm.MalformedResponseError{Raw: string(raw), Err: err}
	}
	if err := Validate(doc); err != nil {
		return nil, &llm.MalformedResponseError{Raw: string(raw), Err: err}
	}

	var scenario model.EmergencyScenario
	if err := json.Unmarshal(raw, &scenario); err != nil {
		return nil, &llm.MalformedResponseError{Raw: string(raw), Err: err}
	}

	scenario.Title = PlainText(scenario.Title)
	if scenario.Title == "" {
		return nil, &llm.MalformedResponseError{Raw: string(raw), Err: fmt.Errorf("title is empty once markup is removed")}
	}
	for i := range scenario.Steps {
		scenario.Steps[i].Instruction = PlainText(scenario.Steps[i].Instruction)
		if scenario.Steps[i].Instruction == "" {
			return nil, &llm.MalformedResponseError{Raw: string(raw), Err: fmt.Errorf("step %d is empty once markup is removed", i+1)}
		}
	}
	return &scenario, nil
}

// PlainText strips HTML markup and decodes entities, collapsing whitespace.
// Text without markup or entities is only trimmed.
func PlainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() != io.EOF {
				return strings.TrimSpace(s)
			}
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			b.WriteByte(' ')
		}
	}
}
