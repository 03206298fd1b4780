package guide

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helpnow/pkg/llm"
	"helpnow/pkg/model"
)

func decodeMap(t *testing.T, s string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &m))
	return m
}

func TestAssemble_AddsURLs(t *testing.T) {
	payload := decodeMap(t, `{"title":"Burns","steps":[
		{"instruction":"Cool the burn under running water","type":"action"},
		{"instruction":"Do not apply ice","type":"warning"}]}`)

	out := Assemble(payload, fixedAugmenter())
	steps := out["steps"].([]any)
	require.Len(t, steps, 2)

	first := steps[0].(map[string]any)
	assert.Equal(t, "https://image.pollinations.ai/prompt/first%20aid%20Cool%20the%20burn%20under%20running%20water%20medical%20diagram%20illustration?width=400&height=300&nologo=true&seed=1000", first["visualUrl"])
	assert.Len(t, first["alternativeUrls"], 2)

	second := steps[1].(map[string]any)
	assert.Contains(t, second["visualUrl"], "seed=1001")
	assert.Equal(t, "Burns", out["title"])
}

func TestAssemble_NoSteps(t *testing.T) {
	for _, raw := range []string{`{"title":"x"}`, `{"title":"x","steps":"not a list"}`, `{"steps":{"a":1}}`} {
		payload := decodeMap(t, raw)
		before, _ := json.Marshal(payload)
		after, _ := json.Marshal(Assemble(payload, fixedAugmenter()))
		assert.JSONEq(t, string(before), string(after), raw)
	}
}

func TestAssemble_SkipsNonObjectSteps(t *testing.T) {
	payload := decodeMap(t, `{"title":"x","steps":["loose text",{"instruction":"Breathe","type":"info"}]}`)
	steps := Assemble(payload, fixedAugmenter())["steps"].([]any)
	assert.Equal(t, "loose text", steps[0])
	assert.Contains(t, steps[1].(map[string]any)["visualUrl"], "seed=1001")
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
		check   func(t *testing.T, s *model.EmergencyScenario)
	}{
		{
			name:    "Valid",
			payload: `{"title":"Choking","steps":[{"instruction":"Give 5 back blows","type":"action","visualUrl":"https://x","alternativeUrls":["a","b"]}]}`,
			check: func(t *testing.T, s *model.EmergencyScenario) {
				assert.Equal(t, "Choking", s.Title)
				assert.Equal(t, model.StepAction, s.Steps[0].Kind)
				assert.Equal(t, []string{"a", "b"}, s.Steps[0].AlternativeURLs)
			},
		},
		{
			name:    "StripsMarkup",
			payload: `{"title":"<b>Burns</b>","steps":[{"instruction":"Cool with <em>running</em> water &amp; wait","type":"info"}]}`,
			check: func(t *testing.T, s *model.EmergencyScenario) {
				assert.Equal(t, "Burns", s.Title)
				assert.Equal(t, "Cool with running water & wait", s.Steps[0].Instruction)
			},
		},
		{name: "MissingTitle", payload: `{"steps":[{"instruction":"a","type":"info"}]}`, wantErr: true},
		{name: "BlankTitle", payload: `{"title":"  ","steps":[{"instruction":"a","type":"info"}]}`, wantErr: true},
		{name: "NoSteps", payload: `{"title":"t","steps":[]}`, wantErr: true},
		{name: "StepsNotArray", payload: `{"title":"t","steps":"x"}`, wantErr: true},
		{name: "BadKind", payload: `{"title":"t","steps":[{"instruction":"a","type":"danger"}]}`, wantErr: true},
		{name: "EmptyInstruction", payload: `{"title":"t","steps":[{"instruction":"","type":"info"}]}`, wantErr: true},
		{name: "MarkupOnlyInstruction", payload: `{"title":"t","steps":[{"instruction":"<br/>","type":"info"}]}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Decode(decodeMap(t, tt.payload))
			if tt.wantErr {
				var me *llm.MalformedResponseError
				require.True(t, errors.As(err, &me), "got %v", err)
				return
			}
			require.NoError(t, err)
			tt.check(t, s)
		})
	}
}

func TestPlainText(t *testing.T) {
	tests := map[string]string{
		"plain":                   "plain",
		"  padded  ":              "padded",
		"a <b>bold</b> move":      "a bold move",
		"line<br>break":           "line break",
		"Wait &lt; 5 minutes":     "Wait < 5 minutes",
		"<p>One</p><p>Two</p>":    "One Two",
		"Keep < 2 inches of gap": "Keep < 2 inches of gap",
	}
	for in, want := range tests {
		if got := PlainText(in); got != want {
			t.Errorf("PlainText(%q) = %q, want %q", in, got, want)
		}
	}
}
