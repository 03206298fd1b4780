package model

import (
	"encoding/json"
	"testing"
)

func TestStepKind(t *testing.T) {
	tests := []struct {
		kind  StepKind
		valid bool
	}{
		{StepAction, true},
		{StepWarning, true},
		{StepInfo, true},
		{"danger", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := tt.kind.Valid(); got != tt.valid {
			t.Errorf("StepKind(%q).Valid() = %v, want %v", tt.kind, got, tt.valid)
		}
	}
	if StepWarning.Icon() == StepAction.Icon() {
		t.Error("warning and action should render differently")
	}
}

func TestScenario_Step(t *testing.T) {
	s := &EmergencyScenario{
		Title: "Nosebleed",
		Steps: []EmergencyStep{
			{Instruction: "Sit upright", Kind: StepAction},
			{Instruction: "Do not tilt head back", Kind: StepWarning},
		},
	}

	if s.Step(0).Instruction != "Sit upright" {
		t.Error("wrong first step")
	}
	if s.Step(2) != nil || s.Step(-1) != nil {
		t.Error("out of range should be nil")
	}
	if s.LastIndex() != 1 {
		t.Errorf("LastIndex = %d, want 1", s.LastIndex())
	}

	var nilScenario *EmergencyScenario
	if nilScenario.Step(0) != nil || nilScenario.LastIndex() != -1 {
		t.Error("nil scenario should be empty")
	}
}

func TestStepJSONFieldNames(t *testing.T) {
	b, err := json.Marshal(EmergencyStep{Instruction: "Call 911", Kind: StepAction})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"instruction":"Call 911","type":"action"}` {
		t.Errorf("unexpected json %s", b)
	}
}
