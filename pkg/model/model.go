package model

// StepKind classifies an instruction for presentation.
type StepKind string

const (
	StepAction  StepKind = "action"
	StepWarning StepKind = "warning"
	StepInfo    StepKind = "info"
)

// StepKinds lists the valid kinds in contract order.
var StepKinds = []StepKind{StepAction, StepWarning, StepInfo}

// Valid reports whether k is one of the known kinds.
func (k StepKind) Valid() bool {
	switch k {
	case StepAction, StepWarning, StepInfo:
		return true
	}
	return false
}

// Icon returns the short glyph shown next to a step of this kind.
func (k StepKind) Icon() string {
	switch k {
	case StepWarning:
		return "⚠"
	case StepInfo:
		return "ℹ"
	default:
		return "✚"
	}
}

// EmergencyStep is a single instruction of a guide. Its position in the
// scenario is its identity.
type EmergencyStep struct {
	Instruction     string   `json:"instruction"`
	Kind            StepKind `json:"type"`
	VisualURL       string   `json:"visualUrl,omitempty"`
	AlternativeURLs []string `json:"alternativeUrls,omitempty"`
}

// EmergencyScenario is a titled, ordered list of steps. Steps are narrated
// and displayed in slice order.
type EmergencyScenario struct {
	Title string          `json:"title"`
	Steps []EmergencyStep `json:"steps"`
}

// Step returns the step at i, or nil when i is out of range.
func (s *EmergencyScenario) Step(i int) *EmergencyStep {
	if s == nil || i < 0 || i >= len(s.Steps) {
		return nil
	}
	return &s.Steps[i]
}

// LastIndex returns the index of the final step, or -1 when there are none.
func (s *EmergencyScenario) LastIndex() int {
	if s == nil {
		return -1
	}
	return len(s.Steps) - 1
}
