package session

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Step is a position in the wizard.
type Step int

const (
	StepIdentity Step = iota + 1
	StepAudience
	StepPersonality
	StepEmotion
	StepVisual
	StepReview
	StepConcepts
)

// TotalSteps is the number of wizard steps.
const TotalSteps = int(StepConcepts)

var stepNames = map[Step]string{
	StepIdentity:    "IDENTITY",
	StepAudience:    "AUDIENCE",
	StepPersonality: "PERSONALITY",
	StepEmotion:     "EMOTION",
	StepVisual:      "VISUAL",
	StepReview:      "REVIEW",
	StepConcepts:    "CONCEPTS",
}

var stepTitles = map[Step]string{
	StepIdentity:    "BRAND IDENTITY",
	StepAudience:    "AUDIENCE",
	StepPersonality: "BRAND PERSONALITY",
	StepEmotion:     "EMOTIONAL TERRITORY",
	StepVisual:      "VISUAL DIRECTION",
	StepReview:      "REVIEW PROFILE",
	StepConcepts:    "NARRATIVE CONCEPTS",
}

func (s Step) String() string {
	if n, ok := stepNames[s]; ok {
		return n
	}
	return "UNKNOWN"
}

// Title is the heading shown for the step.
func (s Step) Title() string {
	return stepTitles[s]
}

// Valid reports whether s is a known step.
func (s Step) Valid() bool {
	return s >= StepIdentity && s <= StepConcepts
}

// Editable reports whether s is a data-entry step that review can jump back to.
func (s Step) Editable() bool {
	return s >= StepIdentity && s <= StepVisual
}

// ParseStep accepts a step name in any case.
func ParseStep(name string) (Step, error) {
	for s, n := range stepNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return s, nil
		}
	}
	return 0, eris.Errorf("session: unknown step %q", name)
}

func (s Step) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, eris.Errorf("session: invalid step %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Step) UnmarshalText(b []byte) error {
	v, err := ParseStep(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
