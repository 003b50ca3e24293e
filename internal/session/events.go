package session

import "github.com/rotisserie/eris"

// EventType names a wizard transition.
type EventType string

const (
	EventNext    EventType = "next"
	EventBack    EventType = "back"
	EventEdit    EventType = "edit"
	EventConfirm EventType = "confirm"
	// Raised by the pipeline, not by users.
	EventReview   EventType = "review"
	EventGenerate EventType = "generate"
)

// Public reports whether clients may send the event directly.
func (t EventType) Public() bool {
	switch t {
	case EventNext, EventBack, EventEdit, EventConfirm:
		return true
	}
	return false
}

// Event is a requested transition. Target is only read by edit.
type Event struct {
	Type   EventType `json:"type"`
	Target Step      `json:"target,omitempty"`
}

type transition struct {
	step    Step
	editing bool
}

// Can reports whether ev is allowed from the current state.
func (s *Session) Can(ev Event) error {
	_, err := s.next(ev)
	return err
}

// Apply performs ev or returns ErrInvalidTransition (or ErrNotReady when
// leaving the identity step without a name and category).
func (s *Session) Apply(ev Event) error {
	t, err := s.next(ev)
	if err != nil {
		return err
	}
	if ev.Type == EventEdit {
		s.Clear(NodeProfile)
	}
	s.Step, s.Editing = t.step, t.editing
	return nil
}

func (s *Session) next(ev Event) (transition, error) {
	cur := transition{step: s.Step, editing: s.Editing}
	invalid := func() (transition, error) {
		return cur, eris.Wrapf(ErrInvalidTransition, "%s from %s", ev.Type, s.Step)
	}

	switch ev.Type {
	case EventNext:
		if s.Editing || !s.Step.Editable() {
			return invalid()
		}
		if s.Step == StepIdentity && !s.Identity.Ready() {
			return cur, ErrNotReady
		}
		return transition{step: s.Step + 1}, nil

	case EventBack:
		if s.Step <= StepIdentity || !s.Step.Valid() {
			return invalid()
		}
		if s.Step == StepConcepts {
			return transition{step: StepReview, editing: s.Editing}, nil
		}
		return transition{step: s.Step - 1, editing: s.Editing}, nil

	case EventEdit:
		if s.Step != StepReview || !ev.Target.Editable() {
			return invalid()
		}
		return transition{step: ev.Target, editing: true}, nil

	case EventConfirm:
		if !s.Editing {
			return invalid()
		}
		return transition{step: StepReview}, nil

	case EventReview:
		if s.Step != StepIdentity {
			return invalid()
		}
		return transition{step: StepReview}, nil

	case EventGenerate:
		if s.Step != StepReview && s.Step != StepConcepts {
			return invalid()
		}
		return transition{step: StepConcepts}, nil
	}
	return invalid()
}
