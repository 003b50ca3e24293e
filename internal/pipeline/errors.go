package pipeline

import (
	"errors"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/narrative-cli/internal/llm"
)

// Stage names a pipeline step that calls the gateway.
type Stage string

const (
	StageResearch   Stage = "research"
	StageAutofill   Stage = "autofill"
	StageConcepts   Stage = "concepts"
	StageStoryboard Stage = "storyboard"
)

// Kind classifies a stage failure.
type Kind string

const (
	KindMissingCredential Kind = "missing-credential"
	KindCallError         Kind = "call-error"
	KindParseFailure      Kind = "parse-failure"
)

// ErrNoStoryboard is returned when exporting before a storyboard exists.
var ErrNoStoryboard = eris.New("no storyboard generated")

// StageError is a displayable failure of one stage. Raw holds the provider
// reply when it could not be parsed.
type StageError struct {
	Stage     Stage
	Kind      Kind
	Message   string
	Raw       string
	Transient bool
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Stage, e.Kind, e.Message)
}

// AsStageError unwraps err to a *StageError.
func AsStageError(err error) (*StageError, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

func gatewayError(stage Stage, res llm.Result) *StageError {
	kind := KindCallError
	if res.Outcome == llm.OutcomeMissingCredential {
		kind = KindMissingCredential
	}
	return &StageError{Stage: stage, Kind: kind, Message: res.Message(), Transient: res.Transient}
}

func parseError(stage Stage, msg, raw string) *StageError {
	return &StageError{Stage: stage, Kind: KindParseFailure, Message: msg, Raw: raw}
}
