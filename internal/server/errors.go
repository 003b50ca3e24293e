package server

import (
	"encoding/json"
	"net/http"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/narrative-cli/internal/llm"
	"github.com/sells-group/narrative-cli/internal/model"
	"github.com/sells-group/narrative-cli/internal/pipeline"
	"github.com/sells-group/narrative-cli/internal/session"
	"github.com/sells-group/narrative-cli/internal/store"
)

// errBadRequest marks malformed or invalid request input.
var errBadRequest = eris.New("bad request")

func badRequest(format string, args ...any) error {
	return eris.Wrapf(errBadRequest, format, args...)
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error     string `json:"error"`
	Stage     string `json:"stage,omitempty"`
	Kind      string `json:"kind,omitempty"`
	Raw       string `json:"raw,omitempty"`
	Transient bool   `json:"transient,omitempty"`
}

var stageStatus = map[pipeline.Kind]int{
	pipeline.KindMissingCredential: http.StatusPreconditionFailed,
	pipeline.KindCallError:         http.StatusBadGateway,
	pipeline.KindParseFailure:      http.StatusUnprocessableEntity,
}

// statusFor maps an error to its HTTP status and response body.
func statusFor(err error) (int, errorBody) {
	if se, ok := pipeline.AsStageError(err); ok {
		return stageStatus[se.Kind], errorBody{
			Error:     se.Message,
			Stage:     string(se.Stage),
			Kind:      string(se.Kind),
			Raw:       se.Raw,
			Transient: se.Transient,
		}
	}

	body := errorBody{Error: err.Error()}
	switch {
	case eris.Is(err, store.ErrNotFound):
		return http.StatusNotFound, body
	case eris.Is(err, session.ErrInvalidTransition),
		eris.Is(err, session.ErrNotReady),
		eris.Is(err, session.ErrNoSelection),
		eris.Is(err, pipeline.ErrNoStoryboard):
		return http.StatusConflict, body
	case eris.Is(err, errBadRequest),
		eris.Is(err, session.ErrOutOfRange),
		eris.Is(err, model.ErrInvalid),
		eris.Is(err, llm.ErrUnknownProvider),
		eris.Is(err, llm.ErrUnknownModel):
		return http.StatusBadRequest, body
	}
	return http.StatusInternalServerError, errorBody{Error: "internal error"}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		zap.L().Error("server: request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("server: encode response", zap.Error(err))
	}
}
