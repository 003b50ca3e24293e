// Package llm routes single-shot prompts to the configured provider and
// normalizes the outcome.
package llm

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/narrative-cli/internal/cost"
	"github.com/sells-group/narrative-cli/internal/resilience"
)

// Markers prefix the text form of a failed call.
const (
	UnavailableMarker = "__LLM_UNAVAILABLE__"
	ErrorMarker       = "__LLM_ERROR__"
)

const missingKeyMessage = "No API key configured. Add a key for the selected provider."

// Call is one prompt to send.
type Call struct {
	Stage     string
	System    string
	User      string
	MaxTokens int64
}

// Outcome classifies a gateway result.
type Outcome int

const (
	OutcomeText Outcome = iota
	OutcomeMissingCredential
	OutcomeCallError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeMissingCredential:
		return "missing_credential"
	case OutcomeCallError:
		return "call_error"
	default:
		return "text"
	}
}

// Usage is token consumption of one call.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// Result is the normalized outcome of Invoke.
type Result struct {
	Outcome Outcome
	Text    string
	Err     error
	Model   string
	Usage   Usage
	// Truncated is set when the provider cut the reply at MaxTokens.
	Truncated bool
	// Transient hints that trying again later may succeed. The gateway
	// never retries on its own.
	Transient bool
}

// OK reports whether the call produced text.
func (r Result) OK() bool { return r.Outcome == OutcomeText }

// Message is the human-readable failure reason, or "" on success.
func (r Result) Message() string {
	switch r.Outcome {
	case OutcomeMissingCredential:
		return missingKeyMessage
	case OutcomeCallError:
		if r.Err != nil {
			return r.Err.Error()
		}
		return "call failed"
	}
	return ""
}

// Marker renders the result in its text-prefixed form: the reply itself on
// success, otherwise a marker line.
func (r Result) Marker() string {
	switch r.Outcome {
	case OutcomeMissingCredential:
		return UnavailableMarker + ": " + r.Message()
	case OutcomeCallError:
		return ErrorMarker + ": " + r.Message()
	}
	return r.Text
}

// IsMarker reports whether text is a marker line rather than a reply.
func IsMarker(text string) bool {
	return strings.HasPrefix(text, UnavailableMarker) || strings.HasPrefix(text, ErrorMarker)
}

// Invoker sends prompts. Implementations must not mutate settings.
type Invoker interface {
	Invoke(ctx context.Context, settings Settings, call Call) Result
}

// Request is what a Transport sends for one call.
type Request struct {
	Model      string
	System     string
	User       string
	MaxTokens  int64
	Convention CallConvention
}

// Response is what a Transport returns.
type Response struct {
	Text  string
	Model string
	Usage Usage
	// Truncated is set when the reply stopped at the token budget.
	Truncated bool
}

// Transport talks to one provider.
type Transport interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// TransportFactory builds a transport for a provider and credential.
type TransportFactory func(ctx context.Context, provider Provider, apiKey string) (Transport, error)

// Gateway is the production Invoker.
type Gateway struct {
	factory TransportFactory
	costs   *cost.Calculator
}

// NewGateway creates a Gateway. A nil calculator uses default rates.
func NewGateway(factory TransportFactory, costs *cost.Calculator) *Gateway {
	if costs == nil {
		costs = cost.NewCalculator(cost.Rates{})
	}
	return &Gateway{factory: factory, costs: costs}
}

// Invoke sends one prompt. A missing key short-circuits before any
// transport is built.
func (g *Gateway) Invoke(ctx context.Context, settings Settings, call Call) Result {
	log := zap.L().With(
		zap.String("provider", string(settings.Provider)),
		zap.String("model", settings.Model),
		zap.String("stage", call.Stage),
	)

	if strings.TrimSpace(settings.APIKey) == "" {
		log.Debug("llm: no credential configured")
		return Result{Outcome: OutcomeMissingCredential, Model: settings.Model}
	}

	if _, ok := LookupProvider(string(settings.Provider)); !ok {
		return callError(settings.Model, eris.Errorf("Unknown provider %s", settings.Provider))
	}

	transport, err := g.factory(ctx, settings.Provider, settings.APIKey)
	if err != nil {
		log.Warn("llm: build transport failed", zap.Error(err))
		return callError(settings.Model, err)
	}

	convention := ResolveConvention(settings.Provider, settings.Model)
	resp, err := transport.Complete(ctx, Request{
		Model:      settings.Model,
		System:     call.System,
		User:       call.User,
		MaxTokens:  call.MaxTokens,
		Convention: convention,
	})
	if err != nil {
		log.Warn("llm: call failed",
			zap.Error(err),
			zap.Int("status", resilience.StatusCode(err)),
			zap.Bool("transient", resilience.IsTransient(err)),
		)
		return callError(settings.Model, err)
	}
	if resp == nil || resp.Text == "" {
		return callError(settings.Model, eris.New("empty response from provider"))
	}

	if resp.Truncated {
		log.Warn("llm: reply hit token budget", zap.Int64("max_tokens", call.MaxTokens))
	}
	g.costs.Log(string(settings.Provider), settings.Model, call.Stage, resp.Usage.InputTokens, resp.Usage.OutputTokens)
	log.Debug("llm: call complete",
		zap.Stringer("convention", convention),
		zap.Int("response_chars", len(resp.Text)),
	)

	return Result{
		Outcome:   OutcomeText,
		Text:      resp.Text,
		Model:     settings.Model,
		Usage:     resp.Usage,
		Truncated: resp.Truncated,
	}
}

func callError(model string, err error) Result {
	return Result{
		Outcome:   OutcomeCallError,
		Err:       err,
		Model:     model,
		Transient: resilience.IsTransient(err),
	}
}
