// Package pipeline runs the generation stages of a brand narrative session:
// research, autofill, concept generation and storyboard generation.
package pipeline

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"go.uber.org/zap"

	"github.com/sells-group/narrative-cli/internal/llm"
	"github.com/sells-group/narrative-cli/internal/llmjson"
	"github.com/sells-group/narrative-cli/internal/model"
	"github.com/sells-group/narrative-cli/internal/profile"
	"github.com/sells-group/narrative-cli/internal/scrape"
	"github.com/sells-group/narrative-cli/internal/session"
)

// Pipeline runs stages against a session. It holds no per-session state;
// callers serialize access to each session.
type Pipeline struct {
	invoker          llm.Invoker
	fetcher          scrape.Fetcher
	conceptSystem    string
	storyboardSystem string
	now              func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithSystemPrompt replaces both fallback creative-director prompts.
// Empty text is ignored.
func WithSystemPrompt(text string) Option {
	return func(p *Pipeline) {
		if strings.TrimSpace(text) == "" {
			return
		}
		p.conceptSystem = text
		p.storyboardSystem = text
	}
}

// WithClock sets the time source used for export timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a Pipeline. A nil fetcher disables site research.
func New(invoker llm.Invoker, fetcher scrape.Fetcher, opts ...Option) *Pipeline {
	if fetcher == nil {
		fetcher = scrape.Disabled{}
	}
	p := &Pipeline{
		invoker:          invoker,
		fetcher:          fetcher,
		conceptSystem:    DefaultSystemPrompt,
		storyboardSystem: DefaultStoryboardSystemPrompt,
		now:              time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Research fetches the brand's site and asks the model for a structured
// brand profile. The attempt is recorded on the session whatever the
// outcome; a failure leaves no research data and is returned for display.
func (p *Pipeline) Research(ctx context.Context, s *session.Session) (*model.ScrapedData, error) {
	if !s.Identity.Ready() {
		return nil, session.ErrNotReady
	}
	pages := p.fetcher.Research(ctx, s.Identity.URL)

	res := p.invoke(ctx, s, llm.Call{
		Stage:     string(StageResearch),
		System:    researchSystemPrompt,
		User:      researchPrompt(s.Identity, pages),
		MaxTokens: researchMaxTokens,
	})
	if !res.OK() {
		s.SetResearch(nil)
		return nil, gatewayError(StageResearch, res)
	}

	data, ok := llmjson.ParseObject(res.Text)
	if !ok {
		s.SetResearch(nil)
		return nil, parseError(StageResearch, "could not parse research response", res.Text)
	}
	sd := decodeResearch(data)
	s.SetResearch(sd)
	return sd, nil
}

// Autofill asks the model to complete every wizard field, merges the
// result into the session and jumps to review. On failure the session is
// left unchanged.
func (p *Pipeline) Autofill(ctx context.Context, s *session.Session) error {
	if !s.Identity.Ready() {
		return session.ErrNotReady
	}
	if err := s.Can(session.Event{Type: session.EventReview}); err != nil {
		return err
	}
	pages := p.fetcher.Research(ctx, s.Identity.URL)

	res := p.invoke(ctx, s, llm.Call{
		Stage:     string(StageAutofill),
		System:    autofillSystemPrompt,
		User:      autofillPrompt(s.Identity, s.Scraped, pages),
		MaxTokens: autofillMaxTokens,
	})
	if !res.OK() {
		return gatewayError(StageAutofill, res)
	}

	data, ok := llmjson.ParseObject(res.Text)
	if !ok {
		return parseError(StageAutofill, "could not parse autofill response", res.Text)
	}
	id, answers, sd := profile.ApplyAutofill(s.Identity, s.Answers, data)
	return s.ApplyAutofill(id, answers, sd)
}

// Profile assembles a fresh profile and caches it on the session.
func (p *Pipeline) Profile(s *session.Session) model.BrandProfile {
	bp := profile.Assemble(s.Identity, s.Scraped, s.Answers)
	s.SetProfile(bp)
	return bp
}

// GenerateConcepts returns the session's concepts, generating them when
// none are cached. A gateway or parse failure leaves the session unchanged.
func (p *Pipeline) GenerateConcepts(ctx context.Context, s *session.Session) ([]model.NarrativeConcept, error) {
	if err := s.Can(session.Event{Type: session.EventGenerate}); err != nil {
		return nil, err
	}
	bp := profile.Assemble(s.Identity, s.Scraped, s.Answers)

	if len(s.Concepts) > 0 {
		s.SetProfile(bp)
		if err := s.Apply(session.Event{Type: session.EventGenerate}); err != nil {
			return nil, err
		}
		return s.Concepts, nil
	}

	res := p.invoke(ctx, s, llm.Call{
		Stage:     string(StageConcepts),
		System:    p.conceptSystem,
		User:      conceptsPrompt(bp),
		MaxTokens: conceptsMaxTokens,
	})
	if !res.OK() {
		return nil, gatewayError(StageConcepts, res)
	}

	concepts, ok := parseConcepts(res.Text)
	if !ok {
		return nil, parseError(StageConcepts, "could not parse narrative concepts", res.Text)
	}
	if len(concepts) != model.ConceptCount {
		zap.L().Info("pipeline: unexpected concept count",
			zap.String("session", s.ID),
			zap.Int("want", model.ConceptCount),
			zap.Int("got", len(concepts)),
		)
	}

	s.SetProfile(bp)
	if err := s.SetConcepts(concepts); err != nil {
		return nil, err
	}
	return concepts, nil
}

// RegenerateConcepts discards concepts and everything built on them, then
// generates again.
func (p *Pipeline) RegenerateConcepts(ctx context.Context, s *session.Session) ([]model.NarrativeConcept, error) {
	if err := s.Can(session.Event{Type: session.EventGenerate}); err != nil {
		return nil, err
	}
	s.Clear(session.NodeConcepts)
	return p.GenerateConcepts(ctx, s)
}

// SelectConcept picks concept i.
func (p *Pipeline) SelectConcept(s *session.Session, i int) (model.NarrativeConcept, error) {
	if err := s.SelectConcept(i); err != nil {
		return model.NarrativeConcept{}, err
	}
	return s.SelectedConcept()
}

// GenerateStoryboard returns the storyboard for the selected concept,
// generating it when none is cached. A reply that is not a JSON object is
// kept as a raw-text storyboard.
func (p *Pipeline) GenerateStoryboard(ctx context.Context, s *session.Session) (*model.Storyboard, error) {
	concept, err := s.SelectedConcept()
	if err != nil {
		return nil, err
	}
	if s.Storyboard != nil {
		return s.Storyboard, nil
	}
	bp := profile.Assemble(s.Identity, s.Scraped, s.Answers)

	res := p.invoke(ctx, s, llm.Call{
		Stage:     string(StageStoryboard),
		System:    p.storyboardSystem + storyboardOutputRules,
		User:      storyboardPrompt(bp, concept),
		MaxTokens: storyboardMaxTokens,
	})
	if !res.OK() {
		return nil, gatewayError(StageStoryboard, res)
	}

	sb := parseStoryboard(res.Text)
	if sb.Degraded() {
		zap.L().Warn("pipeline: storyboard kept as raw text", zap.String("session", s.ID))
	}
	if err := s.SetStoryboard(sb); err != nil {
		return nil, err
	}
	return sb, nil
}

// RegenerateStoryboard discards the storyboard and generates again.
func (p *Pipeline) RegenerateStoryboard(ctx context.Context, s *session.Session) (*model.Storyboard, error) {
	if _, err := s.SelectedConcept(); err != nil {
		return nil, err
	}
	s.Clear(session.NodeStoryboard)
	return p.GenerateStoryboard(ctx, s)
}

// Export builds the hand-off document. It needs a selected concept and a
// storyboard.
func (p *Pipeline) Export(s *session.Session) (model.PipelineExport, error) {
	concept, err := s.SelectedConcept()
	if err != nil {
		return model.PipelineExport{}, err
	}
	if s.Storyboard == nil {
		return model.PipelineExport{}, ErrNoStoryboard
	}
	return model.PipelineExport{
		BrandProfile:    profile.Assemble(s.Identity, s.Scraped, s.Answers),
		SelectedConcept: concept,
		Storyboard:      s.Storyboard,
		GeneratedAt:     p.now(),
		PipelineVersion: model.PipelineVersion,
	}, nil
}

func (p *Pipeline) invoke(ctx context.Context, s *session.Session, call llm.Call) llm.Result {
	log := zap.L().With(zap.String("session", s.ID), zap.String("stage", call.Stage))
	start := time.Now()
	res := p.invoker.Invoke(ctx, s.LLM, call)
	if !res.OK() {
		log.Warn("pipeline: stage failed",
			zap.String("outcome", res.Outcome.String()),
			zap.Bool("transient", res.Transient),
			zap.String("error", res.Message()),
		)
		return res
	}
	log.Info("pipeline: stage complete",
		zap.String("model", res.Model),
		zap.Int64("input_tokens", res.Usage.InputTokens),
		zap.Int64("output_tokens", res.Usage.OutputTokens),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res
}

func decodeResearch(data map[string]any) *model.ScrapedData {
	var sd model.ScrapedData
	if err := llmjson.Decode(data, &sd); err != nil {
		zap.L().Debug("pipeline: partial research decode", zap.Error(err))
	}
	sd.Confidence = model.ParseConfidence(string(sd.Confidence))
	if sd.Values == nil {
		sd.Values = []string{}
	}
	return &sd
}

// parseConcepts accepts a list of concept objects or a single object.
// Items that are not objects or carry no text are dropped.
func parseConcepts(text string) ([]model.NarrativeConcept, bool) {
	items, ok := llmjson.ParseList(text)
	if !ok {
		return nil, false
	}
	concepts := make([]model.NarrativeConcept, 0, len(items))
	for _, item := range items {
		if _, isObj := item.(map[string]any); !isObj {
			continue
		}
		var c model.NarrativeConcept
		if err := llmjson.Decode(item, &c); err != nil {
			zap.L().Debug("pipeline: skip concept", zap.Error(err))
			continue
		}
		if c == (model.NarrativeConcept{}) {
			continue
		}
		if strings.TrimSpace(c.Title) == "" {
			c.Title = fmt.Sprintf("Concept %d", len(concepts)+1)
		}
		concepts = append(concepts, c)
	}
	return concepts, len(concepts) > 0
}

var auditType = reflect.TypeOf(model.AntiGenericAudit{})

// auditFromString accepts a bare note where an audit object is expected.
func auditFromString(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to == auditType && from.Kind() == reflect.String {
		return map[string]any{"notes": data}, nil
	}
	return data, nil
}

func parseStoryboard(text string) *model.Storyboard {
	v, ok := llmjson.Parse(text)
	if !ok {
		return model.RawStoryboard(text)
	}
	obj, isObj := v.(map[string]any)
	if !isObj || len(obj) == 0 {
		return model.RawStoryboard(text)
	}
	var sb model.Storyboard
	if err := llmjson.Decode(obj, &sb, mapstructure.DecodeHookFuncType(auditFromString)); err != nil {
		zap.L().Debug("pipeline: storyboard decode", zap.Error(err))
		return model.RawStoryboard(text)
	}
	return &sb
}
