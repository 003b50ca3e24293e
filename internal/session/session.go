// Package session holds one user's progress through the brand wizard and
// keeps derived artifacts consistent with the inputs they came from.
package session

import (
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/narrative-cli/internal/llm"
	"github.com/sells-group/narrative-cli/internal/model"
)

// Errors returned by session operations.
var (
	ErrInvalidTransition = eris.New("invalid transition")
	ErrNotReady          = eris.New("brand name and category are required")
	ErrNoSelection       = eris.New("no concept selected")
	ErrOutOfRange        = eris.New("concept index out of range")
)

// Session is the full state of one wizard run.
type Session struct {
	ID      string       `json:"id"`
	Step    Step         `json:"step"`
	Editing bool         `json:"editing"`
	LLM     llm.Settings `json:"llm"`

	Identity        model.BrandIdentity `json:"identity"`
	Scraped         *model.ScrapedData  `json:"scraped,omitempty"`
	ScrapeAttempted bool                `json:"scrape_attempted"`
	Autofilled      bool                `json:"auto_filled"`
	Answers         model.WizardAnswers `json:"answers"`

	Profile    *model.BrandProfile      `json:"profile,omitempty"`
	Concepts   []model.NarrativeConcept `json:"concepts,omitempty"`
	Selected   *int                     `json:"selected,omitempty"`
	Storyboard *model.Storyboard        `json:"storyboard,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New returns a session at the identity step with default answers.
func New(id string, now time.Time) *Session {
	return &Session{
		ID:        id,
		Step:      StepIdentity,
		LLM:       llm.DefaultSettings(),
		Answers:   model.DefaultAnswers(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch records a modification time.
func (s *Session) Touch(now time.Time) {
	s.UpdatedAt = now
}

// Has reports whether the artifact a node stands for is present.
func (s *Session) Has(n Node) bool {
	switch n {
	case NodeIdentity, NodeAnswers:
		return true
	case NodeScraped:
		return s.Scraped != nil
	case NodeProfile:
		return s.Profile != nil
	case NodeConcepts:
		return len(s.Concepts) > 0
	case NodeSelection:
		return s.Selected != nil
	case NodeStoryboard:
		return s.Storyboard != nil
	}
	return false
}

// Invalidate clears everything derived from n. n itself is kept.
func (s *Session) Invalidate(n Node) {
	for _, d := range Descendants(n) {
		s.clear(d)
	}
}

// Clear drops n and everything derived from it.
func (s *Session) Clear(n Node) {
	s.clear(n)
	s.Invalidate(n)
}

func (s *Session) clear(n Node) {
	switch n {
	case NodeScraped:
		s.Scraped = nil
		s.ScrapeAttempted = false
		s.Autofilled = false
	case NodeProfile:
		s.Profile = nil
	case NodeConcepts:
		s.Concepts = nil
	case NodeSelection:
		s.Selected = nil
	case NodeStoryboard:
		s.Storyboard = nil
	}
}

// SetIdentity replaces the identity. Any field change discards research
// done for the old identity and everything derived from it.
func (s *Session) SetIdentity(id model.BrandIdentity) {
	if s.Identity == id {
		return
	}
	s.Identity = id
	s.Invalidate(NodeIdentity)
}

// SetAnswers replaces the wizard answers, invalidating derived state when
// they differ.
func (s *Session) SetAnswers(a model.WizardAnswers) {
	a = a.Normalize()
	if s.Answers.Equal(a) {
		return
	}
	s.Answers = a
	s.Invalidate(NodeAnswers)
}

// SetLLM replaces the provider settings. Generated artifacts are kept.
func (s *Session) SetLLM(settings llm.Settings) {
	s.LLM = settings
}

// SetResearch stores a research result. A nil result records an attempt
// that produced nothing.
func (s *Session) SetResearch(sd *model.ScrapedData) {
	s.Scraped = sd
	s.ScrapeAttempted = true
	s.Invalidate(NodeScraped)
}

// ApplyAutofill stores the merged autofill outcome and jumps to review.
func (s *Session) ApplyAutofill(id model.BrandIdentity, a model.WizardAnswers, sd *model.ScrapedData) error {
	if !s.Identity.Ready() {
		return ErrNotReady
	}
	if err := s.Can(Event{Type: EventReview}); err != nil {
		return err
	}
	s.Identity = id
	s.Answers = a.Normalize()
	s.Scraped = sd
	s.ScrapeAttempted = true
	s.Autofilled = true
	s.Clear(NodeProfile)
	return s.Apply(Event{Type: EventReview})
}

// SetProfile caches an assembled profile for preview.
func (s *Session) SetProfile(p model.BrandProfile) {
	s.Profile = &p
}

// SetConcepts stores freshly generated concepts and moves to the concepts
// step. Any previous selection is dropped.
func (s *Session) SetConcepts(cs []model.NarrativeConcept) error {
	if err := s.Can(Event{Type: EventGenerate}); err != nil {
		return err
	}
	s.Concepts = cs
	s.Clear(NodeSelection)
	return s.Apply(Event{Type: EventGenerate})
}

// SelectConcept picks one of the generated concepts. Picking a different
// concept discards the storyboard built for the previous one.
func (s *Session) SelectConcept(i int) error {
	if i < 0 || i >= len(s.Concepts) {
		return eris.Wrapf(ErrOutOfRange, "index %d with %d concepts", i, len(s.Concepts))
	}
	if s.Selected != nil && *s.Selected == i {
		return nil
	}
	s.Selected = &i
	s.Invalidate(NodeSelection)
	return nil
}

// SelectedConcept returns the chosen concept.
func (s *Session) SelectedConcept() (model.NarrativeConcept, error) {
	if s.Selected == nil {
		return model.NarrativeConcept{}, ErrNoSelection
	}
	i := *s.Selected
	if i < 0 || i >= len(s.Concepts) {
		return model.NarrativeConcept{}, eris.Wrapf(ErrOutOfRange, "index %d with %d concepts", i, len(s.Concepts))
	}
	return s.Concepts[i], nil
}

// SetStoryboard stores a generated storyboard.
func (s *Session) SetStoryboard(sb *model.Storyboard) error {
	if s.Selected == nil {
		return ErrNoSelection
	}
	s.Storyboard = sb
	return nil
}
