package model

import (
	"encoding/json"
	"strings"
	"time"
)

// NarrativeConcept is one story idea returned by the concept prompt.
type NarrativeConcept struct {
	Title        string `json:"title" mapstructure:"title"`
	HumanTruth   string `json:"human_truth" mapstructure:"human_truth"`
	Summary      string `json:"summary" mapstructure:"summary"`
	EmotionalArc string `json:"emotional_arc" mapstructure:"emotional_arc"`
	Hook         string `json:"hook" mapstructure:"hook"`
	Rationale    string `json:"rationale" mapstructure:"rationale"`
}

// ConceptCount is how many concepts the prompt asks for.
const ConceptCount = 3

// Keyframe is one of the five storyboard frames.
type Keyframe struct {
	Timestamp        string `json:"timestamp" mapstructure:"timestamp"`
	NarrativeBeat    string `json:"narrative_beat" mapstructure:"narrative_beat"`
	SceneDescription string `json:"scene_description" mapstructure:"scene_description"`
	Camera           string `json:"camera" mapstructure:"camera"`
	Lighting         string `json:"lighting" mapstructure:"lighting"`
	ColorPalette     string `json:"color_palette" mapstructure:"color_palette"`
	Emotion          string `json:"emotion" mapstructure:"emotion"`
	TextOverlay      string `json:"text_overlay" mapstructure:"text_overlay"`
	ProductPresence  string `json:"product_presence" mapstructure:"product_presence"`
	CompositionNotes string `json:"composition_notes" mapstructure:"composition_notes"`
}

// AnimationPrompt describes the motion between two keyframes.
type AnimationPrompt struct {
	Transition          string `json:"transition" mapstructure:"transition"`
	MotionType          string `json:"motion_type" mapstructure:"motion_type"`
	CameraMotion        string `json:"camera_motion" mapstructure:"camera_motion"`
	SubjectMotion       string `json:"subject_motion" mapstructure:"subject_motion"`
	Pacing              string `json:"pacing" mapstructure:"pacing"`
	VisualTransition    string `json:"visual_transition" mapstructure:"visual_transition"`
	EmotionalTrajectory string `json:"emotional_trajectory" mapstructure:"emotional_trajectory"`
	AudioCue            string `json:"audio_cue" mapstructure:"audio_cue"`
}

// AntiGenericAudit is the model's self-check against stock-ad clichés.
type AntiGenericAudit struct {
	AllPassed bool   `json:"all_passed" mapstructure:"all_passed"`
	Notes     string `json:"notes" mapstructure:"notes"`
}

// Storyboard is the shootable plan for the selected concept. When the
// provider reply could not be parsed only Raw is set.
type Storyboard struct {
	StyleSuffix           string            `json:"style_suffix" mapstructure:"style_suffix"`
	Keyframes             []Keyframe        `json:"keyframes" mapstructure:"keyframes"`
	ImagePrompts          []string          `json:"image_prompts" mapstructure:"image_prompts"`
	AnimationPrompts      []AnimationPrompt `json:"animation_prompts" mapstructure:"animation_prompts"`
	AntiGenericAudit      AntiGenericAudit  `json:"anti_generic_audit" mapstructure:"anti_generic_audit"`
	CreativeDirectorNotes string            `json:"creative_director_notes" mapstructure:"creative_director_notes"`
	Raw                   string            `json:"raw,omitempty" mapstructure:"-"`
}

// RawStoryboard wraps unparseable provider text.
func RawStoryboard(text string) *Storyboard {
	return &Storyboard{Raw: text}
}

// Degraded reports whether the storyboard is raw text only.
func (s *Storyboard) Degraded() bool {
	return s != nil && s.Raw != ""
}

// MarshalJSON emits {"raw": ...} for degraded storyboards.
func (s Storyboard) MarshalJSON() ([]byte, error) {
	if s.Raw != "" {
		return json.Marshal(struct {
			Raw string `json:"raw"`
		}{s.Raw})
	}
	type plain Storyboard
	return json.Marshal(plain(s))
}

// PipelineVersion is stamped into every export.
const PipelineVersion = "0.1.0"

// PipelineExport is the hand-off document for downstream production tools.
type PipelineExport struct {
	BrandProfile    BrandProfile     `json:"brand_profile" yaml:"brand_profile"`
	SelectedConcept NarrativeConcept `json:"selected_concept" yaml:"selected_concept"`
	Storyboard      *Storyboard      `json:"storyboard" yaml:"storyboard"`
	GeneratedAt     time.Time        `json:"generated_at" yaml:"generated_at"`
	PipelineVersion string           `json:"pipeline_version" yaml:"pipeline_version"`
}

// ExportFilename derives the download name from the brand name.
func ExportFilename(brand string) string {
	return strings.ReplaceAll(strings.ToLower(brand), " ", "_") + "_narrative_pipeline.json"
}
