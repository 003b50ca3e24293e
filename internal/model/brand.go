package model

import "strings"

// BrandIdentity holds the facts the user enters on the first wizard step.
type BrandIdentity struct {
	Name        string `json:"name" yaml:"name" mapstructure:"name"`
	URL         string `json:"url" yaml:"url" mapstructure:"url"`
	Category    string `json:"category" yaml:"category" mapstructure:"category"`
	Description string `json:"description" yaml:"description" mapstructure:"description"`
}

// Ready reports whether the identity carries the minimum needed to research
// or advance past the identity step.
func (b BrandIdentity) Ready() bool {
	return strings.TrimSpace(b.Name) != "" && b.Category != ""
}

// Confidence is the researcher's own rating of how well it knows a brand.
type Confidence string

const (
	ConfidenceHigh    Confidence = "high"
	ConfidenceMedium  Confidence = "medium"
	ConfidenceLow     Confidence = "low"
	ConfidenceUnknown Confidence = "unknown"
)

// ParseConfidence normalizes a model-supplied rating. Anything unrecognized
// is unknown.
func ParseConfidence(s string) Confidence {
	switch c := Confidence(strings.ToLower(strings.TrimSpace(s))); c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return c
	default:
		return ConfidenceUnknown
	}
}

// ScrapedData is the structured result of brand research. A nil
// *ScrapedData means research was not run or failed.
type ScrapedData struct {
	Tagline              string     `json:"tagline" mapstructure:"tagline"`
	Ethos                string     `json:"ethos" mapstructure:"ethos"`
	Values               []string   `json:"values" mapstructure:"values"`
	AntiPositioning      string     `json:"anti_positioning" mapstructure:"anti_positioning"`
	EmotionalTerritory   string     `json:"emotional_territory" mapstructure:"emotional_territory"`
	AudienceDescription  string     `json:"audience_description" mapstructure:"audience_description"`
	AestheticDescription string     `json:"aesthetic_description" mapstructure:"aesthetic_description"`
	PriceTier            string     `json:"price_tier" mapstructure:"price_tier"`
	NotableInfo          string     `json:"notable_info,omitempty" mapstructure:"notable_info"`
	Confidence           Confidence `json:"confidence" mapstructure:"confidence"`
}

// Audience is the "who" step of the wizard.
type Audience struct {
	Lifestyle      string `json:"lifestyle" yaml:"lifestyle" mapstructure:"lifestyle"`
	AdjacentBrands string `json:"adjacent_brands" yaml:"adjacent_brands" mapstructure:"adjacent_brands"`
	Platform       string `json:"platform" yaml:"platform" mapstructure:"platform"`
}

// Personality holds the six 0-100 spectrum sliders.
type Personality struct {
	ExclusiveAccessible int `json:"exclusive_accessible" yaml:"exclusive_accessible" mapstructure:"exclusive_accessible"`
	SeriousPlayful      int `json:"serious_playful" yaml:"serious_playful" mapstructure:"serious_playful"`
	MinimalExpressive   int `json:"minimal_expressive" yaml:"minimal_expressive" mapstructure:"minimal_expressive"`
	ClassicTrendy       int `json:"classic_trendy" yaml:"classic_trendy" mapstructure:"classic_trendy"`
	LoudQuiet           int `json:"loud_quiet" yaml:"loud_quiet" mapstructure:"loud_quiet"`
	LuxuryEveryday      int `json:"luxury_everyday" yaml:"luxury_everyday" mapstructure:"luxury_everyday"`
}

// Get returns the slider value for a personality axis key.
func (p Personality) Get(key string) (int, bool) {
	switch key {
	case "exclusive_accessible":
		return p.ExclusiveAccessible, true
	case "serious_playful":
		return p.SeriousPlayful, true
	case "minimal_expressive":
		return p.MinimalExpressive, true
	case "classic_trendy":
		return p.ClassicTrendy, true
	case "loud_quiet":
		return p.LoudQuiet, true
	case "luxury_everyday":
		return p.LuxuryEveryday, true
	}
	return 0, false
}

// Set assigns the slider value for a personality axis key.
func (p *Personality) Set(key string, v int) bool {
	switch key {
	case "exclusive_accessible":
		p.ExclusiveAccessible = v
	case "serious_playful":
		p.SeriousPlayful = v
	case "minimal_expressive":
		p.MinimalExpressive = v
	case "classic_trendy":
		p.ClassicTrendy = v
	case "loud_quiet":
		p.LoudQuiet = v
	case "luxury_everyday":
		p.LuxuryEveryday = v
	default:
		return false
	}
	return true
}

// Emotion is the emotional direction step.
type Emotion struct {
	FeelAfter  string `json:"feel_after" yaml:"feel_after" mapstructure:"feel_after"`
	Reject     string `json:"reject" yaml:"reject" mapstructure:"reject"`
	MovieScene string `json:"movie_scene" yaml:"movie_scene" mapstructure:"movie_scene"`
}

// Visual is the visual direction step. Styles are catalog identifiers.
type Visual struct {
	Styles    []string `json:"styles" yaml:"styles" mapstructure:"styles"`
	Primary   string   `json:"color_primary" yaml:"color_primary" mapstructure:"color_primary"`
	Secondary string   `json:"color_secondary" yaml:"color_secondary" mapstructure:"color_secondary"`
	Accent    string   `json:"color_accent" yaml:"color_accent" mapstructure:"color_accent"`
}

// Production holds delivery constraints for the spot.
type Production struct {
	ProductPresence string `json:"product_presence" yaml:"product_presence" mapstructure:"product_presence"`
	TextOverlay     string `json:"text_overlay" yaml:"text_overlay" mapstructure:"text_overlay"`
	AudioDirection  string `json:"audio_direction" yaml:"audio_direction" mapstructure:"audio_direction"`
}

// WizardAnswers are the free-form and bounded answers collected across the
// audience, personality, emotion and visual steps.
type WizardAnswers struct {
	Audience    Audience    `json:"audience" yaml:"audience" mapstructure:"audience"`
	Personality Personality `json:"personality" yaml:"personality" mapstructure:"personality"`
	Emotion     Emotion     `json:"emotion" yaml:"emotion" mapstructure:"emotion"`
	Visual      Visual      `json:"visual" yaml:"visual" mapstructure:"visual"`
	Production  Production  `json:"production" yaml:"production" mapstructure:"production"`
}

// DefaultAnswers returns the answers a fresh session starts with.
func DefaultAnswers() WizardAnswers {
	return WizardAnswers{
		Audience: Audience{Platform: PlatformInstagramReels},
		Personality: Personality{
			ExclusiveAccessible: SliderDefault,
			SeriousPlayful:      SliderDefault,
			MinimalExpressive:   SliderDefault,
			ClassicTrendy:       SliderDefault,
			LoudQuiet:           SliderDefault,
			LuxuryEveryday:      SliderDefault,
		},
		Visual: Visual{
			Styles:    []string{},
			Primary:   "#000000",
			Secondary: "#ffffff",
			Accent:    "#ff0000",
		},
		Production: Production{
			ProductPresence: ProductPresenceOptions[1],
			TextOverlay:     TextOverlayOptions[1],
		},
	}
}

// Equal reports whether two answer sets are identical.
func (w WizardAnswers) Equal(o WizardAnswers) bool {
	if w.Audience != o.Audience || w.Personality != o.Personality ||
		w.Emotion != o.Emotion || w.Production != o.Production {
		return false
	}
	a, b := w.Visual, o.Visual
	if a.Primary != b.Primary || a.Secondary != b.Secondary || a.Accent != b.Accent {
		return false
	}
	if len(a.Styles) != len(b.Styles) {
		return false
	}
	for i := range a.Styles {
		if a.Styles[i] != b.Styles[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy that shares no slices with w.
func (w WizardAnswers) Clone() WizardAnswers {
	if w.Visual.Styles != nil {
		w.Visual.Styles = append([]string(nil), w.Visual.Styles...)
	}
	return w
}
