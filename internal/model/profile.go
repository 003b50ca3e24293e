package model

// MaturityMode is how much real brand signal a profile carries.
type MaturityMode string

const (
	MaturityDiscovery     MaturityMode = "DISCOVERY"
	MaturityAmplification MaturityMode = "AMPLIFICATION"
	MaturityEvolution     MaturityMode = "EVOLUTION"
)

// Description is the user-facing explanation of the mode.
func (m MaturityMode) Description() string {
	switch m {
	case MaturityEvolution:
		return "Rich brand data — the system will push to the edge of what your brand can credibly say."
	case MaturityAmplification:
		return "Solid brand data — the system will find the narrative angle you haven't explored yet."
	default:
		return "Limited brand data — the system will build your narrative identity from scratch and flag assumptions."
	}
}

// ProfileIdentity is the research-derived identity block of a profile.
type ProfileIdentity struct {
	Tagline            string   `json:"tagline"`
	Ethos              string   `json:"ethos"`
	Values             []string `json:"values"`
	AntiPositioning    string   `json:"anti_positioning"`
	EmotionalTerritory string   `json:"emotional_territory"`
	PriceTier          string   `json:"price_tier"`
}

// ProfileAudience is the audience block of a profile.
type ProfileAudience struct {
	Lifestyle       string `json:"lifestyle"`
	AdjacentBrands  string `json:"adjacent_brands"`
	PrimaryPlatform string `json:"primary_platform"`
}

// ProfilePersonality holds the interpreted slider labels.
type ProfilePersonality struct {
	ExclusiveVsAccessible string `json:"exclusive_vs_accessible"`
	SeriousVsPlayful      string `json:"serious_vs_playful"`
	MinimalVsExpressive   string `json:"minimal_vs_expressive"`
	ClassicVsTrendy       string `json:"classic_vs_trendy"`
	LoudVsQuiet           string `json:"loud_vs_quiet"`
	LuxuryVsEveryday      string `json:"luxury_vs_everyday"`
}

// EmotionalDirection is the emotion block of a profile.
type EmotionalDirection struct {
	DesiredFeeling  string `json:"desired_feeling"`
	RejectedFeeling string `json:"rejected_feeling"`
	MovieScene      string `json:"movie_scene"`
}

// ColorPalette is the three brand colors.
type ColorPalette struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
	Accent    string `json:"accent"`
}

// VisualDirection carries style labels, not identifiers.
type VisualDirection struct {
	Styles       []string     `json:"styles"`
	ColorPalette ColorPalette `json:"color_palette"`
}

// ProductionSpec describes the deliverable.
type ProductionSpec struct {
	ProductPresence string `json:"product_presence"`
	TextOverlay     string `json:"text_overlay"`
	AudioDirection  string `json:"audio_direction"`
	Duration        string `json:"duration"`
	Keyframes       int    `json:"keyframes"`
}

// Fixed production parameters of every spot.
const (
	SpotDuration  = "10-12 seconds"
	SpotKeyframes = 5
)

// BrandProfile is the snapshot handed to the concept and storyboard prompts.
// It is assembled fresh for every generation pass.
type BrandProfile struct {
	BrandName          string             `json:"brand_name"`
	Website            string             `json:"website"`
	Category           string             `json:"category"`
	Description        string             `json:"description"`
	MaturityMode       MaturityMode       `json:"maturity_mode"`
	MaturityScore      int                `json:"maturity_score"`
	Identity           ProfileIdentity    `json:"identity"`
	Audience           ProfileAudience    `json:"audience"`
	Personality        ProfilePersonality `json:"personality"`
	EmotionalDirection EmotionalDirection `json:"emotional_direction"`
	VisualDirection    VisualDirection    `json:"visual_direction"`
	Production         ProductionSpec     `json:"production"`
}
