// Package profile merges brand identity, research and wizard answers into
// the BrandProfile snapshot consumed by the generation prompts.
package profile

import (
	"fmt"
	"strings"

	"github.com/sells-group/narrative-cli/internal/model"
)

// Slider band edges.
const (
	strongLowBelow = 30
	leanLowBelow   = 45
	balancedMax    = 55
	leanHighMax    = 70
)

// Maturity thresholds on the data density score.
const (
	evolutionMin     = 6
	amplificationMin = 3
)

// InterpretSlider renders a 0-100 slider value as a phrase between its two
// labels.
func InterpretSlider(v int, low, high string) string {
	switch {
	case v < strongLowBelow:
		return "Strongly " + low
	case v < leanLowBelow:
		return "Leans " + low
	case v <= balancedMax:
		return fmt.Sprintf("Balanced %s/%s", low, high)
	case v <= leanHighMax:
		return "Leans " + high
	default:
		return "Strongly " + high
	}
}

// Score counts how much real brand signal is available. Research confidence
// is worth 3 (high) or 2 (medium); each of description, audience lifestyle,
// desired feeling and a non-empty style selection adds 1.
func Score(identity model.BrandIdentity, scraped *model.ScrapedData, answers model.WizardAnswers) int {
	score := 0
	if scraped != nil {
		switch scraped.Confidence {
		case model.ConfidenceHigh:
			score += 3
		case model.ConfidenceMedium:
			score += 2
		}
	}
	if identity.Description != "" {
		score++
	}
	if answers.Audience.Lifestyle != "" {
		score++
	}
	if answers.Emotion.FeelAfter != "" {
		score++
	}
	if len(answers.Visual.Styles) > 0 {
		score++
	}
	return score
}

// Classify maps a density score to a maturity mode.
func Classify(score int) model.MaturityMode {
	switch {
	case score >= evolutionMin:
		return model.MaturityEvolution
	case score >= amplificationMin:
		return model.MaturityAmplification
	default:
		return model.MaturityDiscovery
	}
}

// Framing is the line added to the concept prompt for a mode.
func Framing(m model.MaturityMode) string {
	switch m {
	case model.MaturityEvolution:
		return "MATURITY MODE: EVOLUTION. The brand is well documented. Push to the edge of what it can credibly say; do not restate what it already says about itself."
	case model.MaturityAmplification:
		return "MATURITY MODE: AMPLIFICATION. The brand has a partial story. Find the narrative angle it has not explored yet."
	default:
		return "MATURITY MODE: DISCOVERY. Brand data is thin. Build the narrative identity from the category and name, and state the assumptions you make."
	}
}

// Assemble builds a fresh profile. It never mutates its inputs.
func Assemble(identity model.BrandIdentity, scraped *model.ScrapedData, answers model.WizardAnswers) model.BrandProfile {
	score := Score(identity, scraped, answers)

	ident := model.ProfileIdentity{Values: []string{}}
	if scraped != nil {
		ident = model.ProfileIdentity{
			Tagline:            scraped.Tagline,
			Ethos:              scraped.Ethos,
			Values:             append([]string{}, scraped.Values...),
			AntiPositioning:    scraped.AntiPositioning,
			EmotionalTerritory: scraped.EmotionalTerritory,
			PriceTier:          scraped.PriceTier,
		}
	}

	p := answers.Personality
	return model.BrandProfile{
		BrandName:     strings.TrimSpace(identity.Name),
		Website:       identity.URL,
		Category:      identity.Category,
		Description:   identity.Description,
		MaturityMode:  Classify(score),
		MaturityScore: score,
		Identity:      ident,
		Audience: model.ProfileAudience{
			Lifestyle:       answers.Audience.Lifestyle,
			AdjacentBrands:  answers.Audience.AdjacentBrands,
			PrimaryPlatform: answers.Audience.Platform,
		},
		Personality: model.ProfilePersonality{
			ExclusiveVsAccessible: InterpretSlider(p.ExclusiveAccessible, "Exclusive", "Accessible"),
			SeriousVsPlayful:      InterpretSlider(p.SeriousPlayful, "Serious", "Playful"),
			MinimalVsExpressive:   InterpretSlider(p.MinimalExpressive, "Minimal", "Expressive"),
			ClassicVsTrendy:       InterpretSlider(p.ClassicTrendy, "Classic", "Trendy"),
			LoudVsQuiet:           InterpretSlider(p.LoudQuiet, "Loud", "Quiet"),
			LuxuryVsEveryday:      InterpretSlider(p.LuxuryEveryday, "Luxury", "Everyday"),
		},
		EmotionalDirection: model.EmotionalDirection{
			DesiredFeeling:  answers.Emotion.FeelAfter,
			RejectedFeeling: answers.Emotion.Reject,
			MovieScene:      answers.Emotion.MovieScene,
		},
		VisualDirection: model.VisualDirection{
			Styles: model.StyleLabels(answers.Visual.Styles),
			ColorPalette: model.ColorPalette{
				Primary:   answers.Visual.Primary,
				Secondary: answers.Visual.Secondary,
				Accent:    answers.Visual.Accent,
			},
		},
		Production: model.ProductionSpec{
			ProductPresence: answers.Production.ProductPresence,
			TextOverlay:     answers.Production.TextOverlay,
			AudioDirection:  answers.Production.AudioDirection,
			Duration:        model.SpotDuration,
			Keyframes:       model.SpotKeyframes,
		},
	}
}
