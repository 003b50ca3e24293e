package profile

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/narrative-cli/internal/llmjson"
	"github.com/sells-group/narrative-cli/internal/model"
)

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// ApplyAutofill merges a model-written creative brief into copies of the
// identity and answers. Non-empty strings overwrite, sliders are clamped,
// styles are filtered to the catalog and production choices are matched
// against their option lists. The research block implied by the brief is
// returned alongside.
func ApplyAutofill(identity model.BrandIdentity, answers model.WizardAnswers, data map[string]any) (model.BrandIdentity, model.WizardAnswers, *model.ScrapedData) {
	scraped := scrapedFromBrief(data)

	if v := stringField(data, "brand_description"); v != "" {
		identity.Description = v
	}

	if v := stringField(data, "audience_lifestyle"); v != "" {
		answers.Audience.Lifestyle = v
	}
	if v := stringField(data, "adjacent_brands"); v != "" {
		answers.Audience.AdjacentBrands = v
	}
	if v := stringField(data, "platform"); v != "" {
		if p, ok := matchPlatform(v); ok {
			answers.Audience.Platform = p
		}
	}

	for _, ax := range model.PersonalityAxes {
		if n, ok := numberField(data, "personality_"+ax.Key); ok {
			answers.Personality.Set(ax.Key, clamp(int(n), model.SliderMin, model.SliderMax))
		}
	}

	if v := stringField(data, "emotion_feel_after"); v != "" {
		answers.Emotion.FeelAfter = v
	}
	if v := stringField(data, "emotion_reject"); v != "" {
		answers.Emotion.Reject = v
	}
	if v := stringField(data, "emotion_movie_scene"); v != "" {
		answers.Emotion.MovieScene = v
	}

	if styles, ok := data["visual_styles"].([]any); ok && len(styles) > 0 {
		ids := make([]string, 0, len(styles))
		for _, s := range styles {
			if id, ok := s.(string); ok {
				ids = append(ids, strings.ToLower(strings.TrimSpace(id)))
			}
		}
		answers.Visual.Styles = model.FilterStyles(ids)
	} else {
		answers.Visual.Styles = append([]string{}, answers.Visual.Styles...)
	}
	if v := colorField(data, "color_primary"); v != "" {
		answers.Visual.Primary = v
	}
	if v := colorField(data, "color_secondary"); v != "" {
		answers.Visual.Secondary = v
	}
	if v := colorField(data, "color_accent"); v != "" {
		answers.Visual.Accent = v
	}

	if v := stringField(data, "product_presence"); v != "" {
		if opt, ok := matchOption(model.ProductPresenceOptions, v); ok {
			answers.Production.ProductPresence = opt
		}
	}
	if v := stringField(data, "text_overlay"); v != "" {
		if opt, ok := matchOption(model.TextOverlayOptions, v); ok {
			answers.Production.TextOverlay = opt
		}
	}
	if v := stringField(data, "audio_direction"); v != "" {
		answers.Production.AudioDirection = v
	}

	return identity, answers, scraped
}

// scrapedFromBrief lifts the research fields out of a brief. A brief with no
// confidence rating counts as medium.
func scrapedFromBrief(data map[string]any) *model.ScrapedData {
	var sd model.ScrapedData
	if err := llmjson.Decode(data, &sd); err != nil {
		zap.L().Debug("profile: partial research fields in brief", zap.Error(err))
	}
	if sd.Values == nil {
		sd.Values = []string{}
	}
	if sd.Confidence == "" {
		sd.Confidence = model.ConfidenceMedium
	} else {
		sd.Confidence = model.ParseConfidence(string(sd.Confidence))
	}
	return &sd
}

func stringField(data map[string]any, key string) string {
	s, _ := data[key].(string)
	return strings.TrimSpace(s)
}

func numberField(data map[string]any, key string) (float64, bool) {
	switch n := data[key].(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func colorField(data map[string]any, key string) string {
	v := stringField(data, key)
	if !hexColor.MatchString(v) {
		return ""
	}
	return strings.ToLower(v)
}

func matchOption(options []string, v string) (string, bool) {
	needle := strings.ToLower(v)
	for _, opt := range options {
		if strings.Contains(strings.ToLower(opt), needle) {
			return opt, true
		}
	}
	return "", false
}

func matchPlatform(v string) (string, bool) {
	for _, p := range model.Platforms {
		if strings.EqualFold(p, v) {
			return p, true
		}
	}
	return "", false
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}
