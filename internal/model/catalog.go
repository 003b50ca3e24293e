package model

import (
	"regexp"
	"slices"

	"github.com/rotisserie/eris"
)

// Categories is the fixed category list. The empty entry means "not chosen".
var Categories = []string{
	"",
	"Apparel",
	"Personal Care",
	"Shoes",
	"Jewelry",
	"Health Care",
	"Home",
	"Lawn & Garden",
	"Electronics",
	"Vehicles & Parts",
	"Food",
	"Beverages & Tobacco",
	"Animals & Pet Supplies",
	"Toys, Puzzles & Games",
	"Luggage, Wallets & Handbags",
	"Sporting Goods",
	"Furniture",
}

// Platforms.
const (
	PlatformInstagramReels = "Instagram Reels"
	PlatformTikTok         = "TikTok"
	PlatformYouTubeShorts  = "YouTube Shorts"
	PlatformMulti          = "Multi-platform"
)

// Platforms lists every supported primary platform.
var Platforms = []string{PlatformInstagramReels, PlatformTikTok, PlatformYouTubeShorts, PlatformMulti}

// ProductPresenceOptions lists how visible the product may be.
var ProductPresenceOptions = []string{
	"None — no product visible at all",
	"Ambient — worn/used naturally, never the focus",
	"Visible — clearly present but story-first",
}

// TextOverlayOptions lists the on-screen text treatments.
var TextOverlayOptions = []string{
	"None — visuals only",
	"Tagline at end only",
	"Minimal text throughout (3-7 words max per overlay)",
	"Text-heavy / typographic style",
}

// VisualStyle is one entry of the visual style catalog.
type VisualStyle struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// VisualStyles is the 12-item style catalog.
var VisualStyles = []VisualStyle{
	{"cinematic", "Cinematic / Film", "Widescreen, dramatic lighting, shallow DOF"},
	{"documentary", "Documentary / Raw", "Handheld, natural light, observational"},
	{"editorial", "Editorial / Fashion", "High contrast, posed, graphic"},
	{"surreal", "Surreal / Dreamlike", "Unexpected scale, impossible physics, fantasy"},
	{"lofi", "Lo-Fi / Social Native", "Phone-shot aesthetic, casual, authentic"},
	{"minimal", "Minimal / Clean", "Negative space, muted tones, restrained"},
	{"maximalist", "Maximalist / Bold", "Color-saturated, busy, energetic"},
	{"vintage", "Vintage / Retro", "Film grain, muted color, nostalgic"},
	{"neon", "Neon / Night", "Dark backgrounds, vivid lighting, urban"},
	{"organic", "Organic / Natural", "Earth tones, soft light, textured"},
	{"graphic", "Graphic / Flat", "Bold shapes, solid colors, 2D feel"},
	{"luxe", "Luxe / High-End", "Rich textures, warm metals, elevated"},
}

// PersonalityAxis is one slider spectrum.
type PersonalityAxis struct {
	Key  string `json:"key"`
	Low  string `json:"low"`
	High string `json:"high"`
}

// PersonalityAxes lists the six spectrums in display order.
var PersonalityAxes = []PersonalityAxis{
	{"exclusive_accessible", "Exclusive", "Accessible"},
	{"serious_playful", "Serious", "Playful"},
	{"minimal_expressive", "Minimal", "Expressive"},
	{"classic_trendy", "Classic", "Trendy"},
	{"loud_quiet", "Loud", "Quiet"},
	{"luxury_everyday", "Luxury", "Everyday"},
}

// Slider bounds.
const (
	SliderMin     = 0
	SliderMax     = 100
	SliderDefault = 50
)

// ErrInvalid is wrapped by every validation failure in this package.
var ErrInvalid = eris.New("invalid value")

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// StyleByID looks up a catalog style.
func StyleByID(id string) (VisualStyle, bool) {
	for _, s := range VisualStyles {
		if s.ID == id {
			return s, true
		}
	}
	return VisualStyle{}, false
}

// StyleLabels returns the labels of the selected styles in catalog order,
// skipping unknown ids.
func StyleLabels(ids []string) []string {
	labels := make([]string, 0, len(ids))
	for _, s := range VisualStyles {
		if slices.Contains(ids, s.ID) {
			labels = append(labels, s.Label)
		}
	}
	return labels
}

// FilterStyles keeps catalog identifiers in order and drops duplicates.
func FilterStyles(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := StyleByID(id); ok && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

// ValidCategory reports whether c is in the category list.
func ValidCategory(c string) bool {
	return slices.Contains(Categories, c)
}

// Validate checks an identity against the category list.
func (b BrandIdentity) Validate() error {
	if !ValidCategory(b.Category) {
		return eris.Wrapf(ErrInvalid, "unknown category %q", b.Category)
	}
	return nil
}

// Normalize returns a copy with styles filtered to the catalog.
func (w WizardAnswers) Normalize() WizardAnswers {
	w.Visual.Styles = FilterStyles(w.Visual.Styles)
	return w
}

// Validate checks bounded answer fields.
func (w WizardAnswers) Validate() error {
	if !slices.Contains(Platforms, w.Audience.Platform) {
		return eris.Wrapf(ErrInvalid, "unknown platform %q", w.Audience.Platform)
	}
	for _, ax := range PersonalityAxes {
		v, _ := w.Personality.Get(ax.Key)
		if v < SliderMin || v > SliderMax {
			return eris.Wrapf(ErrInvalid, "%s must be between %d and %d, got %d", ax.Key, SliderMin, SliderMax, v)
		}
	}
	for name, c := range map[string]string{
		"color_primary":   w.Visual.Primary,
		"color_secondary": w.Visual.Secondary,
		"color_accent":    w.Visual.Accent,
	} {
		if !hexColor.MatchString(c) {
			return eris.Wrapf(ErrInvalid, "%s must be a #rrggbb color, got %q", name, c)
		}
	}
	if !slices.Contains(ProductPresenceOptions, w.Production.ProductPresence) {
		return eris.Wrapf(ErrInvalid, "unknown product presence %q", w.Production.ProductPresence)
	}
	if !slices.Contains(TextOverlayOptions, w.Production.TextOverlay) {
		return eris.Wrapf(ErrInvalid, "unknown text overlay %q", w.Production.TextOverlay)
	}
	return nil
}
