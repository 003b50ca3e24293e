package pipeline

import (
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/sells-group/narrative-cli/internal/model"
	"github.com/sells-group/narrative-cli/internal/profile"
	"github.com/sells-group/narrative-cli/internal/scrape"
)

// Token budgets per stage.
const (
	researchMaxTokens   = 1024
	autofillMaxTokens   = 3000
	conceptsMaxTokens   = 3000
	storyboardMaxTokens = 8000
)

// Site excerpts embedded in prompts.
const (
	homeExcerptChars  = 5000
	aboutExcerptChars = 3000
	// Below this the homepage is treated as missing.
	minSiteChars = 100
)

const researchSystemPrompt = `You are a brand research analyst. Your job is to produce a structured brand profile.
Return ONLY a valid JSON object — no markdown fences, no commentary, no preamble. Just the raw JSON.
The JSON must have exactly these fields:
{
    "tagline": "brand tagline or slogan if found, empty string if unknown",
    "ethos": "1-2 sentence brand mission/ethos",
    "values": ["value1", "value2", "value3"],
    "anti_positioning": "what the brand explicitly is NOT or avoids being",
    "emotional_territory": "the core feeling/emotion the brand owns",
    "audience_description": "psychographic description of typical customer",
    "aesthetic_description": "visual style, color tendencies, design language",
    "price_tier": "budget / accessible / mid-range / premium / luxury",
    "notable_info": "any other relevant brand context",
    "confidence": "high / medium / low"
}
CRITICAL: Return ONLY the JSON object. No other text before or after it.`

const researchSitePrompt = `Analyze this brand and produce a structured profile.

Brand: %s
Website: %s
Category: %s

=== HOMEPAGE CONTENT ===
%s

=== ABOUT PAGE CONTENT ===
%s

Use the website content above as your primary source. Extract the tagline, values, aesthetic, and audience from what you can see. Set confidence to 'high' if the site gave you clear brand signals, 'medium' if partial.`

const researchKnowledgePrompt = `Analyze this brand and produce a structured profile based on your knowledge.

Brand: %s
Website: %s
Category: %s

If you know this brand, provide detailed information. If you don't recognize it, set confidence to 'low' and make reasonable inferences based on the category and name.`

const autofillSystemPrompt = `You are an expert brand strategist and creative director. Given a brand, you will fill out a complete creative brief for a 10-12 second brand messaging video.

Return ONLY a valid JSON object — no markdown fences, no commentary, no preamble. Just the raw JSON.

The JSON must have EXACTLY these fields:
{
    "brand_description": "1-2 sentence description of the brand — what they make and their vibe",
    "tagline": "brand tagline or slogan, empty string if unknown",
    "ethos": "1-2 sentence brand mission/ethos",
    "values": ["value1", "value2", "value3"],
    "anti_positioning": "what the brand explicitly is NOT or avoids being",
    "emotional_territory": "the core feeling/emotion the brand owns",
    "audience_description": "psychographic description of typical customer — lifestyle, not demographics",
    "aesthetic_description": "visual style, color tendencies, design language",
    "price_tier": "budget / accessible / mid-range / premium / luxury",
    "audience_lifestyle": "2-3 sentence psychographic portrait of the ideal customer — what they care about, how they discover brands, their relationship with the product category",
    "adjacent_brands": "3-5 brands the customer also loves, comma-separated",
    "platform": "Instagram Reels or TikTok or YouTube Shorts",
    "personality_exclusive_accessible": 50,
    "personality_serious_playful": 50,
    "personality_minimal_expressive": 50,
    "personality_classic_trendy": 50,
    "personality_loud_quiet": 50,
    "personality_luxury_everyday": 50,
    "emotion_feel_after": "2-3 sentences describing how someone should feel after watching the video — be specific and evocative, not generic",
    "emotion_reject": "1-2 sentences describing the feelings/vibes the brand explicitly rejects",
    "emotion_movie_scene": "A specific movie scene description — if this brand were a moment in a film, what would be happening? Be concrete and visual, not abstract",
    "visual_styles": ["id1", "id2"],
    "color_primary": "#hexcode",
    "color_secondary": "#hexcode",
    "color_accent": "#hexcode",
    "product_presence": "None — no product visible at all | Ambient — worn/used naturally, never the focus | Visible — clearly present but story-first",
    "text_overlay": "None — visuals only | Tagline at end only | Minimal text throughout (3-7 words max per overlay) | Text-heavy / typographic style",
    "audio_direction": "genre, mood, voiceover preference — be specific",
    "confidence": "high / medium / low"
}

PERSONALITY SLIDERS: Each is 0-100 where 0 is the first trait and 100 is the second trait.
- exclusive_accessible: 0=very exclusive, 100=very accessible
- serious_playful: 0=very serious, 100=very playful
- minimal_expressive: 0=very minimal, 100=very expressive
- classic_trendy: 0=very classic, 100=very trendy
- loud_quiet: 0=very loud, 100=very quiet
- luxury_everyday: 0=very luxury, 100=very everyday

VISUAL STYLES: Pick 2-4 from: cinematic, documentary, editorial, surreal, lofi, minimal, maximalist, vintage, neon, organic, graphic, luxe

COLOR PALETTE: Extract actual brand colors from the website content if possible. Use hex codes.

PRODUCT PRESENCE: Pick exactly one of the three options listed.
TEXT OVERLAY: Pick exactly one of the four options listed.

MOVIE SCENE: This is the most important creative field. Be SPECIFIC and CINEMATIC — describe a concrete scene with setting, action, characters, mood. Not abstract feelings, but what you'd actually SEE on screen.

CRITICAL: Return ONLY the JSON object. No other text before or after it.`

const autofillUserPrompt = `Fill out a complete creative brief for this brand:

Brand: %s
Website: %s
Category: %s
%s
%s

Be specific, creative, and insightful. Avoid generic filler. Every field should feel like it was written by someone who deeply understands this brand.`

// DefaultSystemPrompt is used for concept generation when no prompt file is
// configured or the file is missing.
const DefaultSystemPrompt = `You are a world-class creative director specializing in short-form brand messaging video narratives.
Follow the Hook → Shift → Payoff micro-narrative structure. Start with a human truth / tension, not a brand message.
The brand is never the hero. Content must pass the 'would someone share this without the brand?' test.
Push past generic first ideas. Specificity beats beauty. Tension beats tone.`

// DefaultStoryboardSystemPrompt is the storyboard fallback.
const DefaultStoryboardSystemPrompt = "You are a world-class creative director for short-form brand video."

const storyboardOutputRules = `

CRITICAL OUTPUT RULES:
- Return ONLY a valid JSON object. No markdown code fences. No commentary before or after.
- Do NOT wrap the response in ` + "```json```" + ` blocks.
- The response must start with { and end with }
- All string values must use double quotes and escape internal quotes properly.`

const conceptsUserPrompt = `Based on the following brand profile, generate exactly 3 narrative concepts for a 10-12 second brand messaging video.

BRAND PROFILE:
%s

%s

For each concept, provide:
1. CONCEPT TITLE — a working creative title
2. HUMAN TRUTH — the tension/insight driving the narrative (use the formula: "[Audience] are motivated by [X], but they experience [Y], creating a tension that [concept] resolves")
3. ONE-LINE SUMMARY — what literally HAPPENS in the video in one sentence
4. EMOTIONAL ARC — [Starting emotion] → [Shift] → [Resolution]
5. HOOK DESCRIPTION — what the viewer sees/hears in the first 2 seconds
6. WHY IT WORKS — 1-2 sentences on why this specific concept is right for this specific brand

Return ONLY a raw JSON array (no markdown code fences, no ` + "```json```" + `, no preamble, no explanation). Just the [ ... ] array.
Each object must have keys: title, human_truth, summary, emotional_arc, hook, rationale

CRITICAL: Do NOT generate generic concepts. No golden hour montages. No slow-motion smiling. No 'beautiful people doing beautiful things.' Each concept must have a specific, surprising, narratively coherent idea that could ONLY work for this brand.`

const storyboardUserPrompt = `Generate a COMPLETE storyboard for this brand and selected narrative concept.

BRAND PROFILE:
%s

SELECTED NARRATIVE CONCEPT:
%s

Produce a storyboard with:
- 5 detailed keyframes with timestamps, scene descriptions, camera, lighting, color, emotion, composition
- A style suffix for image generation consistency
- 5 complete image generation prompts
- 4 animation/transition prompts
- Anti-generic audit results
- Creative director notes

Return ONLY a raw JSON object (no markdown, no code fences, no preamble) with these keys:
{
  "style_suffix": "persistent style string for all keyframes",
  "keyframes": [
    {
      "timestamp": "0s",
      "narrative_beat": "HOOK",
      "scene_description": "...",
      "camera": "...",
      "lighting": "...",
      "color_palette": "...",
      "emotion": "...",
      "text_overlay": "none",
      "product_presence": "...",
      "composition_notes": "..."
    }
  ],
  "image_prompts": ["prompt 1", "prompt 2", "prompt 3", "prompt 4", "prompt 5"],
  "animation_prompts": [
    {
      "transition": "1→2",
      "motion_type": "...",
      "camera_motion": "...",
      "subject_motion": "...",
      "pacing": "...",
      "visual_transition": "...",
      "emotional_trajectory": "...",
      "audio_cue": "..."
    }
  ],
  "anti_generic_audit": {"all_passed": true, "notes": "..."},
  "creative_director_notes": "..."
}`

// LoadSystemPrompt reads the creative-director prompt from path. An empty
// path or unreadable file yields "".
func LoadSystemPrompt(path string) string {
	if path == "" {
		return ""
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			zap.L().Warn("pipeline: read system prompt", zap.String("path", path), zap.Error(err))
		}
		return ""
	}
	return string(b)
}

func researchPrompt(id model.BrandIdentity, pages scrape.Pages) string {
	if len([]rune(pages.Home)) <= minSiteChars {
		return fmt.Sprintf(researchKnowledgePrompt, id.Name, id.URL, id.Category)
	}
	about := "Not found"
	if pages.About != "" {
		about = excerpt(pages.About, aboutExcerptChars)
	}
	return fmt.Sprintf(researchSitePrompt, id.Name, id.URL, id.Category, excerpt(pages.Home, homeExcerptChars), about)
}

func autofillPrompt(id model.BrandIdentity, prior *model.ScrapedData, pages scrape.Pages) string {
	var scraped string
	if prior != nil {
		scraped = "\n=== PREVIOUSLY SCRAPED BRAND DATA ===\n" + indentJSON(prior)
	}
	var site string
	if len([]rune(pages.Home)) > minSiteChars {
		site = "\n=== HOMEPAGE CONTENT ===\n" + excerpt(pages.Home, homeExcerptChars)
		if pages.About != "" {
			site += "\n=== ABOUT PAGE CONTENT ===\n" + excerpt(pages.About, aboutExcerptChars)
		}
	}
	return fmt.Sprintf(autofillUserPrompt, id.Name, id.URL, id.Category, scraped, site)
}

func conceptsPrompt(p model.BrandProfile) string {
	return fmt.Sprintf(conceptsUserPrompt, indentJSON(p), profile.Framing(p.MaturityMode))
}

func storyboardPrompt(p model.BrandProfile, c model.NarrativeConcept) string {
	return fmt.Sprintf(storyboardUserPrompt, indentJSON(p), indentJSON(c))
}

func indentJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

func excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
