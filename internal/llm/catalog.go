package llm

import (
	"slices"
	"strings"

	"github.com/rotisserie/eris"
)

// Provider names an LLM vendor.
type Provider string

const (
	ProviderAnthropic Provider = "Anthropic"
	ProviderOpenAI    Provider = "OpenAI"
	ProviderGoogle    Provider = "Google"
)

// Model is one selectable model of a provider.
type Model struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// ProviderInfo describes a provider for selection screens.
type ProviderInfo struct {
	Name           Provider `json:"name"`
	Models         []Model  `json:"models"`
	KeyPrefix      string   `json:"key_prefix"`
	KeyPlaceholder string   `json:"key_placeholder"`
	DocsURL        string   `json:"docs_url"`
}

// Providers lists every supported provider in display order. The first
// model of each provider is its default.
var Providers = []ProviderInfo{
	{
		Name: ProviderAnthropic,
		Models: []Model{
			{"claude-opus-4-6", "Claude Opus 4.6"},
			{"claude-opus-4-5-20250929", "Claude Opus 4.5"},
			{"claude-sonnet-4-5-20250929", "Claude Sonnet 4.5"},
			{"claude-sonnet-4-20250514", "Claude Sonnet 4"},
			{"claude-haiku-4-5-20251001", "Claude Haiku 4.5"},
		},
		KeyPrefix:      "sk-ant-",
		KeyPlaceholder: "sk-ant-api03-...",
		DocsURL:        "https://console.anthropic.com/settings/keys",
	},
	{
		Name: ProviderOpenAI,
		Models: []Model{
			{"gpt-5.2", "GPT-5.2"},
			{"gpt-5.1", "GPT-5.1"},
			{"gpt-5", "GPT-5"},
			{"gpt-4.1", "GPT-4.1"},
			{"gpt-4.1-mini", "GPT-4.1 mini"},
			{"gpt-4.1-nano", "GPT-4.1 nano"},
			{"o3", "o3"},
			{"o4-mini", "o4-mini"},
		},
		KeyPrefix:      "sk-",
		KeyPlaceholder: "sk-proj-...",
		DocsURL:        "https://platform.openai.com/api-keys",
	},
	{
		Name: ProviderGoogle,
		Models: []Model{
			{"gemini-2.5-pro", "Gemini 2.5 Pro"},
			{"gemini-2.5-flash", "Gemini 2.5 Flash"},
			{"gemini-2.0-flash", "Gemini 2.0 Flash"},
		},
		KeyPrefix:      "AI",
		KeyPlaceholder: "AIzaSy...",
		DocsURL:        "https://aistudio.google.com/apikey",
	},
}

// Default provider and model for new sessions.
const (
	DefaultProvider = ProviderAnthropic
	DefaultModel    = "claude-sonnet-4-20250514"
)

// ErrUnknownProvider is returned for providers outside the catalog.
var ErrUnknownProvider = eris.New("unknown provider")

// ErrUnknownModel is returned for models the provider does not offer.
var ErrUnknownModel = eris.New("unknown model")

// LookupProvider finds a provider by name, case-insensitively.
func LookupProvider(name string) (ProviderInfo, bool) {
	for _, p := range Providers {
		if strings.EqualFold(string(p.Name), name) {
			return p, true
		}
	}
	return ProviderInfo{}, false
}

// HasModel reports whether the provider offers the model id.
func (p ProviderInfo) HasModel(id string) bool {
	return slices.ContainsFunc(p.Models, func(m Model) bool { return m.ID == id })
}

// Settings selects a provider, model and credential. The gateway reads
// Settings and never mutates them. APIKey is never serialized.
type Settings struct {
	Provider Provider `json:"provider" mapstructure:"provider"`
	Model    string   `json:"model" mapstructure:"model"`
	APIKey   string   `json:"-" mapstructure:"api_key"`
}

// DefaultSettings returns the settings a new session starts with.
func DefaultSettings() Settings {
	return Settings{Provider: DefaultProvider, Model: DefaultModel}
}

// Validate checks provider and model against the catalog.
func (s Settings) Validate() error {
	p, ok := LookupProvider(string(s.Provider))
	if !ok {
		return eris.Wrapf(ErrUnknownProvider, "%q", s.Provider)
	}
	if !p.HasModel(s.Model) {
		return eris.Wrapf(ErrUnknownModel, "%q for %s", s.Model, p.Name)
	}
	return nil
}

// WithProvider switches provider. Switching to a different provider resets
// the model to that provider's default and clears the key, since neither
// carries over between vendors.
func (s Settings) WithProvider(name Provider) (Settings, error) {
	p, ok := LookupProvider(string(name))
	if !ok {
		return s, eris.Wrapf(ErrUnknownProvider, "%q", name)
	}
	if p.Name == s.Provider {
		return s, nil
	}
	return Settings{Provider: p.Name, Model: p.Models[0].ID}, nil
}

// KeyLooksValid reports whether key carries the provider's usual prefix.
// It is a hint for the UI only.
func (s Settings) KeyLooksValid() bool {
	p, ok := LookupProvider(string(s.Provider))
	if !ok || s.APIKey == "" {
		return false
	}
	return strings.HasPrefix(s.APIKey, p.KeyPrefix)
}
