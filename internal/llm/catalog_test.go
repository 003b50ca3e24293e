package llm

import (
	"encoding/json"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettingsValid(t *testing.T) {
	s := DefaultSettings()
	require.NoError(t, s.Validate())
	assert.Equal(t, ProviderAnthropic, s.Provider)
	assert.Equal(t, "claude-sonnet-4-20250514", s.Model)
}

func TestSettingsValidate(t *testing.T) {
	err := Settings{Provider: "Cohere", Model: "x"}.Validate()
	assert.True(t, eris.Is(err, ErrUnknownProvider))

	err = Settings{Provider: ProviderOpenAI, Model: "claude-opus-4-6"}.Validate()
	assert.True(t, eris.Is(err, ErrUnknownModel))

	assert.NoError(t, Settings{Provider: ProviderGoogle, Model: "gemini-2.5-flash"}.Validate())
}

func TestWithProviderResetsModelAndKey(t *testing.T) {
	s := Settings{Provider: ProviderAnthropic, Model: "claude-opus-4-6", APIKey: "sk-ant-1"}

	next, err := s.WithProvider(ProviderOpenAI)
	require.NoError(t, err)
	assert.Equal(t, Settings{Provider: ProviderOpenAI, Model: "gpt-5.2"}, next)

	same, err := s.WithProvider(ProviderAnthropic)
	require.NoError(t, err)
	assert.Equal(t, s, same)

	_, err = s.WithProvider("Nope")
	assert.Error(t, err)
}

func TestLookupProviderCaseInsensitive(t *testing.T) {
	p, ok := LookupProvider("google")
	require.True(t, ok)
	assert.Equal(t, ProviderGoogle, p.Name)
	assert.True(t, p.HasModel("gemini-2.0-flash"))
	assert.False(t, p.HasModel("gpt-5"))
}

func TestKeyLooksValid(t *testing.T) {
	assert.True(t, Settings{Provider: ProviderAnthropic, APIKey: "sk-ant-api03-x"}.KeyLooksValid())
	assert.False(t, Settings{Provider: ProviderAnthropic, APIKey: "sk-proj-x"}.KeyLooksValid())
	assert.True(t, Settings{Provider: ProviderGoogle, APIKey: "AIzaSy"}.KeyLooksValid())
	assert.False(t, Settings{Provider: ProviderOpenAI}.KeyLooksValid())
}

func TestSettingsNeverSerializeKey(t *testing.T) {
	b, err := json.Marshal(Settings{Provider: ProviderOpenAI, Model: "o3", APIKey: "sk-secret"})
	require.NoError(t, err)
	assert.NotContains(t, string(b), "sk-secret")
}

func TestResolveConvention(t *testing.T) {
	assert.Equal(t, ConventionReasoning, ResolveConvention(ProviderOpenAI, "o4-mini"))
	assert.Equal(t, ConventionReasoning, ResolveConvention(ProviderOpenAI, "gpt-5"))
	assert.Equal(t, ConventionStandard, ResolveConvention(ProviderOpenAI, "gpt-4.1"))
	assert.Equal(t, ConventionInstructionSlot, ResolveConvention(ProviderGoogle, "gemini-2.5-flash"))
	assert.Equal(t, ConventionStandard, ResolveConvention(ProviderAnthropic, "claude-opus-4-6"))
	assert.Equal(t, "reasoning", ConventionReasoning.String())
}
