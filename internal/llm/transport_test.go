package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/narrative-cli/internal/resilience"
)

func TestSDKFactory_OpenAIReasoningEndToEnd(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "high", req["reasoning_effort"])
		assert.EqualValues(t, 3000, req["max_completion_tokens"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"o3","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"[]"}}],"usage":{"prompt_tokens":3,"completion_tokens":1,"total_tokens":4}}`)) //nolint:errcheck
	}))
	defer ts.Close()

	g := NewGateway(SDKFactory(Endpoints{OpenAI: ts.URL}), nil)
	res := g.Invoke(context.Background(), Settings{Provider: ProviderOpenAI, Model: "o3", APIKey: "sk-test"}, Call{System: "s", User: "u", MaxTokens: 3000})
	require.True(t, res.OK(), res.Message())
	assert.Equal(t, "[]", res.Text)
	assert.False(t, res.Truncated)
	assert.Equal(t, int64(3), res.Usage.InputTokens)
}

func TestSDKFactory_AnthropicRateLimitIsTransient(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`)) //nolint:errcheck
	}))
	defer ts.Close()

	g := NewGateway(SDKFactory(Endpoints{Anthropic: ts.URL}), nil)
	res := g.Invoke(context.Background(), Settings{Provider: ProviderAnthropic, Model: "claude-sonnet-4-20250514", APIKey: "sk-ant-test"}, Call{User: "u", MaxTokens: 10})
	assert.Equal(t, OutcomeCallError, res.Outcome)
	assert.True(t, res.Transient)
	assert.Equal(t, http.StatusTooManyRequests, resilience.StatusCode(res.Err))
	assert.True(t, strings.Contains(res.Message(), "429") || strings.Contains(res.Message(), "slow down"))
}

func TestSDKFactory_AnthropicTokenBudgetReported(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"m1","type":"message","role":"assistant","model":"claude-sonnet-4-20250514","content":[{"type":"text","text":"{\"frames\": ["}],"stop_reason":"max_tokens","usage":{"input_tokens":5,"output_tokens":10}}`)) //nolint:errcheck
	}))
	defer ts.Close()

	g := NewGateway(SDKFactory(Endpoints{Anthropic: ts.URL}), nil)
	res := g.Invoke(context.Background(), Settings{Provider: ProviderAnthropic, Model: "claude-sonnet-4-20250514", APIKey: "sk-ant-test"}, Call{User: "u", MaxTokens: 10})
	require.True(t, res.OK(), res.Message())
	assert.True(t, res.Truncated)
	assert.Equal(t, `{"frames": [`, res.Text)
}

func TestSDKFactory_GoogleInstructionSlot(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Contains(t, req, "systemInstruction")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"ok\":true}"}]},"finishReason":"STOP"}]}`)) //nolint:errcheck
	}))
	defer ts.Close()

	g := NewGateway(SDKFactory(Endpoints{Google: ts.URL}), nil)
	res := g.Invoke(context.Background(), Settings{Provider: ProviderGoogle, Model: "gemini-2.5-flash", APIKey: "AItest"}, Call{System: "s", User: "u", MaxTokens: 100})
	require.True(t, res.OK(), res.Message())
	assert.Equal(t, `{"ok":true}`, res.Text)
}

func TestSDKFactory_UnknownProvider(t *testing.T) {
	_, err := SDKFactory(Endpoints{})(context.Background(), "Mistral", "k")
	assert.Error(t, err)
}
