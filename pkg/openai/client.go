// Package openai wraps the official OpenAI Go SDK behind the small surface
// the gateway needs: one chat completion per call.
package openai

import (
	"context"

	sdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"github.com/rotisserie/eris"
)

// Client defines the OpenAI API operations used by the gateway.
type Client interface {
	CreateChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ChatRequest is a single-turn chat completion request.
//
// Reasoning models take instructions as a developer message, a high
// reasoning effort and a max_completion_tokens budget. Other models take a
// system message and max_tokens.
type ChatRequest struct {
	Model     string
	System    string
	User      string
	MaxTokens int64
	Reasoning bool
}

// ChatResponse is the first choice of a completion.
type ChatResponse struct {
	ID           string
	Model        string
	Content      string
	FinishReason string
	Usage        TokenUsage
}

// TokenUsage tracks token consumption.
type TokenUsage struct {
	PromptTokens     int64
	CompletionTokens int64
}

type sdkClient struct {
	client sdk.Client
}

// NewClient creates an OpenAI client with SDK retries disabled.
func NewClient(apiKey string, opts ...option.RequestOption) Client {
	base := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	return &sdkClient{client: sdk.NewClient(append(base, opts...)...)}
}

func (c *sdkClient) CreateChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	resp, err := c.client.Chat.Completions.New(ctx, toParams(req))
	if err != nil {
		return nil, eris.Wrap(err, "openai: create chat completion")
	}
	if len(resp.Choices) == 0 {
		return nil, eris.New("openai: no choices in response")
	}

	choice := resp.Choices[0]
	return &ChatResponse{
		ID:           resp.ID,
		Model:        resp.Model,
		Content:      choice.Message.Content,
		FinishReason: choice.FinishReason,
		Usage: TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

func toParams(req ChatRequest) sdk.ChatCompletionNewParams {
	params := sdk.ChatCompletionNewParams{
		Model: sdk.ChatModel(req.Model),
	}
	if req.Reasoning {
		params.Messages = []sdk.ChatCompletionMessageParamUnion{
			sdk.DeveloperMessage(req.System),
			sdk.UserMessage(req.User),
		}
		params.ReasoningEffort = shared.ReasoningEffortHigh
		params.MaxCompletionTokens = sdk.Int(req.MaxTokens)
		return params
	}
	params.Messages = []sdk.ChatCompletionMessageParamUnion{
		sdk.SystemMessage(req.System),
		sdk.UserMessage(req.User),
	}
	params.MaxTokens = sdk.Int(req.MaxTokens)
	return params
}
