package llm

import (
	"context"
	"errors"

	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	openaisdk "github.com/openai/openai-go/v3"
	openaiopt "github.com/openai/openai-go/v3/option"
	"github.com/rotisserie/eris"
	"google.golang.org/genai"

	"github.com/sells-group/narrative-cli/internal/resilience"
	"github.com/sells-group/narrative-cli/pkg/anthropic"
	"github.com/sells-group/narrative-cli/pkg/gemini"
	"github.com/sells-group/narrative-cli/pkg/openai"
)

// Endpoints overrides provider base URLs. Empty fields use the SDK default.
type Endpoints struct {
	Anthropic string `yaml:"anthropic" mapstructure:"anthropic"`
	OpenAI    string `yaml:"openai" mapstructure:"openai"`
	Google    string `yaml:"google" mapstructure:"google"`
}

// SDKFactory returns a TransportFactory backed by the official SDKs.
func SDKFactory(endpoints Endpoints) TransportFactory {
	return func(ctx context.Context, provider Provider, apiKey string) (Transport, error) {
		switch provider {
		case ProviderAnthropic:
			var opts []anthropicopt.RequestOption
			if endpoints.Anthropic != "" {
				opts = append(opts, anthropicopt.WithBaseURL(endpoints.Anthropic))
			}
			return &anthropicTransport{client: anthropic.NewClient(apiKey, opts...)}, nil
		case ProviderOpenAI:
			var opts []openaiopt.RequestOption
			if endpoints.OpenAI != "" {
				opts = append(opts, openaiopt.WithBaseURL(endpoints.OpenAI))
			}
			return &openaiTransport{client: openai.NewClient(apiKey, opts...)}, nil
		case ProviderGoogle:
			c, err := gemini.NewClient(ctx, apiKey, endpoints.Google)
			if err != nil {
				return nil, err
			}
			return &geminiTransport{client: c}, nil
		}
		return nil, eris.Wrapf(ErrUnknownProvider, "%q", provider)
	}
}

type anthropicTransport struct {
	client anthropic.Client
}

func (t *anthropicTransport) Complete(ctx context.Context, req Request) (*Response, error) {
	resp, err := t.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     req.Model,
		System:    req.System,
		User:      req.User,
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		if code := anthropic.StatusCode(err); code != 0 {
			return nil, resilience.FromStatus(err, code)
		}
		return nil, err
	}
	return &Response{
		Text:      resp.Text,
		Model:     resp.Model,
		Usage:     Usage{InputTokens: resp.Usage.InputTokens, OutputTokens: resp.Usage.OutputTokens},
		Truncated: resp.Truncated(),
	}, nil
}

type openaiTransport struct {
	client openai.Client
}

func (t *openaiTransport) Complete(ctx context.Context, req Request) (*Response, error) {
	resp, err := t.client.CreateChatCompletion(ctx, openai.ChatRequest{
		Model:     req.Model,
		System:    req.System,
		User:      req.User,
		MaxTokens: req.MaxTokens,
		Reasoning: req.Convention == ConventionReasoning,
	})
	if err != nil {
		var apiErr *openaisdk.Error
		if errors.As(err, &apiErr) {
			return nil, resilience.FromStatus(err, apiErr.StatusCode)
		}
		return nil, err
	}
	return &Response{
		Text:      resp.Content,
		Model:     resp.Model,
		Usage:     Usage{InputTokens: resp.Usage.PromptTokens, OutputTokens: resp.Usage.CompletionTokens},
		Truncated: resp.FinishReason == "length",
	}, nil
}

type geminiTransport struct {
	client gemini.Client
}

func (t *geminiTransport) Complete(ctx context.Context, req Request) (*Response, error) {
	resp, err := t.client.GenerateContent(ctx, gemini.GenerateRequest{
		Model:           req.Model,
		System:          req.System,
		User:            req.User,
		MaxOutputTokens: int32(req.MaxTokens),
	})
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return nil, resilience.FromStatus(err, apiErr.Code)
		}
		return nil, err
	}
	return &Response{
		Text:      resp.Text,
		Model:     resp.Model,
		Usage:     Usage{InputTokens: resp.Usage.PromptTokens, OutputTokens: resp.Usage.CandidateTokens},
		Truncated: resp.FinishReason == string(genai.FinishReasonMaxTokens),
	}, nil
}
