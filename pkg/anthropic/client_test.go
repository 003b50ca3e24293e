package anthropic

import (
	"context"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockClient implements Client for testing.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*MessageResponse), args.Error(1)
}

func TestCreateMessage_MockClient(t *testing.T) {
	client := new(MockClient)
	ctx := context.Background()

	req := MessageRequest{
		Model:     "claude-sonnet-4-20250514",
		MaxTokens: 1024,
		System:    "You are a brand analyst.",
		User:      "Research Aurora Skin",
	}
	client.On("CreateMessage", ctx, req).Return(&MessageResponse{
		ID:    "msg_1",
		Text:  `{"tagline": "Glow"}`,
		Usage: TokenUsage{InputTokens: 120, OutputTokens: 30},
	}, nil)

	resp, err := client.CreateMessage(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, `{"tagline": "Glow"}`, resp.Text)
	client.AssertExpectations(t)
}

func TestTruncated(t *testing.T) {
	assert.True(t, (&MessageResponse{StopReason: "max_tokens"}).Truncated())
	assert.False(t, (&MessageResponse{StopReason: "end_turn"}).Truncated())
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, 0, StatusCode(eris.New("dial tcp: refused")))
	assert.Equal(t, 429, StatusCode(eris.Wrap(&sdk.Error{StatusCode: 429}, "anthropic: create message")))
}

func TestFromSDKMessage_JoinsTextBlocks(t *testing.T) {
	msg := &sdk.Message{
		ID:         "msg_2",
		Model:      "claude-sonnet-4-20250514",
		StopReason: "end_turn",
		Content: []sdk.ContentBlockUnion{
			{Type: "thinking", Thinking: "hmm"},
			{Type: "text", Text: "[{\"title\": "},
			{Type: "text", Text: "\"A\"}]"},
		},
		Usage: sdk.Usage{InputTokens: 7, OutputTokens: 3},
	}
	resp := fromSDKMessage(msg)
	assert.Equal(t, `[{"title": "A"}]`, resp.Text)
	assert.Equal(t, "claude-sonnet-4-20250514", resp.Model)
	assert.Equal(t, int64(7), resp.Usage.InputTokens)
}
