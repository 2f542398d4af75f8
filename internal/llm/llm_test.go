package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChat struct {
	reply   *schema.Message
	err     error
	gotOpts *model.Options
	gotIn   []*schema.Message
}

func (s *stubChat) Generate(_ context.Context, in []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	s.gotIn = in
	s.gotOpts = model.GetCommonOptions(&model.Options{}, opts...)
	return s.reply, s.err
}

func (s *stubChat) Stream(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := s.Generate(ctx, in, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func TestChatAppliesHyperparametersAndCost(t *testing.T) {
	t.Parallel()

	stub := &stubChat{reply: &schema.Message{
		Role:    schema.Assistant,
		Content: "Paris",
		ResponseMeta: &schema.ResponseMeta{Usage: &schema.TokenUsage{
			PromptTokens: 1_000_000, CompletionTokens: 1_000_000, TotalTokens: 2_000_000,
		}},
	}}
	c, err := NewClient(context.Background(), stub, "gpt-4o-mini")
	require.NoError(t, err)

	res, err := c.Chat(context.Background(), ChatRequest{
		Temperature: 0.2,
		MaxTokens:   64,
		Messages:    []*schema.Message{schema.SystemMessage("be brief"), schema.UserMessage("capital of France?")},
	})
	require.NoError(t, err)

	assert.Equal(t, "Paris", res.Content)
	assert.Equal(t, "gpt-4o-mini", res.Model)
	assert.InDelta(t, 0.75, res.Cost, 1e-9)
	require.NotNil(t, stub.gotOpts.Temperature)
	assert.InDelta(t, 0.2, *stub.gotOpts.Temperature, 1e-6)
	require.NotNil(t, stub.gotOpts.MaxTokens)
	assert.Equal(t, 64, *stub.gotOpts.MaxTokens)
	assert.Nil(t, stub.gotOpts.TopP)
	assert.Len(t, stub.gotIn, 2)
	assert.Equal(t, 2_000_000, res.UsageLog()["total_tokens"])
}

func TestChatPropagatesModelError(t *testing.T) {
	t.Parallel()

	c, err := NewClient(context.Background(), &stubChat{err: errors.New("quota")}, "gemini-2.5-flash")
	require.NoError(t, err)

	_, err = c.Chat(context.Background(), ChatRequest{Messages: []*schema.Message{schema.UserMessage("hi")}})
	assert.ErrorContains(t, err, "quota")
}

func TestComputeCostUnknownModel(t *testing.T) {
	t.Parallel()

	in, out, total := ComputeCost(&schema.TokenUsage{PromptTokens: 10, CompletionTokens: 10}, ResolvePricing("nope"))
	assert.Zero(t, in)
	assert.Zero(t, out)
	assert.Zero(t, total)
}

func TestHistoryKeepsLastTurnsAndCollapsesDuplicates(t *testing.T) {
	t.Parallel()

	log := []map[string]any{
		{"user": "hi"},
		{"bot": "hello"},
		{"user": "price?"},
		{"user": "price?"},
		{"bot": "10 USD"},
		{"user": "thanks"},
		{"bot": "welcome"},
	}
	got := History(log, 2)
	require.Len(t, got, 4)
	assert.Equal(t, "price?", got[0].Content)
	assert.Equal(t, schema.User, got[0].Role)
	assert.Equal(t, "10 USD", got[1].Content)
	assert.Equal(t, "welcome", got[3].Content)
	assert.Equal(t, schema.Assistant, got[3].Role)

	assert.Nil(t, History(log, 0))
}
