package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/Chative-core-poc-v1/actionserver/internal/config"
	logx "github.com/Chative-core-poc-v1/actionserver/pkg/logger"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// ChatRequest carries one prompt and the hyperparameters to apply to it.
type ChatRequest struct {
	Model       string
	Temperature float32
	MaxTokens   int
	TopP        float32
	Messages    []*schema.Message
}

// Completion is the model reply plus accounting.
type Completion struct {
	Content    string
	Model      string
	Usage      *schema.TokenUsage
	InputCost  float64
	OutputCost float64
	Cost       float64
}

type Chatter interface {
	Chat(ctx context.Context, req ChatRequest) (*Completion, error)
}

type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Client runs chat requests through a compiled eino chain.
type Client struct {
	runnable compose.Runnable[[]*schema.Message, *schema.Message]
	model    string
}

// NewClient compiles a single-node chain around the given chat model.
func NewClient(ctx context.Context, cm model.BaseChatModel, defaultModel string) (*Client, error) {
	chain := compose.NewChain[[]*schema.Message, *schema.Message]().
		AppendChatModel(cm, compose.WithNodeName("prompt_action_llm"))
	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile llm chain: %w", err)
	}
	return &Client{runnable: runnable, model: defaultModel}, nil
}

// NewFromConfig builds the chat client for the configured provider.
func NewFromConfig(ctx context.Context, cfg config.LLMConfig) (*Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI:
		return NewClient(ctx, NewOpenAIChat(cfg.APIKey, cfg.BaseURL, cfg.ChatModel), cfg.ChatModel)
	case ProviderGemini, "":
		cm, err := NewGeminiChat(ctx, cfg.APIKey, cfg.BaseURL, cfg.ChatModel)
		if err != nil {
			return nil, err
		}
		return NewClient(ctx, cm, cfg.ChatModel)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
}

// NewEmbedderFromConfig falls back to the chat credentials when no embedding key is set.
func NewEmbedderFromConfig(cfg config.LLMConfig) *OpenAIEmbedder {
	key, url := cfg.EmbeddingKey, cfg.EmbeddingURL
	if key == "" {
		key, url = cfg.APIKey, cfg.BaseURL
	}
	return NewOpenAIEmbedder(key, url, cfg.EmbeddingModel)
}

func NewGeminiChat(ctx context.Context, apiKey, baseURL, defaultModel string) (*gemini.ChatModel, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		clientCfg.HTTPOptions.BaseURL = baseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	cm, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client: client,
		Model:  defaultModel,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini chat model")
		return nil, fmt.Errorf("error creating Gemini chat model: %w", err)
	}
	return cm, nil
}

func (c *Client) Chat(ctx context.Context, req ChatRequest) (*Completion, error) {
	modelName := req.Model
	if modelName == "" {
		modelName = c.model
	}
	opts := []model.Option{model.WithModel(modelName)}
	if req.Temperature > 0 {
		opts = append(opts, model.WithTemperature(req.Temperature))
	}
	if req.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(req.MaxTokens))
	}
	if req.TopP > 0 {
		opts = append(opts, model.WithTopP(req.TopP))
	}

	out, err := c.runnable.Invoke(ctx, req.Messages,
		compose.WithCallbacks(Callbacks()),
		compose.WithChatModelOption(opts...),
	)
	if err != nil {
		return nil, fmt.Errorf("llm invoke: %w", err)
	}

	res := &Completion{Content: out.Content, Model: modelName}
	if out.ResponseMeta != nil && out.ResponseMeta.Usage != nil {
		usage := out.ResponseMeta.Usage
		res.Usage = usage
		res.InputCost, res.OutputCost, res.Cost = ComputeCost(usage, ResolvePricing(modelName))
		logx.Debug().
			Str("model", modelName).
			Int("prompt_tokens", usage.PromptTokens).
			Int("completion_tokens", usage.CompletionTokens).
			Int("total_tokens", usage.TotalTokens).
			Float64("cost_input_usd", res.InputCost).
			Float64("cost_output_usd", res.OutputCost).
			Float64("cost_total_usd", res.Cost).
			Msg("LLM usage")
	}
	return res, nil
}

// UsageLog is the shape written into the prompt action's audit record.
func (c *Completion) UsageLog() map[string]any {
	if c == nil || c.Usage == nil {
		return map[string]any{"model": ""}
	}
	return map[string]any{
		"model":             c.Model,
		"prompt_tokens":     c.Usage.PromptTokens,
		"completion_tokens": c.Usage.CompletionTokens,
		"total_tokens":      c.Usage.TotalTokens,
		"cost": map[string]any{
			"input_usd":  c.InputCost,
			"output_usd": c.OutputCost,
			"total_usd":  c.Cost,
		},
	}
}
