package openai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/reciperag/internal/domain"
)

// ChatClient dispatches chat completions to one of the configured providers.
// Each provider exposes an identical OpenAI-compatible chat interface; the
// strategy table is fixed at construction, so an unknown provider is
// impossible past ParseModelChoice.
type ChatClient struct {
	clients map[domain.Provider]*openai.Client
	logger  *zap.Logger
}

// ChatProviderConfig holds one generation provider's connection settings.
type ChatProviderConfig struct {
	APIKey  string
	BaseURL string
}

// ChatConfig holds the generation provider table.
type ChatConfig struct {
	Providers map[domain.Provider]ChatProviderConfig
	Logger    *zap.Logger
}

// NewChatClient creates a generation client with one API client per provider.
func NewChatClient(cfg *ChatConfig) *ChatClient {
	clients := make(map[domain.Provider]*openai.Client, len(cfg.Providers))
	for prov, pc := range cfg.Providers {
		apiKey := pc.APIKey
		if apiKey == "" {
			// Local providers ignore the key, but the client requires one.
			apiKey = string(prov)
		}
		clientCfg := openai.DefaultConfig(apiKey)
		if pc.BaseURL != "" {
			clientCfg.BaseURL = pc.BaseURL
		}
		clients[prov] = openai.NewClientWithConfig(clientCfg)
	}
	return &ChatClient{clients: clients, logger: cfg.Logger}
}

// Generate sends a chat completion to the chosen provider and returns the
// answer text, token usage and wall-clock latency. Single attempt: transient
// upstream failures propagate as ErrGeneration with no retry or backoff.
func (c *ChatClient) Generate(
	ctx context.Context, choice domain.ModelChoice, messages []domain.Message,
) (domain.ChatResult, error) {
	client, ok := c.clients[choice.Provider()]
	if !ok {
		return domain.ChatResult{}, fmt.Errorf(
			"provider %q is not configured: %w", choice.Provider(), domain.ErrUnsupportedProvider,
		)
	}

	req := openai.ChatCompletionRequest{
		Model:    choice.Model(),
		Messages: toAPIMessages(messages),
	}

	start := time.Now()

	resp, err := client.CreateChatCompletion(ctx, req)

	latency := time.Since(start)

	if err != nil {
		return domain.ChatResult{}, parseAPIError(err, domain.ErrGeneration)
	}
	if len(resp.Choices) == 0 {
		return domain.ChatResult{}, fmt.Errorf("empty completion response: %w", domain.ErrGeneration)
	}

	if c.logger != nil {
		c.logger.Debug("chat completion",
			zap.String("model", choice.String()),
			zap.Duration("latency", latency),
			zap.Int("total_tokens", resp.Usage.TotalTokens),
		)
	}

	return domain.ChatResult{
		Answer: resp.Choices[0].Message.Content,
		Usage: domain.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		Latency: latency,
	}, nil
}

func toAPIMessages(messages []domain.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		out[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	return out
}
