package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicClient generates with Claude models. It has no embedding
// endpoint; NewClient pairs it with the local hashing embedder.
type AnthropicClient struct {
	config *ClientConfig
	client anthropic.Client
}

func NewAnthropicClient(config *ClientConfig) *AnthropicClient {
	if config.ChatModel == "" {
		config.ChatModel = "claude-3-5-haiku-latest"
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = 4096
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		// retries are handled by WithLimits
		option.WithMaxRetries(0),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	return &AnthropicClient{
		config: config,
		client: anthropic.NewClient(opts...),
	}
}

func (c *AnthropicClient) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(c.config.APIKey) == "" {
		return "", ErrMissingAPIKey
	}

	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.config.ChatModel),
		MaxTokens: int64(c.config.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("claude generation failed: %w", err)
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", errors.New("no text returned")
	}
	return b.String(), nil
}

func (c *AnthropicClient) Embed(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("anthropic provider has no embedding endpoint")
}

func (c *AnthropicClient) Dim() int { return 0 }
