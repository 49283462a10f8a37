package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

type VertexAIClient struct {
	config *ClientConfig
	client *genai.Client
}

// NewVertexAIClient creates a client for Gemini, either through the Gemini
// API (ProviderGemini, API key required) or through Vertex AI.
func NewVertexAIClient(ctx context.Context, config *ClientConfig) (*VertexAIClient, error) {
	if config == nil {
		return nil, errors.New("config cannot be nil")
	}

	if config.EmbedModel == "" {
		config.EmbedModel = "text-embedding-004"
	}
	if config.ChatModel == "" {
		config.ChatModel = "gemini-2.5-flash-lite"
	}
	if config.Dim == 0 {
		config.Dim = 768
	}

	cc := genai.ClientConfig{
		Backend: genai.BackendVertexAI,
	}
	if config.Provider == ProviderGemini {
		if strings.TrimSpace(config.APIKey) == "" {
			return nil, ErrMissingAPIKey
		}
		cc.Backend = genai.BackendGeminiAPI
	} else if config.Location == "" && strings.TrimSpace(config.APIKey) == "" {
		config.Location = "us-central1"
	}

	if strings.TrimSpace(config.APIKey) != "" {
		cc.APIKey = config.APIKey
	}
	if cc.Backend == genai.BackendVertexAI {
		if strings.TrimSpace(config.ProjectID) != "" {
			cc.Project = config.ProjectID
		}
		if strings.TrimSpace(config.Location) != "" {
			cc.Location = config.Location
		}
	}

	client, err := genai.NewClient(ctx, &cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &VertexAIClient{
		config: config,
		client: client,
	}, nil
}

// Embed implements the embedding functionality using the Gemini API
func (c *VertexAIClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if c.client == nil {
		return nil, errors.New("gemini client not initialized")
	}
	if len(texts) == 0 {
		return nil, nil
	}

	dim := int32(c.config.Dim)
	cfg := genai.EmbedContentConfig{
		TaskType:             geminiTaskType(ctx),
		OutputDimensionality: &dim,
	}
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	res, err := c.client.Models.EmbedContent(ctx, c.config.EmbedModel, contents, &cfg)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	if res == nil || len(res.Embeddings) != len(texts) {
		return nil, errors.New("no embedding returned")
	}

	out := make([][]float32, len(texts))
	for i, e := range res.Embeddings {
		if e == nil {
			return nil, fmt.Errorf("embedding %d missing", i)
		}
		out[i] = e.Values
	}
	return out, nil
}

// Generate streams the completion and collects the text parts.
func (c *VertexAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	if c.client == nil {
		return "", errors.New("gemini client not initialized")
	}

	var cfg *genai.GenerateContentConfig
	if c.config.MaxTokens > 0 {
		cfg = &genai.GenerateContentConfig{MaxOutputTokens: int32(c.config.MaxTokens)}
	}

	var b strings.Builder
	for resp, err := range c.client.Models.GenerateContentStream(ctx, c.config.ChatModel, genai.Text(prompt), cfg) {
		if err != nil {
			return "", fmt.Errorf("generation failed: %w", err)
		}
		if resp == nil {
			continue
		}
		b.WriteString(resp.Text())
	}
	return b.String(), nil
}

func (c *VertexAIClient) Dim() int {
	return c.config.Dim
}
