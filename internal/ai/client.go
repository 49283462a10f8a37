package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrMissingAPIKey is returned by providers that need a credential when none was configured.
var ErrMissingAPIKey = errors.New("PROVIDER_API_KEY unset")

// Embedder maps texts to vectors, one per input and in the same order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dim() int
}

// Generator returns the raw text completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Client provides both embedding and generation capabilities
type Client interface {
	Embedder
	Generator
}

// Provider is enumeration of supported AI providers
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderVertexAI  Provider = "vertexai"
	ProviderGemini    Provider = "gemini"
	ProviderAnthropic Provider = "anthropic"
	ProviderStub      Provider = "stub"
	// ProviderLocal is only valid as an embedding provider.
	ProviderLocal Provider = "local"
)

// ClientConfig holds configuration for AI clients
type ClientConfig struct {
	APIKey        string
	ChatModel     string
	EmbedModel    string
	Dim           int
	MaxTokens     int
	ProjectID     string
	Location      string
	BaseURL       string
	Provider      Provider
	EmbedProvider Provider
}

// StatusError is a non-2xx answer from an HTTP provider.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("provider returned status %d", e.Code)
	}
	return fmt.Sprintf("provider returned status %d: %s", e.Code, e.Message)
}

// NewClient creates a new AI client based on configuration. Generation comes
// from config.Provider; embeddings come from config.EmbedProvider, falling
// back to the generation provider or to local hashing when that provider
// has no embedding endpoint.
func NewClient(config *ClientConfig) (Client, error) {
	if config == nil {
		return nil, errors.New("client config is required")
	}

	ctx := context.Background()
	var gen Client
	switch config.Provider {
	case ProviderOpenAI:
		gen = NewOpenAIClient(config)
	case ProviderVertexAI, ProviderGemini:
		c, err := NewVertexAIClient(ctx, config)
		if errors.Is(err, ErrMissingAPIKey) {
			// keep the process up; calls fail until a key is configured
			gen = missingKeyClient{dim: config.Dim}
		} else if err != nil {
			return nil, err
		} else {
			gen = c
		}
	case ProviderAnthropic:
		gen = NewAnthropicClient(config)
	case ProviderStub:
		gen = NewStubClient(config.Dim)
	default:
		return nil, errors.New("unsupported provider: " + string(config.Provider))
	}

	switch config.EmbedProvider {
	case "", config.Provider:
		if config.Provider == ProviderAnthropic {
			return &composite{Embedder: NewHashEmbedder(config.Dim), Generator: gen}, nil
		}
		return gen, nil
	case ProviderLocal, ProviderStub:
		return &composite{Embedder: NewHashEmbedder(config.Dim), Generator: gen}, nil
	case ProviderOpenAI, ProviderVertexAI, ProviderGemini:
		embedCfg := *config
		embedCfg.Provider = config.EmbedProvider
		embedCfg.EmbedProvider = ""
		emb, err := NewClient(&embedCfg)
		if err != nil {
			return nil, err
		}
		return &composite{Embedder: emb, Generator: gen}, nil
	default:
		return nil, errors.New("unsupported embedding provider: " + string(config.EmbedProvider))
	}
}

type composite struct {
	Embedder
	Generator
}

type missingKeyClient struct{ dim int }

func (m missingKeyClient) Embed(context.Context, []string) ([][]float32, error) {
	return nil, ErrMissingAPIKey
}

func (m missingKeyClient) Generate(context.Context, string) (string, error) {
	return "", ErrMissingAPIKey
}

func (m missingKeyClient) Dim() int { return m.dim }

// StubClient is a stub implementation of the Client interface for testing
// and offline runs. Embeddings come from the local hashing embedder.
type StubClient struct {
	embedder *HashEmbedder
}

// NewStubClient creates a new StubClient
func NewStubClient(dim int) *StubClient {
	return &StubClient{embedder: NewHashEmbedder(dim)}
}

// Embed implements the embedding functionality
func (s *StubClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return s.embedder.Embed(ctx, texts)
}

// Generate returns a canned payload shaped like what the prompt asks for.
func (s *StubClient) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.Contains(prompt, "JSON object") {
		return "{}", nil
	}
	var b strings.Builder
	b.WriteString("```json\n[")
	for i := 1; i <= 10; i++ {
		if i > 1 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%q", fmt.Sprintf("Stub question %d: can you walk me through a relevant example?", i))
	}
	b.WriteString("]\n```")
	return b.String(), nil
}

// Dim returns the embedding dimension
func (s *StubClient) Dim() int {
	return s.embedder.Dim()
}
