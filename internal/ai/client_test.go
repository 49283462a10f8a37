package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
)

// Test Provider constants
func TestProviderConstants(t *testing.T) {
	tests := []struct {
		provider Provider
		expected string
	}{
		{ProviderOpenAI, "openai"},
		{ProviderVertexAI, "vertexai"},
		{ProviderGemini, "gemini"},
		{ProviderAnthropic, "anthropic"},
		{ProviderStub, "stub"},
		{ProviderLocal, "local"},
	}

	for _, tt := range tests {
		t.Run(string(tt.provider), func(t *testing.T) {
			if string(tt.provider) != tt.expected {
				t.Errorf("Provider constant mismatch. Expected: %s, Got: %s", tt.expected, string(tt.provider))
			}
		})
	}
}

// Test NewClient function
func TestNewClient(t *testing.T) {
	tests := []struct {
		name        string
		config      *ClientConfig
		expectError bool
		errorMsg    string
		clientType  string
	}{
		{
			name:        "nil config",
			config:      nil,
			expectError: true,
			errorMsg:    "client config is required",
		},
		{
			name: "openai provider",
			config: &ClientConfig{
				Provider: ProviderOpenAI,
				APIKey:   "test-key",
				Dim:      512,
			},
			clientType: "*ai.OpenAIClient",
		},
		{
			name: "gemini provider without key keeps running",
			config: &ClientConfig{
				Provider: ProviderGemini,
			},
			clientType: "ai.missingKeyClient",
		},
		{
			name: "anthropic provider pairs with local embeddings",
			config: &ClientConfig{
				Provider: ProviderAnthropic,
				APIKey:   "test-key",
			},
			clientType: "*ai.composite",
		},
		{
			name: "stub provider",
			config: &ClientConfig{
				Provider: ProviderStub,
				Dim:      256,
			},
			clientType: "*ai.StubClient",
		},
		{
			name: "local embeddings with openai generation",
			config: &ClientConfig{
				Provider:      ProviderOpenAI,
				EmbedProvider: ProviderLocal,
				APIKey:        "test-key",
			},
			clientType: "*ai.composite",
		},
		{
			name: "unsupported provider",
			config: &ClientConfig{
				Provider: "unsupported",
			},
			expectError: true,
			errorMsg:    "unsupported provider: unsupported",
		},
		{
			name: "unsupported embedding provider",
			config: &ClientConfig{
				Provider:      ProviderStub,
				EmbedProvider: "bogus",
			},
			expectError: true,
			errorMsg:    "unsupported embedding provider: bogus",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.config)

			if tt.expectError {
				if err == nil {
					t.Error("Expected error but got none")
					return
				}
				if tt.errorMsg != "" && !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error containing '%s', got '%s'", tt.errorMsg, err.Error())
				}
				return
			}

			if err != nil {
				t.Errorf("Unexpected error: %v", err)
				return
			}
			if got := fmt.Sprintf("%T", client); got != tt.clientType {
				t.Errorf("Expected client type %s, got %s", tt.clientType, got)
			}
		})
	}
}

func TestMissingKeyClient(t *testing.T) {
	client, err := NewClient(&ClientConfig{Provider: ProviderGemini, Dim: 768})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	if _, err := client.Generate(context.Background(), "hello"); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("Expected ErrMissingAPIKey from Generate, got %v", err)
	}
	if _, err := client.Embed(context.Background(), []string{"hello"}); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("Expected ErrMissingAPIKey from Embed, got %v", err)
	}
	if client.Dim() != 768 {
		t.Errorf("Expected Dim 768, got %d", client.Dim())
	}
}

func TestNewStubClient(t *testing.T) {
	tests := []struct {
		name     string
		dim      int
		expected int
	}{
		{"default dimension", 0, DefaultHashDim},
		{"custom dimension", 128, 128},
		{"negative dimension", -5, DefaultHashDim},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewStubClient(tt.dim)
			if client.Dim() != tt.expected {
				t.Errorf("Expected Dim %d, got %d", tt.expected, client.Dim())
			}
		})
	}
}

func TestStubClient_Generate(t *testing.T) {
	client := NewStubClient(16)

	tests := []struct {
		name     string
		prompt   string
		contains string
	}{
		{"object prompt", "Return ONLY a single JSON object", "{}"},
		{"array prompt", "Return ONLY a JSON array of strings", "Stub question 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := client.Generate(context.Background(), tt.prompt)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !strings.Contains(out, tt.contains) {
				t.Errorf("Expected output to contain %q, got %q", tt.contains, out)
			}
		})
	}
}

func TestStubClient_GenerateWithCancelledContext(t *testing.T) {
	client := NewStubClient(16)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := client.Generate(ctx, "anything"); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestClientInterfaceCompliance(t *testing.T) {
	var _ Client = (*StubClient)(nil)
	var _ Client = (*OpenAIClient)(nil)
	var _ Client = (*VertexAIClient)(nil)
	var _ Client = (*AnthropicClient)(nil)
	var _ Client = (*composite)(nil)
	var _ Client = missingKeyClient{}
	var _ Embedder = (*HashEmbedder)(nil)
}

func TestStubClientConcurrency(t *testing.T) {
	client := NewStubClient(64)
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			vecs, err := client.Embed(context.Background(), []string{fmt.Sprintf("text %d", i)})
			if err != nil {
				t.Errorf("Embed failed: %v", err)
				return
			}
			if len(vecs) != 1 || len(vecs[0]) != 64 {
				t.Errorf("Unexpected embedding shape: %d", len(vecs))
			}
		}(i)
	}
	wg.Wait()
}

func TestStatusError(t *testing.T) {
	if got := (&StatusError{Code: 429}).Error(); got != "provider returned status 429" {
		t.Errorf("Unexpected message: %q", got)
	}
	if got := (&StatusError{Code: 400, Message: "bad"}).Error(); got != "provider returned status 400: bad" {
		t.Errorf("Unexpected message: %q", got)
	}
}
