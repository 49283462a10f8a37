package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestNewVertexAIClient_Configuration(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name          string
		config        *ClientConfig
		expectError   error
		expectedEmbed string
		expectedChat  string
		expectedDim   int
	}{
		{
			name:        "gemini backend without API key",
			config:      &ClientConfig{Provider: ProviderGemini},
			expectError: ErrMissingAPIKey,
		},
		{
			name: "gemini backend with all models specified",
			config: &ClientConfig{
				Provider:   ProviderGemini,
				APIKey:     "test-api-key",
				EmbedModel: "custom-embed-model",
				ChatModel:  "custom-chat-model",
				Dim:        1024,
			},
			expectedEmbed: "custom-embed-model",
			expectedChat:  "custom-chat-model",
			expectedDim:   1024,
		},
		{
			name: "gemini backend with default models",
			config: &ClientConfig{
				Provider: ProviderGemini,
				APIKey:   "test-api-key",
			},
			expectedEmbed: "text-embedding-004",
			expectedChat:  "gemini-2.5-flash-lite",
			expectedDim:   768,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewVertexAIClient(ctx, tt.config)
			if tt.expectError != nil {
				if !errors.Is(err, tt.expectError) {
					t.Fatalf("Expected error %v, got %v", tt.expectError, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if client.config.EmbedModel != tt.expectedEmbed {
				t.Errorf("Expected EmbedModel %q, got %q", tt.expectedEmbed, client.config.EmbedModel)
			}
			if client.config.ChatModel != tt.expectedChat {
				t.Errorf("Expected ChatModel %q, got %q", tt.expectedChat, client.config.ChatModel)
			}
			if client.Dim() != tt.expectedDim {
				t.Errorf("Expected Dim %d, got %d", tt.expectedDim, client.Dim())
			}
		})
	}
}

func TestNewVertexAIClient_NilConfig(t *testing.T) {
	_, err := NewVertexAIClient(context.Background(), nil)
	if err == nil || !strings.Contains(err.Error(), "config cannot be nil") {
		t.Errorf("Expected nil config error, got %v", err)
	}
}

func TestVertexAIClient_WithNilClient(t *testing.T) {
	client := &VertexAIClient{config: &ClientConfig{Dim: 768}}

	if _, err := client.Embed(context.Background(), []string{"x"}); err == nil {
		t.Error("Expected error embedding with nil client")
	}
	if _, err := client.Generate(context.Background(), "x"); err == nil {
		t.Error("Expected error generating with nil client")
	}
	if client.Dim() != 768 {
		t.Errorf("Expected Dim 768, got %d", client.Dim())
	}
}
