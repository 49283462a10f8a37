package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"google.golang.org/genai"
)

// MockClient implements Client with swappable funcs
type MockClient struct {
	EmbedFunc    func(ctx context.Context, texts []string) ([][]float32, error)
	GenerateFunc func(ctx context.Context, prompt string) (string, error)
	DimFunc      func() int
}

func (m *MockClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if m.EmbedFunc != nil {
		return m.EmbedFunc(ctx, texts)
	}
	return nil, nil
}

func (m *MockClient) Generate(ctx context.Context, prompt string) (string, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt)
	}
	return "", nil
}

func (m *MockClient) Dim() int {
	if m.DimFunc != nil {
		return m.DimFunc()
	}
	return 3
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("boom"), false},
		{"status 429", &StatusError{Code: 429}, true},
		{"status 503 wrapped", fmt.Errorf("call: %w", &StatusError{Code: 503}), true},
		{"status 400", &StatusError{Code: 400}, false},
		{"genai 500", genai.APIError{Code: 500}, true},
		{"genai 404", genai.APIError{Code: 404}, false},
		{"deadline", context.DeadlineExceeded, false},
		{"missing key", ErrMissingAPIKey, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Retryable(tt.err); got != tt.want {
				t.Errorf("Retryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestWithLimits_RetriesTransientFailures(t *testing.T) {
	calls := 0
	mock := &MockClient{
		GenerateFunc: func(ctx context.Context, prompt string) (string, error) {
			calls++
			if calls < 3 {
				return "", &StatusError{Code: 503}
			}
			return "ok", nil
		},
	}

	c := WithLimits(mock, Limits{MaxRetries: 3, InitialBackoff: time.Millisecond})
	out, err := c.Generate(context.Background(), "p")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if out != "ok" || calls != 3 {
		t.Errorf("Expected ok after 3 calls, got %q after %d", out, calls)
	}
}

func TestWithLimits_StopsOnPermanentFailure(t *testing.T) {
	calls := 0
	mock := &MockClient{
		EmbedFunc: func(ctx context.Context, texts []string) ([][]float32, error) {
			calls++
			return nil, ErrMissingAPIKey
		},
	}

	c := WithLimits(mock, Limits{MaxRetries: 5, InitialBackoff: time.Millisecond})
	if _, err := c.Embed(context.Background(), []string{"a"}); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("Expected ErrMissingAPIKey, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected a single call, got %d", calls)
	}
}

func TestWithLimits_GivesUpAfterMaxRetries(t *testing.T) {
	calls := 0
	mock := &MockClient{
		GenerateFunc: func(ctx context.Context, prompt string) (string, error) {
			calls++
			return "", &StatusError{Code: 429}
		},
	}

	c := WithLimits(mock, Limits{MaxRetries: 2, InitialBackoff: time.Millisecond})
	_, err := c.Generate(context.Background(), "p")
	var se *StatusError
	if !errors.As(err, &se) || se.Code != 429 {
		t.Fatalf("Expected StatusError 429, got %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls (1 + 2 retries), got %d", calls)
	}
	if c.Dim() != 3 {
		t.Errorf("Expected Dim passthrough, got %d", c.Dim())
	}
}
