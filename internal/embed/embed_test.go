package embed

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seanblong/interviewrag/internal/ai"
)

func init() {
	zerolog.SetGlobalLevel(zerolog.Disabled)
}

// MockEmbedder implements ai.Embedder for testing
type MockEmbedder struct {
	EmbedFunc func(ctx context.Context, texts []string) ([][]float32, error)
}

func (m *MockEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return m.EmbedFunc(ctx, texts)
}

func (m *MockEmbedder) Dim() int { return 2 }

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func TestEncode_OrderAndNormalization(t *testing.T) {
	var calls atomic.Int32
	mock := &MockEmbedder{EmbedFunc: func(ctx context.Context, texts []string) ([][]float32, error) {
		calls.Add(1)
		out := make([][]float32, len(texts))
		for i, s := range texts {
			var n float32
			_, _ = fmt.Sscanf(s, "t%f", &n)
			out[i] = []float32{n + 1, 3}
		}
		return out, nil
	}}

	texts := make([]string, 10)
	for i := range texts {
		texts[i] = fmt.Sprintf("t%d", i)
	}

	enc := NewEncoder(mock, 3, 3, time.Second)
	vecs, err := enc.Encode(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vecs, 10)
	assert.EqualValues(t, 4, calls.Load())

	for i, v := range vecs {
		assert.InDelta(t, 1.0, norm(v), 1e-5)
		want := Normalize([]float32{float32(i + 1), 3})
		assert.InDeltaSlice(t, want, v, 1e-6, "vector %d out of order", i)
	}
}

func TestEncode_PropagatesFailure(t *testing.T) {
	boom := errors.New("upstream down")
	mock := &MockEmbedder{EmbedFunc: func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, boom
	}}

	_, err := NewEncoder(mock, 2, 1, time.Second).Encode(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, boom)
}

func TestEncode_CountMismatch(t *testing.T) {
	mock := &MockEmbedder{EmbedFunc: func(ctx context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{1, 0}}, nil
	}}

	_, err := NewEncoder(mock, 1, 5, time.Second).Encode(context.Background(), []string{"a", "b"})
	assert.Error(t, err)
}

func TestEncode_Timeout(t *testing.T) {
	mock := &MockEmbedder{EmbedFunc: func(ctx context.Context, texts []string) ([][]float32, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}

	_, err := NewEncoder(mock, 1, 1, 10*time.Millisecond).Encode(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestEncode_Empty(t *testing.T) {
	vecs, err := NewEncoder(ai.NewHashEmbedder(8), 0, 0, 0).Encode(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
}

func TestEncode_NoClient(t *testing.T) {
	_, err := (&Encoder{}).Encode(context.Background(), []string{"a"})
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	v := Normalize([]float32{3, 4})
	assert.InDeltaSlice(t, []float32{0.6, 0.8}, v, 1e-6)
	assert.InDeltaSlice(t, v, Normalize(v), 1e-6, "idempotent")
	assert.Equal(t, []float32{0, 0}, Normalize([]float32{0, 0}))
}

func TestNewEncoder_Defaults(t *testing.T) {
	enc := NewEncoder(ai.NewHashEmbedder(8), 100, -1, 0)
	assert.Equal(t, 8, enc.Workers)
	assert.Equal(t, DefaultBatchSize, enc.BatchSize)
	assert.Equal(t, DefaultTimeout, enc.Timeout)
	assert.Equal(t, 8, enc.Dim())
}
