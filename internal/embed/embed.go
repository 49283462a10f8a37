// Package embed turns texts into unit-length vectors using a provider
// Embedder, fanning large inputs out over a bounded pool of workers.
package embed

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/seanblong/interviewrag/internal/ai"
)

const (
	DefaultWorkers   = 4
	DefaultBatchSize = 32
	DefaultTimeout   = 30 * time.Second
)

type Encoder struct {
	Client    ai.Embedder
	Workers   int
	BatchSize int
	// Timeout bounds each provider call.
	Timeout time.Duration
}

func NewEncoder(client ai.Embedder, workers, batchSize int, timeout time.Duration) *Encoder {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if workers > 8 {
		workers = 8 // cap to avoid overwhelming the provider
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Encoder{Client: client, Workers: workers, BatchSize: batchSize, Timeout: timeout}
}

// Dim reports the provider's vector width.
func (e *Encoder) Dim() int { return e.Client.Dim() }

// Encode returns one normalized vector per text, in input order. The first
// batch failure cancels the remaining work and is returned.
func (e *Encoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if e == nil || e.Client == nil {
		return nil, errors.New("encoder has no embedding client")
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	batch := max(e.BatchSize, 1)
	out := make([][]float32, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(e.Workers, 1))

	for lo := 0; lo < len(texts); lo += batch {
		hi := min(lo+batch, len(texts))
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, e.timeout())
			defer cancel()

			start := time.Now()
			vecs, err := e.Client.Embed(cctx, texts[lo:hi])
			if err != nil {
				return fmt.Errorf("embed batch [%d:%d]: %w", lo, hi, err)
			}
			if len(vecs) != hi-lo {
				return fmt.Errorf("embed batch [%d:%d]: got %d vectors", lo, hi, len(vecs))
			}
			for i, v := range vecs {
				out[lo+i] = Normalize(v)
			}
			log.Debug().Int("from", lo).Int("to", hi).Dur("took", time.Since(start)).Msg("embedded batch")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Encoder) timeout() time.Duration {
	if e.Timeout <= 0 {
		return DefaultTimeout
	}
	return e.Timeout
}

// Normalize returns a unit-length copy of v. Zero vectors are returned as a
// zero copy.
func Normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return out
	}
	inv := 1 / math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}
