package ai

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

// DefaultHashDim matches the width of small sentence-embedding models.
const DefaultHashDim = 384

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// HashEmbedder is a deterministic, network-free embedder using signed
// feature hashing over lower-cased word tokens. Vectors are L2-normalized.
type HashEmbedder struct {
	dim int
}

func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = DefaultHashDim
	}
	return &HashEmbedder{dim: dim}
}

func (h *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.vector(t)
	}
	return out, nil
}

func (h *HashEmbedder) Dim() int { return h.dim }

func (h *HashEmbedder) vector(text string) []float32 {
	vec := make([]float32, h.dim)
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		f := fnv.New64a()
		_, _ = f.Write([]byte(tok))
		sum := f.Sum64()
		idx := int(sum % uint64(h.dim))
		if sum>>63 == 1 {
			vec[idx]--
		} else {
			vec[idx]++
		}
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= inv
	}
	return vec
}
