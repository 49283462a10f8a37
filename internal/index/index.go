// Package index holds per-session flat inner-product indexes over resume
// chunks and the bounded registry that maps session ids to them.
package index

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/seanblong/interviewrag/internal/embed"
)

// SessionIndex is immutable once built; a rebuild replaces it wholesale.
type SessionIndex struct {
	SessionID string
	chunks    []string
	vectors   [][]float32
	dim       int
}

// Build checks that chunks and vectors line up and share one dimension, and
// stores unit-length copies of the vectors.
func Build(sessionID string, chunks []string, vectors [][]float32) (*SessionIndex, error) {
	if sessionID == "" {
		return nil, errors.New("session id is required")
	}
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("have %d chunks but %d vectors", len(chunks), len(vectors))
	}

	idx := &SessionIndex{
		SessionID: sessionID,
		chunks:    append([]string(nil), chunks...),
		vectors:   make([][]float32, len(vectors)),
	}
	for i, v := range vectors {
		if i == 0 {
			idx.dim = len(v)
		} else if len(v) != idx.dim {
			return nil, fmt.Errorf("vector %d has dimension %d, want %d", i, len(v), idx.dim)
		}
		if isUnit(v) {
			idx.vectors[i] = append([]float32(nil), v...)
		} else {
			idx.vectors[i] = embed.Normalize(v)
		}
	}
	return idx, nil
}

func (s *SessionIndex) Count() int { return len(s.chunks) }

func (s *SessionIndex) Dim() int { return s.dim }

// Chunk returns the text at position i.
func (s *SessionIndex) Chunk(i int) string { return s.chunks[i] }

// Chunks returns a copy of the indexed texts.
func (s *SessionIndex) Chunks() []string { return append([]string(nil), s.chunks...) }

// Search returns up to k chunk positions ordered by descending inner product
// with query. Equal scores keep the lower position first.
func (s *SessionIndex) Search(query []float32, k int) []int {
	n := s.Count()
	if k > n {
		k = n
	}
	if k <= 0 || len(query) != s.dim {
		return []int{}
	}

	scores := make([]float64, n)
	order := make([]int, n)
	for i, v := range s.vectors {
		var dot float64
		for j := range v {
			dot += float64(v[j]) * float64(query[j])
		}
		scores[i] = dot
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})
	return order[:k]
}

func isUnit(v []float32) bool {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Abs(sum-1) < 1e-6
}
