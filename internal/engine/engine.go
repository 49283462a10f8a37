// Package engine ties chunking, embedding, retrieval, prompting and response
// recovery together into the interview operations.
package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/seanblong/interviewrag/internal/ai"
	"github.com/seanblong/interviewrag/internal/chunker"
	"github.com/seanblong/interviewrag/internal/embed"
	"github.com/seanblong/interviewrag/internal/index"
	"github.com/seanblong/interviewrag/internal/metrics"
	"github.com/seanblong/interviewrag/internal/recovery"
)

const DefaultLLMTimeout = 60 * time.Second

type Options struct {
	Generator ai.Generator
	Encoder   *embed.Encoder
	Registry  *index.Registry
	Metrics   *metrics.Metrics

	ChunkSize    int
	ChunkOverlap int
	// LLMTimeout bounds each generation call.
	LLMTimeout time.Duration
}

type Service struct {
	gen      ai.Generator
	encoder  *embed.Encoder
	registry *index.Registry
	metrics  *metrics.Metrics

	chunkSize    int
	chunkOverlap int
	llmTimeout   time.Duration
}

// New creates a new engine. A nil Registry gets an unbounded one.
func New(opts Options) (*Service, error) {
	if opts.Generator == nil {
		return nil, errors.New("generator is required")
	}
	if opts.Encoder == nil {
		return nil, errors.New("encoder is required")
	}
	if opts.Registry == nil {
		opts.Registry = index.NewRegistry(0, 0)
	}
	// Unset chunking takes both defaults; anything else is normalized by
	// the chunker itself.
	if opts.ChunkSize <= 0 && opts.ChunkOverlap == 0 {
		opts.ChunkSize, opts.ChunkOverlap = chunker.DefaultSize, chunker.DefaultOverlap
	}
	if opts.LLMTimeout <= 0 {
		opts.LLMTimeout = DefaultLLMTimeout
	}

	return &Service{
		gen:          opts.Generator,
		encoder:      opts.Encoder,
		registry:     opts.Registry,
		metrics:      opts.Metrics,
		chunkSize:    opts.ChunkSize,
		chunkOverlap: opts.ChunkOverlap,
		llmTimeout:   opts.LLMTimeout,
	}, nil
}

// Registry exposes the session registry the engine reads and writes.
func (s *Service) Registry() *index.Registry { return s.registry }

// Index chunks and embeds text and installs the result as the session's
// index, replacing any earlier one. It returns the number of chunks.
func (s *Service) Index(ctx context.Context, sessionID, text string) (int, error) {
	chunks := chunker.Split(text, s.chunkSize, s.chunkOverlap)

	vecs, err := s.encoder.Encode(ctx, chunks)
	if err != nil {
		return 0, classify("embed resume", err)
	}
	idx, err := index.Build(sessionID, chunks, vecs)
	if err != nil {
		return 0, classify("build index", err)
	}
	s.registry.Put(idx)
	s.metrics.ObserveIndex(len(chunks))

	log.Info().Str("session", sessionID).Int("chunks", len(chunks)).Msg("indexed resume")
	return len(chunks), nil
}

// TopKContext returns the k chunks most similar to query, best first,
// joined by blank lines. Unknown or empty sessions yield "" without an
// embedding call.
func (s *Service) TopKContext(ctx context.Context, sessionID, query string, k int) (string, error) {
	n := s.registry.Count(sessionID)
	if n == 0 || k <= 0 {
		return "", nil
	}

	vecs, err := s.encoder.Encode(ai.WithEmbedTask(ctx, ai.EmbedQuery), []string{query})
	if err != nil {
		return "", classify("embed query", err)
	}

	idx, ok := s.registry.Get(sessionID)
	if !ok {
		return "", nil
	}
	hits := idx.Search(vecs[0], k)
	parts := make([]string, 0, len(hits))
	for _, i := range hits {
		parts = append(parts, idx.Chunk(i))
	}
	return strings.Join(parts, "\n\n"), nil
}

// contextFor sizes the retrieval to min(limit, chunks in session).
func (s *Service) contextFor(ctx context.Context, sessionID, query string, limit int) (string, error) {
	return s.TopKContext(ctx, sessionID, query, min(limit, s.registry.Count(sessionID)))
}

func (s *Service) generate(ctx context.Context, op, prompt string) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, s.llmTimeout)
	defer cancel()

	start := time.Now()
	out, err := s.gen.Generate(cctx, prompt)
	s.metrics.ObserveLLM(op, time.Since(start), err)
	if err != nil {
		return "", classify(op, err)
	}
	return out, nil
}

func (s *Service) questions(ctx context.Context, op, prompt string) ([]string, error) {
	raw, err := s.generate(ctx, op, prompt)
	if err != nil {
		return nil, err
	}
	res := recovery.Array(raw)
	s.metrics.ObserveRecovery(recovery.KindArray.String(), string(res.Stage))
	return res.Items, nil
}
