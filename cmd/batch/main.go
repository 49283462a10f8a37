package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/seanblong/interviewrag/internal/ai"
	"github.com/seanblong/interviewrag/internal/batch"
	"github.com/seanblong/interviewrag/internal/config"
	"github.com/seanblong/interviewrag/internal/embed"
	"github.com/seanblong/interviewrag/internal/engine"
	"github.com/seanblong/interviewrag/internal/index"
	"github.com/spf13/pflag"
)

func main() {
	fs := pflag.NewFlagSet("interviewrag-batch", pflag.ExitOnError)

	cfg, err := config.Load("", fs)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	fs.Usage = cfg.Usage

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Invalid log level '%s': %v", cfg.LogLevel, err)
	}
	zlog.Logger = zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	zlog.Info().Str("provider", cfg.Provider).Str("resume_dir", cfg.Batch.ResumeDir).Str("output_dir", cfg.Batch.OutputDir).Msg("starting batch run")

	c, err := ai.NewClient(cfg.AIConfig())
	if err != nil {
		log.Fatalf("Failed to create AI client: %v", err)
	}
	c = ai.WithLimits(c, cfg.Limits())

	// each resume is released after its set is written, so the registry
	// only needs room for the sessions in flight
	registry := index.NewRegistry(max(cfg.Batch.Workers, 1)*2, 0)

	svc, err := engine.New(engine.Options{
		Generator:    c,
		Encoder:      embed.NewEncoder(c, cfg.Index.EmbedWorkers, cfg.Index.EmbedBatchSize, cfg.Index.EmbedTimeout),
		Registry:     registry,
		ChunkSize:    cfg.Index.ChunkSize,
		ChunkOverlap: cfg.Index.ChunkOverlap,
		LLMTimeout:   cfg.LLM.Timeout,
	})
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := batch.New(svc, cfg.Batch.ResumeDir, batch.Options{
		Role:        cfg.Batch.Role,
		CountRole:   cfg.Batch.CountRole,
		CountResume: cfg.Batch.CountResume,
		CountHR:     cfg.Batch.CountHR,
		Workers:     cfg.Batch.Workers,
		OutputDir:   cfg.Batch.OutputDir,
	})
	r.Forget = func(id string) { registry.Remove(id) }

	sum, err := r.Run(ctx)
	if err != nil {
		log.Fatalf("batch run failed: %v", err)
	}
	zlog.Info().Int("processed", sum.Processed).Int("failed", sum.Failed).Msg("batch run complete")
	if sum.Failed > 0 {
		os.Exit(1)
	}
}
