package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	zlog "github.com/rs/zerolog/log"
	"github.com/seanblong/interviewrag/internal/ai"
	"github.com/seanblong/interviewrag/internal/auth"
	"github.com/seanblong/interviewrag/internal/config"
	"github.com/seanblong/interviewrag/internal/embed"
	"github.com/seanblong/interviewrag/internal/engine"
	"github.com/seanblong/interviewrag/internal/index"
	"github.com/seanblong/interviewrag/internal/metrics"
	"github.com/seanblong/interviewrag/internal/store"
	"github.com/spf13/pflag"
)

func main() {
	// Create flagset for configuration
	fs := pflag.NewFlagSet("interviewrag-api", pflag.ExitOnError)

	// Load configuration
	cfg, err := config.Load("", fs)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	fs.Usage = cfg.Usage

	// Set up logging
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Invalid log level '%s': %v", cfg.LogLevel, err)
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	zlog.Logger = logger
	logger.Info().Str("provider", cfg.Provider).Str("embed_provider", cfg.EmbedProvider).Str("log_level", cfg.LogLevel).Bool("auth_enabled", cfg.Auth.Enabled).Msg("starting interviewrag api")

	auth.InitializeAuth(cfg.Auth.JwtSecret, cfg.Auth.TokenTTL, cfg.Auth.Enabled)
	m := metrics.New()

	c, err := ai.NewClient(cfg.AIConfig())
	if err != nil {
		log.Fatalf("Failed to create AI client: %v", err)
	}
	c = ai.WithLimits(c, cfg.Limits())
	logger.Info().Int("embedding_dim", c.Dim()).Str("chat_model", cfg.ChatModel).Msg("AI client initialized")

	registry := index.NewRegistry(cfg.Index.SessionCapacity, cfg.Index.SessionTTL,
		index.WithEvictHook(func(string) { m.ObserveEviction() }))

	svc, err := engine.New(engine.Options{
		Generator:    c,
		Encoder:      embed.NewEncoder(c, cfg.Index.EmbedWorkers, cfg.Index.EmbedBatchSize, cfg.Index.EmbedTimeout),
		Registry:     registry,
		Metrics:      m,
		ChunkSize:    cfg.Index.ChunkSize,
		ChunkOverlap: cfg.Index.ChunkOverlap,
		LLMTimeout:   cfg.LLM.Timeout,
	})
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var archive store.EvaluationStore
	if cfg.Database != "" {
		st, err := store.New(ctx, cfg.Database)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
		archive = st
		logger.Info().Msg("evaluation archive enabled")
	}

	srv := newServer(svc, archive, m, cfg.LLM.RequestTimeout)

	handler := hlog.NewHandler(logger)(
		hlog.AccessHandler(func(r *http.Request, status, size int, dur time.Duration) {
			srv.observe(r, status)
			logger.Info().Str("method", r.Method).Str("path", r.URL.Path).Int("status", status).Int("size", size).Dur("dur", dur).Msg("http")
		})(srv.routes()),
	)

	address := fmt.Sprintf(":%d", cfg.Port)
	s := &http.Server{Addr: address, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown failed")
		}
	}()

	logger.Info().Str("addr", s.Addr).Msg("api server listening")
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
