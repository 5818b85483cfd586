package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"finrag/internal/config"
	"finrag/internal/domain"
	"finrag/internal/embedding/hashing"
	"finrag/internal/embedding/openai"
	"finrag/internal/history"
	"finrag/internal/kernel"
	"finrag/internal/llm"
	"finrag/internal/logger"
	"finrag/internal/server"
	"finrag/internal/service"
	"finrag/internal/store"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "config.yaml", "Path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	// Assemble components
	var emb domain.Embedder
	switch cfg.Embedder.Type {
	case "hashing":
		emb = hashing.NewEmbedder(cfg.Embedder.Dimension)
	case "openai", "":
		o := cfg.Embedder.OpenAI
		client, err := openai.NewClient(openai.Config{
			BaseURL:   o.BaseURL,
			APIKey:    os.Getenv(o.APIKeyEnv),
			Model:     o.Model,
			Timeout:   time.Duration(o.TimeoutSecs) * time.Second,
			BatchSize: o.BatchSize,
			Workers:   o.Workers,
			Dimension: cfg.Embedder.Dimension,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("embedding provider init failed")
		}
		emb = client
	default:
		log.Fatal().Str("type", cfg.Embedder.Type).Msg("unknown embedder")
	}

	chat, err := llm.NewClient(llm.Config{
		BaseURL:          cfg.LLM.BaseURL,
		APIKey:           cfg.LLM.APIKey,
		Model:            cfg.LLM.Model,
		Temperature:      cfg.LLM.Temperature,
		TopP:             cfg.LLM.TopP,
		MaxTokens:        cfg.LLM.MaxTokens,
		FrequencyPenalty: cfg.LLM.FrequencyPenalty,
		PresencePenalty:  cfg.LLM.PresencePenalty,
		Timeout:          time.Duration(cfg.LLM.TimeoutSecs) * time.Second,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("llm client init failed")
	}

	hist, err := history.Open(cfg.History.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("chat history init failed")
	}
	defer hist.Close()

	stores := store.NewManager(time.Duration(cfg.Retrieval.StoreTTLSecs) * time.Second)

	svc := service.New(stores, emb, chat, hist, log, service.Config{
		Kernel: kernel.Config{
			TopK:             cfg.Retrieval.TopK,
			SmartFullCeiling: cfg.Retrieval.SmartFullCeiling,
			AnalyticalSample: cfg.Retrieval.AnalyticalSample,
		},
		CorpusMaxDocs:   cfg.Retrieval.CorpusMaxDocs,
		DefaultPageSize: cfg.Retrieval.DefaultPageSize,
		MaxPageSize:     100,
		ContextBudget:   cfg.Retrieval.ContextBudgetChars,
		CacheTTL:        time.Duration(cfg.Retrieval.CacheTTLSecs) * time.Second,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores.StartEvictions(ctx, 5*time.Minute, func(n int) {
		log.Info().Int("stores", n).Msg("evicted idle stores")
	})

	srv := &http.Server{
		Addr:        cfg.Server.Addr,
		Handler:     server.New(svc, log).Handler(cfg.Server.AllowOrigins),
		ReadTimeout: 30 * time.Second,
		// No WriteTimeout: streaming responses stay open past any fixed bound.
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", cfg.Server.Addr).Str("model", cfg.LLM.Model).Msg("finrag server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server failed")
	}
	log.Info().Msg("server stopped")
}
