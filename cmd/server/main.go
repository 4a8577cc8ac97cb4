package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"juriscite-backend/auth"
	"juriscite-backend/cache"
	"juriscite-backend/config"
	"juriscite-backend/embedding"
	"juriscite-backend/generation"
	"juriscite-backend/handlers"
	"juriscite-backend/metrics"
	"juriscite-backend/repository"
	"juriscite-backend/rerank"
	"juriscite-backend/retrieval"
	"juriscite-backend/service"
	"juriscite-backend/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/generative-ai-go/genai"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const serviceName = "juriscite-backend"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := initPostgres(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("Failed to initialize Postgres", zap.Error(err))
	}
	defer db.Close()

	artifacts, err := storage.NewStorage(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	logger.Info("Storage initialized", zap.String("type", string(cfg.Storage.Type)))

	sharedCache := initCache(cfg.RedisURL, logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// Repositories
	userRepo := repository.NewUserRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	jobRepo := repository.NewAnalysisJobRepository(db)
	vectorRepo := repository.NewPrecedentVectorRepository(db, cfg.Gemini.EmbeddingDimensions)

	// Gemini powers both the query embedder and the justification generator
	analysisOpts := []service.AnalysisServiceOption{
		service.WithJobStore(jobRepo),
		service.WithDocumentStore(documentRepo),
		service.WithArtifactStorage(artifacts),
		service.WithMetrics(m),
		service.WithLogger(logger),
		service.WithThresholds(cfg.Pipeline.Thresholds),
		service.WithFusion(cfg.Pipeline.RRFK, cfg.Pipeline.DefaultTopK),
		service.WithRetryPolicy(generation.RetryPolicy{
			MaxAttempts: cfg.Pipeline.GenerationMaxAttempts,
			BaseDelay:   cfg.Pipeline.GenerationBaseDelay,
			MaxJitter:   250 * time.Millisecond,
			Retryable:   generation.IsTransient,
		}),
	}

	if cfg.Gemini.APIKey != "" {
		geminiClient, err := genai.NewClient(ctx, option.WithAPIKey(cfg.Gemini.APIKey))
		if err != nil {
			logger.Fatal("Failed to initialize Gemini", zap.Error(err))
		}
		defer geminiClient.Close()
		logger.Info("Gemini client initialized",
			zap.String("generation_model", cfg.Gemini.GenerationModel),
			zap.String("embedding_model", cfg.Gemini.EmbeddingModel),
		)

		embedder := embedding.NewCachedEmbedder(
			embedding.NewGeminiEmbedder(geminiClient, cfg.Gemini.EmbeddingModel, cfg.Gemini.EmbeddingDimensions, genai.TaskTypeRetrievalQuery),
			embedding.WithCache(sharedCache),
		)
		analysisOpts = append(analysisOpts,
			service.WithDenseRetriever(retrieval.NewDenseRetriever(embedder, vectorRepo, logger)),
			service.WithGenerator(generation.NewGeminiGenerator(geminiClient, cfg.Gemini.GenerationModel,
				generation.WithRateLimit(cfg.Gemini.RequestsPerSecond, 1),
				generation.WithGeneratorLogger(logger),
			)),
		)
	} else {
		logger.Warn("GEMINI_API_KEY not set: dense retrieval disabled, justifications use the fallback text")
	}

	sparse, err := retrieval.NewSparseRetriever(retrieval.SparseConfig{
		BaseURL: cfg.DataJud.BaseURL,
		APIKey:  cfg.DataJud.APIKey,
	}, logger, retrieval.WithSparseCache(sharedCache))
	if err != nil {
		logger.Fatal("Failed to initialize sparse retrieval", zap.Error(err))
	}
	reranker := rerank.New(
		rerank.WithEndpoint(cfg.Rerank.Endpoint, cfg.Rerank.APIKey, cfg.Rerank.Model),
		rerank.WithCache(sharedCache),
		rerank.WithLogger(logger),
	)
	logger.Info("Reranker initialized", zap.String("mode", string(reranker.Mode())))

	analysisOpts = append(analysisOpts,
		service.WithSparseRetriever(sparse),
		service.WithReranker(reranker),
	)

	// Services
	analysisService := service.NewAnalysisService(analysisOpts...)
	documentService := service.NewDocumentService(service.DocumentWithStore(documentRepo))

	if os.Getenv("GIN_MODE") == "" && cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handlers.NewRouter(handlers.RouterConfig{
		ServiceName:   serviceName,
		Analysis:      handlers.NewAnalysisHandler(analysisService, logger),
		Documents:     handlers.NewDocumentHandler(documentService),
		Authenticator: auth.NewTokenAuthenticator(userRepo),
		Gatherer:      registry,
		Logger:        logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}
	return cfg.Build()
}

func initPostgres(ctx context.Context, connString string, logger *zap.Logger) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if _, err := pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		logger.Warn("Failed to create pgvector extension; it may already be installed or require superuser privileges", zap.Error(err))
	}

	logger.Info("Postgres connection established with pgvector support")
	return pool, nil
}

// initCache shares embeddings and rerank scores through Redis when REDIS_URL
// is set and falls back to the in-process cache otherwise.
func initCache(redisURL string, logger *zap.Logger) cache.Cache {
	if redisURL != "" {
		c, err := cache.NewRedisFromURL(redisURL, "juriscite:", embedding.DefaultCacheTTL, logger)
		if err == nil {
			logger.Info("Redis cache initialized")
			return c
		}
		logger.Warn("Invalid REDIS_URL, using in-memory cache", zap.Error(err))
	}
	return cache.NewMemory(10_000, embedding.DefaultCacheTTL)
}
