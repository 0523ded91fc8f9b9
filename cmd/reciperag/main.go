package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/reciperag/internal/config"
	"github.com/kailas-cloud/reciperag/internal/db/elastic"
	"github.com/kailas-cloud/reciperag/internal/domain"
	logpkg "github.com/kailas-cloud/reciperag/internal/logger"
	"github.com/kailas-cloud/reciperag/internal/metrics"
	conversationrepo "github.com/kailas-cloud/reciperag/internal/repository/conversation"
	reciperepo "github.com/kailas-cloud/reciperag/internal/repository/recipe"
	chiTransport "github.com/kailas-cloud/reciperag/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/reciperag/internal/transport/openai"
	evaluc "github.com/kailas-cloud/reciperag/internal/usecase/eval"
	"github.com/kailas-cloud/reciperag/internal/usecase/pricing"
	raguc "github.com/kailas-cloud/reciperag/internal/usecase/rag"
	"github.com/kailas-cloud/reciperag/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting reciperag API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("elastic_addrs", cfg.Elastic.Addrs),
		zap.String("index", cfg.Elastic.Index),
	)

	// Search index client
	es, err := elastic.NewClient(elastic.Config{
		Addrs:    cfg.Elastic.Addrs,
		Username: cfg.Elastic.Username,
		Password: cfg.Elastic.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create elasticsearch client", zap.Error(err))
	}

	ctx := context.Background()
	readiness := time.Duration(cfg.Elastic.ReadinessTimeout) * time.Second
	if err := es.WaitForReady(ctx, readiness); err != nil {
		logger.Fatal("Search index not ready", zap.Error(err))
	}
	logger.Info("Connected to search index")

	// Conversation store
	if cfg.Postgres.DSN == "" {
		logger.Fatal("postgres.dsn is required")
	}
	convs, err := conversationrepo.Open(cfg.Postgres.DSN, cfg.Postgres.MaxOpenConns)
	if err != nil {
		logger.Fatal("Failed to connect to postgres", zap.Error(err))
	}
	defer func() { _ = convs.Close() }()

	if err := convs.InitSchema(ctx); err != nil {
		logger.Fatal("Failed to init conversation schema", zap.Error(err))
	}
	logger.Info("Connected to conversation store")

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterPipelineMetrics()

	// Query encoder
	embedder := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})
	logger.Info("Query encoder created",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	// Generation client — one API client per configured provider
	providers := make(map[domain.Provider]openaiTransport.ChatProviderConfig, len(cfg.Providers))
	for name, pc := range cfg.Providers {
		providers[domain.Provider(name)] = openaiTransport.ChatProviderConfig{
			APIKey:  pc.APIKey,
			BaseURL: pc.BaseURL,
		}
	}
	chat := openaiTransport.NewChatClient(&openaiTransport.ChatConfig{
		Providers: providers,
		Logger:    logger,
	})

	// Use case services
	recipes := reciperepo.New(es, cfg.Elastic.Index).
		WithSizing(cfg.Retrieval.TopK, cfg.Retrieval.NumCandidates).
		WithDimensions(cfg.Embedding.Dimensions)

	judge := domain.MustModelChoice(cfg.Judge.Model)
	evaluator := evaluc.New(chat, judge, logger)

	rates := make(map[string]pricing.Rate, len(cfg.Pricing))
	for choice, rate := range cfg.Pricing {
		rates[choice] = pricing.Rate{
			PromptPer1K:     rate.PromptPer1K,
			CompletionPer1K: rate.CompletionPer1K,
		}
	}
	accountant := pricing.New(rates)

	ragSvc := raguc.New(embedder, recipes, chat, evaluator, accountant, logger)

	// HTTP server
	server := chiTransport.NewServer(ragSvc, convs, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
