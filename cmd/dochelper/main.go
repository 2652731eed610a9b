package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sd031/ai-document-helper/internal/chunker"
	"github.com/sd031/ai-document-helper/internal/config"
	dbRedis "github.com/sd031/ai-document-helper/internal/db/redis"
	"github.com/sd031/ai-document-helper/internal/domain"
	"github.com/sd031/ai-document-helper/internal/extract"
	logpkg "github.com/sd031/ai-document-helper/internal/logger"
	"github.com/sd031/ai-document-helper/internal/metrics"
	"github.com/sd031/ai-document-helper/internal/repository/embcache"
	indexrepo "github.com/sd031/ai-document-helper/internal/repository/index"
	"github.com/sd031/ai-document-helper/internal/storage"
	chiTransport "github.com/sd031/ai-document-helper/internal/transport/chi"
	ollamaGen "github.com/sd031/ai-document-helper/internal/transport/ollama"
	openaiEmb "github.com/sd031/ai-document-helper/internal/transport/openai"
	healthuc "github.com/sd031/ai-document-helper/internal/usecase/health"
	ingestuc "github.com/sd031/ai-document-helper/internal/usecase/ingest"
	queryuc "github.com/sd031/ai-document-helper/internal/usecase/query"
	statsuc "github.com/sd031/ai-document-helper/internal/usecase/stats"
	"github.com/sd031/ai-document-helper/internal/version"
)

// embeddingProvider is the full embedder surface the pipeline needs: single
// and batch embedding plus a health probe. Both the raw OpenAI client and the
// caching decorator satisfy it.
type embeddingProvider interface {
	domain.Embedder
	domain.BatchEmbedder
	domain.HealthChecker
}

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

	logger.Info("Starting document helper API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("collection", cfg.Index.Collection),
		zap.Int("dimension", cfg.Index.Dimension),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register pipeline metrics explicitly (no init())
	metrics.RegisterPipelineMetrics()

	// Embedder chain: OpenAI-compatible provider, optionally cached
	var embedder embeddingProvider = openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Index.Dimension,
		Logger:     logger,
	})
	if cfg.Embedding.Cache {
		embedder = embcache.New(
			embedder, store,
			cfg.Storage.KeyPrefix, cfg.Embedding.Model,
			metrics.EmbeddingCacheTotal, logger,
		)
	}
	logger.Info("Embedder created",
		zap.String("model", cfg.Embedding.Model),
		zap.Bool("cache", cfg.Embedding.Cache),
	)

	// Vector index over the single configured collection
	indexRepo := indexrepo.New(
		store, cfg.Storage.KeyPrefix, cfg.Index.Collection, cfg.Index.Dimension,
	).WithHNSW(indexrepo.HNSWConfig{
		M:           cfg.Index.HNSWM,
		EFConstruct: cfg.Index.HNSWEFConstruct,
	})
	if err := indexRepo.Ensure(ctx); err != nil {
		if errors.Is(err, domain.ErrDimensionMismatch) {
			logger.Fatal("Collection exists with a different vector dimension; "+
				"drop it or change index.dimension", zap.Error(err))
		}
		logger.Fatal("Failed to initialize vector index", zap.Error(err))
	}
	logger.Info("Vector index ready",
		zap.String("collection", cfg.Index.Collection),
		zap.Int("dimension", cfg.Index.Dimension),
	)

	generator := ollamaGen.NewGenerator(&ollamaGen.Config{
		BaseURL: cfg.Generation.BaseURL,
		Model:   cfg.Generation.Model,
		Timeout: time.Duration(cfg.Generation.TimeoutSec) * time.Second,
		Logger:  logger,
	})

	files, err := storage.New(cfg.Storage.UploadDir)
	if err != nil {
		logger.Fatal("Failed to create upload directory", zap.Error(err))
	}

	chunk, err := chunker.New(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		logger.Fatal("Invalid chunking configuration", zap.Error(err))
	}

	extractor := extract.New()

	// Use case services
	ingestSvc := ingestuc.New(files, extractor, chunk, embedder, indexRepo, extract.SupportedExtensions)
	querySvc := queryuc.New(embedder, indexRepo, generator, cfg.Index.TopK)
	statsSvc := statsuc.New(indexRepo, cfg.Index.Dimension, cfg.Index.Collection)
	healthSvc := healthuc.New(store, embedder, generator)

	server := chiTransport.NewServer(
		ingestSvc, querySvc, statsSvc, healthSvc,
		int64(cfg.HTTP.MaxUploadMB)<<20, logger,
	)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))
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
