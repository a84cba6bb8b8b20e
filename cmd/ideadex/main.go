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

	"github.com/kailas-cloud/ideadex/internal/config"
	"github.com/kailas-cloud/ideadex/internal/corpus"
	dbRedis "github.com/kailas-cloud/ideadex/internal/db/redis"
	"github.com/kailas-cloud/ideadex/internal/domain"
	"github.com/kailas-cloud/ideadex/internal/embedding/local"
	logpkg "github.com/kailas-cloud/ideadex/internal/logger"
	"github.com/kailas-cloud/ideadex/internal/metrics"
	"github.com/kailas-cloud/ideadex/internal/nlp"
	budgetrepo "github.com/kailas-cloud/ideadex/internal/repository/budget"
	"github.com/kailas-cloud/ideadex/internal/repository/embcache"
	"github.com/kailas-cloud/ideadex/internal/scoring"
	chiTransport "github.com/kailas-cloud/ideadex/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/ideadex/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/ideadex/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/ideadex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/ideadex/internal/usecase/search"
	usageuc "github.com/kailas-cloud/ideadex/internal/usecase/usage"
	"github.com/kailas-cloud/ideadex/internal/vectorstore"
	"github.com/kailas-cloud/ideadex/internal/version"
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

	logger.Info("Starting ideadex API server",
		zap.String("version", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.Bool("oracle", cfg.Oracle.Enabled),
		zap.Bool("cache", cfg.Database.Enabled()),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()
	metrics.RegisterHTTPMetrics()

	ctx := logpkg.ContextWithLogger(context.Background(), logger)

	// Optional cache store: embedding cache + budget counters
	var store *dbRedis.Store
	if cfg.Database.Enabled() {
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer store.Close()

		if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Cache store not ready", zap.Error(err))
		}
		logger.Info("Connected to cache store", zap.Strings("addrs", cfg.Database.Addrs))
	}

	docEmbedder, queryEmbedder, tracker := buildEmbedders(ctx, cfg.Embedding, store, logger)

	proc, err := buildProcessor(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to build query processor", zap.Error(err))
	}

	var src corpus.Source = corpus.NewStatic(nil)
	if cfg.Corpus.CSVPath != "" {
		file := corpus.NewFile(cfg.Corpus.CSVPath)
		docs, err := file.Documents(ctx)
		if err != nil {
			logger.Warn("Corpus not loaded yet", zap.String("path", cfg.Corpus.CSVPath), zap.Error(err))
		} else {
			logger.Info("Corpus loaded", zap.String("path", cfg.Corpus.CSVPath), zap.Int("documents", len(docs)))
		}
		src = file
	}

	vectors := vectorstore.New()
	searchSvc, err := searchuc.New(proc, vectors, docEmbedder, searchuc.Config{
		BM25: scoring.Params{
			K1:    cfg.Search.BM25K1,
			B:     cfg.Search.BM25B,
			Delta: cfg.Search.BM25Delta,
		},
		RRFK:           cfg.Search.RRFK,
		IndexTimeout:   cfg.Search.IndexTimeout(),
		WorkerPoolSize: cfg.Search.WorkerPoolSize,
		QueryEmbedder:  queryEmbedder,
	})
	if err != nil {
		logger.Fatal("Failed to create search service", zap.Error(err))
	}
	defer searchSvc.Close()

	// Pass nil interface (not typed nil pointer!) when no cache is configured.
	var cachePinger healthuc.CachePinger
	if store != nil {
		cachePinger = store
	}
	healthSvc := healthuc.New(cachePinger, newEmbeddingHealthChecker(docEmbedder), src)

	server := chiTransport.NewServer(searchSvc, vectors, src, healthSvc, chiTransport.Limits{
		DefaultLimit: cfg.Search.DefaultLimit,
		MaxLimit:     cfg.Search.MaxLimit,
	}, logger)
	if tracker != nil {
		server.WithUsage(usageuc.New(tracker))
	}

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	chiTransport.HandlerWithOptions(server, chiTransport.ChiServerOptions{
		BaseRouter: r,
		ErrorHandlerFunc: func(w http.ResponseWriter, _ *http.Request, err error) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
				Code:    chiTransport.ErrorCodeBadRequest,
				Message: err.Error(),
			})
		},
	})

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

// buildProcessor loads the dictionary overlay and attaches the oracle when enabled.
func buildProcessor(cfg config.Config, logger *zap.Logger) (*nlp.Processor, error) {
	dict, err := nlp.LoadDictionary(cfg.NLP.DictionaryPath)
	if err != nil {
		return nil, fmt.Errorf("load dictionary: %w", err)
	}

	var opts []nlp.Option
	if cfg.Oracle.Enabled {
		oracle := openaiTransport.NewOracle(&openaiTransport.OracleConfig{
			APIKey:  cfg.Oracle.APIKey,
			BaseURL: cfg.Oracle.BaseURL,
			Model:   cfg.Oracle.Model,
			Logger:  logger,
		})
		opts = append(opts,
			nlp.WithOracle(oracle),
			nlp.WithOracleTimeout(time.Duration(cfg.Oracle.TimeoutSec)*time.Second),
			nlp.WithMaxPromptChars(cfg.Oracle.MaxPromptChars),
		)
		logger.Info("Query oracle enabled", zap.String("model", cfg.Oracle.Model))
	}
	return nlp.NewProcessor(dict, opts...), nil
}

// buildEmbedders assembles the document and query decorator chains:
// provider -> Cached -> Instrumented -> Instruction.
func buildEmbedders(
	ctx context.Context, cfg config.EmbeddingConfig, store *dbRedis.Store, logger *zap.Logger,
) (doc, query domain.Embedder, tracker *embeddinguc.BudgetTracker) {
	var base domain.Embedder
	switch cfg.Provider {
	case config.ProviderOpenAI:
		base = openaiTransport.NewEmbedder(&openaiTransport.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Provider:   cfg.Name,
			Logger:     logger,
		})
	default:
		// local vectors are recomputed, never cached or budgeted
		base = local.NewEmbedder(cfg.Dimensions)
		logger.Info("Embedders created", zap.String("provider", cfg.Provider), zap.Int("dimensions", cfg.Dimensions))
		return withInstruction(base, cfg.DocumentInstruction), withInstruction(base, cfg.QueryInstruction), nil
	}

	embedder := base
	if store != nil {
		embedder = embcache.New(base, store, embcache.Options{
			Namespace:  cfg.Model,
			TTL:        time.Duration(cfg.CacheTTLHours) * time.Hour,
			CacheTotal: metrics.EmbeddingCacheTotal,
			Logger:     logger,
		})
	}

	// Pass nil interface (not typed nil pointer!) if budget is not configured.
	var budget embeddinguc.BudgetChecker
	if cfg.Budget.DailyTokenLimit > 0 || cfg.Budget.MonthlyTokenLimit > 0 {
		action := embeddinguc.BudgetActionWarn
		if cfg.Budget.Action == "reject" {
			action = embeddinguc.BudgetActionReject
		}
		tracker = embeddinguc.NewBudgetTracker(
			cfg.Name, cfg.Budget.DailyTokenLimit, cfg.Budget.MonthlyTokenLimit, action, logger,
		)
		if store != nil {
			tracker.WithStore(ctx, budgetrepo.New(store, budgetrepo.DefaultDailyTTL, budgetrepo.DefaultMonthlyTTL))
		}
		budget = tracker
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Name, cfg.Model, budget, logger)

	logger.Info("Embedders created",
		zap.String("provider", cfg.Name),
		zap.String("model", cfg.Model),
		zap.Int("dimensions", cfg.Dimensions),
	)

	// Instruction prefix is outermost so the cache key includes it
	return withInstruction(embedder, cfg.DocumentInstruction), withInstruction(embedder, cfg.QueryInstruction), tracker
}

func withInstruction(e domain.Embedder, instruction string) domain.Embedder {
	if instruction == "" {
		return e
	}
	return domain.NewInstructionEmbedder(e, instruction)
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
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
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.ErrorCodeInternalError,
						Message: "internal error",
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

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
