package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/contactdex/internal/config"
	"github.com/kailas-cloud/contactdex/internal/db"
	dbBadger "github.com/kailas-cloud/contactdex/internal/db/badger"
	dbMemory "github.com/kailas-cloud/contactdex/internal/db/memory"
	dbRedis "github.com/kailas-cloud/contactdex/internal/db/redis"
	"github.com/kailas-cloud/contactdex/internal/domain/search/filter"
	"github.com/kailas-cloud/contactdex/internal/domain/search/request"
	"github.com/kailas-cloud/contactdex/internal/index"
	logpkg "github.com/kailas-cloud/contactdex/internal/logger"
	"github.com/kailas-cloud/contactdex/internal/metrics"
	historyrepo "github.com/kailas-cloud/contactdex/internal/repository/history"
	chiTransport "github.com/kailas-cloud/contactdex/internal/transport/chi"
	"github.com/kailas-cloud/contactdex/internal/transport/dto"
	healthuc "github.com/kailas-cloud/contactdex/internal/usecase/health"
	"github.com/kailas-cloud/contactdex/internal/usecase/recovery"
	searchuc "github.com/kailas-cloud/contactdex/internal/usecase/search"
	"github.com/kailas-cloud/contactdex/internal/version"
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

	logger.Info("Starting contactdex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("history_driver", cfg.History.Driver),
		zap.Int("build_workers", cfg.Index.BuildWorkers),
	)

	ctx := context.Background()
	store, err := openHistoryStore(cfg.History, logger)
	if err != nil {
		logger.Fatal("Failed to create history store", zap.Error(err))
	}
	defer store.Close()

	readiness := time.Duration(cfg.History.ReadinessTimeout) * time.Second
	if err := store.WaitForReady(ctx, readiness); err != nil {
		logger.Fatal("History store not ready", zap.Error(err))
	}
	logger.Info("Connected to history store")

	// Register search metrics explicitly (no init())
	metrics.RegisterSearchMetrics()

	builder, err := index.NewBuilder(cfg.Index.BuildWorkers)
	if err != nil {
		logger.Fatal("Failed to create index builder", zap.Error(err))
	}
	defer builder.Release()

	indexMgr := index.NewManager(builder, logger.Named("index")).WithMetrics(index.Metrics{
		BuildDuration: metrics.IndexBuildDuration,
		Terms:         metrics.IndexTerms,
		Records:       metrics.IndexRecords,
	})

	recoveryMgr := recovery.NewManager(recovery.Config{
		IDPrefix:           cfg.Search.IDPrefix,
		MaxFallbackResults: cfg.Search.MaxFallbackResults,
		RetryBaseDelay:     cfg.Search.RetryBaseDelay(),
		MaxRetries:         cfg.Search.MaxRetries,
		HistoryCapacity:    cfg.Recovery.HistoryCapacity,
	}, logger.Named("recovery")).WithMetrics(metrics.RecoveriesTotal)

	resolver, err := filter.NewResolver(cfg.Search.StatusResolver)
	if err != nil {
		logger.Fatal("Failed to select status resolver", zap.Error(err))
	}
	logger.Info("Status resolver selected", zap.String("resolver", cfg.Search.StatusResolver))

	searchSvc := searchuc.New(indexMgr, filter.NewEngine(resolver, logger.Named("filter")), recoveryMgr, searchuc.Config{
		Limits: request.Limits{
			DefaultTimeout:  cfg.Search.DefaultTimeout(),
			DefaultPageSize: cfg.Search.DefaultPageSize,
			MaxPageSize:     cfg.Search.MaxPageSize,
		},
		ProgressiveBatchSize: cfg.Search.ProgressiveBatchSize,
		IDPrefix:             cfg.Search.IDPrefix,
	}, logger.Named("search")).
		WithHistory(historyrepo.New(store, historyrepo.Config{
			KeyPrefix:  cfg.History.KeyPrefix,
			MaxEntries: cfg.History.MaxEntries,
		})).
		WithMetrics(searchuc.Metrics{
			Searches: metrics.SearchesTotal,
			Duration: metrics.SearchDuration,
		})

	if cfg.Index.SeedFile != "" {
		n, err := seedRecords(ctx, searchSvc, cfg.Index.SeedFile)
		if err != nil {
			logger.Fatal("Failed to load seed records", zap.String("file", cfg.Index.SeedFile), zap.Error(err))
		}
		logger.Info("Seed records indexed", zap.Int("records", n))
	}

	healthSvc := healthuc.New(indexMgr, store)
	server := chiTransport.NewServer(searchSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
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

// openHistoryStore creates the list store for the configured driver.
func openHistoryStore(cfg config.HistoryConfig, logger *zap.Logger) (db.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return dbMemory.NewStore(), nil
	case config.DriverRedis:
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Addrs,
			Password: cfg.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		return s, nil
	case config.DriverBadger:
		s, err := dbBadger.Open(dbBadger.Config{Path: cfg.Path}, logger)
		if err != nil {
			return nil, fmt.Errorf("badger: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown history driver %q", cfg.Driver)
	}
}

// seedRecords indexes a JSON array of records from path.
func seedRecords(ctx context.Context, svc *searchuc.Service, path string) (int, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()

	records, err := dto.DecodeRecords(f)
	if err != nil {
		return 0, err
	}
	if err := svc.UpdateRecords(ctx, records); err != nil {
		return 0, err
	}
	return len(records), nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.String("path", r.URL.Path),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.CodeInternalError,
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
				zap.String("route", chi.RouteContext(r.Context()).RoutePattern()),
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
