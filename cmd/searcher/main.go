// The searcher serves ranked queries over the published index generation.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vsearch-labs/vsearch/internal/analyzer"
	"github.com/vsearch-labs/vsearch/internal/engine"
	"github.com/vsearch-labs/vsearch/internal/generation"
	"github.com/vsearch-labs/vsearch/pkg/config"
	"github.com/vsearch-labs/vsearch/pkg/logger"
	"github.com/vsearch-labs/vsearch/pkg/metrics"
	pkgredis "github.com/vsearch-labs/vsearch/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdown := metrics.StartServer(cfg.Metrics.Port)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdown(ctx)
		}()
	}

	eng, manifest, err := generation.OpenCurrent(cfg.Build.DataDir, analyzer.NewStandard(), m)
	if err != nil {
		slog.Error("failed to open published generation", "data_dir", cfg.Build.DataDir, "error", err)
		os.Exit(1)
	}
	defer eng.Close()
	slog.Info("generation loaded",
		"generation", manifest.Generation,
		"docs", manifest.DocCount,
		"terms", manifest.TermCount,
	)

	var queryCache *engine.QueryCache
	if cfg.Search.CacheEnabled {
		redisClient, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, query caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = engine.NewQueryCache(redisClient, cfg.Redis, m)
			slog.Info("query cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	h := engine.NewHandler(eng, queryCache, cfg.Search.DefaultLimit, cfg.Search.MaxLimit)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /search", h.Search)
	mux.HandleFunc("GET /healthz", h.Healthz)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Search.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Search.ReadTimeout,
		WriteTimeout: cfg.Search.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Search.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("search service stopped")
}
