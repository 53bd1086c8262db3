// The indexer builds a new index generation from the configured record
// source and publishes it atomically. It is a batch job: it runs the full
// pipeline once and exits.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vsearch-labs/vsearch/internal/analyzer"
	"github.com/vsearch-labs/vsearch/internal/generation"
	"github.com/vsearch-labs/vsearch/internal/source"
	"github.com/vsearch-labs/vsearch/pkg/config"
	"github.com/vsearch-labs/vsearch/pkg/kafka"
	"github.com/vsearch-labs/vsearch/pkg/logger"
	"github.com/vsearch-labs/vsearch/pkg/metrics"
	"github.com/vsearch-labs/vsearch/pkg/postgres"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, cleanup, err := openSource(ctx, cfg)
	if err != nil {
		slog.Error("failed to open record source", "type", cfg.Source.Type, "error", err)
		os.Exit(1)
	}
	defer cleanup()

	slog.Info("starting index build",
		"source", cfg.Source.Type,
		"data_dir", cfg.Build.DataDir,
		"batch_size", cfg.Build.RecordBatchSize,
		"memory_budget", cfg.Build.MemoryBudget,
		"workers", cfg.Build.Workers,
	)
	manifest, err := generation.Build(ctx, cfg.Build, src, analyzer.NewStandard(), m)
	if err != nil {
		slog.Error("index build failed", "error", err)
		os.Exit(1)
	}
	slog.Info("index build complete",
		"generation", manifest.Generation,
		"docs", manifest.DocCount,
		"terms", manifest.TermCount,
		"records_skipped", manifest.RecordsSkipped,
	)
}

// openSource constructs the configured record source and a cleanup func
// closing everything it opened.
func openSource(ctx context.Context, cfg *config.Config) (source.Reader, func(), error) {
	switch cfg.Source.Type {
	case "jsonl":
		src, err := source.OpenJSONL(cfg.Source.Path)
		if err != nil {
			return nil, nil, err
		}
		return src, func() { src.Close() }, nil
	case "postgres":
		client, err := postgres.New(cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		src, err := source.OpenPostgres(ctx, client, cfg.Postgres.Table)
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		return src, func() {
			src.Close()
			client.Close()
		}, nil
	case "kafka":
		consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.IngestTopic)
		src := source.FromKafka(consumer, cfg.Source.MaxRecords)
		return src, func() { src.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown source type %q", cfg.Source.Type)
	}
}
