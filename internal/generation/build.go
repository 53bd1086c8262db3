package generation

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/vsearch-labs/vsearch/internal/analyzer"
	"github.com/vsearch-labs/vsearch/internal/source"
	"github.com/vsearch-labs/vsearch/internal/spimi"
	"github.com/vsearch-labs/vsearch/internal/weights"
	"github.com/vsearch-labs/vsearch/pkg/config"
	vserrors "github.com/vsearch-labs/vsearch/pkg/errors"
	"github.com/vsearch-labs/vsearch/pkg/metrics"
)

// Build runs the full pipeline — block construction, k-way merge, weight
// computation — into a fresh generation directory under cfg.DataDir and
// publishes it atomically. On any fatal error the partial directory is
// removed and CURRENT is left pointing at the previous generation. m may be
// nil.
func Build(ctx context.Context, cfg config.BuildConfig, src source.Reader, an analyzer.Analyzer, m *metrics.Metrics) (*Manifest, error) {
	logger := slog.Default().With("component", "index-build")
	start := time.Now()
	buildID := uuid.NewString()
	name := fmt.Sprintf("gen_%s", buildID[:8])
	dir := filepath.Join(cfg.DataDir, name)

	manifest, err := buildInto(ctx, dir, name, buildID, cfg, src, an, m)
	if err != nil {
		os.RemoveAll(dir)
		if m != nil {
			m.BuildsTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}
	if err := publish(cfg.DataDir, name); err != nil {
		os.RemoveAll(dir)
		if m != nil {
			m.BuildsTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}
	if m != nil {
		m.BuildsTotal.WithLabelValues("success").Inc()
		m.BuildDuration.Observe(time.Since(start).Seconds())
		m.IndexTermCount.Set(float64(manifest.TermCount))
		m.IndexDocCount.Set(float64(manifest.DocCount))
	}
	logger.Info("generation published",
		"generation", name,
		"build_id", buildID,
		"docs", manifest.DocCount,
		"terms", manifest.TermCount,
		"duration", time.Since(start),
	)
	return manifest, nil
}

func buildInto(ctx context.Context, dir, name, buildID string, cfg config.BuildConfig, src source.Reader, an analyzer.Analyzer, m *metrics.Metrics) (*Manifest, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating generation directory: %w", err)
	}

	builder := spimi.NewBuilder(src, an, filepath.Join(dir, blockSubdir), cfg.RecordBatchSize, cfg.MemoryBudget, cfg.Workers, m)
	blocks, stats, err := builder.Build(ctx)
	if err != nil {
		return nil, err
	}

	indexPath := filepath.Join(dir, IndexFile)
	lex, err := spimi.Merge(ctx, blocks, indexPath, m)
	if err != nil {
		return nil, err
	}
	if err := os.RemoveAll(filepath.Join(dir, blockSubdir)); err != nil {
		return nil, fmt.Errorf("removing consumed block directory: %w", err)
	}

	totalDocs, err := resolveTotalDocs(ctx, src, stats)
	if err != nil {
		return nil, err
	}
	tables, err := weights.Compute(indexPath, totalDocs)
	if err != nil {
		return nil, err
	}

	if err := lex.Save(filepath.Join(dir, LexiconFile)); err != nil {
		return nil, err
	}
	if err := tables.Save(filepath.Join(dir, IDFFile), filepath.Join(dir, NormsFile)); err != nil {
		return nil, err
	}

	manifest := &Manifest{
		Generation:     name,
		BuildID:        buildID,
		Analyzer:       an.Name(),
		DocCount:       totalDocs,
		TermCount:      lex.Len(),
		RecordsRead:    stats.RecordsRead,
		RecordsSkipped: stats.RecordsSkipped,
		BlockCount:     stats.BlocksFlushed,
		CreatedAt:      time.Now().UTC(),
		Files:          fileSizes(dir, IndexFile, LexiconFile, IDFFile, NormsFile),
	}
	if err := manifest.Save(filepath.Join(dir, ManifestFile)); err != nil {
		return nil, err
	}
	return manifest, nil
}

// resolveTotalDocs prefers the record store's own count over the build's
// observation; the store is authoritative, and weight computation verifies
// the two agree.
func resolveTotalDocs(ctx context.Context, src source.Reader, stats spimi.Stats) (int, error) {
	observed := 0
	if stats.RecordsRead > stats.RecordsSkipped {
		observed = int(stats.MaxDocID) + 1
	}
	counter, ok := src.(source.Counter)
	if !ok {
		return observed, nil
	}
	declared, err := counter.TotalDocs(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetching record count: %w", err)
	}
	if declared < observed {
		return 0, vserrors.Newf(vserrors.ErrConfigMismatch, "index-build",
			"record store declares %d documents but ids up to %d were indexed", declared, observed-1)
	}
	return declared, nil
}

func fileSizes(dir string, names ...string) map[string]int64 {
	sizes := make(map[string]int64, len(names))
	for _, name := range names {
		if info, err := os.Stat(filepath.Join(dir, name)); err == nil {
			sizes[name] = info.Size()
		}
	}
	return sizes
}
