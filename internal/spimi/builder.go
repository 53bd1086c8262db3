// Package spimi implements single-pass in-memory index construction and the
// external k-way merge that turns flushed blocks into the final index.
//
// The builder consumes the record source strictly once, accumulating a
// bounded in-memory partial index and flushing it as a sorted, self-contained
// block file whenever the record batch size or the posting-byte budget is
// reached. The merger then combines all blocks into one term-ascending index
// file while recording the exact start offset of every term line.
package spimi

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vsearch-labs/vsearch/internal/analyzer"
	"github.com/vsearch-labs/vsearch/internal/index"
	"github.com/vsearch-labs/vsearch/internal/source"
	vserrors "github.com/vsearch-labs/vsearch/pkg/errors"
	"github.com/vsearch-labs/vsearch/pkg/metrics"
)

// Stats summarizes one build pass over the record source.
type Stats struct {
	RecordsRead    int
	RecordsSkipped int
	BlocksFlushed  int
	// MaxDocID is only meaningful when RecordsRead > RecordsSkipped.
	MaxDocID index.DocID
}

// Builder constructs sorted temporary blocks from a record source.
type Builder struct {
	src       source.Reader
	analyzer  analyzer.Analyzer
	blockDir  string
	batchSize int
	memBudget int64
	workers   int
	metrics   *metrics.Metrics
	logger    *slog.Logger

	blockSeq atomic.Int64
}

// NewBuilder creates a Builder flushing blocks into blockDir. batchSize and
// memBudget are the two caller-visible flush triggers; whichever is reached
// first flushes the current block. workers > 1 enables parallel block
// building over the single sequential source pass. m may be nil.
func NewBuilder(src source.Reader, an analyzer.Analyzer, blockDir string, batchSize int, memBudget int64, workers int, m *metrics.Metrics) *Builder {
	if workers < 1 {
		workers = 1
	}
	if batchSize < 1 {
		batchSize = 1
	}
	return &Builder{
		src:       src,
		analyzer:  an,
		blockDir:  blockDir,
		batchSize: batchSize,
		memBudget: memBudget,
		workers:   workers,
		metrics:   m,
		logger:    slog.Default().With("component", "block-builder"),
	}
}

// Build reads the source to exhaustion and returns the paths of all flushed
// blocks, sorted in flush order. Records whose text normalizes to nothing
// are skipped and logged as data-quality events; everything else fatal
// aborts the pass.
func (b *Builder) Build(ctx context.Context) ([]string, Stats, error) {
	if err := os.MkdirAll(b.blockDir, 0755); err != nil {
		return nil, Stats{}, fmt.Errorf("creating block directory: %w", err)
	}

	records := make(chan source.Record, b.workers*2)
	results := make([]workerResult, b.workers)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < b.workers; i++ {
		i := i
		g.Go(func() error {
			res, err := b.runWorker(gctx, records)
			results[i] = res
			return err
		})
	}

	var stats Stats
	g.Go(func() error {
		defer close(records)
		for {
			rec, err := b.src.Next(gctx)
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return fmt.Errorf("reading record source: %w", err)
			}
			stats.RecordsRead++
			if b.metrics != nil {
				b.metrics.RecordsReadTotal.Inc()
			}
			select {
			case records <- rec:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	if err := g.Wait(); err != nil {
		return nil, stats, err
	}

	var paths []string
	sawDoc := false
	for _, res := range results {
		paths = append(paths, res.blocks...)
		stats.RecordsSkipped += res.skipped
		stats.BlocksFlushed += len(res.blocks)
		if res.sawDoc && (!sawDoc || res.maxDocID > stats.MaxDocID) {
			stats.MaxDocID = res.maxDocID
			sawDoc = true
		}
	}
	sort.Strings(paths)
	b.logger.Info("block build complete",
		"records_read", stats.RecordsRead,
		"records_skipped", stats.RecordsSkipped,
		"blocks", len(paths),
	)
	return paths, stats, nil
}

type workerResult struct {
	blocks   []string
	skipped  int
	maxDocID index.DocID
	sawDoc   bool
}

// runWorker drains the record channel into a private bounded block,
// flushing whenever either threshold trips.
func (b *Builder) runWorker(ctx context.Context, records <-chan source.Record) (workerResult, error) {
	var res workerResult
	block := newMemBlock()
	for {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		case rec, ok := <-records:
			if !ok {
				if block.docs > 0 {
					path, err := b.flush(block)
					if err != nil {
						return res, err
					}
					res.blocks = append(res.blocks, path)
				}
				return res, nil
			}
			terms := b.analyzer.Analyze(rec.Text)
			if len(terms) == 0 {
				res.skipped++
				if b.metrics != nil {
					b.metrics.RecordsSkippedTotal.Inc()
				}
				b.logger.Warn("skipping record that failed normalization",
					"doc_id", rec.ID,
					"reason", vserrors.ErrDataQuality.Error(),
				)
				continue
			}
			recBytes := block.add(rec.ID, terms)
			if recBytes > b.memBudget && b.memBudget > 0 {
				return res, vserrors.Newf(vserrors.ErrResourceExhaustion, "block-builder",
					"document %d alone needs %d posting bytes against a budget of %d",
					rec.ID, recBytes, b.memBudget)
			}
			if !res.sawDoc || rec.ID > res.maxDocID {
				res.maxDocID = rec.ID
				res.sawDoc = true
			}
			if block.docs >= b.batchSize || (b.memBudget > 0 && block.bytes >= b.memBudget) {
				path, err := b.flush(block)
				if err != nil {
					return res, err
				}
				res.blocks = append(res.blocks, path)
				block = newMemBlock()
			}
		}
	}
}

// flush sorts the accumulated terms, writes one block file atomically, and
// leaves the in-memory block ready to be discarded.
func (b *Builder) flush(block *memBlock) (string, error) {
	start := time.Now()
	name := fmt.Sprintf("block_%06d.blk", b.blockSeq.Add(1))
	finalPath := filepath.Join(b.blockDir, name)
	tmpPath := finalPath + ".tmp"

	entries := block.sortedEntries()
	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("creating block file: %w", err)
	}
	var buf []byte
	for _, entry := range entries {
		buf = index.AppendLine(buf[:0], entry)
		if _, err := f.Write(buf); err != nil {
			f.Close()
			os.Remove(tmpPath)
			return "", fmt.Errorf("writing block %s: %w", name, err)
		}
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("syncing block %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing block %s: %w", name, err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", fmt.Errorf("renaming block %s: %w", name, err)
	}
	if b.metrics != nil {
		b.metrics.BlocksFlushedTotal.Inc()
		b.metrics.BlockFlushDuration.Observe(time.Since(start).Seconds())
	}
	b.logger.Debug("block flushed",
		"block", name,
		"terms", len(entries),
		"docs", block.docs,
		"posting_bytes", block.bytes,
	)
	return finalPath, nil
}

// memBlock is the in-memory partial index for the block currently being
// filled. It is discarded after a flush, never merged in place.
type memBlock struct {
	postings map[string]index.PostingList
	docs     int
	bytes    int64
}

func newMemBlock() *memBlock {
	return &memBlock{postings: make(map[string]index.PostingList)}
}

// add folds one document's term sequence into the block and reports how many
// posting bytes this document contributed on its own.
func (m *memBlock) add(doc index.DocID, terms []string) int64 {
	counts := make(map[string]uint32, len(terms))
	for _, term := range terms {
		counts[term]++
	}
	var recBytes int64
	for term, freq := range counts {
		if _, seen := m.postings[term]; !seen {
			recBytes += int64(len(term)) + 16
		}
		m.postings[term] = append(m.postings[term], index.Posting{Doc: doc, Freq: freq})
		recBytes += 8
	}
	m.docs++
	m.bytes += recBytes
	return recBytes
}

// sortedEntries returns the block's terms lexicographically sorted with each
// posting list in ascending document order.
func (m *memBlock) sortedEntries() []index.TermEntry {
	entries := make([]index.TermEntry, 0, len(m.postings))
	for term, postings := range m.postings {
		sort.Slice(postings, func(i, j int) bool {
			return postings[i].Doc < postings[j].Doc
		})
		entries = append(entries, index.TermEntry{Term: term, Postings: postings})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	return entries
}
