// Package engine implements ranked retrieval over a published index
// generation. An Engine owns read-only references to the four persisted
// artifacts (final index file, lexicon, IDF table, norms table) and answers
// queries with O(1) lexicon lookups and one single-line disk fetch per
// matched query term, never a full index scan.
package engine

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sort"
	"time"

	"github.com/vsearch-labs/vsearch/internal/analyzer"
	"github.com/vsearch-labs/vsearch/internal/index"
	"github.com/vsearch-labs/vsearch/internal/lexicon"
	"github.com/vsearch-labs/vsearch/internal/weights"
	"github.com/vsearch-labs/vsearch/pkg/metrics"
)

// ScoredDoc is one ranked result.
type ScoredDoc struct {
	Doc   index.DocID `json:"doc_id"`
	Score float64     `json:"score"`
}

// Result is a full query response.
type Result struct {
	Query      string      `json:"query"`
	Terms      []string    `json:"terms"`
	TotalHits  int         `json:"total_hits"`
	Results    []ScoredDoc `json:"results"`
	Generation string      `json:"generation"`
}

// Engine answers queries against one immutable index generation. All fields
// are read-only after construction; concurrent queries need no locking
// because every disk fetch goes through ReadAt with no shared cursor.
type Engine struct {
	file       *os.File
	lex        *lexicon.Lexicon
	tables     *weights.Tables
	analyzer   analyzer.Analyzer
	generation string
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// Open creates an Engine over the given artifacts. The analyzer must be the
// same one the generation was built with.
func Open(indexPath string, lex *lexicon.Lexicon, tables *weights.Tables, an analyzer.Analyzer, generation string, m *metrics.Metrics) (*Engine, error) {
	f, err := os.Open(indexPath)
	if err != nil {
		return nil, fmt.Errorf("opening index file: %w", err)
	}
	return &Engine{
		file:       f,
		lex:        lex,
		tables:     tables,
		analyzer:   an,
		generation: generation,
		metrics:    m,
		logger:     slog.Default().With("component", "query-engine", "generation", generation),
	}, nil
}

// Generation returns the id of the generation this engine serves.
func (e *Engine) Generation() string {
	return e.generation
}

// TermCount returns the vocabulary size of the generation.
func (e *Engine) TermCount() int {
	return e.lex.Len()
}

// Query normalizes rawText, ranks matching documents by cosine similarity
// between the query's TF-IDF vector and each document's, and returns the
// topK best, ties broken by ascending document id. A query whose terms are
// all absent from the lexicon yields an empty result, not an error.
func (e *Engine) Query(ctx context.Context, rawText string, topK int) (*Result, error) {
	start := time.Now()
	terms := e.analyzer.Analyze(rawText)
	result := &Result{
		Query:      rawText,
		Terms:      terms,
		Results:    []ScoredDoc{},
		Generation: e.generation,
	}
	if len(terms) == 0 {
		return result, nil
	}

	// Query term frequencies, pruning terms the lexicon does not know:
	// they contribute zero weight, and skipping them keeps query cost
	// proportional to matched postings rather than collection size.
	queryTF := make(map[string]uint32, len(terms))
	pruned := 0
	for _, term := range terms {
		queryTF[term]++
	}
	queryWeight := make(map[string]float64, len(queryTF))
	var queryNormSq float64
	for term, tf := range queryTF {
		idf, known := e.tables.IDF[term]
		if !known {
			pruned++
			continue
		}
		w := float64(tf) * idf
		queryWeight[term] = w
		queryNormSq += w * w
	}
	if e.metrics != nil && pruned > 0 {
		e.metrics.QueryTermsPruned.Add(float64(pruned))
	}
	queryNorm := math.Sqrt(queryNormSq)
	if len(queryWeight) == 0 || queryNorm == 0 {
		e.observe(start, "zero_result", 0)
		return result, nil
	}

	// One seek + one-line read per surviving term, folded into a sparse
	// dot-product accumulator.
	accumulator := make(map[index.DocID]float64)
	for term, qw := range queryWeight {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		offset, ok := e.lex.Lookup(term)
		if !ok {
			// IDF table and lexicon are built from the same index pass;
			// a term in one but not the other means corrupt artifacts.
			return nil, fmt.Errorf("term %q present in idf table but missing from lexicon", term)
		}
		entry, err := e.fetchLine(offset)
		if err != nil {
			e.observe(start, "error", 0)
			return nil, fmt.Errorf("fetching postings for term %q: %w", term, err)
		}
		idf := e.tables.IDF[term]
		for _, p := range entry.Postings {
			accumulator[p.Doc] += float64(p.Freq) * idf * qw
		}
	}

	scored := make([]ScoredDoc, 0, len(accumulator))
	for doc, dot := range accumulator {
		docNorm := 0.0
		if int(doc) < len(e.tables.Norms) {
			docNorm = e.tables.Norms[doc]
		}
		denom := queryNorm * docNorm
		if denom == 0 {
			continue
		}
		scored = append(scored, ScoredDoc{Doc: doc, Score: dot / denom})
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Doc < scored[j].Doc
	})
	result.TotalHits = len(scored)
	if topK > 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	result.Results = scored

	outcome := "hit"
	if len(scored) == 0 {
		outcome = "zero_result"
	}
	e.observe(start, outcome, len(scored))
	e.logger.Debug("query executed",
		"query", rawText,
		"terms", len(queryWeight),
		"pruned", pruned,
		"hits", result.TotalHits,
		"latency", time.Since(start),
	)
	return result, nil
}

// fetchLine reads exactly one index line starting at offset via ReadAt, so
// concurrent queries never race on a shared seek position.
func (e *Engine) fetchLine(offset int64) (index.TermEntry, error) {
	const chunkSize = 4096
	var line []byte
	buf := make([]byte, chunkSize)
	pos := offset
	for {
		n, err := e.file.ReadAt(buf, pos)
		if n > 0 {
			if i := bytes.IndexByte(buf[:n], '\n'); i >= 0 {
				line = append(line, buf[:i+1]...)
				return index.DecodeLine(line)
			}
			line = append(line, buf[:n]...)
			pos += int64(n)
		}
		if err != nil {
			return index.TermEntry{}, fmt.Errorf("reading index line at offset %d: %w", offset, err)
		}
	}
}

func (e *Engine) observe(start time.Time, outcome string, results int) {
	if e.metrics == nil {
		return
	}
	e.metrics.QueriesTotal.WithLabelValues(outcome).Inc()
	e.metrics.QueryLatency.WithLabelValues("none").Observe(time.Since(start).Seconds())
	e.metrics.QueryResultsCount.Observe(float64(results))
}

// Close releases the index file handle.
func (e *Engine) Close() error {
	return e.file.Close()
}
