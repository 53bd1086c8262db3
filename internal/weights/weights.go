// Package weights computes the per-term inverse document frequency table and
// per-document vector norms from the final index in a single sequential
// pass, and persists both as small JSON lookup tables.
package weights

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"

	"github.com/vsearch-labs/vsearch/internal/index"
	vserrors "github.com/vsearch-labs/vsearch/pkg/errors"
)

// Tables holds the query-time weight lookups for one index generation.
type Tables struct {
	// IDF maps each indexed term to ln(totalDocs / docFreq).
	IDF map[string]float64
	// Norms maps a document id to the Euclidean length of its TF-IDF
	// vector; indexed by document id.
	Norms []float64
}

// IDF returns the inverse document frequency for a term appearing in
// docFreq of totalDocs documents. docFreq is always at least 1 because a
// term line only exists when postings exist.
func IDF(totalDocs, docFreq int) float64 {
	return math.Log(float64(totalDocs) / float64(docFreq))
}

// Compute scans the final index once, sequentially, and derives both
// tables. A document id at or beyond totalDocs means the index and record
// source have diverged and is fatal.
//
// The per-document accumulator is sized by totalDocs: memory here is bounded
// by collection size in documents, not by vocabulary or index size.
func Compute(indexPath string, totalDocs int) (*Tables, error) {
	f, err := os.Open(indexPath)
	if err != nil {
		return nil, fmt.Errorf("opening index: %w", err)
	}
	defer f.Close()

	t := &Tables{
		IDF:   make(map[string]float64),
		Norms: make([]float64, totalDocs),
	}
	scanner := index.NewLineScanner(f)
	for {
		entry, _, err := scanner.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("scanning index: %w", err)
		}
		idf := IDF(totalDocs, len(entry.Postings))
		t.IDF[entry.Term] = idf
		for _, p := range entry.Postings {
			if int(p.Doc) >= totalDocs {
				return nil, vserrors.Newf(vserrors.ErrConfigMismatch, "weight-calculator",
					"document id %d observed with a declared count of %d", p.Doc, totalDocs)
			}
			w := float64(p.Freq) * idf
			t.Norms[p.Doc] += w * w
		}
	}
	for i, sum := range t.Norms {
		t.Norms[i] = math.Sqrt(sum)
	}
	slog.Default().With("component", "weight-calculator").Info("weights computed",
		"terms", len(t.IDF),
		"documents", totalDocs,
	)
	return t, nil
}

// Save persists both tables next to the index, written atomically.
func (t *Tables) Save(idfPath, normsPath string) error {
	if err := writeJSON(idfPath, t.IDF); err != nil {
		return fmt.Errorf("saving idf table: %w", err)
	}
	if err := writeJSON(normsPath, t.Norms); err != nil {
		return fmt.Errorf("saving norms table: %w", err)
	}
	return nil
}

// Load reads persisted tables back into memory.
func Load(idfPath, normsPath string) (*Tables, error) {
	t := &Tables{IDF: make(map[string]float64)}
	if err := readJSON(idfPath, &t.IDF); err != nil {
		return nil, fmt.Errorf("loading idf table: %w", err)
	}
	if err := readJSON(normsPath, &t.Norms); err != nil {
		return nil, fmt.Errorf("loading norms table: %w", err)
	}
	return t, nil
}

func writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
