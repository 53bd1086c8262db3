// Package lexicon maps terms to the exact byte offset of their line in the
// final index file. The lexicon is built once during the merge, held fully
// in memory, and persisted as JSON so the engine can reload it without
// re-scanning the index.
package lexicon

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/vsearch-labs/vsearch/internal/index"
)

// Lexicon is an in-memory term → byte-offset map. Lookup cost is O(1);
// residency is bounded by vocabulary size, not collection size.
type Lexicon struct {
	offsets map[string]int64
}

// New returns an empty Lexicon.
func New() *Lexicon {
	return &Lexicon{offsets: make(map[string]int64)}
}

// Put records the start offset of term's line. The merger is the only
// writer; offsets are immutable once the generation is published.
func (l *Lexicon) Put(term string, offset int64) {
	l.offsets[term] = offset
}

// Lookup returns the byte offset of term's index line.
func (l *Lexicon) Lookup(term string) (int64, bool) {
	off, ok := l.offsets[term]
	return off, ok
}

// Len returns the vocabulary size.
func (l *Lexicon) Len() int {
	return len(l.offsets)
}

// Save persists the lexicon as JSON, written atomically.
func (l *Lexicon) Save(path string) error {
	data, err := json.Marshal(l.offsets)
	if err != nil {
		return fmt.Errorf("marshaling lexicon: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing lexicon: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming lexicon: %w", err)
	}
	return nil
}

// Load reads a persisted lexicon back into memory.
func Load(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading lexicon: %w", err)
	}
	offsets := make(map[string]int64)
	if err := json.Unmarshal(data, &offsets); err != nil {
		return nil, fmt.Errorf("parsing lexicon: %w", err)
	}
	return &Lexicon{offsets: offsets}, nil
}

// Rebuild reconstructs a lexicon by scanning the final index sequentially
// and recording line-start offsets. Used for recovery and as the ground
// truth in round-trip checks.
func Rebuild(indexPath string) (*Lexicon, error) {
	f, err := os.Open(indexPath)
	if err != nil {
		return nil, fmt.Errorf("opening index: %w", err)
	}
	defer f.Close()

	lex := New()
	scanner := index.NewLineScanner(f)
	for {
		entry, offset, err := scanner.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("scanning index: %w", err)
		}
		lex.Put(entry.Term, offset)
	}
	return lex, nil
}
