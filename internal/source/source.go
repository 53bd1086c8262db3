// Package source defines the record source consumed by the index build
// pipeline and provides implementations backed by an in-memory slice, a
// JSONL file, the PostgreSQL record store, and a Kafka ingest topic.
//
// A source is read strictly once, in source order; the core never requires
// random access.
package source

import (
	"context"
	"io"

	"github.com/vsearch-labs/vsearch/internal/index"
)

// Record is one (documentId, rawText) pair delivered by the record store.
type Record struct {
	ID   index.DocID `json:"id"`
	Text string      `json:"text"`
}

// Reader yields records sequentially. Next returns io.EOF after the last
// record.
type Reader interface {
	Next(ctx context.Context) (Record, error)
	Close() error
}

// Counter is implemented by sources that know their total document count up
// front. When absent, the builder derives the count from the ids it
// observed.
type Counter interface {
	TotalDocs(ctx context.Context) (int, error)
}

// Slice is an in-memory Reader over a fixed set of records.
type Slice struct {
	records []Record
	pos     int
}

// FromSlice wraps records in a Reader.
func FromSlice(records []Record) *Slice {
	return &Slice{records: records}
}

// Next implements Reader.
func (s *Slice) Next(ctx context.Context) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	if s.pos >= len(s.records) {
		return Record{}, io.EOF
	}
	rec := s.records[s.pos]
	s.pos++
	return rec, nil
}

// Close implements Reader.
func (s *Slice) Close() error {
	return nil
}

// TotalDocs implements Counter.
func (s *Slice) TotalDocs(ctx context.Context) (int, error) {
	maxID := index.DocID(0)
	for _, rec := range s.records {
		if rec.ID > maxID {
			maxID = rec.ID
		}
	}
	if len(s.records) == 0 {
		return 0, nil
	}
	return int(maxID) + 1, nil
}
