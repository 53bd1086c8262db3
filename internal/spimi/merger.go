package spimi

import (
	"bufio"
	"container/heap"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/vsearch-labs/vsearch/internal/index"
	"github.com/vsearch-labs/vsearch/internal/lexicon"
	vserrors "github.com/vsearch-labs/vsearch/pkg/errors"
	"github.com/vsearch-labs/vsearch/pkg/metrics"
)

// Merge performs an external k-way merge of the given sorted block files
// into one term-ascending final index at indexPath, returning the lexicon of
// line-start offsets. Memory use is O(number of blocks). On success the
// input blocks are deleted; on any error the partial output is discarded and
// the blocks are left in place.
func Merge(ctx context.Context, blockPaths []string, indexPath string, m *metrics.Metrics) (*lexicon.Lexicon, error) {
	logger := slog.Default().With("component", "block-merger")
	start := time.Now()

	cursors := make([]*blockCursor, 0, len(blockPaths))
	defer func() {
		for _, c := range cursors {
			c.close()
		}
	}()
	for i, path := range blockPaths {
		c, err := openBlockCursor(path, i)
		if err != nil {
			return nil, vserrors.Newf(vserrors.ErrMergeConsistency, "block-merger",
				"opening block %s: %v", path, err)
		}
		cursors = append(cursors, c)
	}

	tmpPath := indexPath + ".tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("creating index file: %w", err)
	}
	w := bufio.NewWriterSize(out, 256*1024)
	discard := func() {
		out.Close()
		os.Remove(tmpPath)
	}

	h := &cursorHeap{}
	for _, c := range cursors {
		if err := c.advance(); err != nil {
			if err == io.EOF {
				continue
			}
			discard()
			return nil, err
		}
		heap.Push(h, c)
	}

	lex := lexicon.New()
	var offset int64
	var buf []byte
	for h.Len() > 0 {
		if err := ctx.Err(); err != nil {
			discard()
			return nil, err
		}
		term := (*h)[0].head.Term

		// Collect every cursor whose head matches the minimal term, in
		// block order, so shared terms concatenate deterministically.
		var matched []*blockCursor
		for h.Len() > 0 && (*h)[0].head.Term == term {
			matched = append(matched, heap.Pop(h).(*blockCursor))
		}
		sort.Slice(matched, func(i, j int) bool {
			return matched[i].blockID < matched[j].blockID
		})

		var postings index.PostingList
		for _, c := range matched {
			postings = append(postings, c.head.Postings...)
		}
		// Each document lands in exactly one block, so the concatenation is
		// duplicate-free; sorting by doc id makes the final line canonical
		// regardless of how records were partitioned into blocks.
		sort.Slice(postings, func(i, j int) bool {
			return postings[i].Doc < postings[j].Doc
		})
		for i := 1; i < len(postings); i++ {
			if postings[i].Doc == postings[i-1].Doc {
				discard()
				return nil, vserrors.Newf(vserrors.ErrMergeConsistency, "block-merger",
					"document %d appears twice in posting list for term %q", postings[i].Doc, term)
			}
		}

		buf = index.AppendLine(buf[:0], index.TermEntry{Term: term, Postings: postings})
		if _, err := w.Write(buf); err != nil {
			discard()
			return nil, fmt.Errorf("writing index line for term %q: %w", term, err)
		}
		lex.Put(term, offset)
		offset += int64(len(buf))

		for _, c := range matched {
			err := c.advance()
			if err == io.EOF {
				continue
			}
			if err != nil {
				discard()
				return nil, err
			}
			heap.Push(h, c)
		}
	}

	if err := w.Flush(); err != nil {
		discard()
		return nil, fmt.Errorf("flushing index file: %w", err)
	}
	if err := out.Sync(); err != nil {
		discard()
		return nil, fmt.Errorf("syncing index file: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("closing index file: %w", err)
	}
	if err := os.Rename(tmpPath, indexPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("renaming index file: %w", err)
	}

	for _, path := range blockPaths {
		if err := os.Remove(path); err != nil {
			logger.Warn("failed to delete consumed block", "block", path, "error", err)
		}
	}
	if m != nil {
		m.MergeDuration.Observe(time.Since(start).Seconds())
	}
	logger.Info("merge complete",
		"blocks", len(blockPaths),
		"terms", lex.Len(),
		"index_bytes", offset,
		"duration", time.Since(start),
	)
	return lex, nil
}

// blockCursor is a sequential read cursor over one sorted block file.
type blockCursor struct {
	path    string
	blockID int
	file    *os.File
	scanner *index.LineScanner
	head    index.TermEntry
	started bool
}

func openBlockCursor(path string, blockID int) (*blockCursor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &blockCursor{
		path:    path,
		blockID: blockID,
		file:    f,
		scanner: index.NewLineScanner(f),
	}, nil
}

// advance moves the cursor to its next term line, verifying the block's
// strict term ordering.
func (c *blockCursor) advance() error {
	entry, _, err := c.scanner.Next()
	if err == io.EOF {
		return io.EOF
	}
	if err != nil {
		return vserrors.Newf(vserrors.ErrMergeConsistency, "block-merger",
			"reading block %s: %v", c.path, err)
	}
	if c.started && entry.Term <= c.head.Term {
		return vserrors.Newf(vserrors.ErrMergeConsistency, "block-merger",
			"block %s is not sorted: %q follows %q", c.path, entry.Term, c.head.Term)
	}
	c.head = entry
	c.started = true
	return nil
}

func (c *blockCursor) close() {
	if c.file != nil {
		c.file.Close()
	}
}

// cursorHeap is a min-heap over (head term, block id); the block id is a
// deterministic tie-break only and never affects output content.
type cursorHeap []*blockCursor

func (h cursorHeap) Len() int { return len(h) }

func (h cursorHeap) Less(i, j int) bool {
	if h[i].head.Term != h[j].head.Term {
		return h[i].head.Term < h[j].head.Term
	}
	return h[i].blockID < h[j].blockID
}

func (h cursorHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *cursorHeap) Push(x any) {
	*h = append(*h, x.(*blockCursor))
}

func (h *cursorHeap) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return c
}
