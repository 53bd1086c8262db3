package spimi

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsearch-labs/vsearch/internal/analyzer"
	"github.com/vsearch-labs/vsearch/internal/index"
	"github.com/vsearch-labs/vsearch/internal/source"
	vserrors "github.com/vsearch-labs/vsearch/pkg/errors"
)

func buildBlocks(t *testing.T, records []source.Record, batchSize int, memBudget int64, workers int) ([]string, Stats) {
	t.Helper()
	b := NewBuilder(source.FromSlice(records), analyzer.NewStandard(), t.TempDir(), batchSize, memBudget, workers, nil)
	blocks, stats, err := b.Build(context.Background())
	require.NoError(t, err)
	return blocks, stats
}

func readBlock(t *testing.T, path string) []index.TermEntry {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	var entries []index.TermEntry
	scanner := index.NewLineScanner(f)
	for {
		entry, _, err := scanner.Next()
		if err != nil {
			break
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestBuildFlushesOnBatchSize(t *testing.T) {
	records := []source.Record{
		{ID: 0, Text: "alpha bravo"},
		{ID: 1, Text: "charlie delta"},
		{ID: 2, Text: "echo foxtrot"},
		{ID: 3, Text: "golf hotel"},
		{ID: 4, Text: "india juliet"},
	}
	blocks, stats := buildBlocks(t, records, 2, 0, 1)
	assert.Len(t, blocks, 3)
	assert.Equal(t, 5, stats.RecordsRead)
	assert.Equal(t, 0, stats.RecordsSkipped)
	assert.Equal(t, index.DocID(4), stats.MaxDocID)
}

func TestBuildBlocksAreTermSorted(t *testing.T) {
	records := []source.Record{
		{ID: 0, Text: "zebra yak xylophone walrus"},
		{ID: 1, Text: "aardvark zebra mongoose"},
	}
	blocks, _ := buildBlocks(t, records, 100, 0, 1)
	require.Len(t, blocks, 1)
	entries := readBlock(t, blocks[0])
	require.NotEmpty(t, entries)
	for i := 1; i < len(entries); i++ {
		assert.Less(t, entries[i-1].Term, entries[i].Term)
	}
	for _, e := range entries {
		for i := 1; i < len(e.Postings); i++ {
			assert.Less(t, e.Postings[i-1].Doc, e.Postings[i].Doc)
		}
	}
}

func TestBuildRecordsExactTermFrequencies(t *testing.T) {
	records := []source.Record{
		{ID: 0, Text: "wolf wolf wolf moon"},
	}
	blocks, _ := buildBlocks(t, records, 10, 0, 1)
	require.Len(t, blocks, 1)
	entries := readBlock(t, blocks[0])
	freqs := map[string]uint32{}
	for _, e := range entries {
		require.Len(t, e.Postings, 1)
		freqs[e.Term] = e.Postings[0].Freq
	}
	assert.Equal(t, uint32(3), freqs["wolf"])
	assert.Equal(t, uint32(1), freqs["moon"])
}

func TestBuildSkipsRecordsThatFailNormalization(t *testing.T) {
	records := []source.Record{
		{ID: 0, Text: "valid document text"},
		{ID: 1, Text: "!!! ... ???"},
		{ID: 2, Text: "the of and"},
		{ID: 3, Text: "another valid document"},
	}
	blocks, stats := buildBlocks(t, records, 100, 0, 1)
	assert.Equal(t, 4, stats.RecordsRead)
	assert.Equal(t, 2, stats.RecordsSkipped)
	require.Len(t, blocks, 1)
	for _, e := range readBlock(t, blocks[0]) {
		for _, p := range e.Postings {
			assert.NotEqual(t, index.DocID(1), p.Doc)
			assert.NotEqual(t, index.DocID(2), p.Doc)
		}
	}
}

func TestBuildFlushesOnMemoryBudget(t *testing.T) {
	var records []source.Record
	for i := 0; i < 10; i++ {
		records = append(records, source.Record{ID: index.DocID(i), Text: "repeated filler words"})
	}
	blocks, _ := buildBlocks(t, records, 1000, 100, 1)
	assert.Greater(t, len(blocks), 1, "small budget should force multiple flushes")
}

func TestBuildRejectsRecordExceedingBudgetAlone(t *testing.T) {
	records := []source.Record{{ID: 0, Text: "gigantic vocabulary explosion document"}}
	b := NewBuilder(source.FromSlice(records), analyzer.NewStandard(), t.TempDir(), 100, 8, 1, nil)
	_, _, err := b.Build(context.Background())
	assert.ErrorIs(t, err, vserrors.ErrResourceExhaustion)
}

func TestBuildParallelWorkersProduceSameMergedIndex(t *testing.T) {
	var records []source.Record
	for i := 0; i < 40; i++ {
		records = append(records, source.Record{
			ID:   index.DocID(i),
			Text: fmt.Sprintf("shared corpus term%d overlap vocabulary", i%7),
		})
	}
	var indexBytes [][]byte
	for _, workers := range []int{1, 4} {
		dir := t.TempDir()
		b := NewBuilder(source.FromSlice(records), analyzer.NewStandard(), filepath.Join(dir, "blocks"), 5, 0, workers, nil)
		blocks, _, err := b.Build(context.Background())
		require.NoError(t, err)
		indexPath := filepath.Join(dir, "index.dat")
		_, err = Merge(context.Background(), blocks, indexPath, nil)
		require.NoError(t, err)
		data, err := os.ReadFile(indexPath)
		require.NoError(t, err)
		indexBytes = append(indexBytes, data)
	}
	assert.Equal(t, indexBytes[0], indexBytes[1],
		"worker count must not change the merged index")
}

func BenchmarkBuilderFlush(b *testing.B) {
	var records []source.Record
	for i := 0; i < 1000; i++ {
		records = append(records, source.Record{
			ID:   index.DocID(i),
			Text: "benchmark document with several terms measuring block construction throughput",
		})
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		builder := NewBuilder(source.FromSlice(records), analyzer.NewStandard(), b.TempDir(), 250, 0, 1, nil)
		b.StartTimer()
		if _, _, err := builder.Build(context.Background()); err != nil {
			b.Fatal(err)
		}
	}
}
