package source

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSliceReadsInOrder(t *testing.T) {
	records := []Record{
		{ID: 0, Text: "first"},
		{ID: 1, Text: "second"},
		{ID: 2, Text: "third"},
	}
	r := FromSlice(records)
	defer r.Close()

	ctx := context.Background()
	for _, want := range records {
		got, err := r.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := r.Next(ctx)
	assert.Equal(t, io.EOF, err)
}

func TestSliceTotalDocs(t *testing.T) {
	r := FromSlice([]Record{{ID: 4, Text: "x"}, {ID: 9, Text: "y"}})
	total, err := r.TotalDocs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, total)

	empty := FromSlice(nil)
	total, err = empty.TotalDocs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestJSONLReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs.jsonl")
	content := `{"id":0,"text":"the cat sat"}
{"id":1,"text":"the dog sat on the mat"}

{"id":2,"text":"cats and dogs"}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	r, err := OpenJSONL(path)
	require.NoError(t, err)
	defer r.Close()

	ctx := context.Background()
	var got []Record
	for {
		rec, err := r.Next(ctx)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, rec)
	}
	require.Len(t, got, 3)
	assert.Equal(t, Record{ID: 1, Text: "the dog sat on the mat"}, got[1])
}

func TestJSONLRejectsMalformedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{not json}\n"), 0644))

	r, err := OpenJSONL(path)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Next(context.Background())
	assert.Error(t, err)
}

func TestSliceHonorsContextCancellation(t *testing.T) {
	r := FromSlice([]Record{{ID: 0, Text: "x"}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
