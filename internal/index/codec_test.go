package index

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeLine(t *testing.T) {
	entry := TermEntry{
		Term: "search",
		Postings: PostingList{
			{Doc: 0, Freq: 3},
			{Doc: 7, Freq: 1},
			{Doc: 1042, Freq: 12},
		},
	}
	line := EncodeLine(entry)
	assert.Equal(t, "search\t0:3 7:1 1042:12\n", string(line))

	decoded, err := DecodeLine(line)
	require.NoError(t, err)
	assert.Equal(t, entry, decoded)
}

func TestEncodeLineIsByteStable(t *testing.T) {
	entry := TermEntry{Term: "stable", Postings: PostingList{{Doc: 5, Freq: 2}}}
	assert.Equal(t, EncodeLine(entry), EncodeLine(entry))
}

func TestDecodeLineRejectsMalformedInput(t *testing.T) {
	cases := []string{
		"",
		"notab",
		"term\t",
		"term\tdocfreq",
		"term\tx:1",
		"term\t1:y",
		"\t1:2",
	}
	for _, line := range cases {
		_, err := DecodeLine([]byte(line))
		assert.Error(t, err, "line %q", line)
	}
}

func TestLineScannerTracksOffsets(t *testing.T) {
	var buf bytes.Buffer
	entries := []TermEntry{
		{Term: "alpha", Postings: PostingList{{Doc: 1, Freq: 1}}},
		{Term: "beta", Postings: PostingList{{Doc: 2, Freq: 4}, {Doc: 3, Freq: 1}}},
		{Term: "gamma", Postings: PostingList{{Doc: 1, Freq: 2}}},
	}
	var wantOffsets []int64
	for _, e := range entries {
		wantOffsets = append(wantOffsets, int64(buf.Len()))
		buf.Write(EncodeLine(e))
	}

	s := NewLineScanner(&buf)
	for i, want := range entries {
		entry, off, err := s.Next()
		require.NoError(t, err)
		assert.Equal(t, want, entry)
		assert.Equal(t, wantOffsets[i], off)
	}
	_, _, err := s.Next()
	assert.Equal(t, io.EOF, err)
}

func TestLineScannerDetectsTruncation(t *testing.T) {
	data := EncodeLine(TermEntry{Term: "whole", Postings: PostingList{{Doc: 1, Freq: 1}}})
	data = append(data, []byte("partial\t2:")...) // no trailing newline

	s := NewLineScanner(bytes.NewReader(data))
	_, _, err := s.Next()
	require.NoError(t, err)
	_, _, err = s.Next()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
