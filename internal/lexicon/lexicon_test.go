package lexicon

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutLookup(t *testing.T) {
	lex := New()
	lex.Put("apple", 0)
	lex.Put("banana", 42)

	off, ok := lex.Lookup("apple")
	require.True(t, ok)
	assert.Equal(t, int64(0), off)

	off, ok = lex.Lookup("banana")
	require.True(t, ok)
	assert.Equal(t, int64(42), off)

	_, ok = lex.Lookup("cherry")
	assert.False(t, ok)
	assert.Equal(t, 2, lex.Len())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	lex := New()
	lex.Put("alpha", 0)
	lex.Put("bravo", 120)
	lex.Put("charlie", 4096)

	path := filepath.Join(t.TempDir(), "lexicon.json")
	require.NoError(t, lex.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, lex.Len(), loaded.Len())
	for _, term := range []string{"alpha", "bravo", "charlie"} {
		want, _ := lex.Lookup(term)
		got, ok := loaded.Lookup(term)
		require.True(t, ok, term)
		assert.Equal(t, want, got, term)
	}
}

func TestRebuildFromIndexFile(t *testing.T) {
	content := "apple\t0:2 3:1\nbanana\t2:4\ncherry\t0:1 1:1 2:1\n"
	path := filepath.Join(t.TempDir(), "index.dat")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	lex, err := Rebuild(path)
	require.NoError(t, err)
	assert.Equal(t, 3, lex.Len())

	off, ok := lex.Lookup("apple")
	require.True(t, ok)
	assert.Equal(t, int64(0), off)

	off, ok = lex.Lookup("banana")
	require.True(t, ok)
	assert.Equal(t, int64(len("apple\t0:2 3:1\n")), off)

	off, ok = lex.Lookup("cherry")
	require.True(t, ok)
	assert.Equal(t, int64(len("apple\t0:2 3:1\nbanana\t2:4\n")), off)
}

func TestRebuildEmptyIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.dat")
	require.NoError(t, os.WriteFile(path, nil, 0644))
	lex, err := Rebuild(path)
	require.NoError(t, err)
	assert.Equal(t, 0, lex.Len())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
