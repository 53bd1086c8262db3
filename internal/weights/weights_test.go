package weights

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vserrors "github.com/vsearch-labs/vsearch/pkg/errors"
)

func writeIndex(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.dat")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestIDFFormula(t *testing.T) {
	assert.InDelta(t, math.Log(2), IDF(2, 1), 1e-12)
	assert.InDelta(t, 0, IDF(5, 5), 1e-12, "term in every document carries zero weight")
	assert.InDelta(t, math.Log(3.0/2.0), IDF(3, 2), 1e-12)
}

func TestIDFDecreasesWithDocumentFrequency(t *testing.T) {
	const totalDocs = 100
	prev := math.Inf(1)
	for df := 1; df <= totalDocs; df++ {
		idf := IDF(totalDocs, df)
		assert.Less(t, idf, prev, "df=%d", df)
		prev = idf
	}
}

func TestComputeHandWorkedExample(t *testing.T) {
	// doc 0: cat(1) sat(1); doc 1: dog(2) sat(1)
	path := writeIndex(t, "cat\t0:1\ndog\t1:2\nsat\t0:1 1:1\n")
	tables, err := Compute(path, 2)
	require.NoError(t, err)

	ln2 := math.Log(2)
	assert.InDelta(t, ln2, tables.IDF["cat"], 1e-12)
	assert.InDelta(t, ln2, tables.IDF["dog"], 1e-12)
	assert.InDelta(t, 0, tables.IDF["sat"], 1e-12)

	require.Len(t, tables.Norms, 2)
	// norm0 = sqrt((1*ln2)^2 + (1*0)^2); norm1 = sqrt((2*ln2)^2 + 0)
	assert.InDelta(t, ln2, tables.Norms[0], 1e-12)
	assert.InDelta(t, 2*ln2, tables.Norms[1], 1e-12)
}

func TestComputeRejectsDocumentBeyondDeclaredCount(t *testing.T) {
	path := writeIndex(t, "stray\t5:1\n")
	_, err := Compute(path, 3)
	assert.ErrorIs(t, err, vserrors.ErrConfigMismatch)
}

func TestComputeEmptyIndex(t *testing.T) {
	path := writeIndex(t, "")
	tables, err := Compute(path, 0)
	require.NoError(t, err)
	assert.Empty(t, tables.IDF)
	assert.Empty(t, tables.Norms)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := writeIndex(t, "left\t0:2 2:1\nright\t1:3\n")
	tables, err := Compute(path, 3)
	require.NoError(t, err)

	dir := t.TempDir()
	idfPath := filepath.Join(dir, "idf.json")
	normsPath := filepath.Join(dir, "norms.json")
	require.NoError(t, tables.Save(idfPath, normsPath))

	loaded, err := Load(idfPath, normsPath)
	require.NoError(t, err)
	require.Len(t, loaded.Norms, len(tables.Norms))
	for i := range tables.Norms {
		assert.InDelta(t, tables.Norms[i], loaded.Norms[i], 1e-12)
	}
	require.Len(t, loaded.IDF, len(tables.IDF))
	for term, idf := range tables.IDF {
		assert.InDelta(t, idf, loaded.IDF[term], 1e-12, term)
	}
}
