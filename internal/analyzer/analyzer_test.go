package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeLowercasesAndSplits(t *testing.T) {
	a := NewStandard()
	terms := a.Analyze("Quick-Brown FOX! jumped")
	assert.Equal(t, []string{"quick", "brown", "fox", "jump"}, terms)
}

func TestAnalyzeDropsStopWordsAndShortTokens(t *testing.T) {
	a := NewStandard()
	terms := a.Analyze("the cat is on a mat")
	assert.Equal(t, []string{"cat", "mat"}, terms)
}

func TestAnalyzeEmptyInput(t *testing.T) {
	a := NewStandard()
	assert.Empty(t, a.Analyze(""))
	assert.Empty(t, a.Analyze("!!! ... ???"))
	assert.Empty(t, a.Analyze("the of and"))
}

func TestAnalyzePreservesOrderAndDuplicates(t *testing.T) {
	a := NewStandard()
	terms := a.Analyze("dog chases dog")
	require.Len(t, terms, 3)
	assert.Equal(t, terms[0], terms[2])
}

func TestStemMapsPluralsToSingular(t *testing.T) {
	a := NewStandard()
	// Query-time and index-time forms must collapse to the same stem.
	assert.Equal(t, a.Analyze("cats"), a.Analyze("cat"))
	assert.Equal(t, a.Analyze("dogs"), a.Analyze("dog"))
}

func TestStemSuffixRules(t *testing.T) {
	cases := map[string]string{
		"indexing":    "index",
		"computation": "computat",
		"queries":     "query",
		"rankers":     "ranker",
	}
	for word, want := range cases {
		got := stem(word)
		assert.Equal(t, want, got, "stem(%q)", word)
	}
}

func TestAnalyzerIsDeterministic(t *testing.T) {
	a := NewStandard()
	text := "Building disk-backed indexes with bounded memory"
	first := a.Analyze(text)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, a.Analyze(text))
	}
}
