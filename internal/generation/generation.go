// Package generation manages immutable index generations: the on-disk
// layout of one build's artifacts, the atomic CURRENT pointer swap that
// publishes a finished generation, and the orchestration of a full build.
// Queries never observe a partially built generation; a failed build leaves
// the previously published one untouched and servable.
package generation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vsearch-labs/vsearch/internal/analyzer"
	"github.com/vsearch-labs/vsearch/internal/engine"
	"github.com/vsearch-labs/vsearch/internal/lexicon"
	"github.com/vsearch-labs/vsearch/internal/weights"
	vserrors "github.com/vsearch-labs/vsearch/pkg/errors"
	"github.com/vsearch-labs/vsearch/pkg/metrics"
)

// Artifact file names within a generation directory.
const (
	IndexFile    = "index.dat"
	LexiconFile  = "lexicon.json"
	IDFFile      = "idf.json"
	NormsFile    = "norms.json"
	ManifestFile = "manifest.json"

	currentFile = "CURRENT"
	blockSubdir = "blocks"
)

// publish atomically points CURRENT at the given generation directory name.
func publish(dataDir, generation string) error {
	path := filepath.Join(dataDir, currentFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(generation+"\n"), 0644); err != nil {
		return fmt.Errorf("writing CURRENT: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("swapping CURRENT: %w", err)
	}
	return nil
}

// Current returns the name of the published generation.
func Current(dataDir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dataDir, currentFile))
	if err != nil {
		if os.IsNotExist(err) {
			return "", vserrors.ErrNoGeneration
		}
		return "", fmt.Errorf("reading CURRENT: %w", err)
	}
	name := strings.TrimSpace(string(data))
	if name == "" {
		return "", vserrors.ErrNoGeneration
	}
	return name, nil
}

// OpenCurrent loads the published generation's artifacts and returns a
// query engine over them, verifying that the caller's analyzer matches the
// one the generation was built with. m may be nil.
func OpenCurrent(dataDir string, an analyzer.Analyzer, m *metrics.Metrics) (*engine.Engine, *Manifest, error) {
	name, err := Current(dataDir)
	if err != nil {
		return nil, nil, err
	}
	dir := filepath.Join(dataDir, name)

	manifest, err := LoadManifest(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, nil, fmt.Errorf("loading generation %s: %w", name, err)
	}
	if manifest.Analyzer != an.Name() {
		return nil, nil, fmt.Errorf("generation %s was built with analyzer %q, engine has %q: %w",
			name, manifest.Analyzer, an.Name(), vserrors.ErrConfigMismatch)
	}
	lex, err := lexicon.Load(filepath.Join(dir, LexiconFile))
	if err != nil {
		return nil, nil, fmt.Errorf("loading generation %s: %w", name, err)
	}
	tables, err := weights.Load(filepath.Join(dir, IDFFile), filepath.Join(dir, NormsFile))
	if err != nil {
		return nil, nil, fmt.Errorf("loading generation %s: %w", name, err)
	}
	eng, err := engine.Open(filepath.Join(dir, IndexFile), lex, tables, an, name, m)
	if err != nil {
		return nil, nil, fmt.Errorf("opening generation %s: %w", name, err)
	}
	if m != nil {
		m.IndexTermCount.Set(float64(manifest.TermCount))
		m.IndexDocCount.Set(float64(manifest.DocCount))
	}
	return eng, manifest, nil
}
