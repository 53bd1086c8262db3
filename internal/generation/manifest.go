package generation

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Manifest describes one index generation. It is written last during a
// build, so a directory without a readable manifest is never considered
// publishable.
type Manifest struct {
	Generation     string           `json:"generation"`
	BuildID        string           `json:"build_id"`
	Analyzer       string           `json:"analyzer"`
	DocCount       int              `json:"doc_count"`
	TermCount      int              `json:"term_count"`
	RecordsRead    int              `json:"records_read"`
	RecordsSkipped int              `json:"records_skipped"`
	BlockCount     int              `json:"block_count"`
	CreatedAt      time.Time        `json:"created_at"`
	Files          map[string]int64 `json:"files"`
}

// Save writes the manifest atomically into the generation directory.
func (m *Manifest) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming manifest: %w", err)
	}
	return nil
}

// LoadManifest reads a generation manifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &m, nil
}
