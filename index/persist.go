package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// artifactVersion is bumped when the on-disk layout changes.
const artifactVersion = 1

// artifact is the self-describing on-disk form of an index. Plain JSON keeps
// loading free of any trusted-deserialization concerns.
type artifact struct {
	Version   int     `json:"version"`
	Model     string  `json:"model"`
	Dimension int     `json:"dimension"`
	Entries   []Entry `json:"entries"`
}

// Save writes the full vector set to path atomically (write to a temp file in
// the same directory, then rename).
func (idx *Index) Save(path string) error {
	if idx == nil || !idx.built {
		return ErrNotBuilt
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}

	data, err := json.Marshal(artifact{
		Version:   artifactVersion,
		Model:     idx.model,
		Dimension: idx.dimension,
		Entries:   idx.entries,
	})
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".index-*")
	if err != nil {
		return fmt.Errorf("create temp index file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close index file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace index file: %w", err)
	}
	return nil
}

// Load restores an index saved by Save. The entries round-trip exactly, so
// searches against the loaded index rank identically to the pre-save index.
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read index file: %w", err)
	}

	var art artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("parse index file: %w", err)
	}
	if art.Version != artifactVersion {
		return nil, fmt.Errorf("unsupported index version %d", art.Version)
	}

	entries := art.Entries
	if entries == nil {
		entries = []Entry{}
	}

	return &Index{
		entries:   entries,
		dimension: art.Dimension,
		model:     art.Model,
		built:     true,
	}, nil
}
