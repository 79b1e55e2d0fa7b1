package index

import (
	"context"
	"errors"
	"sync"
)

// ErrRebuildInProgress indicates a rebuild was requested while another one was
// still running.
var ErrRebuildInProgress = errors.New("index rebuild already in progress")

// Manager guards the live index reference. Readers always see a fully-built
// index; a rebuild constructs a replacement off to the side and swaps the
// reference in one step. Only one rebuild may run at a time.
type Manager struct {
	mu        sync.RWMutex
	rebuildMu sync.Mutex
	current   *Index
}

func NewManager(initial *Index) *Manager {
	return &Manager{current: initial}
}

// Current returns the live index, nil when none has been installed yet.
func (m *Manager) Current() *Index {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Swap installs a new index. In-flight searches keep the index they started
// with.
func (m *Manager) Swap(idx *Index) {
	m.mu.Lock()
	m.current = idx
	m.mu.Unlock()
}

// Rebuild runs build and swaps in its result on success. A concurrent rebuild
// fails immediately with ErrRebuildInProgress; searches are never blocked.
func (m *Manager) Rebuild(build func() (*Index, error)) error {
	if !m.rebuildMu.TryLock() {
		return ErrRebuildInProgress
	}
	defer m.rebuildMu.Unlock()

	idx, err := build()
	if err != nil {
		return err
	}
	m.Swap(idx)
	return nil
}

// Search delegates to the live index. It fails with ErrNotBuilt when no index
// has been installed.
func (m *Manager) Search(ctx context.Context, query []float32, k int) ([]Result, error) {
	idx := m.Current()
	if idx == nil {
		return nil, ErrNotBuilt
	}
	return idx.Search(ctx, query, k)
}

var _ Searcher = (*Manager)(nil)
