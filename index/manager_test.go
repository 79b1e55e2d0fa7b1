package index

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func builtIndex(t *testing.T, vectors [][]float32) *Index {
	t.Helper()
	idx, err := Build(context.Background(), &stubEmbedder{vectors: vectors}, "test-model", testChunks(len(vectors)))
	if err != nil {
		t.Fatalf("build index: %v", err)
	}
	return idx
}

func TestManagerSearchWithoutIndex(t *testing.T) {
	m := NewManager(nil)
	if _, err := m.Search(context.Background(), []float32{1}, 1); !errors.Is(err, ErrNotBuilt) {
		t.Fatalf("expected ErrNotBuilt, got %v", err)
	}
}

func TestManagerSwapInstallsIndex(t *testing.T) {
	m := NewManager(nil)
	idx := builtIndex(t, [][]float32{{1, 0}})

	m.Swap(idx)
	if m.Current() != idx {
		t.Fatal("expected swapped index to be current")
	}

	results, err := m.Search(context.Background(), []float32{1, 0}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
}

func TestManagerRebuildSwapsOnSuccess(t *testing.T) {
	old := builtIndex(t, [][]float32{{1, 0}})
	replacement := builtIndex(t, [][]float32{{0, 1}, {1, 0}})
	m := NewManager(old)

	err := m.Rebuild(func() (*Index, error) {
		return replacement, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Current() != replacement {
		t.Fatal("expected rebuilt index to be current")
	}
}

func TestManagerRebuildKeepsOldIndexOnFailure(t *testing.T) {
	old := builtIndex(t, [][]float32{{1, 0}})
	m := NewManager(old)

	err := m.Rebuild(func() (*Index, error) {
		return nil, fmt.Errorf("embedding backend down")
	})
	if err == nil {
		t.Fatal("expected rebuild error")
	}
	if m.Current() != old {
		t.Fatal("expected old index to stay current after failed rebuild")
	}
}

func TestManagerRejectsConcurrentRebuild(t *testing.T) {
	m := NewManager(nil)

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- m.Rebuild(func() (*Index, error) {
			close(started)
			<-release
			return builtIndex(t, [][]float32{{1, 0}}), nil
		})
	}()

	<-started
	if err := m.Rebuild(func() (*Index, error) { return nil, nil }); !errors.Is(err, ErrRebuildInProgress) {
		t.Fatalf("expected ErrRebuildInProgress, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first rebuild failed: %v", err)
	}
	if m.Current() == nil {
		t.Fatal("expected index installed after first rebuild")
	}
}
