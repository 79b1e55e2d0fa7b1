package index

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"unicode/utf8"

	"github.com/NandiniBytes/lexora-ai/chunker"
	"github.com/NandiniBytes/lexora-ai/corpus"
	"github.com/NandiniBytes/lexora-ai/embeddings"
)

type stubEmbedder struct {
	vectors [][]float32
	err     error
}

func (s *stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.vectors, nil
}

var _ embeddings.Embedder = (*stubEmbedder)(nil)

func testChunks(n int) []chunker.Chunk {
	chunks := make([]chunker.Chunk, n)
	for i := range chunks {
		chunks[i] = chunker.Chunk{
			ID:            "doc.txt:" + string(rune('0'+i)),
			DocumentPath:  "doc.txt",
			DocumentTitle: "Doc",
			Index:         i,
			Text:          "chunk text",
		}
	}
	return chunks
}

func TestBuildAndSearchRanksByInnerProduct(t *testing.T) {
	embedder := &stubEmbedder{vectors: [][]float32{
		{1, 0},
		{0, 1},
		{1, 1},
	}}

	idx, err := Build(context.Background(), embedder, "test-model", testChunks(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", idx.Len())
	}
	if idx.Dimension() != 2 {
		t.Fatalf("expected dimension 2, got %d", idx.Dimension())
	}

	results, err := idx.Search(context.Background(), []float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	// Query (1,0): entry 0 scores 1, entry 2 scores 1/sqrt(2), entry 1 scores 0.
	if results[0].Entry.ChunkIndex != 0 || results[1].Entry.ChunkIndex != 2 || results[2].Entry.ChunkIndex != 1 {
		t.Fatalf("unexpected ranking: %d, %d, %d",
			results[0].Entry.ChunkIndex, results[1].Entry.ChunkIndex, results[2].Entry.ChunkIndex)
	}
	if results[0].Score <= results[1].Score || results[1].Score <= results[2].Score {
		t.Fatalf("scores not descending: %v, %v, %v", results[0].Score, results[1].Score, results[2].Score)
	}
}

func TestSearchBreaksTiesByInsertionOrder(t *testing.T) {
	embedder := &stubEmbedder{vectors: [][]float32{
		{0, 1},
		{1, 0},
		{1, 0},
	}}

	idx, err := Build(context.Background(), embedder, "test-model", testChunks(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	results, err := idx.Search(context.Background(), []float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Entry.ChunkIndex != 1 || results[1].Entry.ChunkIndex != 2 {
		t.Fatalf("tie not broken by insertion order: %d then %d",
			results[0].Entry.ChunkIndex, results[1].Entry.ChunkIndex)
	}
}

func TestSearchClampsKToEntryCount(t *testing.T) {
	embedder := &stubEmbedder{vectors: [][]float32{{1, 0}}}
	idx, err := Build(context.Background(), embedder, "test-model", testChunks(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	results, err := idx.Search(context.Background(), []float32{1, 0}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
}

func TestSearchEmptyBuiltIndex(t *testing.T) {
	idx, err := Build(context.Background(), &stubEmbedder{vectors: [][]float32{}}, "test-model", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	results, err := idx.Search(context.Background(), []float32{1, 0}, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
}

func TestSearchUnbuiltIndex(t *testing.T) {
	var idx *Index
	if _, err := idx.Search(context.Background(), []float32{1}, 1); !errors.Is(err, ErrNotBuilt) {
		t.Fatalf("expected ErrNotBuilt, got %v", err)
	}
	if _, err := new(Index).Search(context.Background(), []float32{1}, 1); !errors.Is(err, ErrNotBuilt) {
		t.Fatalf("expected ErrNotBuilt, got %v", err)
	}
}

func TestBuildRejectsInconsistentDimensions(t *testing.T) {
	embedder := &stubEmbedder{vectors: [][]float32{{1, 0}, {1, 0, 0}}}
	if _, err := Build(context.Background(), embedder, "test-model", testChunks(2)); err == nil {
		t.Fatal("expected error for mismatched dimensions")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	embedder := &stubEmbedder{vectors: [][]float32{
		{0.5, 0.5},
		{0.9, 0.1},
		{0.1, 0.9},
	}}
	built, err := Build(context.Background(), embedder, "test-model", testChunks(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path := filepath.Join(t.TempDir(), "index.json")
	if err := built.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Len() != built.Len() || loaded.Dimension() != built.Dimension() || loaded.Model() != built.Model() {
		t.Fatalf("loaded index metadata differs: %d/%d/%s vs %d/%d/%s",
			loaded.Len(), loaded.Dimension(), loaded.Model(),
			built.Len(), built.Dimension(), built.Model())
	}

	query := []float32{0.7, 0.3}
	wantResults, err := built.Search(context.Background(), query, 3)
	if err != nil {
		t.Fatalf("search built: %v", err)
	}
	gotResults, err := loaded.Search(context.Background(), query, 3)
	if err != nil {
		t.Fatalf("search loaded: %v", err)
	}
	for i := range wantResults {
		if wantResults[i].Entry.ChunkID != gotResults[i].Entry.ChunkID {
			t.Fatalf("result %d differs after reload: %q vs %q",
				i, wantResults[i].Entry.ChunkID, gotResults[i].Entry.ChunkID)
		}
		if wantResults[i].Score != gotResults[i].Score {
			t.Fatalf("result %d score differs after reload: %v vs %v",
				i, wantResults[i].Score, gotResults[i].Score)
		}
	}
}

func TestSaveLoadPreservesNonASCIIChunkText(t *testing.T) {
	splitter, err := chunker.New(3, 1)
	if err != nil {
		t.Fatalf("chunker setup: %v", err)
	}
	chunks := splitter.Split(corpus.Document{Path: "intl/klausel.txt", Title: "Klausel", Text: "ab§cd"})
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}

	embedder := &stubEmbedder{vectors: [][]float32{{1, 0}, {0, 1}}}
	built, err := Build(context.Background(), embedder, "test-model", chunks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path := filepath.Join(t.TempDir(), "index.json")
	if err := built.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	for i, entry := range loaded.Entries() {
		if !utf8.ValidString(entry.Text) {
			t.Fatalf("entry %d text is not valid UTF-8: %q", i, entry.Text)
		}
		if entry.Text != chunks[i].Text {
			t.Fatalf("entry %d text changed across save/load: %q vs %q", i, entry.Text, chunks[i].Text)
		}
	}
}

func TestSaveUnbuiltIndex(t *testing.T) {
	if err := new(Index).Save(filepath.Join(t.TempDir(), "index.json")); !errors.Is(err, ErrNotBuilt) {
		t.Fatalf("expected ErrNotBuilt, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing index file")
	}
}
