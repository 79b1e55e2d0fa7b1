// Package index stores chunk embeddings and answers nearest-neighbor queries.
// Similarity is inner product over unit-normalized vectors (cosine). The index
// is rebuilt whole-corpus; there is no incremental upsert.
package index

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/NandiniBytes/lexora-ai/chunker"
	"github.com/NandiniBytes/lexora-ai/embeddings"
)

// ErrNotBuilt indicates a search was attempted before the index was built or
// loaded.
var ErrNotBuilt = errors.New("index not built")

// Entry is one indexed chunk: identity, stored text, source metadata, and the
// unit-normalized embedding vector.
type Entry struct {
	ChunkID       string    `json:"chunk_id"`
	DocumentPath  string    `json:"document_path"`
	DocumentTitle string    `json:"document_title"`
	ChunkIndex    int       `json:"chunk_index"`
	Text          string    `json:"text"`
	Vector        []float32 `json:"vector"`
}

// Result pairs an entry with its similarity score to a query vector.
type Result struct {
	Entry Entry
	Score float64
}

// Searcher is the read side of an index. Implementations must be safe for
// concurrent readers.
type Searcher interface {
	Search(ctx context.Context, query []float32, k int) ([]Result, error)
}

// Index is an in-memory vector index. Once built it is immutable, so any
// number of goroutines may search it concurrently.
type Index struct {
	entries   []Entry
	dimension int
	model     string
	built     bool
}

// Build embeds every chunk and assembles an index. The embedding model name is
// recorded so a persisted index can be checked against the configured model at
// load time.
func Build(ctx context.Context, embedder embeddings.Embedder, model string, chunks []chunker.Chunk) (*Index, error) {
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedding count mismatch: have %d chunks, %d vectors", len(chunks), len(vectors))
	}

	idx := &Index{
		entries: make([]Entry, len(chunks)),
		model:   model,
		built:   true,
	}
	for i, chunk := range chunks {
		vec := normalize(vectors[i])
		if idx.dimension == 0 {
			idx.dimension = len(vec)
		} else if len(vec) != idx.dimension {
			return nil, fmt.Errorf("inconsistent embedding dimension: expected %d, got %d", idx.dimension, len(vec))
		}
		idx.entries[i] = Entry{
			ChunkID:       chunk.ID,
			DocumentPath:  chunk.DocumentPath,
			DocumentTitle: chunk.DocumentTitle,
			ChunkIndex:    chunk.Index,
			Text:          chunk.Text,
			Vector:        vec,
		}
	}

	return idx, nil
}

// Search returns the k highest-scoring entries for the query vector, ties
// broken by insertion order. It fails with ErrNotBuilt before Build or Load;
// a built but empty index returns an empty result set.
func (idx *Index) Search(_ context.Context, query []float32, k int) ([]Result, error) {
	if idx == nil || !idx.built {
		return nil, ErrNotBuilt
	}
	if len(idx.entries) == 0 {
		return []Result{}, nil
	}
	if k <= 0 {
		k = 1
	}

	query = normalize(query)

	results := make([]Result, len(idx.entries))
	for i, entry := range idx.entries {
		results[i] = Result{Entry: entry, Score: dot(entry.Vector, query)}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// Len reports the number of indexed entries.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.entries)
}

// Dimension reports the embedding dimension, 0 for an empty index.
func (idx *Index) Dimension() int {
	if idx == nil {
		return 0
	}
	return idx.dimension
}

// Model reports the embedding model the index was built with.
func (idx *Index) Model() string {
	if idx == nil {
		return ""
	}
	return idx.model
}

// Entries returns the indexed entries in insertion order.
func (idx *Index) Entries() []Entry {
	if idx == nil {
		return nil
	}
	return idx.entries
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func normalize(vec []float32) []float32 {
	sum := 0.0
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vec
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(float64(v) / norm)
	}
	return out
}
