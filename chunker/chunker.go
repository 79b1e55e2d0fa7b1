// Package chunker splits documents into fixed-size overlapping segments, the
// unit of embedding and retrieval.
package chunker

import (
	"fmt"

	"github.com/NandiniBytes/lexora-ai/corpus"
)

// Chunk is a contiguous substring of a document's text together with a
// back-reference to its source.
type Chunk struct {
	ID            string
	DocumentPath  string
	DocumentTitle string
	Index         int
	Text          string
}

// Chunker produces overlapping chunks of a target size. Size and overlap are
// counted in runes, never bytes, so a chunk boundary cannot split a multibyte
// character. Chunk i starts at rune offset i*(size-overlap); the final chunk
// may be shorter than size.
type Chunker struct {
	size    int
	overlap int
}

// New validates the chunking parameters (0 <= overlap < size) and returns a
// Chunker. Splitting is deterministic for a given document and parameters.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, size), got %d with size %d", overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split chunks a single document. A document shorter than the chunk size
// yields exactly one chunk; an empty document yields none.
func (c *Chunker) Split(doc corpus.Document) []Chunk {
	runes := []rune(doc.Text)
	if len(runes) == 0 {
		return nil
	}

	step := c.size - c.overlap
	chunks := make([]Chunk, 0, (len(runes)+step-1)/step)

	for start := 0; ; start += step {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, Chunk{
			ID:            fmt.Sprintf("%s:%d", doc.Path, len(chunks)),
			DocumentPath:  doc.Path,
			DocumentTitle: doc.Title,
			Index:         len(chunks),
			Text:          string(runes[start:end]),
		})
		if end == len(runes) {
			return chunks
		}
	}
}

// SplitAll chunks every document in order, preserving document order and
// intra-document chunk order.
func (c *Chunker) SplitAll(docs []corpus.Document) []Chunk {
	chunks := make([]Chunk, 0)
	for _, doc := range docs {
		chunks = append(chunks, c.Split(doc)...)
	}
	return chunks
}
