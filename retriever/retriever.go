// Package retriever answers "which stored chunks are closest to this query"
// by embedding the query with the same embedder used at index-build time.
package retriever

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/NandiniBytes/lexora-ai/embeddings"
	"github.com/NandiniBytes/lexora-ai/index"
)

type Retriever struct {
	embedder embeddings.Embedder
	searcher index.Searcher
	logger   *log.Logger
}

func New(embedder embeddings.Embedder, searcher index.Searcher, logger *log.Logger) *Retriever {
	if logger == nil {
		logger = log.Default()
	}
	return &Retriever{embedder: embedder, searcher: searcher, logger: logger}
}

// Retrieve returns the top-k chunks most similar to the query, ordered by
// descending similarity. An empty index yields an empty slice, not an error;
// callers must surface "no context available" rather than fabricate an answer.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]index.Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}

	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedder returned no vectors")
	}

	results, err := r.searcher.Search(ctx, vectors[0], k)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	if len(results) == 0 {
		r.logger.Printf("no relevant chunks for query %q", truncate(query, 80))
	}
	return results, nil
}

// Context joins the retrieved chunk texts newline-separated, in rank order,
// for prompt assembly.
func Context(results []index.Result) string {
	texts := make([]string, len(results))
	for i, res := range results {
		texts[i] = res.Entry.Text
	}
	return strings.Join(texts, "\n")
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
