// Package embeddings turns chunk and query text into fixed-length vectors
// for similarity search. An index only ranks correctly against vectors from
// the model it was built with, so one embedder instance serves both build
// and query time, and every backend validates the width of what the model
// returns before the index ever sees it.
package embeddings

import (
	"context"
	"fmt"

	"github.com/NandiniBytes/lexora-ai/config"
)

// Embedder converts a batch of texts into one vector per text, in input
// order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// NewEmbedder selects the backend for the configured provider.
func NewEmbedder(cfg config.Config) (Embedder, error) {
	switch cfg.Embeddings.Provider {
	case config.ProviderOllama:
		return NewOllamaEmbedder(cfg.OllamaHost, cfg.Embeddings.Model, cfg.Embeddings.Dimension), nil
	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai embeddings need OPENAI_API_KEY")
		}
		return NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.Embeddings.Model, cfg.Embeddings.Dimension), nil
	default:
		return nil, fmt.Errorf("no embedding backend for provider %q", cfg.Embeddings.Provider)
	}
}

// widthGuard rejects vectors whose dimension disagrees with the configured
// model width, or with earlier vectors in the same batch. Catching drift
// here keeps a half-poisoned batch out of the index.
type widthGuard struct {
	configured int
	seen       int
}

func (g *widthGuard) check(position int, vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("text %d: model returned an empty vector", position)
	}
	if g.configured > 0 && len(vec) != g.configured {
		return fmt.Errorf("text %d: vector has dimension %d, model is configured for %d",
			position, len(vec), g.configured)
	}
	if g.seen == 0 {
		g.seen = len(vec)
		return nil
	}
	if len(vec) != g.seen {
		return fmt.Errorf("text %d: vector has dimension %d, earlier vectors in the batch have %d",
			position, len(vec), g.seen)
	}
	return nil
}
