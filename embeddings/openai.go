package embeddings

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// openAIEmbedder sends the whole batch in a single API call. When a width is
// configured it is also requested from the API, pinning models that support
// variable output dimensions to the width the index expects.
type openAIEmbedder struct {
	client *openai.Client
	model  string
	width  int
}

func NewOpenAIEmbedder(apiKey, baseURL, model string, dimension int) Embedder {
	clientCfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientCfg.BaseURL = baseURL
	}

	return &openAIEmbedder{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
		width:  dimension,
	}
}

func (e *openAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	req := openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: texts,
	}
	if e.width > 0 {
		req.Dimensions = e.width
	}

	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embeddings: sent %d texts, got %d vectors", len(texts), len(resp.Data))
	}

	// The API reports each vector's input position; reassemble by that index
	// rather than trusting response order.
	vectors := make([][]float32, len(texts))
	guard := widthGuard{configured: e.width}
	for _, datum := range resp.Data {
		if datum.Index < 0 || datum.Index >= len(texts) {
			return nil, fmt.Errorf("openai embeddings: vector position %d out of range", datum.Index)
		}
		if err := guard.check(datum.Index, datum.Embedding); err != nil {
			return nil, err
		}
		vectors[datum.Index] = datum.Embedding
	}

	return vectors, nil
}
