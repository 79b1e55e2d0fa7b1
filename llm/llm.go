// Package llm sends assembled prompts to a text-generation backend. Backends
// are configured for greedy decoding with a fixed seed so the same prompt
// reproduces the same completion.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/NandiniBytes/lexora-ai/config"
)

var (
	// ErrModelUnavailable indicates a transport or auth failure reaching the
	// generation backend.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrEmptyGeneration indicates the backend returned no text.
	ErrEmptyGeneration = errors.New("model returned no text")
)

// GenerationResult unifies the two shapes a backend may produce: raw
// completion text, or an already-structured field mapping. The response
// parser only ever handles Text; callers never branch on backend type.
type GenerationResult struct {
	Text       string
	Structured map[string]string
}

// IsStructured reports whether the backend returned pre-parsed fields.
func (r GenerationResult) IsStructured() bool {
	return r.Structured != nil
}

// TextResult wraps raw completion text.
func TextResult(text string) GenerationResult {
	return GenerationResult{Text: text}
}

// StructuredResult wraps a pre-parsed field mapping.
func StructuredResult(fields map[string]string) GenerationResult {
	return GenerationResult{Structured: fields}
}

type Client interface {
	Generate(ctx context.Context, prompt string) (GenerationResult, error)
}

type Options struct {
	Provider  string
	Model     string
	MaxTokens int
	Seed      int

	OllamaHost    string
	OpenAIAPIKey  string
	OpenAIBaseURL string

	WatsonxURL       string
	WatsonxProjectID string
	WatsonxAPIKey    string
	IAMTokenURL      string
}

func NewClient(cfg config.Config) (Client, error) {
	opts := Options{
		Provider:  cfg.LLM.Provider,
		Model:     cfg.LLM.Model,
		MaxTokens: cfg.LLM.MaxTokens,
		Seed:      cfg.LLM.Seed,

		OllamaHost:    cfg.OllamaHost,
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIBaseURL: cfg.OpenAIBaseURL,

		WatsonxURL:       cfg.WatsonxURL,
		WatsonxProjectID: cfg.WatsonxProjectID,
		WatsonxAPIKey:    cfg.WatsonxAPIKey,
		IAMTokenURL:      cfg.IAMTokenURL,
	}
	return newClientFromOptions(opts)
}

func newClientFromOptions(opts Options) (Client, error) {
	switch opts.Provider {
	case config.ProviderOllama:
		return NewOllamaClient(opts), nil
	case config.ProviderOpenAI:
		if opts.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai provider selected but OPENAI_API_KEY not set")
		}
		return NewOpenAIClient(opts), nil
	case config.ProviderWatsonx:
		if opts.WatsonxAPIKey == "" {
			return nil, fmt.Errorf("watsonx provider selected but WATSONX_API_KEY not set")
		}
		return NewWatsonxClient(opts), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", opts.Provider)
	}
}
