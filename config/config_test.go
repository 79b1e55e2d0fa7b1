package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.CorpusDir != "data/legal_docs" {
		t.Fatalf("unexpected corpus dir %q", cfg.CorpusDir)
	}
	if cfg.IndexPath != "data/legal_index.json" {
		t.Fatalf("unexpected index path %q", cfg.IndexPath)
	}
	if cfg.ChunkSize != 1000 || cfg.ChunkOverlap != 200 {
		t.Fatalf("unexpected chunking defaults: size %d overlap %d", cfg.ChunkSize, cfg.ChunkOverlap)
	}
	if cfg.TopK != 4 {
		t.Fatalf("unexpected top-k %d", cfg.TopK)
	}
	if cfg.Embeddings.Provider != ProviderOllama {
		t.Fatalf("unexpected embeddings provider %q", cfg.Embeddings.Provider)
	}
	if cfg.LLM.MaxTokens != 400 || cfg.LLM.Seed != 42 {
		t.Fatalf("unexpected llm defaults: max tokens %d seed %d", cfg.LLM.MaxTokens, cfg.LLM.Seed)
	}
	if cfg.HTTPAddr != ":5000" {
		t.Fatalf("unexpected http addr %q", cfg.HTTPAddr)
	}
}

func TestLoadReadsEnvironmentOverrides(t *testing.T) {
	t.Setenv("LEXORA_CHUNK_SIZE", "500")
	t.Setenv("LEXORA_LLM_PROVIDER", "watsonx")
	t.Setenv("LEXORA_EMBEDDINGS_DIMENSION", "768")

	cfg := Load()

	if cfg.ChunkSize != 500 {
		t.Fatalf("expected chunk size override, got %d", cfg.ChunkSize)
	}
	if cfg.LLM.Provider != ProviderWatsonx {
		t.Fatalf("expected provider override, got %q", cfg.LLM.Provider)
	}
	if cfg.Embeddings.Dimension != 768 {
		t.Fatalf("expected dimension override, got %d", cfg.Embeddings.Dimension)
	}
}

func TestLoadIgnoresMalformedIntegers(t *testing.T) {
	t.Setenv("LEXORA_TOP_K", "not-a-number")

	cfg := Load()
	if cfg.TopK != 4 {
		t.Fatalf("expected fallback top-k, got %d", cfg.TopK)
	}
}
