package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	ProviderOllama  = "ollama"
	ProviderOpenAI  = "openai"
	ProviderWatsonx = "watsonx"
)

type EmbeddingsConfig struct {
	Provider  string
	Model     string
	Dimension int
}

type LLMConfig struct {
	Provider  string
	Model     string
	MaxTokens int
	Seed      int
}

type Config struct {
	CorpusDir    string
	IndexPath    string
	TemplatesDir string
	GeneratedDir string

	ChunkSize    int
	ChunkOverlap int
	TopK         int

	// MaxConcurrent bounds simultaneous embedding/generation calls across
	// requests so the backends are not overloaded.
	MaxConcurrent int

	Embeddings EmbeddingsConfig
	LLM        LLMConfig

	OllamaHost    string
	OpenAIAPIKey  string
	OpenAIBaseURL string

	WatsonxURL       string
	WatsonxProjectID string
	WatsonxAPIKey    string
	IAMTokenURL      string

	PostgresDSN string
	HTTPAddr    string
}

// Load reads configuration from the environment, applying defaults. A .env
// file in the working directory is loaded first when present.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		CorpusDir:    getEnv("LEXORA_CORPUS_DIR", "data/legal_docs"),
		IndexPath:    getEnv("LEXORA_INDEX_PATH", "data/legal_index.json"),
		TemplatesDir: getEnv("LEXORA_TEMPLATES_DIR", "prompts/templates"),
		GeneratedDir: getEnv("LEXORA_GENERATED_DIR", "generated_docs"),

		ChunkSize:    getEnvInt("LEXORA_CHUNK_SIZE", 1000),
		ChunkOverlap: getEnvInt("LEXORA_CHUNK_OVERLAP", 200),
		TopK:         getEnvInt("LEXORA_TOP_K", 4),

		MaxConcurrent: getEnvInt("LEXORA_MAX_CONCURRENT", 8),

		Embeddings: EmbeddingsConfig{
			Provider:  getEnv("LEXORA_EMBEDDINGS_PROVIDER", ProviderOllama),
			Model:     getEnv("LEXORA_EMBEDDINGS_MODEL", "nomic-embed-text"),
			Dimension: getEnvInt("LEXORA_EMBEDDINGS_DIMENSION", 0),
		},
		LLM: LLMConfig{
			Provider:  getEnv("LEXORA_LLM_PROVIDER", ProviderOllama),
			Model:     getEnv("LEXORA_LLM_MODEL", "granite3.3:8b"),
			MaxTokens: getEnvInt("LEXORA_LLM_MAX_TOKENS", 400),
			Seed:      getEnvInt("LEXORA_LLM_SEED", 42),
		},

		OllamaHost:    getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),

		WatsonxURL:       getEnv("WATSONX_URL", "https://us-south.ml.cloud.ibm.com"),
		WatsonxProjectID: getEnv("WATSONX_PROJECT_ID", ""),
		WatsonxAPIKey:    getEnv("WATSONX_API_KEY", ""),
		IAMTokenURL:      getEnv("IAM_TOKEN_URL", "https://iam.cloud.ibm.com/identity/token"),

		PostgresDSN: getEnv("POSTGRES_DSN", ""),
		HTTPAddr:    getEnv("LEXORA_HTTP_ADDR", ":5000"),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}
