package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type ollamaClient struct {
	host      string
	model     string
	maxTokens int
	seed      int
	client    *http.Client
}

type ollamaGenerateRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	Seed        int     `json:"seed"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error"`
}

// NewOllamaClient talks to a locally-hosted model process. Temperature 0 and
// a fixed seed keep generation reproducible.
func NewOllamaClient(opts Options) Client {
	host := strings.TrimRight(opts.OllamaHost, "/")
	if host == "" {
		host = "http://localhost:11434"
	}

	return &ollamaClient{
		host:      host,
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
		seed:      opts.Seed,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

func (c *ollamaClient) Generate(ctx context.Context, prompt string) (GenerationResult, error) {
	payload := ollamaGenerateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
		Options: ollamaOptions{
			Temperature: 0,
			Seed:        c.seed,
			NumPredict:  c.maxTokens,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return GenerationResult{}, fmt.Errorf("marshal ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return GenerationResult{}, fmt.Errorf("create ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return GenerationResult{}, fmt.Errorf("%w: call ollama generate API: %v", ErrModelUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		return GenerationResult{}, fmt.Errorf("%w: ollama generate API returned %s: %s",
			ErrModelUnavailable, resp.Status, strings.TrimSpace(string(data)))
	}

	var parsed ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return GenerationResult{}, fmt.Errorf("decode ollama response: %w", err)
	}

	if parsed.Error != "" {
		return GenerationResult{}, fmt.Errorf("%w: ollama error: %s", ErrModelUnavailable, parsed.Error)
	}
	if strings.TrimSpace(parsed.Response) == "" {
		return GenerationResult{}, ErrEmptyGeneration
	}

	return TextResult(parsed.Response), nil
}
