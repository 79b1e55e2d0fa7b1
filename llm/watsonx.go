package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const watsonxAPIVersion = "2024-05-31"

// watsonxClient reaches a hosted inference endpoint over HTTPS. Requests carry
// a bearer token obtained from a separate IAM token-exchange call; on a 401
// the token is exchanged once more and the request retried a single time.
type watsonxClient struct {
	baseURL     string
	projectID   string
	apiKey      string
	tokenURL    string
	model       string
	maxTokens   int
	seed        int
	client      *http.Client
	tokenMu     sync.Mutex
	cachedToken string
}

type watsonxGenerateRequest struct {
	ModelID    string            `json:"model_id"`
	ProjectID  string            `json:"project_id"`
	Input      string            `json:"input"`
	Parameters watsonxParameters `json:"parameters"`
}

type watsonxParameters struct {
	DecodingMethod string `json:"decoding_method"`
	MaxNewTokens   int    `json:"max_new_tokens"`
	RandomSeed     int    `json:"random_seed"`
}

type watsonxGenerateResponse struct {
	Results []struct {
		GeneratedText string `json:"generated_text"`
	} `json:"results"`
}

type iamTokenResponse struct {
	AccessToken string `json:"access_token"`
}

func NewWatsonxClient(opts Options) Client {
	return &watsonxClient{
		baseURL:   strings.TrimRight(opts.WatsonxURL, "/"),
		projectID: opts.WatsonxProjectID,
		apiKey:    opts.WatsonxAPIKey,
		tokenURL:  opts.IAMTokenURL,
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
		seed:      opts.Seed,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

func (c *watsonxClient) Generate(ctx context.Context, prompt string) (GenerationResult, error) {
	token, err := c.token(ctx, false)
	if err != nil {
		return GenerationResult{}, err
	}

	text, status, err := c.generateOnce(ctx, prompt, token)
	if status == http.StatusUnauthorized {
		// Stale or revoked token: exchange once more and retry a single time.
		token, err = c.token(ctx, true)
		if err != nil {
			return GenerationResult{}, err
		}
		text, status, err = c.generateOnce(ctx, prompt, token)
	}
	if err != nil {
		return GenerationResult{}, err
	}
	if status == http.StatusUnauthorized {
		return GenerationResult{}, fmt.Errorf("%w: authorization rejected after token refresh", ErrModelUnavailable)
	}

	if strings.TrimSpace(text) == "" {
		return GenerationResult{}, ErrEmptyGeneration
	}
	return TextResult(text), nil
}

func (c *watsonxClient) generateOnce(ctx context.Context, prompt, token string) (string, int, error) {
	payload := watsonxGenerateRequest{
		ModelID:   c.model,
		ProjectID: c.projectID,
		Input:     prompt,
		Parameters: watsonxParameters{
			DecodingMethod: "greedy",
			MaxNewTokens:   c.maxTokens,
			RandomSeed:     c.seed,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", 0, fmt.Errorf("marshal watsonx request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/ml/v1/text/generation?version=%s", c.baseURL, watsonxAPIVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", 0, fmt.Errorf("create watsonx request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("%w: call watsonx generation API: %v", ErrModelUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		io.Copy(io.Discard, resp.Body)
		return "", resp.StatusCode, nil
	}
	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		return "", resp.StatusCode, fmt.Errorf("%w: watsonx generation API returned %s: %s",
			ErrModelUnavailable, resp.Status, strings.TrimSpace(string(data)))
	}

	var parsed watsonxGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", resp.StatusCode, fmt.Errorf("decode watsonx response: %w", err)
	}
	if len(parsed.Results) == 0 {
		return "", resp.StatusCode, nil
	}
	return parsed.Results[0].GeneratedText, resp.StatusCode, nil
}

// token returns a cached bearer token, exchanging the API key for a fresh one
// when none is cached or refresh is forced.
func (c *watsonxClient) token(ctx context.Context, force bool) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.cachedToken != "" && !force {
		return c.cachedToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "urn:ibm:params:oauth:grant-type:apikey")
	form.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: token exchange: %v", ErrModelUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: token exchange returned %s: %s",
			ErrModelUnavailable, resp.Status, strings.TrimSpace(string(data)))
	}

	var parsed iamTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if parsed.AccessToken == "" {
		return "", fmt.Errorf("%w: token exchange returned no access token", ErrModelUnavailable)
	}

	c.cachedToken = parsed.AccessToken
	return c.cachedToken, nil
}
