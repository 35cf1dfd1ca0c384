package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ozanyurtsever/promopipe/internal/common"
)

// Provider is the raw transport to the extraction service. Implementations
// must return common.ErrRateLimited on throttling and
// common.ErrMalformedResponse when the answer is not a JSON object; every
// other non-2xx status is fatal for the call.
type Provider interface {
	Complete(ctx context.Context, prompt string) (json.RawMessage, error)
}

// Config holds configuration for the extraction service client.
type Config struct {
	Endpoint     string
	APIKey       string
	Model        string
	Temperature  float64
	MaxTokens    int
	MinInterval  time.Duration
	BaseDelay    time.Duration
	MaxThrottled int
	MaxMalformed int
}

// httpProvider implements Provider against an OpenAI-compatible chat endpoint.
type httpProvider struct {
	httpClient  *http.Client
	endpoint    string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
}

// NewHTTPProvider creates a provider for an OpenAI-compatible chat API.
func NewHTTPProvider(cfg Config) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: extraction service API key is required", common.ErrMissingConfig)
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "https://api.openai.com/v1/chat/completions"
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}

	return &httpProvider{
		endpoint:    endpoint,
		apiKey:      cfg.APIKey,
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

const systemInstruction = "You extract structured campaign data from promotional text. " +
	"You MUST respond with ONLY a valid JSON object. Do not include any explanatory text, " +
	"markdown formatting, or commentary before or after the JSON. " +
	"Start your response directly with { and end with }."

// Complete sends the prompt and returns the raw JSON object from the answer.
func (p *httpProvider) Complete(ctx context.Context, prompt string) (json.RawMessage, error) {
	requestBody := map[string]any{
		"model": p.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemInstruction},
			{"role": "user", "content": prompt},
		},
		"temperature": p.temperature,
		"max_tokens":  p.maxTokens,
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, strings.NewReader(string(jsonBody)))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w (status 429): %s", common.ErrRateLimited, truncateBody(body))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extraction service error (status %d): %s", resp.StatusCode, truncateBody(body))
	}

	var response chatResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedResponse, err)
	}

	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("%w: no completion choices returned", common.ErrMalformedResponse)
	}

	content := cleanMarkdownWrapper(response.Choices[0].Message.Content)
	if !json.Valid([]byte(content)) || !strings.HasPrefix(strings.TrimSpace(content), "{") {
		return nil, fmt.Errorf("%w: completion is not a JSON object", common.ErrMalformedResponse)
	}

	return json.RawMessage(content), nil
}

// chatResponse represents the chat completion API response structure.
type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// cleanMarkdownWrapper strips ```json fences some models wrap answers in.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}

func truncateBody(body []byte) string {
	const limit = 200
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
