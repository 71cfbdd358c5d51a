package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go-jobpost-automation/internal/models"
)

const grokURL = "https://api.groq.com/openai/v1/chat/completions"

type grokClient struct {
	apiKey     string
	model      string
	url        string
	httpClient *http.Client
}

type Option func(*grokClient)

func WithModel(model string) Option {
	return func(c *grokClient) {
		if model != "" {
			c.model = model
		}
	}
}

// WithEndpoint points the client at another OpenAI-compatible chat completions URL.
func WithEndpoint(url string) Option {
	return func(c *grokClient) {
		if url != "" {
			c.url = url
		}
	}
}

// NewGrokClient creates a chat completions client for Groq's OpenAI-compatible API
func NewGrokClient(apiKey string, opts ...Option) Client {
	c := &grokClient{
		apiKey:     apiKey,
		model:      "llama-3.3-70b-versatile",
		url:        grokURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type grokMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type grokRequest struct {
	Model       string        `json:"model"`
	Messages    []grokMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type grokResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// OptimizeSEO sends the listing to the model and returns the rewritten post body
func (c *grokClient) OptimizeSEO(ctx context.Context, l models.JobListing) (string, error) {
	reqBody := grokRequest{
		Model: c.model,
		Messages: []grokMessage{
			{Role: "system", Content: buildSystemPrompt()},
			{Role: "user", Content: buildUserPrompt(l)},
		},
		Temperature: 0.3,
		MaxTokens:   1000,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal grok request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("grok API returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var grokResp grokResponse
	if err := json.Unmarshal(bodyBytes, &grokResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if grokResp.Error != nil {
		return "", fmt.Errorf("API error: %s", grokResp.Error.Message)
	}
	if len(grokResp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from grok API")
	}

	content := cleanMarkdown(grokResp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("empty completion")
	}
	return content, nil
}

// cleanMarkdown strips a ``` fence if the model wrapped its answer in one
func cleanMarkdown(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		if nl := strings.IndexByte(content, '\n'); nl >= 0 && !strings.ContainsAny(content[:nl], "<> ") {
			content = content[nl+1:]
		}
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	}
	return strings.TrimSpace(content)
}
