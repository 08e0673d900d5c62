package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// HuggingFaceClient implements Client against the Hugging Face inference router.
// The router speaks the OpenAI chat-completions protocol.
type HuggingFaceClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	config     *Config
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float32       `json:"temperature"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewHuggingFaceClient creates a new Hugging Face client
func NewHuggingFaceClient(config *Config, apiKey string) (*HuggingFaceClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if config == nil || config.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	config = config.withDefaults()

	return &HuggingFaceClient{
		httpClient: &http.Client{Timeout: config.Timeout},
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		apiKey:     apiKey,
		config:     config,
	}, nil
}

// Complete sends a single-message chat completion request
func (c *HuggingFaceClient) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	request := chatRequest{
		Model:       c.config.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   maxTokens,
		Temperature: c.config.Temperature,
	}

	var response chatResponse
	if err := c.sendRequest(ctx, "/chat/completions", request, &response); err != nil {
		return "", Classify(err)
	}

	if response.Error != nil && response.Error.Message != "" {
		return "", Classify(fmt.Errorf("huggingface API error: %s", response.Error.Message))
	}
	if len(response.Choices) == 0 {
		return "", Classify(fmt.Errorf("no completion choices returned"))
	}

	return finishResponse(response.Choices[0].Message.Content), nil
}

// Model returns the bound model id
func (c *HuggingFaceClient) Model() string {
	return c.config.Model
}

// Close releases idle connections
func (c *HuggingFaceClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *HuggingFaceClient) sendRequest(ctx context.Context, endpoint string, request, response interface{}) error {
	reqBody, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed for model %s: %w", c.config.Model, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("huggingface API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	if err := json.NewDecoder(resp.Body).Decode(response); err != nil {
		return fmt.Errorf("failed to decode response for model %s: %w", c.config.Model, err)
	}
	return nil
}

var _ Client = (*HuggingFaceClient)(nil)
