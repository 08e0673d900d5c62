package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiClient implements Client for Google Gemini
type GeminiClient struct {
	client *genai.Client
	config *Config
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(ctx context.Context, config *Config, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if config == nil || config.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client: client,
		config: config.withDefaults(),
	}, nil
}

// Complete generates text for a single prompt
func (c *GeminiClient) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	model := c.client.GenerativeModel(c.config.Model)
	model.SetTemperature(c.config.Temperature)
	if maxTokens > 0 {
		model.SetMaxOutputTokens(int32(maxTokens))
	}

	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", Classify(fmt.Errorf("failed to generate content: %w", err))
	}

	text, err := extractTextFromResponse(resp)
	if err != nil {
		if errors.Is(err, errNoText) {
			return EmptyResponseMessage, nil
		}
		return "", Classify(err)
	}
	return finishResponse(text), nil
}

// Model returns the bound model id
func (c *GeminiClient) Model() string {
	return c.config.Model
}

// Close releases resources held by the client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

var errNoText = errors.New("no text parts in response")

// extractTextFromResponse extracts text from Gemini API response
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", errNoText
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	if len(parts) == 0 {
		return "", errNoText
	}

	return strings.Join(parts, ""), nil
}

var _ Client = (*GeminiClient)(nil)
