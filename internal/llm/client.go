package llm

import (
	"context"
	"fmt"
)

// Client is an abstraction over LLM providers
type Client interface {
	// Complete sends prompt as a single user message and returns the model text.
	// Failures are returned as *CompletionError.
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
	// Model returns the model id the client is bound to
	Model() string
	// Close releases any resources held by the client
	Close() error
}

// NewClient creates a new LLM client based on configuration
func NewClient(ctx context.Context, config *Config, apiKey string) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	config = config.withDefaults()

	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid llm config: %w", err)
	}

	switch config.Provider {
	case ProviderGemini:
		return NewGeminiClient(ctx, config, apiKey)
	default:
		return NewHuggingFaceClient(config, apiKey)
	}
}

// finishResponse applies the empty-response placeholder to successful text.
func finishResponse(text string) string {
	if text == "" {
		return EmptyResponseMessage
	}
	return text
}
