// Package llm provides the chat-completion client used by the optimizer stages.
// It hides the hosted provider behind a single Complete call and classifies
// provider failures into typed errors.
package llm

import (
	"fmt"
	"time"
)

// Provider represents an LLM provider
type Provider string

// Provider constants define supported LLM providers
const (
	// ProviderHuggingFace is the Hugging Face inference router (OpenAI-compatible)
	ProviderHuggingFace Provider = "huggingface"
	// ProviderGemini is the Google Gemini provider
	ProviderGemini Provider = "gemini"
)

const (
	// DefaultBaseURL is the Hugging Face router endpoint for chat completions
	DefaultBaseURL = "https://router.huggingface.co/v1"
	// DefaultTemperature is the sampling temperature used for every request
	DefaultTemperature = 0.7
	// DefaultTimeout bounds a single completion request
	DefaultTimeout = 120 * time.Second
)

// Config holds the model configuration for the application
type Config struct {
	Provider    Provider
	Model       string
	BaseURL     string
	Temperature float32
	Timeout     time.Duration
}

// DefaultConfig returns the default configuration (Hugging Face, default model)
func DefaultConfig() *Config {
	return &Config{
		Provider:    ProviderHuggingFace,
		Model:       DefaultModel,
		BaseURL:     DefaultBaseURL,
		Temperature: DefaultTemperature,
		Timeout:     DefaultTimeout,
	}
}

// DefaultGeminiConfig returns the default Gemini configuration
func DefaultGeminiConfig() *Config {
	return &Config{
		Provider:    ProviderGemini,
		Model:       "gemini-2.5-flash",
		Temperature: DefaultTemperature,
		Timeout:     DefaultTimeout,
	}
}

// WithModel returns a copy of the config bound to a different model
func (c *Config) WithModel(model string) *Config {
	cp := *c
	cp.Model = model
	return &cp
}

// withDefaults fills zero values from DefaultConfig.
func (c *Config) withDefaults() *Config {
	cp := *c
	if cp.Provider == "" {
		cp.Provider = ProviderHuggingFace
	}
	if cp.BaseURL == "" && cp.Provider == ProviderHuggingFace {
		cp.BaseURL = DefaultBaseURL
	}
	if cp.Temperature == 0 {
		cp.Temperature = DefaultTemperature
	}
	if cp.Timeout == 0 {
		cp.Timeout = DefaultTimeout
	}
	return &cp
}

// Validate checks the provider is known and a model is set
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderHuggingFace, ProviderGemini, "":
	default:
		return fmt.Errorf("unsupported provider %q", c.Provider)
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	return nil
}
