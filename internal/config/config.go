// Package config provides configuration loading and validation for the CLI and server.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jonathan/linkedin-optimizer/internal/llm"
	"github.com/jonathan/linkedin-optimizer/internal/store"
)

// EnvPrefix is prepended to every configuration key read from the environment,
// e.g. OPTIMIZER_MODEL or OPTIMIZER_STAGE_DELAY.
const EnvPrefix = "OPTIMIZER"

// Secret fallbacks read when the prefixed variables are not set.
const (
	EnvHFToken      = "HF_TOKEN"
	EnvGeminiAPIKey = "GEMINI_API_KEY"
	EnvDatabaseURL  = "DATABASE_URL"
)

const (
	// DefaultStageDelay is the pause between stages
	DefaultStageDelay = 2 * time.Second
	// DefaultPort is the HTTP port used by serve
	DefaultPort = 8080
)

// Config represents the application configuration. Values come from an optional
// JSON/YAML file, then OPTIMIZER_* environment variables, then explicitly set CLI flags.
type Config struct {
	// Model access
	Provider    string  `mapstructure:"provider" json:"provider,omitempty"`
	Model       string  `mapstructure:"model" json:"model,omitempty"`     // Empty selects the provider default
	APIKey      string  `mapstructure:"api_key" json:"api_key,omitempty"` // Hugging Face token or Gemini key
	BaseURL     string  `mapstructure:"base_url" json:"base_url,omitempty"`
	Temperature float64 `mapstructure:"temperature" json:"temperature,omitempty"`

	// Pipeline
	StageDelay     time.Duration `mapstructure:"stage_delay" json:"stage_delay,omitempty"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" json:"request_timeout,omitempty"`
	Parallel       bool          `mapstructure:"parallel" json:"parallel,omitempty"`             // Run independent stages concurrently
	DetectMarkers  bool          `mapstructure:"detect_markers" json:"detect_markers,omitempty"` // Abort on ❌/🔄 in stage text

	// Storage and serving
	DataDir     string `mapstructure:"data_dir" json:"data_dir,omitempty"`
	DatabaseURL string `mapstructure:"database_url" json:"database_url,omitempty"` // Optional PostgreSQL run history
	Port        int    `mapstructure:"port" json:"port,omitempty"`

	Verbose bool `mapstructure:"verbose" json:"verbose,omitempty"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Provider:       string(llm.ProviderHuggingFace),
		Temperature:    llm.DefaultTemperature,
		StageDelay:     DefaultStageDelay,
		RequestTimeout: llm.DefaultTimeout,
		DataDir:        store.DefaultDir,
		Port:           DefaultPort,
	}
}

// Load reads configuration from path (JSON or YAML, chosen by extension) and the
// environment. An empty path looks for optimizer.{json,yaml} in the working directory
// and silently continues without one.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Every key needs a default so that Unmarshal picks up environment overrides.
	defaults := Defaults()
	v.SetDefault("provider", defaults.Provider)
	v.SetDefault("model", defaults.Model)
	v.SetDefault("api_key", defaults.APIKey)
	v.SetDefault("base_url", defaults.BaseURL)
	v.SetDefault("temperature", defaults.Temperature)
	v.SetDefault("stage_delay", defaults.StageDelay)
	v.SetDefault("request_timeout", defaults.RequestTimeout)
	v.SetDefault("parallel", defaults.Parallel)
	v.SetDefault("detect_markers", defaults.DetectMarkers)
	v.SetDefault("data_dir", defaults.DataDir)
	v.SetDefault("database_url", defaults.DatabaseURL)
	v.SetDefault("port", defaults.Port)
	v.SetDefault("verbose", defaults.Verbose)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("optimizer")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// ApplySecretFallbacks fills unset secrets from their conventional environment variables.
// Call it once the provider is final; the key variable depends on it.
func (c *Config) ApplySecretFallbacks() {
	if c.APIKey == "" {
		switch llm.Provider(c.Provider) {
		case llm.ProviderGemini:
			c.APIKey = os.Getenv(EnvGeminiAPIKey)
		default:
			c.APIKey = os.Getenv(EnvHFToken)
		}
	}
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv(EnvDatabaseURL)
	}
}

// Validate checks that the configuration has valid values.
// The API key is not required here; commands that call the model check it.
func (c *Config) Validate() error {
	switch llm.Provider(c.Provider) {
	case llm.ProviderHuggingFace, llm.ProviderGemini:
	default:
		return fmt.Errorf("config error: unknown provider %q (expected huggingface or gemini)", c.Provider)
	}

	if c.StageDelay < 0 {
		return fmt.Errorf("config error: 'stage_delay' must be non-negative")
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("config error: 'request_timeout' must be non-negative")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("config error: 'temperature' must be between 0 and 2")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535")
	}
	if c.DataDir == "" {
		return fmt.Errorf("config error: 'data_dir' must not be empty")
	}

	return nil
}

// MergeWithDefaults returns a new Config with zero-valued fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.Provider == "" {
		result.Provider = defaults.Provider
	}
	if result.Model == "" {
		result.Model = defaults.Model
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.BaseURL == "" {
		result.BaseURL = defaults.BaseURL
	}
	if result.DataDir == "" {
		result.DataDir = defaults.DataDir
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}

	if result.Temperature == 0 {
		result.Temperature = defaults.Temperature
	}
	if result.RequestTimeout == 0 {
		result.RequestTimeout = defaults.RequestTimeout
	}
	if result.Port == 0 {
		result.Port = defaults.Port
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)
	// StageDelay is not merged either: zero turns the pause off, and Load
	// already supplies the default when nothing sets it.

	return result
}

// LLMConfig returns the completion client configuration for the selected provider.
func (c *Config) LLMConfig() *llm.Config {
	var cfg *llm.Config
	if llm.Provider(c.Provider) == llm.ProviderGemini {
		cfg = llm.DefaultGeminiConfig()
	} else {
		cfg = llm.DefaultConfig()
		if c.BaseURL != "" {
			cfg.BaseURL = c.BaseURL
		}
	}

	if c.Model != "" {
		cfg.Model = c.Model
	}
	if c.Temperature > 0 {
		cfg.Temperature = float32(c.Temperature)
	}
	if c.RequestTimeout > 0 {
		cfg.Timeout = c.RequestTimeout
	}
	return cfg
}

// SelectedModel returns the model a run will use.
func (c *Config) SelectedModel() string {
	return c.LLMConfig().Model
}
