// Package main provides the profile_agent CLI for optimizing a LinkedIn profile
// for remote roles with a four-stage model pipeline.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jonathan/linkedin-optimizer/internal/config"
	"github.com/jonathan/linkedin-optimizer/internal/llm"
	"github.com/jonathan/linkedin-optimizer/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "profile_agent",
	Short: "LinkedIn profile optimizer for remote roles",
	Long: `profile_agent rewrites a LinkedIn profile for a target remote role using four model calls:
analysis, critical review, rewrite and quality review.

Configuration is read from --config (JSON or YAML), then OPTIMIZER_* environment variables,
then explicitly set flags. HF_TOKEN or GEMINI_API_KEY supply the API key when none is configured.`,
	SilenceUsage: true,
}

var (
	rootConfigPath    string
	rootProvider      string
	rootModel         string
	rootAPIKey        string
	rootDataDir       string
	rootDatabaseURL   string
	rootStageDelay    time.Duration
	rootParallel      bool
	rootDetectMarkers bool
	rootVerbose       bool
)

// newClient builds the completion client; replaced in tests.
var newClient = llm.NewClient

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&rootConfigPath, "config", "", "Path to optimizer config file (JSON or YAML)")
	flags.StringVar(&rootProvider, "provider", "", "Model provider: huggingface or gemini")
	flags.StringVarP(&rootModel, "model", "m", "", "Model id (defaults to the provider's default model)")
	flags.StringVar(&rootAPIKey, "api-key", "", "API key (optional, defaults to HF_TOKEN or GEMINI_API_KEY)")
	flags.StringVar(&rootDataDir, "data-dir", "", "Directory for the saved profile, results and exports")
	flags.StringVar(&rootDatabaseURL, "db-url", "", "PostgreSQL connection URL for run history (optional, defaults to DATABASE_URL)")
	flags.DurationVar(&rootStageDelay, "stage-delay", 0, "Pause between stages (default 2s, 0 disables it)")
	flags.BoolVar(&rootParallel, "parallel", false, "Run independent stages concurrently")
	flags.BoolVar(&rootDetectMarkers, "detect-markers", false, "Also stop when a stage reply contains an error marker")
	flags.BoolVarP(&rootVerbose, "verbose", "v", false, "Print detailed output")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig merges the config file, environment, explicitly set flags and defaults.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	loaded, err := config.Load(rootConfigPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	cfg := *loaded

	// Only override if the flag was explicitly set
	flags := cmd.Flags()
	if flags.Changed("provider") {
		cfg.Provider = rootProvider
	}
	if flags.Changed("model") {
		cfg.Model = rootModel
	}
	if flags.Changed("api-key") {
		cfg.APIKey = rootAPIKey
	}
	if flags.Changed("data-dir") {
		cfg.DataDir = rootDataDir
	}
	if flags.Changed("db-url") {
		cfg.DatabaseURL = rootDatabaseURL
	}
	if flags.Changed("stage-delay") {
		cfg.StageDelay = rootStageDelay
	}
	if flags.Changed("parallel") {
		cfg.Parallel = rootParallel
	}
	if flags.Changed("detect-markers") {
		cfg.DetectMarkers = rootDetectMarkers
	}
	if flags.Changed("verbose") {
		cfg.Verbose = rootVerbose
	}
	// Only now is the provider final, so the key variable is known.
	cfg.ApplySecretFallbacks()

	cfg = cfg.MergeWithDefaults(config.Defaults())
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	if cfg.Verbose && rootConfigPath != "" {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Loaded config from: %s\n", rootConfigPath)
	}
	return cfg, nil
}

// loadStore returns the file store for the configured data directory.
func loadStore(cmd *cobra.Command) (config.Config, *store.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, store.New(cfg.DataDir), nil
}

// requireAPIKey reports the missing credential in terms of the selected provider.
func requireAPIKey(cfg config.Config) error {
	if cfg.APIKey != "" {
		return nil
	}
	if llm.Provider(cfg.Provider) == llm.ProviderGemini {
		return fmt.Errorf("%s environment variable or --api-key flag is required", config.EnvGeminiAPIKey)
	}
	return fmt.Errorf("%s environment variable or --api-key flag is required", config.EnvHFToken)
}
