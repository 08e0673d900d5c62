package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/linkedin-optimizer/internal/llm"
	"github.com/jonathan/linkedin-optimizer/internal/observability"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the free-tier models",
	RunE:  runModels,
}

var testConnectionCmd = &cobra.Command{
	Use:   "test-connection",
	Short: "Send a tiny prompt to check the API key and model",
	RunE:  runTestConnection,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(testConnectionCmd)
}

func runModels(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Provider: %s\n", cfg.Provider)
	observability.NewPrinter(out).PrintModels(llm.AvailableModels(), cfg.SelectedModel())
	return nil
}

func runTestConnection(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := requireAPIKey(cfg); err != nil {
		return err
	}

	ctx := cmd.Context()
	client, err := newClient(ctx, cfg.LLMConfig(), cfg.APIKey)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	defer client.Close()

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Testing %s...\n", client.Model())
	preview, err := llm.TestConnection(ctx, client)
	if err != nil {
		var ce *llm.CompletionError
		if errors.As(err, &ce) {
			return errors.New(ce.UserMessage())
		}
		return err
	}

	_, _ = fmt.Fprintln(out, "✅ Connected!")
	_, _ = fmt.Fprintf(out, "Response: %s\n", preview)
	return nil
}
