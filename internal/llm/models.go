package llm

import (
	"context"
	"fmt"
)

// DefaultModel is the model used when none is configured
const DefaultModel = "Qwen/Qwen2.5-7B-Instruct"

// ModelInfo describes one model offered to the user
type ModelInfo struct {
	ID      string `json:"id"`
	Caption string `json:"caption"`
}

var freeTierModels = []ModelInfo{
	{ID: "Qwen/Qwen2.5-7B-Instruct", Caption: "⭐ Very fast & excellent"},
	{ID: "google/gemma-2-9b-it", Caption: "🎯 Excellent quality"},
	{ID: "meta-llama/Llama-3.2-3B-Instruct", Caption: "⚡ Fast & capable"},
	{ID: "mistralai/Mistral-7B-Instruct-v0.3", Caption: "🚀 Classic & reliable"},
}

// AvailableModels returns the free-tier model catalogue in display order.
func AvailableModels() []ModelInfo {
	out := make([]ModelInfo, len(freeTierModels))
	copy(out, freeTierModels)
	return out
}

// LookupModel returns the catalogue entry for id.
func LookupModel(id string) (ModelInfo, bool) {
	for _, m := range freeTierModels {
		if m.ID == id {
			return m, true
		}
	}
	return ModelInfo{}, false
}

// Connection test parameters.
const (
	ConnectionTestPrompt    = "Hello! Tell me a very short joke."
	ConnectionTestMaxTokens = 50
	connectionPreviewLen    = 100
)

// TestConnection sends a tiny prompt and returns a short preview of the reply.
func TestConnection(ctx context.Context, client Client) (string, error) {
	if client == nil {
		return "", fmt.Errorf("client is required")
	}
	text, err := client.Complete(ctx, ConnectionTestPrompt, ConnectionTestMaxTokens)
	if err != nil {
		return "", Classify(err)
	}
	return truncateRunes(text, connectionPreviewLen), nil
}
