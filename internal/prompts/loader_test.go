package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_ValidPrompt(t *testing.T) {
	prompt, err := Get("agents.json", "analyzer")
	require.NoError(t, err)
	assert.NotEmpty(t, prompt)
	assert.Contains(t, prompt, "You are a LinkedIn Profile Analyzer for remote jobs.")
}

func TestGet_InvalidFile(t *testing.T) {
	_, err := Get("nonexistent.json", "some-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read prompt file")
}

func TestGet_InvalidKey(t *testing.T) {
	_, err := Get("agents.json", "nonexistent-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestFormat(t *testing.T) {
	template := "Hello {{.Name}}, welcome to {{.Company}}!"
	data := map[string]string{
		"Name":    "Alice",
		"Company": "Acme Corp",
	}

	result := Format(template, data)
	assert.Equal(t, "Hello Alice, welcome to Acme Corp!", result)
}

func TestFormat_NoPlaceholders(t *testing.T) {
	template := "No placeholders here"
	data := map[string]string{"Key": "Value"}

	result := Format(template, data)
	assert.Equal(t, template, result)
}

func TestFormat_EmptyData(t *testing.T) {
	template := "Hello {{.Name}}"
	data := map[string]string{}

	result := Format(template, data)
	assert.Equal(t, template, result) // Placeholder remains
}

func TestFormat_ValueContainingPlaceholder(t *testing.T) {
	template := "ABOUT: {{.About}}\nSKILLS: {{.Skills}}"
	data := map[string]string{
		"About":  "I write {{.Skills}} templates",
		"Skills": "Go",
	}

	result := Format(template, data)
	assert.Equal(t, "ABOUT: I write {{.Skills}} templates\nSKILLS: Go", result)
}

func TestGet_AllStagePrompts(t *testing.T) {
	for _, key := range []string{"analyzer", "re-analyzer", "rewriter", "reviewer"} {
		prompt, err := Get("agents.json", key)
		require.NoError(t, err, key)
		assert.NotEmpty(t, prompt, key)
	}
}

func TestCaching(t *testing.T) {
	// First call loads from file
	prompt1, err := Get("agents.json", "rewriter")
	require.NoError(t, err)

	// Second call should use cache
	prompt2, err := Get("agents.json", "rewriter")
	require.NoError(t, err)

	assert.Equal(t, prompt1, prompt2)
}
