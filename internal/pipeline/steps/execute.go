package steps

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonathan/linkedin-optimizer/internal/llm"
	"github.com/jonathan/linkedin-optimizer/internal/types"
)

// Prompt builds the stage prompt. The builder only sees the stage's own
// dependencies, each cut to ContextBudget characters.
func (s Stage) Prompt(profile types.Profile, pctx types.PipelineContext) (string, error) {
	if s.Build == nil {
		return "", fmt.Errorf("stage %s has no prompt builder", s.Name)
	}

	view := pctx.Filter(s.Dependencies)
	var missing []string
	for _, dep := range s.Dependencies {
		if _, ok := view[dep]; !ok {
			missing = append(missing, dep)
		}
	}
	if len(missing) > 0 {
		return "", &DependencyError{Step: s.Name, MissingDependencies: missing}
	}

	if s.ContextBudget > 0 {
		for k, v := range view {
			view[k] = types.Truncate(v, s.ContextBudget)
		}
	}
	return s.Build(profile, view)
}

// Execute runs one stage: it logs the start, builds the prompt, calls the
// client once and logs the outcome. The client's text and error are returned
// unchanged; deciding whether to continue is the caller's job.
func (s Stage) Execute(ctx context.Context, client llm.Client, profile types.Profile, pctx types.PipelineContext, log *types.ActivityLog) (string, error) {
	logf := func(msg string) {
		if log != nil {
			log.Add(s.Title, msg)
		}
	}

	logf(s.StartMessage)

	prompt, err := s.Prompt(profile, pctx)
	if err != nil {
		logf("❌ Failed to build prompt: " + err.Error())
		return "", err
	}

	text, err := client.Complete(ctx, prompt, s.MaxTokens)
	if err != nil {
		logf("❌ Failed: " + userMessage(err))
		return text, err
	}

	logf(s.CompleteMessage)
	return text, nil
}

func userMessage(err error) string {
	var ce *llm.CompletionError
	if errors.As(err, &ce) {
		return ce.UserMessage()
	}
	return err.Error()
}
