// Package steps provides the stage definitions, prompt builders, dependency
// ordering and stage execution for the profile optimization pipeline.
package steps

import (
	"fmt"
	"strings"

	"github.com/jonathan/linkedin-optimizer/internal/prompts"
	"github.com/jonathan/linkedin-optimizer/internal/types"
)

const promptFile = "agents.json"

// Placeholders rendered for missing profile data.
const (
	NotProvided       = "Not provided"
	DefaultTargetRole = "Remote position"
)

// BuildFunc renders a stage prompt from the profile and the outputs of the stage's dependencies.
type BuildFunc func(profile types.Profile, pctx types.PipelineContext) (string, error)

// Stage defines metadata and prompt construction for a pipeline stage
type Stage struct {
	Name         string
	Title        string
	Role         string
	Dependencies []string
	MaxTokens    int
	// ContextBudget is the number of characters of each dependency output passed on.
	ContextBudget   int
	StartMessage    string
	CompleteMessage string
	Build           BuildFunc
}

// Registry holds all stages in execution order
var Registry = []Stage{
	{
		Name:            types.StageAnalyzer,
		Title:           "Agent 1: Analyzer",
		Role:            "Initial Analysis",
		MaxTokens:       600,
		StartMessage:    "🔍 Starting comprehensive analysis...",
		CompleteMessage: "✅ Analysis complete",
		Build:           buildAnalyzerPrompt,
	},
	{
		Name:            types.StageReAnalyzer,
		Title:           "Agent 2: Re-Analyzer",
		Role:            "Critical Review",
		Dependencies:    []string{types.StageAnalyzer},
		MaxTokens:       500,
		ContextBudget:   800,
		StartMessage:    "🔄 Re-analyzing and validating...",
		CompleteMessage: "✅ Re-analysis complete",
		Build:           buildReAnalyzerPrompt,
	},
	{
		Name:            types.StageRewriter,
		Title:           "Agent 3: Rewriter",
		Role:            "Profile Optimization",
		MaxTokens:       800,
		StartMessage:    "✍️ Rewriting profile for remote roles...",
		CompleteMessage: "✅ Profile rewrite complete",
		Build:           buildRewriterPrompt,
	},
	{
		Name:            types.StageReviewer,
		Title:           "Agent 4: Reviewer",
		Role:            "Quality Assurance",
		Dependencies:    []string{types.StageRewriter},
		MaxTokens:       500,
		ContextBudget:   800,
		StartMessage:    "🔎 Final quality review...",
		CompleteMessage: "✅ Review complete",
		Build:           buildReviewerPrompt,
	},
}

// Profile field budgets, in characters.
const (
	analyzerAboutBudget      = 500
	analyzerExperienceBudget = 500
	rewriterAboutBudget      = 400
)

// Lookup returns the registered stage with the given name
func Lookup(name string) (Stage, bool) {
	for _, s := range Registry {
		if s.Name == name {
			return s, true
		}
	}
	return Stage{}, false
}

// DependencyError represents a dependency validation error
type DependencyError struct {
	Step                string
	MissingDependencies []string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("stage %s: missing dependencies: %v", e.Step, e.MissingDependencies)
}

// ValidateOrder checks that every stage's dependencies appear before it.
func ValidateOrder(stages []Stage) error {
	seen := make(map[string]bool, len(stages))
	for _, s := range stages {
		var missing []string
		for _, dep := range s.Dependencies {
			if !seen[dep] {
				missing = append(missing, dep)
			}
		}
		if len(missing) > 0 {
			return &DependencyError{Step: s.Name, MissingDependencies: missing}
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate stage: %s", s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}

// Waves groups stages into batches whose dependencies are all satisfied by earlier batches.
// Order within a wave follows registry order.
func Waves(stages []Stage) ([][]Stage, error) {
	if err := ValidateOrder(stages); err != nil {
		return nil, err
	}

	level := make(map[string]int, len(stages))
	var waves [][]Stage
	for _, s := range stages {
		l := 0
		for _, dep := range s.Dependencies {
			if level[dep]+1 > l {
				l = level[dep] + 1
			}
		}
		level[s.Name] = l
		for len(waves) <= l {
			waves = append(waves, nil)
		}
		waves[l] = append(waves[l], s)
	}
	return waves, nil
}

// orDefault returns def when value is blank.
func orDefault(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}

func targetRole(p types.Profile) string {
	return orDefault(p.TargetRole, DefaultTargetRole)
}

// field renders a profile field truncated to budget characters; budget 0 means unlimited.
func field(value string, budget int) string {
	if strings.TrimSpace(value) == "" {
		return NotProvided
	}
	if budget > 0 {
		return types.Truncate(value, budget)
	}
	return value
}

func render(key string, data map[string]string) (string, error) {
	template, err := prompts.Get(promptFile, key)
	if err != nil {
		return "", fmt.Errorf("failed to load %s prompt: %w", key, err)
	}
	return prompts.Format(template, data), nil
}

func buildAnalyzerPrompt(p types.Profile, _ types.PipelineContext) (string, error) {
	return render("analyzer", map[string]string{
		"TargetRole": targetRole(p),
		"Headline":   field(p.Headline, 0),
		"About":      field(p.About, analyzerAboutBudget),
		"Experience": field(p.Experience, analyzerExperienceBudget),
		"Skills":     field(p.Skills, 0),
	})
}

func buildReAnalyzerPrompt(p types.Profile, pctx types.PipelineContext) (string, error) {
	return render("re-analyzer", map[string]string{
		"Analysis":   pctx[types.StageAnalyzer],
		"TargetRole": targetRole(p),
	})
}

func buildRewriterPrompt(p types.Profile, _ types.PipelineContext) (string, error) {
	return render("rewriter", map[string]string{
		"TargetRole": targetRole(p),
		"Headline":   field(p.Headline, 0),
		"About":      field(p.About, rewriterAboutBudget),
	})
}

func buildReviewerPrompt(p types.Profile, pctx types.PipelineContext) (string, error) {
	return render("reviewer", map[string]string{
		"Rewrite":    pctx[types.StageRewriter],
		"TargetRole": targetRole(p),
	})
}
