// Package observability provides formatted output utilities for verbose CLI mode
// and the Prometheus metrics exported by the server.
package observability

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/linkedin-optimizer/internal/llm"
	"github.com/jonathan/linkedin-optimizer/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// stageHeadings are the section titles used when printing run results.
var stageHeadings = map[string]string{
	types.StageAnalyzer:   "🔍 Agent 1: Initial Analysis",
	types.StageReAnalyzer: "🔄 Agent 2: Critical Review",
	types.StageRewriter:   "✍️ Agent 3: Optimized Profile",
	types.StageReviewer:   "🔎 Agent 4: Quality Review",
}

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content.
// Long lines are truncated when truncate is set and wrapped otherwise.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string, truncate bool) {
	inner := boxWidth - 4
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", pad(title, inner))
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		if utf8.RuneCountInString(line) <= inner {
			fmt.Fprintf(p.out, "│ %s │\n", pad(line, inner))
			continue
		}
		if truncate {
			fmt.Fprintf(p.out, "│ %s │\n", pad(types.Truncate(line, inner-3)+"...", inner))
			continue
		}
		for _, wrapped := range wrap(line, inner) {
			fmt.Fprintf(p.out, "│ %s │\n", pad(wrapped, inner))
		}
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintProfilePreview outputs the truncated profile summary shown before a run.
func (p *Printer) PrintProfilePreview(profile *types.Profile) {
	if profile == nil {
		return
	}
	preview := profile.Preview()

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Target:   %s\n", preview.TargetRole))
	sb.WriteString(fmt.Sprintf("Headline: %s\n", orNotSet(preview.Headline)))
	sb.WriteString(fmt.Sprintf("About:    %s\n", orNotSet(preview.About)))
	sb.WriteString(fmt.Sprintf("Skills:   %s", orNotSet(preview.Skills)))
	if !profile.Timestamp.IsZero() {
		sb.WriteString(fmt.Sprintf("\nSaved:    %s", profile.Timestamp.Format("2006-01-02 15:04:05")))
	}

	p.printBox("👤 Profile Preview", sb.String(), false)
}

// PrintKeywordHints outputs must-have keywords for the target role, if any.
func (p *Printer) PrintKeywordHints(hints *types.KeywordHints) {
	if hints == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(hints.Message)
	sb.WriteString("\n")
	for _, kw := range hints.Keywords {
		sb.WriteString(fmt.Sprintf("  • %s\n", kw))
	}

	p.printBox("💡 Must-Have Keywords", strings.TrimRight(sb.String(), "\n"), false)
}

// PrintActivity outputs the most recent activity log entries.
func (p *Printer) PrintActivity(entries []types.ActivityEntry, limit int) {
	if len(entries) == 0 {
		return
	}
	if limit <= 0 {
		limit = maxItemsToShow
	}
	start := max(len(entries)-limit, 0)

	var sb strings.Builder
	for i, e := range entries[start:] {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("[%s] %s: %s", e.Timestamp.Format("15:04:05"), e.Agent, e.Message))
	}
	if start > 0 {
		sb.WriteString(fmt.Sprintf("\n... %d earlier entries", start))
	}

	p.printBox("📋 Agent Activity", sb.String(), true)
}

// PrintRunResult outputs every stage output of a completed run.
func (p *Printer) PrintRunResult(result *types.RunResult) {
	if result == nil {
		return
	}

	for _, name := range types.StageNames {
		output, ok := result.Results[name]
		if !ok {
			continue
		}
		heading := stageHeadings[name]
		if heading == "" {
			heading = name
		}
		p.printBox(heading, output, false)
	}
}

// PrintModels outputs the model catalogue, marking the selected model.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintModels(models []llm.ModelInfo, selected string) {
	for _, m := range models {
		marker := " "
		if m.ID == selected {
			marker = "*"
		}
		fmt.Fprintf(p.out, "%s %-40s %s\n", marker, m.ID, m.Caption)
	}
}

func orNotSet(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Not set"
	}
	return s
}

// pad right-pads s with spaces to width runes.
func pad(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}

// wrap splits a line into chunks of at most width runes, breaking on spaces where possible.
func wrap(line string, width int) []string {
	var out []string
	var current []rune
	for _, word := range strings.Fields(line) {
		w := []rune(word)
		for len(w) > width {
			if len(current) > 0 {
				out = append(out, string(current))
				current = nil
			}
			out = append(out, string(w[:width]))
			w = w[width:]
		}
		switch {
		case len(current) == 0:
			current = w
		case len(current)+1+len(w) <= width:
			current = append(append(current, ' '), w...)
		default:
			out = append(out, string(current))
			current = w
		}
	}
	if len(current) > 0 {
		out = append(out, string(current))
	}
	return out
}
