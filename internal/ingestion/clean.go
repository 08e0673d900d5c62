package ingestion

import (
	"regexp"
	"strings"
)

var (
	spaceRun      = regexp.MustCompile(`[ \t\f\v]+`)
	blankLineRun  = regexp.MustCompile(`\n\n\n+`)
	fenceLanguage = regexp.MustCompile("^[A-Za-z0-9_+-]{1,20}$")
)

// CleanJSONBlock strips markdown code fences and surrounding chatter from a pasted JSON object.
// Browser consoles and chat tools often wrap the snippet output in ```json ... ``` or add a
// line of text before it.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.Index(text, "\n"); idx >= 0 && fenceLanguage.MatchString(strings.TrimSpace(text[:idx])) {
			text = text[idx+1:]
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	// Keep only the outermost object when there is text before it.
	if !strings.HasPrefix(text, "{") && !strings.HasPrefix(text, "[") {
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start >= 0 && end > start {
			text = text[start : end+1]
		}
	}
	return text
}

// CleanText normalizes extracted text: LF line endings, single spaces inside lines,
// no trailing whitespace and at most one blank line in a row.
func CleanText(content string) string {
	if content == "" {
		return ""
	}

	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	content = strings.ReplaceAll(content, "\u00a0", " ")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spaceRun.ReplaceAllString(line, " "))
	}

	result := strings.Join(lines, "\n")
	result = blankLineRun.ReplaceAllString(result, "\n\n")
	return strings.TrimSpace(result)
}
