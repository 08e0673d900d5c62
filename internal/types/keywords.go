package types

import "strings"

// KeywordHints holds must-have keywords for a recognised target role.
type KeywordHints struct {
	Message  string   `json:"message"`
	Keywords []string `json:"keywords"`
}

var serviceNowGenAIKeywords = []string{
	"ServiceNow (ITSM, ITOM, CSM, HRSD)",
	"Gen AI / Generative AI / LLM",
	"Virtual Agent, Chatbot",
	"Flow Designer, Integration Hub",
	"API, REST, JavaScript, Python",
	"Remote, Distributed, Async",
	"Agile, Scrum, CI/CD",
}

// HintsForRole returns keyword hints for the target role, or nil when none apply.
func HintsForRole(targetRole string) *KeywordHints {
	role := strings.ToLower(targetRole)
	if !strings.Contains(role, "servicenow") && !strings.Contains(role, "gen ai") {
		return nil
	}
	keywords := make([]string, len(serviceNowGenAIKeywords))
	copy(keywords, serviceNowGenAIKeywords)
	return &KeywordHints{
		Message:  "ServiceNow + Gen AI is HOT for remote roles!",
		Keywords: keywords,
	}
}
