package ingestion

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonathan/linkedin-optimizer/internal/schemas"
	"github.com/jonathan/linkedin-optimizer/internal/types"
)

// Result holds the profile fields recovered from one import.
type Result struct {
	Source string            `json:"source"`
	Fields map[string]string `json:"fields"`
	// Characters is the length of the extracted text for PDF and HTML imports.
	Characters int    `json:"characters,omitempty"`
	Preview    string `json:"preview,omitempty"`
}

// Apply merges the imported fields into the profile and returns the keys that changed.
func (r *Result) Apply(p *types.Profile) []string {
	return p.Merge(r.Fields)
}

// ParseJSON decodes the JSON blob produced by the browser-console snippet.
// Keys outside the profile fields are ignored. Malformed input returns an *ImportError.
func ParseJSON(input string) (*Result, error) {
	cleaned := CleanJSONBlock(input)
	if cleaned == "" {
		return nil, &ImportError{Source: SourceJSON, Message: "input is empty"}
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, &ImportError{Source: SourceJSON, Message: "Invalid JSON", Cause: err}
	}
	if err := schemas.Validate(schemas.ProfileImport, []byte(cleaned)); err != nil {
		return nil, &ImportError{Source: SourceJSON, Message: "JSON does not describe a profile", Cause: err}
	}

	fields := make(map[string]string)
	for _, key := range types.ProfileFields {
		value, ok := raw[key]
		if !ok {
			continue
		}
		s, ok := value.(string)
		if !ok {
			return nil, &ImportError{Source: SourceJSON, Message: fmt.Sprintf("field %q is not a string", key)}
		}
		fields[key] = s
	}
	if len(fields) == 0 {
		known := strings.Join(types.ProfileFields, ", ")
		return nil, &ImportError{Source: SourceJSON, Message: "no profile fields found (expected one of " + known + ")"}
	}

	return &Result{Source: SourceJSON, Fields: fields}, nil
}

// ImportJSON parses the blob and merges it into the profile in one step.
func ImportJSON(p *types.Profile, input string) ([]string, error) {
	result, err := ParseJSON(input)
	if err != nil {
		return nil, err
	}
	return result.Apply(p), nil
}
