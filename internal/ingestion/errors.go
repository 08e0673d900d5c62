package ingestion

import "fmt"

// Import sources
const (
	SourceJSON = "json"
	SourcePDF  = "pdf"
	SourceHTML = "html"
)

// ImportError reports input that could not be turned into profile fields.
// When it is returned nothing has been applied to the profile.
type ImportError struct {
	Source  string
	Message string
	Cause   error
}

func (e *ImportError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s import: %s: %v", e.Source, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s import: %s", e.Source, e.Message)
}

func (e *ImportError) Unwrap() error {
	return e.Cause
}
