// Package schemas provides JSON Schema validation for imported profiles and stored run results.
package schemas

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Names of the embedded schemas
const (
	ProfileImport = "profile_import.schema.json"
	RunResult     = "run_result.schema.json"
)

//go:embed profile_import.schema.json
var profileImportSchema []byte

//go:embed run_result.schema.json
var runResultSchema []byte

var embedded = map[string][]byte{
	ProfileImport: profileImportSchema,
	RunResult:     runResultSchema,
}

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string
	Message string
}

// SchemaLoadError represents errors loading or parsing the schema itself
type SchemaLoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load schema %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load schema %s: %s", e.Path, e.Message)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed:\n")
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

// Schema returns the raw bytes of an embedded schema
func Schema(name string) ([]byte, error) {
	data, ok := embedded[name]
	if !ok {
		return nil, &SchemaLoadError{Path: name, Message: "unknown schema"}
	}
	return data, nil
}

// Validate checks a JSON document against one of the embedded schemas.
func Validate(name string, document []byte) error {
	schema, err := Schema(name)
	if err != nil {
		return err
	}
	return validate(name, gojsonschema.NewBytesLoader(schema), gojsonschema.NewBytesLoader(document))
}

// ValidateJSONString validates JSON string content against schema string content
func ValidateJSONString(schemaContent, jsonContent string) error {
	return validate("(string schema)",
		gojsonschema.NewStringLoader(schemaContent),
		gojsonschema.NewStringLoader(jsonContent))
}

func validate(path string, schemaLoader, documentLoader gojsonschema.JSONLoader) error {
	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return &SchemaLoadError{
			Path:    path,
			Message: "schema validation failed during load",
			Cause:   err,
		}
	}

	if result.Valid() {
		return nil
	}

	validationErr := &ValidationError{
		Errors: make([]FieldError, 0, len(result.Errors())),
	}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}
	return validationErr
}
