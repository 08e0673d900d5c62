package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/linkedin-optimizer/internal/ingestion"
	"github.com/jonathan/linkedin-optimizer/internal/llm"
	"github.com/jonathan/linkedin-optimizer/internal/pipeline"
	"github.com/jonathan/linkedin-optimizer/internal/store"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrRunInProgress indicates the session is already running the pipeline
type ErrRunInProgress struct{}

func (e *ErrRunInProgress) Error() string {
	return "a run is already in progress"
}

// ErrNotFound indicates the requested resource does not exist
type ErrNotFound struct {
	Resource string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validationErr *ErrValidation
		conflictErr   *ErrRunInProgress
		notFoundErr   *ErrNotFound
		importErr     *ingestion.ImportError
		completionErr *llm.CompletionError
		abortErr      *pipeline.AbortError
		storeErr      *store.StoreError
	)

	switch {
	case errors.As(err, &validationErr), errors.As(err, &importErr):
		return http.StatusBadRequest
	case errors.As(err, &conflictErr):
		return http.StatusConflict
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound
	case errors.As(err, &completionErr):
		return completionStatus(completionErr.Kind)
	case errors.As(err, &abortErr):
		return http.StatusBadGateway
	case errors.As(err, &storeErr):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func completionStatus(kind llm.ErrorKind) int {
	switch kind {
	case llm.KindUnauthorized:
		return http.StatusUnauthorized
	case llm.KindModelNotFound:
		return http.StatusNotFound
	case llm.KindModelLoading:
		return http.StatusServiceUnavailable
	case llm.KindRateLimited:
		return http.StatusTooManyRequests
	case llm.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

// UserMessage returns the text shown to the user for an error.
func UserMessage(err error) string {
	var completionErr *llm.CompletionError
	if errors.As(err, &completionErr) {
		return completionErr.UserMessage()
	}
	var abortErr *pipeline.AbortError
	if errors.As(err, &abortErr) {
		return abortErr.Message
	}
	var importErr *ingestion.ImportError
	if errors.As(err, &importErr) {
		return "❌ " + importErr.Message
	}
	return err.Error()
}

// transientRetryAfter is the Retry-After hint, in seconds, for provider failures that clear up on their own.
const transientRetryAfter = 20

// errorKind returns the completion error kind, or "" for other errors.
func errorKind(err error) llm.ErrorKind {
	var completionErr *llm.CompletionError
	if errors.As(err, &completionErr) {
		return completionErr.Kind
	}
	return ""
}
