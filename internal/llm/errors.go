package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ErrorKind classifies a failed completion
type ErrorKind string

// Error kinds, in the order they are checked during classification.
const (
	KindUnauthorized  ErrorKind = "unauthorized"
	KindModelNotFound ErrorKind = "model_not_found"
	KindModelLoading  ErrorKind = "model_loading"
	KindRateLimited   ErrorKind = "rate_limited"
	KindTimeout       ErrorKind = "timeout"
	KindUnknown       ErrorKind = "unknown"
)

// Error markers prefixed to user-facing failure messages.
const (
	MarkerHardFailure = "❌"
	MarkerTransient   = "🔄"
	MarkerThrottled   = "⏱️"
)

// EmptyResponseMessage is returned, as a successful response, when the model produces no text.
const EmptyResponseMessage = "⚠️ Model returned empty response. Try again."

// maxRawErrorLen caps the raw provider text carried by unknown errors.
const maxRawErrorLen = 200

// Marker returns the marker prefix used by this kind's user message.
func (k ErrorKind) Marker() string {
	switch k {
	case KindModelLoading:
		return MarkerTransient
	case KindRateLimited, KindTimeout:
		return MarkerThrottled
	default:
		return MarkerHardFailure
	}
}

// Transient reports whether the failure may clear up on its own.
func (k ErrorKind) Transient() bool {
	return k == KindModelLoading || k == KindRateLimited || k == KindTimeout
}

// CompletionError is returned by Client.Complete when the provider call fails
type CompletionError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *CompletionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("completion failed (%s): %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("completion failed (%s): %s", e.Kind, e.Message)
}

func (e *CompletionError) Unwrap() error {
	return e.Cause
}

// UserMessage returns the fixed user-facing text for the failure.
func (e *CompletionError) UserMessage() string {
	switch e.Kind {
	case KindUnauthorized:
		return "❌ Invalid API token. Check your API token."
	case KindModelNotFound:
		return "❌ Model not found or unavailable."
	case KindModelLoading:
		return "🔄 Model is loading. Wait 20-30 seconds and try again."
	case KindRateLimited:
		return "⏱️ Rate limit exceeded. Wait a minute or upgrade to HF Pro."
	case KindTimeout:
		return "⏱️ Request timeout. Try again or use a smaller model."
	default:
		return "❌ Error: " + e.Message
	}
}

// Classify converts a provider error into a *CompletionError.
// Nil stays nil and an existing *CompletionError is returned as is.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var ce *CompletionError
	if errors.As(err, &ce) {
		return ce
	}

	kind := classifyKind(err)
	message := string(kind)
	if kind == KindUnknown {
		message = truncateRunes(err.Error(), maxRawErrorLen)
	}
	return &CompletionError{Kind: kind, Message: message, Cause: err}
}

func classifyKind(err error) ErrorKind {
	msg := err.Error()
	// Transport errors embed the request URL, whose port digits must not match a status code.
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		msg = strings.ReplaceAll(msg, urlErr.URL, "")
	}
	msg = strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "401") || strings.Contains(msg, "unauthorized"):
		return KindUnauthorized
	case strings.Contains(msg, "404") || strings.Contains(msg, "not found"):
		return KindModelNotFound
	case strings.Contains(msg, "503") || strings.Contains(msg, "loading"):
		return KindModelLoading
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit"):
		return KindRateLimited
	case strings.Contains(msg, "timeout") || isTimeout(err):
		return KindTimeout
	}
	return KindUnknown
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func truncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
