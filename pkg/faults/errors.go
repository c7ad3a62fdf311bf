package faults

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorType categorizes collaborator failures for retry classification.
type ErrorType string

const (
	// ErrorTypeTimeout indicates a call timeout or deadline exceeded (retryable).
	ErrorTypeTimeout ErrorType = "timeout"

	// ErrorTypeRateLimit indicates the provider throttled the call (retryable).
	ErrorTypeRateLimit ErrorType = "rate_limit"

	// ErrorTypeNetwork indicates connectivity issues (retryable).
	ErrorTypeNetwork ErrorType = "network"

	// ErrorTypeProvider indicates the provider is unavailable (retryable).
	ErrorTypeProvider ErrorType = "provider_unavailable"

	// ErrorTypeAuth indicates authentication failed (permanent).
	ErrorTypeAuth ErrorType = "authentication"

	// ErrorTypeValidation indicates malformed input (permanent).
	ErrorTypeValidation ErrorType = "validation_failed"

	// ErrorTypeContent indicates content blocked by provider safety filters (permanent).
	ErrorTypeContent ErrorType = "content_filtered"

	// ErrorTypeUnsupported indicates a document format the extractor cannot read (permanent).
	ErrorTypeUnsupported ErrorType = "unsupported_format"

	// ErrorTypeUnknown indicates an unclassified error.
	ErrorTypeUnknown ErrorType = "unknown"
)

var (
	// ErrProviderUnavailable indicates the provider service is down or unreachable.
	ErrProviderUnavailable = errors.New("provider service unavailable")

	// ErrRateLimitExceeded indicates a local or remote rate limit was hit.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrRetriesExhausted wraps the last error once the retry budget is spent.
	ErrRetriesExhausted = errors.New("retry budget exhausted")

	// ErrEmptyExtraction is returned when an extractor produced no text.
	ErrEmptyExtraction = errors.New("extraction produced no text")

	// ErrNoAnswer is returned when a generation step yields no usable text.
	ErrNoAnswer = errors.New("generation produced no answer")
)

// ProviderError captures a structured error response from a remote service.
type ProviderError struct {
	Provider   string    `json:"provider"`
	StatusCode int       `json:"status_code"`
	Message    string    `json:"message"`
	Code       string    `json:"code"`
	Type       ErrorType `json:"type"`
	RetryAfter int       `json:"retry_after"` // seconds
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// IsRetryable reports whether the failure is transient.
func (e *ProviderError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeTimeout, ErrorTypeRateLimit, ErrorTypeNetwork, ErrorTypeProvider:
		return true
	default:
		return false
	}
}

// GetRetryAfter returns the provider requested delay, if any.
func (e *ProviderError) GetRetryAfter() time.Duration {
	if e.RetryAfter > 0 {
		return time.Duration(e.RetryAfter) * time.Second
	}
	return 0
}

// NewProviderError classifies an HTTP status into a ProviderError.
func NewProviderError(provider string, status int, message string) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		StatusCode: status,
		Message:    message,
		Type:       TypeFromStatus(status),
	}
}

// TypeFromStatus maps HTTP status codes onto the taxonomy.
func TypeFromStatus(status int) ErrorType {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return ErrorTypeTimeout
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrorTypeAuth
	case status == http.StatusUnsupportedMediaType:
		return ErrorTypeUnsupported
	case status >= 500:
		return ErrorTypeProvider
	case status >= 400:
		return ErrorTypeValidation
	}
	return ErrorTypeUnknown
}

// RateLimitError reports throttling with retry guidance.
type RateLimitError struct {
	Provider   string `json:"provider"`
	RetryAfter int    `json:"retry_after"`
	LocalLimit bool   `json:"local_limit"`
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limit exceeded for %s, retry after %d seconds", e.Provider, e.RetryAfter)
	}
	return fmt.Sprintf("rate limit exceeded for %s", e.Provider)
}

// GetRetryAfter returns the requested delay, if any.
func (e *RateLimitError) GetRetryAfter() time.Duration {
	if e.RetryAfter > 0 {
		return time.Duration(e.RetryAfter) * time.Second
	}
	return 0
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimitExceeded }

// UnsupportedFormatError is returned by extractors for unreadable document kinds.
type UnsupportedFormatError struct {
	Kind     string
	Filename string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Filename != "" {
		return fmt.Sprintf("unsupported document format %q (%s)", e.Kind, e.Filename)
	}
	return fmt.Sprintf("unsupported document format %q", e.Kind)
}

// ExtractionError is a failure while reading a document of a supported kind.
// Retryable is set when the underlying service failed transiently.
type ExtractionError struct {
	Kind      string
	Cause     error
	Retryable bool
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction of %s failed: %v", e.Kind, e.Cause)
}

func (e *ExtractionError) Unwrap() error { return e.Cause }

// IsRetryable reports whether the extraction may succeed on a second attempt.
func (e *ExtractionError) IsRetryable() bool { return e.Retryable }
