package faults

import (
	"context"
	"errors"
	"net"
	"time"
)

// Outcome is the typed result of an external call as seen by the engine.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeRetryable
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetryable:
		return "retryable"
	default:
		return "fatal"
	}
}

// retryable is implemented by every typed error that knows its own policy.
type retryable interface {
	IsRetryable() bool
}

// AfterProvider exposes provider supplied retry delays.
type AfterProvider interface {
	GetRetryAfter() time.Duration
}

// Classify maps an error onto success, retryable or fatal.
// A context deadline is retryable because per-call timeouts surface that way;
// callers must check their own parent context before retrying.
func Classify(err error) Outcome {
	if err == nil {
		return OutcomeSuccess
	}
	if errors.Is(err, context.Canceled) {
		return OutcomeFatal
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return OutcomeRetryable
	}

	var unsupported *UnsupportedFormatError
	if errors.As(err, &unsupported) {
		return OutcomeFatal
	}

	var typed retryable
	if errors.As(err, &typed) {
		if typed.IsRetryable() {
			return OutcomeRetryable
		}
		return OutcomeFatal
	}

	var rl *RateLimitError
	if errors.As(err, &rl) {
		return OutcomeRetryable
	}

	switch {
	case errors.Is(err, ErrProviderUnavailable), errors.Is(err, ErrRateLimitExceeded):
		return OutcomeRetryable
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return OutcomeRetryable
	}

	return OutcomeFatal
}

// IsRetryableError is shorthand for Classify(err) == OutcomeRetryable.
func IsRetryableError(err error) bool {
	return Classify(err) == OutcomeRetryable
}

// TypeOf returns the taxonomy type of err for logs and metrics.
func TypeOf(err error) ErrorType {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTypeTimeout
	}

	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Type
	}
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return ErrorTypeRateLimit
	}
	var uf *UnsupportedFormatError
	if errors.As(err, &uf) {
		return ErrorTypeUnsupported
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ErrorTypeTimeout
		}
		return ErrorTypeNetwork
	}
	if errors.Is(err, ErrProviderUnavailable) {
		return ErrorTypeProvider
	}
	return ErrorTypeUnknown
}

// RetryAfter extracts a provider requested delay from err.
func RetryAfter(err error) time.Duration {
	var p AfterProvider
	if errors.As(err, &p) {
		return p.GetRetryAfter()
	}
	return 0
}
