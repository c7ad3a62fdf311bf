package domain

// ErrorKind is the stable error category surfaced to the application layer.
type ErrorKind string

const (
	KindGuardrailRejected         ErrorKind = "GUARDRAIL_REJECTED"
	KindClassificationUnavailable ErrorKind = "CLASSIFICATION_UNAVAILABLE"
	KindNoUsableInput             ErrorKind = "NO_USABLE_INPUT"
	KindTurnTimeout               ErrorKind = "TURN_TIMEOUT"
	KindProviderUnavailable       ErrorKind = "PROVIDER_UNAVAILABLE"
	KindInternal                  ErrorKind = "INTERNAL"
)

// TurnError is a user-visible failure: a stable kind plus a readable reason.
// Collaborator errors are never copied into Message.
type TurnError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *TurnError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// NewTurnError builds a TurnError.
func NewTurnError(kind ErrorKind, message string) *TurnError {
	return &TurnError{Kind: kind, Message: message}
}

// ResultStatus is the final status of process_turn.
type ResultStatus string

const (
	StatusCommitted ResultStatus = "committed"
	StatusRejected  ResultStatus = "rejected"
	StatusFailed    ResultStatus = "failed"
)

// TurnResult is returned by the workflow for every turn.
type TurnResult struct {
	Status    ResultStatus `json:"status"`
	SessionID string       `json:"session_id"`
	TurnID    string       `json:"turn_id,omitempty"`
	Text      string       `json:"text,omitempty"`
	Domain    Domain       `json:"domain,omitempty"`
	Route     Route        `json:"route,omitempty"`
	Sources   []string     `json:"sources,omitempty"`
	// Degraded lists the soft failures absorbed by the turn
	// (e.g. "extraction_failed", "redaction_skipped").
	Degraded []string   `json:"degraded,omitempty"`
	Error    *TurnError `json:"error,omitempty"`
}

// OK reports whether the turn committed.
func (r TurnResult) OK() bool {
	return r.Status == StatusCommitted
}

// Failure builds a failed or rejected result.
func Failure(sessionID string, err *TurnError) TurnResult {
	status := StatusFailed
	if err.Kind == KindGuardrailRejected {
		status = StatusRejected
	}
	return TurnResult{Status: status, SessionID: sessionID, Error: err}
}
