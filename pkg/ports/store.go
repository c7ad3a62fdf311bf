package ports

import (
	"context"

	"github.com/jorge-rr00/newbackend/pkg/domain"
)

// SessionStore persists sessions as ordered, append-only turn histories.
type SessionStore interface {
	// Create persists a new session. Returns domain.ErrSessionExists if the ID is taken.
	Create(ctx context.Context, session *domain.Session) error

	// Load returns the session with its turns in append order.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.Session, error)

	// Commit appends the turn and applies the optional classification atomically.
	// Readers never observe one without the other. Returns domain.ErrAlreadyClassified,
	// without writing, when the commit would change an existing classification.
	Commit(ctx context.Context, sessionID string, commit domain.Commit) error

	// SetClassification classifies the session at most once.
	SetClassification(ctx context.Context, sessionID string, d domain.Domain) error

	// List returns a summary of every stored session.
	List(ctx context.Context) ([]domain.SessionSummary, error)

	// Clear removes all turns but keeps the session and its classification.
	Clear(ctx context.Context, sessionID string) error

	// Delete removes the session. Deleting a missing session is not an error.
	Delete(ctx context.Context, sessionID string) error
}
