package middleware

import (
	"context"

	"github.com/jorge-rr00/newbackend/pkg/domain"
	"github.com/jorge-rr00/newbackend/pkg/ports"
)

// Middleware allows wrapping a SessionStore to add behavior.
type Middleware func(ports.SessionStore) ports.SessionStore

// Chain applies middlewares so that the first one is the outermost.
func Chain(store ports.SessionStore, mws ...Middleware) ports.SessionStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}

// transformer rewrites turns on the way in and out of the wrapped store.
// Methods that carry no turn content pass straight through.
type transformer struct {
	next     ports.SessionStore
	onWrite  func(*domain.Turn) error
	onRead   func(*domain.Turn) error
}

func (m *transformer) Create(ctx context.Context, session *domain.Session) error {
	cloned := session.Clone()
	for i := range cloned.Turns {
		if err := m.onWrite(&cloned.Turns[i]); err != nil {
			return err
		}
	}
	return m.next.Create(ctx, cloned)
}

func (m *transformer) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := m.next.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if m.onRead == nil {
		return session, nil
	}
	for i := range session.Turns {
		if err := m.onRead(&session.Turns[i]); err != nil {
			return nil, err
		}
	}
	return session, nil
}

func (m *transformer) Commit(ctx context.Context, sessionID string, commit domain.Commit) error {
	// Clone so the caller's in-memory turn is never modified.
	cloned := commit.Turn.Clone()
	if err := m.onWrite(&cloned); err != nil {
		return err
	}
	commit.Turn = cloned
	return m.next.Commit(ctx, sessionID, commit)
}

func (m *transformer) SetClassification(ctx context.Context, sessionID string, d domain.Domain) error {
	return m.next.SetClassification(ctx, sessionID, d)
}

func (m *transformer) List(ctx context.Context) ([]domain.SessionSummary, error) {
	return m.next.List(ctx)
}

func (m *transformer) Clear(ctx context.Context, sessionID string) error {
	return m.next.Clear(ctx, sessionID)
}

func (m *transformer) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}
