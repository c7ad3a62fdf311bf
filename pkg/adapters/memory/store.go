package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/jorge-rr00/newbackend/pkg/domain"
)

// Store implements ports.SessionStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Session
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Session),
	}
}

// Create stores a copy of the new session.
func (s *Store) Create(ctx context.Context, session *domain.Session) error {
	if session.ID == "" {
		return domain.ErrEmptySessionID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[session.ID]; ok {
		return domain.ErrSessionExists
	}
	s.data[session.ID] = session.Clone()
	return nil
}

// Load returns a copy so callers can't mutate store state by pointer.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session.Clone(), nil
}

// Commit applies the commit to a copy and swaps it in, so a refused
// classification leaves the stored session untouched.
func (s *Store) Commit(ctx context.Context, sessionID string, commit domain.Commit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.data[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	next := current.Clone()
	if err := commit.ApplyTo(next); err != nil {
		return err
	}
	s.data[sessionID] = next
	return nil
}

// SetClassification classifies the session at most once.
func (s *Store) SetClassification(ctx context.Context, sessionID string, d domain.Domain) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.data[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	return current.Classify(d)
}

// Clear drops the turns of a session.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.data[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	current.Turns = []domain.Turn{}
	return nil
}

// Delete removes the session.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

// List returns summaries ordered by last activity, most recent first.
func (s *Store) List(ctx context.Context) ([]domain.SessionSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.SessionSummary, 0, len(s.data))
	for _, session := range s.data {
		out = append(out, session.Summary())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}
