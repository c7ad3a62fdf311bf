package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/jorge-rr00/newbackend/pkg/domain"
)

// Store implements ports.SessionStore using the local filesystem.
// It stores each session as a JSON file in a configured directory.
type Store struct {
	BasePath string

	// mu serializes read-modify-write cycles within this process.
	mu sync.Mutex
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".nova/sessions".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".nova", "sessions")
	}
	return &Store{BasePath: basePath}
}

func (s *Store) path(sessionID string) string {
	return filepath.Join(s.BasePath, sessionID+".json")
}

// Create writes the new session file. It fails if the file already exists.
func (s *Store) Create(ctx context.Context, session *domain.Session) error {
	if err := validateID(session.ID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path(session.ID)); err == nil {
		return domain.ErrSessionExists
	}
	return s.write(session)
}

// Load retrieves the session from its JSON file.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	if err := validateID(sessionID); err != nil {
		return nil, err
	}
	return s.read(sessionID)
}

// Commit reads, applies and atomically rewrites the session file.
func (s *Store) Commit(ctx context.Context, sessionID string, commit domain.Commit) error {
	return s.update(sessionID, func(session *domain.Session) error {
		return commit.ApplyTo(session)
	})
}

// SetClassification classifies the session at most once.
func (s *Store) SetClassification(ctx context.Context, sessionID string, d domain.Domain) error {
	return s.update(sessionID, func(session *domain.Session) error {
		return session.Classify(d)
	})
}

// Clear drops all turns.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	return s.update(sessionID, func(session *domain.Session) error {
		session.Turns = []domain.Turn{}
		return nil
	})
}

// Delete removes the session file.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if err := validateID(sessionID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(sessionID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete session file: %w", err)
	}
	return nil
}

// List reads every session file and returns summaries, most recent first.
func (s *Store) List(ctx context.Context) ([]domain.SessionSummary, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []domain.SessionSummary{}, nil
		}
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	var out []domain.SessionSummary
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" || strings.HasPrefix(name, "tmp-") {
			continue
		}
		session, err := s.read(strings.TrimSuffix(name, ".json"))
		if err != nil {
			// Deleted between ReadDir and read.
			if errors.Is(err, domain.ErrSessionNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, session.Summary())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (s *Store) update(sessionID string, fn func(*domain.Session) error) error {
	if err := validateID(sessionID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.read(sessionID)
	if err != nil {
		return err
	}
	if err := fn(session); err != nil {
		return err
	}
	return s.write(session)
}

func (s *Store) read(sessionID string) (*domain.Session, error) {
	data, err := os.ReadFile(s.path(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if session.Turns == nil {
		session.Turns = []domain.Turn{}
	}
	return &session, nil
}

// write persists the session atomically: temp file, fsync, rename.
func (s *Store) write(session *domain.Session) error {
	if err := os.MkdirAll(s.BasePath, 0o755); err != nil {
		return fmt.Errorf("failed to ensure session directory: %w", err)
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	// Same directory keeps the rename on one filesystem.
	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-"+session.ID+"-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path(session.ID)); err != nil {
		return fmt.Errorf("failed to rename temp file to session: %w", err)
	}
	return nil
}

func validateID(id string) error {
	if id == "" {
		return domain.ErrEmptySessionID
	}
	if strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return fmt.Errorf("invalid session id %q", id)
	}
	return nil
}
