package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jorge-rr00/newbackend/pkg/domain"
)

// Store implements ports.SessionStore on SQLite.
// Turns are rows ordered by seq; a commit is one transaction.
type Store struct {
	db *sql.DB
	// mu serializes writers to avoid SQLITE_BUSY on lock upgrades.
	mu sync.Mutex
}

// NewStore wraps an opened database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create inserts a new session row.
func (s *Store) Create(ctx context.Context, session *domain.Session) error {
	if session.ID == "" {
		return domain.ErrEmptySessionID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, classification, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		session.ID, string(session.Classification), session.CreatedAt.UnixNano(), session.UpdatedAt.UnixNano())
	if err != nil {
		if isConstraint(err) {
			return domain.ErrSessionExists
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// Load reads the session row and its turns in order.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := s.loadMeta(ctx, s.db, sessionID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM turns WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		var turn domain.Turn
		if err := json.Unmarshal([]byte(payload), &turn); err != nil {
			return nil, fmt.Errorf("unmarshal turn: %w", err)
		}
		session.Turns = append(session.Turns, turn)
	}
	return session, rows.Err()
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) loadMeta(ctx context.Context, q querier, sessionID string) (*domain.Session, error) {
	var (
		classification       string
		createdAt, updatedAt int64
	)
	err := q.QueryRowContext(ctx,
		`SELECT classification, created_at, updated_at FROM sessions WHERE id = ?`, sessionID).
		Scan(&classification, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}
	return &domain.Session{
		ID:             sessionID,
		Classification: domain.Domain(classification),
		CreatedAt:      time.Unix(0, createdAt).UTC(),
		UpdatedAt:      time.Unix(0, updatedAt).UTC(),
		Turns:          []domain.Turn{},
	}, nil
}

// Commit appends the turn and applies the classification in one transaction.
func (s *Store) Commit(ctx context.Context, sessionID string, commit domain.Commit) error {
	payload, err := json.Marshal(commit.Turn)
	if err != nil {
		return fmt.Errorf("marshal turn: %w", err)
	}

	return s.tx(ctx, func(tx *sql.Tx) error {
		meta, err := s.loadMeta(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		// Turns are not needed to validate the commit; ApplyTo only checks
		// classification and bumps UpdatedAt.
		if err := commit.ApplyTo(meta); err != nil {
			return err
		}

		var next int64
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(seq), 0) + 1 FROM turns WHERE session_id = ?`, sessionID).Scan(&next); err != nil {
			return fmt.Errorf("next seq: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO turns (session_id, seq, payload, created_at) VALUES (?, ?, ?, ?)`,
			sessionID, next, string(payload), commit.Turn.CreatedAt.UnixNano()); err != nil {
			return fmt.Errorf("insert turn: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE sessions SET classification = ?, updated_at = ? WHERE id = ?`,
			string(meta.Classification), meta.UpdatedAt.UnixNano(), sessionID); err != nil {
			return fmt.Errorf("update session: %w", err)
		}
		return nil
	})
}

// SetClassification classifies the session at most once.
func (s *Store) SetClassification(ctx context.Context, sessionID string, d domain.Domain) error {
	return s.tx(ctx, func(tx *sql.Tx) error {
		meta, err := s.loadMeta(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if err := meta.Classify(d); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE sessions SET classification = ? WHERE id = ?`, string(d), sessionID)
		return err
	})
}

// Clear deletes the turns of a session.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	return s.tx(ctx, func(tx *sql.Tx) error {
		if _, err := s.loadMeta(ctx, tx, sessionID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM turns WHERE session_id = ?`, sessionID)
		return err
	})
}

// Delete removes the session and its turns.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	return s.tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM turns WHERE session_id = ?`, sessionID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID)
		return err
	})
}

// List returns summaries, most recent first.
func (s *Store) List(ctx context.Context) ([]domain.SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.classification, s.created_at, s.updated_at,
		       (SELECT COUNT(*) FROM turns t WHERE t.session_id = s.id)
		FROM sessions s
		ORDER BY s.updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	out := []domain.SessionSummary{}
	for rows.Next() {
		var (
			sum                  domain.SessionSummary
			classification       string
			createdAt, updatedAt int64
		)
		if err := rows.Scan(&sum.ID, &classification, &createdAt, &updatedAt, &sum.TurnCount); err != nil {
			return nil, fmt.Errorf("scan session summary: %w", err)
		}
		sum.Classification = domain.Domain(classification)
		sum.CreatedAt = time.Unix(0, createdAt).UTC()
		sum.UpdatedAt = time.Unix(0, updatedAt).UTC()
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *Store) tx(ctx context.Context, fn func(*sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func isConstraint(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "constraint failed")
}
