package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/jorge-rr00/newbackend/pkg/domain"
)

// Knowledge is a local, domain-tagged passage index backed by SQLite FTS5.
// It implements ports.Retriever and ports.Indexer.
type Knowledge struct {
	db *sql.DB
}

// NewKnowledge wraps an opened database.
func NewKnowledge(db *sql.DB) *Knowledge {
	return &Knowledge{db: db}
}

// Index stores passages under a domain. Passages without ID get one.
func (k *Knowledge) Index(ctx context.Context, d domain.Domain, passages []domain.Passage) error {
	if !d.Valid() {
		return domain.ErrInvalidDomain
	}
	tx, err := k.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, p := range passages {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO passages (id, domain, source, content) VALUES (?, ?, ?, ?)`,
			p.ID, string(d), p.Source, p.Content); err != nil {
			return fmt.Errorf("insert passage: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM passages_fts WHERE passage_id = ?`, p.ID); err != nil {
			return fmt.Errorf("reset passage index: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO passages_fts (content, passage_id, domain) VALUES (?, ?, ?)`,
			p.Content, p.ID, string(d)); err != nil {
			return fmt.Errorf("index passage: %w", err)
		}
	}
	return tx.Commit()
}

// Search returns up to topK passages of the domain ranked by BM25.
// A query without searchable terms yields no passages.
func (k *Knowledge) Search(ctx context.Context, d domain.Domain, query string, topK int) ([]domain.Passage, error) {
	match := matchExpr(query)
	if match == "" || topK <= 0 {
		return []domain.Passage{}, nil
	}

	rows, err := k.db.QueryContext(ctx, `
		SELECT passages_fts.passage_id, p.content, p.source, bm25(passages_fts) AS score
		FROM passages_fts
		JOIN passages p ON p.id = passages_fts.passage_id
		WHERE passages_fts MATCH ? AND passages_fts.domain = ?
		ORDER BY score
		LIMIT ?`, match, string(d), topK)
	if err != nil {
		return nil, fmt.Errorf("search passages: %w", err)
	}
	defer rows.Close()

	out := []domain.Passage{}
	for rows.Next() {
		var p domain.Passage
		var rank float64
		if err := rows.Scan(&p.ID, &p.Content, &p.Source, &rank); err != nil {
			return nil, fmt.Errorf("scan passage: %w", err)
		}
		// bm25 is lower-is-better.
		p.Score = -rank
		out = append(out, p)
	}
	return out, rows.Err()
}

// matchExpr turns free text into an FTS5 OR query of quoted terms.
func matchExpr(query string) string {
	terms := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]bool)
	var quoted []string
	for _, t := range terms {
		if len([]rune(t)) < 3 || seen[t] {
			continue
		}
		seen[t] = true
		quoted = append(quoted, `"`+t+`"`)
	}
	return strings.Join(quoted, " OR ")
}
