package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jorge-rr00/newbackend/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// maxTxRetries bounds optimistic transaction retries on contended keys.
const maxTxRetries = 8

// Store implements ports.SessionStore using Redis.
// Each session is one JSON value; writes use WATCH/MULTI so that the
// turn append and the classification land together or not at all.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for sessions. Every write refreshes it.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for sessions.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "nova:session:",
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Client exposes the underlying client, e.g. to share it with a Locker.
func (s *Store) Client() *backend.Client {
	return s.client
}

func (s *Store) key(sessionID string) string {
	return s.prefix + sessionID
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// score is the index expiry: Now + TTL, or far future without TTL.
func (s *Store) score() float64 {
	if s.ttl == 0 {
		return 4102444800 // 2100-01-01
	}
	return float64(time.Now().Add(s.ttl).Unix())
}

// Create stores the session if the key is free.
func (s *Store) Create(ctx context.Context, session *domain.Session) error {
	if session.ID == "" {
		return domain.ErrEmptySessionID
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	ok, err := s.client.SetNX(ctx, s.key(session.ID), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to create session in redis: %w", err)
	}
	if !ok {
		return domain.ErrSessionExists
	}

	if err := s.client.ZAdd(ctx, s.indexKey(), backend.Z{Score: s.score(), Member: session.ID}).Err(); err != nil {
		return fmt.Errorf("failed to index session: %w", err)
	}
	return nil
}

// Load retrieves the session from Redis.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	val, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}
	return decode(val)
}

// Commit applies the commit inside an optimistic transaction.
func (s *Store) Commit(ctx context.Context, sessionID string, commit domain.Commit) error {
	return s.update(ctx, sessionID, func(session *domain.Session) error {
		return commit.ApplyTo(session)
	})
}

// SetClassification classifies the session at most once.
func (s *Store) SetClassification(ctx context.Context, sessionID string, d domain.Domain) error {
	return s.update(ctx, sessionID, func(session *domain.Session) error {
		return session.Classify(d)
	})
}

// Clear drops all turns.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	return s.update(ctx, sessionID, func(session *domain.Session) error {
		session.Turns = []domain.Turn{}
		return nil
	})
}

func (s *Store) update(ctx context.Context, sessionID string, fn func(*domain.Session) error) error {
	key := s.key(sessionID)

	txf := func(tx *backend.Tx) error {
		val, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, backend.Nil) {
				return domain.ErrSessionNotFound
			}
			return fmt.Errorf("failed to get from redis: %w", err)
		}
		session, err := decode(val)
		if err != nil {
			return err
		}
		if err := fn(session); err != nil {
			return err
		}
		data, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("failed to marshal session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: s.score(), Member: sessionID})
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, backend.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("failed to update session %s: too much contention", sessionID)
}

// Delete removes the session and its index entry.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(sessionID))
	pipe.ZRem(ctx, s.indexKey(), sessionID)
	_, err := pipe.Exec(ctx)
	return err
}

// List returns summaries of live sessions, pruning expired index entries lazily.
func (s *Store) List(ctx context.Context) ([]domain.SessionSummary, error) {
	now := float64(time.Now().Unix())
	err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired sessions: %w", err)
	}

	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(ids) == 0 {
		return []domain.SessionSummary{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*backend.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, s.key(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, backend.Nil) {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}

	out := make([]domain.SessionSummary, 0, len(ids))
	for _, cmd := range cmds {
		val, err := cmd.Bytes()
		if err != nil {
			continue // expired between ZRANGE and GET
		}
		session, err := decode(val)
		if err != nil {
			return nil, err
		}
		out = append(out, session.Summary())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

func decode(val []byte) (*domain.Session, error) {
	var session domain.Session
	if err := json.Unmarshal(val, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if session.Turns == nil {
		session.Turns = []domain.Turn{}
	}
	return &session, nil
}
