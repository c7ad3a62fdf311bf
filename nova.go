package newbackend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jorge-rr00/newbackend/internal/logging"
	"github.com/jorge-rr00/newbackend/internal/resilience"
	"github.com/jorge-rr00/newbackend/internal/textutil"
	"github.com/jorge-rr00/newbackend/internal/workflow"
	"github.com/jorge-rr00/newbackend/pkg/adapters/memory"
	"github.com/jorge-rr00/newbackend/pkg/domain"
	"github.com/jorge-rr00/newbackend/pkg/ports"
	"github.com/jorge-rr00/newbackend/pkg/session"
)

// Assistant is the high-level entry point of the library.
// It owns session management and runs turns through the workflow engine.
type Assistant struct {
	engine   *workflow.Engine
	sessions *session.Manager

	store     ports.SessionStore
	locker    ports.DistributedLocker
	generator ports.Generator
	retriever ports.Retriever
	extractor ports.Extractor
	config    workflow.Config
	policy    *resilience.Policy
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

// Option defines a functional option for configuring the Assistant.
type Option func(*Assistant)

// WithStore sets the session store (default: in-memory).
func WithStore(store ports.SessionStore) Option {
	return func(a *Assistant) {
		a.store = store
	}
}

// WithLocker enables distributed per-session locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(a *Assistant) {
		a.locker = locker
	}
}

// WithGenerator sets the generation service. Required.
func WithGenerator(g ports.Generator) Option {
	return func(a *Assistant) {
		a.generator = g
	}
}

// WithRetriever sets the retrieval service. Required.
func WithRetriever(r ports.Retriever) Option {
	return func(a *Assistant) {
		a.retriever = r
	}
}

// WithExtractor sets the text extraction service. Required.
func WithExtractor(x ports.Extractor) Option {
	return func(a *Assistant) {
		a.extractor = x
	}
}

// WithConfig sets the workflow limits.
func WithConfig(cfg workflow.Config) Option {
	return func(a *Assistant) {
		a.config = cfg
	}
}

// WithRetryPolicy sets the retry policy for external calls.
func WithRetryPolicy(p resilience.Policy) Option {
	return func(a *Assistant) {
		a.policy = &p
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(a *Assistant) {
		a.hooks = hooks
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assistant) {
		a.logger = logger
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Assistant) {
		a.now = now
	}
}

// WithIDGenerator overrides session, turn and attachment id generation.
func WithIDGenerator(fn func() string) Option {
	return func(a *Assistant) {
		a.newID = fn
	}
}

// New initializes an Assistant.
func New(opts ...Option) (*Assistant, error) {
	a := &Assistant{
		config: workflow.DefaultConfig(),
		logger: logging.NewNop(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.generator == nil || a.retriever == nil || a.extractor == nil {
		return nil, errors.New("generator, retriever and extractor are required")
	}
	if a.store == nil {
		a.store = memory.NewStore()
	}

	managerOpts := []session.Option{session.WithLogger(a.logger), session.WithClock(a.now)}
	if a.locker != nil {
		// Locks must outlive the longest turn.
		managerOpts = append(managerOpts, session.WithLocker(a.locker), session.WithLockTTL(a.config.TurnTimeout+30*time.Second))
	}
	a.sessions = session.NewManager(a.store, managerOpts...)

	engineOpts := []workflow.Option{
		workflow.WithConfig(a.config),
		workflow.WithLifecycleHooks(a.hooks),
		workflow.WithLogger(a.logger),
		workflow.WithClock(a.now),
		workflow.WithIDGenerator(a.newID),
	}
	if a.policy != nil {
		r, err := resilience.New(*a.policy, resilience.WithLogger(a.logger))
		if err != nil {
			return nil, fmt.Errorf("invalid retry policy: %w", err)
		}
		engineOpts = append(engineOpts, workflow.WithRetrier(r))
	}

	eng, err := workflow.New(a.sessions, a.generator, a.retriever, a.extractor, engineOpts...)
	if err != nil {
		return nil, err
	}
	a.engine = eng
	return a, nil
}

// ProcessTurn runs one user turn. An empty sessionID starts a new session.
func (a *Assistant) ProcessTurn(ctx context.Context, sessionID, query string, attachments []domain.Attachment) domain.TurnResult {
	if sessionID == "" {
		s, err := a.CreateSession(ctx)
		if err != nil {
			a.logger.Error("failed to create session", "error", err)
			return domain.Failure("", domain.NewTurnError(domain.KindInternal, "No se pudo crear la sesión."))
		}
		sessionID = s.ID
	}
	return a.engine.Process(ctx, sessionID, query, attachments)
}

// CreateSession starts a session with the welcome message.
func (a *Assistant) CreateSession(ctx context.Context) (*domain.Session, error) {
	id := a.newID()
	if _, err := a.sessions.Create(ctx, id); err != nil {
		return nil, err
	}

	welcome := domain.Turn{
		ID:        a.newID(),
		Role:      domain.RoleSystem,
		Status:    domain.EntryAccepted,
		Reply:     workflow.WelcomeMessage,
		CreatedAt: a.now(),
	}
	err := a.sessions.WithLock(ctx, id, func(ctx context.Context) error {
		return a.sessions.Commit(ctx, id, domain.Commit{Turn: welcome})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to write welcome message: %w", err)
	}
	return a.sessions.Load(ctx, id)
}

// Session returns the stored session, hidden tags included.
func (a *Assistant) Session(ctx context.Context, id string) (*domain.Session, error) {
	return a.sessions.Load(ctx, id)
}

// History returns the user-facing transcript. Document text is never included.
func (a *Assistant) History(ctx context.Context, id string) ([]domain.Message, error) {
	s, err := a.sessions.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	msgs := s.Transcript()
	for i := range msgs {
		msgs[i].Content = textutil.StripMarkers(msgs[i].Content)
	}
	return msgs, nil
}

// Sessions lists the stored sessions, most recent first.
func (a *Assistant) Sessions(ctx context.Context) ([]domain.SessionSummary, error) {
	return a.sessions.List(ctx)
}

// ClearSession removes the turns of a session. The classification is kept.
func (a *Assistant) ClearSession(ctx context.Context, id string) error {
	return a.sessions.Clear(ctx, id)
}

// DeleteSession removes a session.
func (a *Assistant) DeleteSession(ctx context.Context, id string) error {
	return a.sessions.Delete(ctx, id)
}

// Config returns the effective workflow limits.
func (a *Assistant) Config() workflow.Config {
	return a.engine.Config()
}
