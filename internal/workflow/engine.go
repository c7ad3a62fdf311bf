package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jorge-rr00/newbackend/internal/logging"
	"github.com/jorge-rr00/newbackend/internal/resilience"
	"github.com/jorge-rr00/newbackend/internal/textutil"
	"github.com/jorge-rr00/newbackend/internal/validator"
	"github.com/jorge-rr00/newbackend/pkg/domain"
	"github.com/jorge-rr00/newbackend/pkg/ports"
	"github.com/jorge-rr00/newbackend/pkg/session"
)

// Degradation reasons reported in TurnResult.Degraded.
const (
	DegradedExtraction = "extraction_failed"
	DegradedRedaction  = "redaction_skipped"
)

// Engine sequences the workflow nodes for each turn and owns failure policy.
type Engine struct {
	sessions *session.Manager
	in       *invoker
	cfg      Config
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string

	guardrail    *guardrailNode
	tool         *toolNode
	orchestrator *orchestratorNode
	specialist   *specialistRouter
	redactor     *redactorNode
}

// Option configures the Engine.
type Option func(*Engine)

// WithConfig sets the turn limits. Zero fields take their defaults.
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		e.cfg = cfg.withDefaults()
	}
}

// WithRetrier sets the retry policy applied to every external call.
func WithRetrier(r *resilience.Retrier) Option {
	return func(e *Engine) {
		e.in.retrier = r
	}
}

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(h domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = h
	}
}

// WithLogger configures the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithIDGenerator overrides turn and attachment id generation.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		e.newID = fn
	}
}

// New wires the engine to its collaborators.
func New(sessions *session.Manager, gen ports.Generator, ret ports.Retriever, ext ports.Extractor, opts ...Option) (*Engine, error) {
	if sessions == nil || gen == nil || ret == nil || ext == nil {
		return nil, errors.New("workflow: session manager, generator, retriever and extractor are required")
	}

	e := &Engine{
		sessions: sessions,
		in:       &invoker{generator: gen, retriever: ret, extractor: ext},
		cfg:      DefaultConfig(),
		logger:   logging.NewNop(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := validator.Struct(e.cfg); err != nil {
		return nil, fmt.Errorf("invalid workflow config: %w", err)
	}

	if e.in.retrier == nil {
		r, err := resilience.New(resilience.DefaultPolicy(), resilience.WithLogger(e.logger))
		if err != nil {
			return nil, err
		}
		e.in.retrier = r
	}
	e.in.hooks = e.hooks
	e.in.now = e.now

	e.guardrail = &guardrailNode{in: e.in, logger: e.logger, temperature: 0}
	e.tool = &toolNode{in: e.in, logger: e.logger, concurrency: e.cfg.ExtractConcurrency, maxChars: e.cfg.MaxDocChars, now: e.now}
	e.orchestrator = &orchestratorNode{in: e.in, logger: e.logger, window: e.cfg.HistoryWindow, maxChars: e.cfg.MaxDocChars, temperature: e.cfg.Temperature}
	e.specialist = &specialistRouter{in: e.in, logger: e.logger, topK: e.cfg.TopK, window: e.cfg.SpecialistHistory, maxChars: e.cfg.MaxDocChars, temperature: e.cfg.Temperature}
	e.redactor = &redactorNode{in: e.in, temperature: e.cfg.Temperature, maxTokens: e.cfg.RedactMaxTokens}
	return e, nil
}

// Config returns the effective limits.
func (e *Engine) Config() Config {
	return e.cfg
}

// Process runs one turn of sessionID. The session is created on first use.
// It never returns a Go error: every outcome is a TurnResult.
func (e *Engine) Process(ctx context.Context, sessionID, query string, attachments []domain.Attachment) domain.TurnResult {
	t := &turn{
		scope:       scope{sessionID: sessionID, turnID: e.newID(), stage: domain.StageStart},
		startedAt:   e.now(),
		attachments: append([]domain.Attachment(nil), attachments...),
	}

	result := e.process(ctx, t, query)
	result.TurnID = t.turnID

	duration := e.now().Sub(t.startedAt)
	var kind domain.ErrorKind
	if result.Error != nil {
		kind = result.Error.Kind
	}
	if e.hooks.OnTurnComplete != nil {
		e.hooks.OnTurnComplete(ctx, &domain.TurnEvent{
			EventBase: e.event(t, domain.EventTurnCompleted),
			Status:    result.Status,
			Kind:      kind,
			Route:     result.Route,
			Duration:  duration,
		})
	}

	attrs := []any{
		"session_id", sessionID,
		"turn_id", t.turnID,
		"status", result.Status,
		"duration", duration,
	}
	if kind != "" {
		attrs = append(attrs, "kind", kind)
	}
	if result.Route != domain.RouteNone {
		attrs = append(attrs, "route", result.Route)
	}
	if t.err != nil && result.Status == domain.StatusFailed {
		attrs = append(attrs, "stage", t.failedAt, "error", t.err)
	}
	e.logger.Info("turn processed", attrs...)
	return result
}

func (e *Engine) process(ctx context.Context, t *turn, query string) domain.TurnResult {
	if t.sessionID == "" {
		t.err = domain.ErrEmptySessionID
		return domain.Failure(t.sessionID, domain.NewTurnError(domain.KindInternal, "session id is required"))
	}

	clean, err := textutil.SanitizeInput(query, e.cfg.MaxInputSize)
	if err != nil {
		t.err = err
		return domain.Failure(t.sessionID, domain.NewTurnError(domain.KindNoUsableInput, inputErrorMessage(err)))
	}
	t.query = strings.TrimSpace(clean)
	t.prompt = t.query

	for i := range t.attachments {
		if t.attachments[i].ID == "" {
			t.attachments[i].ID = e.newID()
		}
	}

	turnCtx, cancel := context.WithTimeout(ctx, e.cfg.TurnTimeout)
	defer cancel()

	var result domain.TurnResult
	err = e.sessions.WithLock(turnCtx, t.sessionID, func(ctx context.Context) error {
		result = e.run(ctx, t)
		return nil
	})
	if err != nil {
		t.err = err
		return domain.Failure(t.sessionID, e.classifyFailure(turnCtx, t.failedAt, err))
	}
	return result
}

// run executes the state machine. The caller holds the session lock.
func (e *Engine) run(ctx context.Context, t *turn) domain.TurnResult {
	sess, err := e.sessions.LoadOrCreate(ctx, t.sessionID)
	if err != nil {
		t.err = err
		return domain.Failure(t.sessionID, e.classifyFailure(ctx, domain.StageStart, err))
	}
	t.session = sess

	wm := domain.NewWorkingMemory(t.query)
	defer wm.Release()
	wm.Documents = sess.ActiveDocuments(e.cfg.DocumentTTL)
	t.memory = wm

	stage := domain.StageStart
	for !stage.Final() {
		t.stage = stage
		e.stageEnter(ctx, t)

		signal, err := e.step(ctx, t)
		if err != nil {
			t.err = err
			t.failedAt = stage
			signal = domain.SignalFail
		}
		e.stageLeave(ctx, t, signal)

		to, err := next(stage, signal)
		if err != nil {
			t.err = err
			t.failedAt = stage
		}
		stage = to
	}
	t.stage = stage
	e.stageEnter(ctx, t)

	switch stage {
	case domain.StageCommitted:
		return domain.TurnResult{
			Status:    domain.StatusCommitted,
			SessionID: t.sessionID,
			Text:      t.reply,
			Domain:    t.classification,
			Route:     t.route,
			Sources:   t.specialist.PassageIDs,
			Degraded:  t.degraded,
		}
	case domain.StageRejected:
		return e.reject(ctx, t)
	default:
		return domain.Failure(t.sessionID, e.classifyFailure(ctx, t.failedAt, t.err))
	}
}

// step runs the current stage and returns the signal selecting the next one.
func (e *Engine) step(ctx context.Context, t *turn) (domain.Signal, error) {
	switch t.stage {
	case domain.StageStart:
		if t.query == "" && len(t.attachments) == 0 {
			return "", domain.NewTurnError(domain.KindNoUsableInput, "La consulta está vacía.")
		}
		return domain.SignalNext, nil

	case domain.StageGuardrail:
		return e.stepGuardrail(ctx, t)

	case domain.StageTool:
		return e.stepTool(ctx, t)

	case domain.StageOrchestrator:
		decision, err := e.orchestrator.route(ctx, t.scope, t.classification, t.prompt, t.memory, t.session)
		if err != nil {
			return "", err
		}
		if text, ok := decision.Direct(); ok {
			t.reply = text
			t.route = domain.RouteDirect
			return domain.SignalDirect, nil
		}
		return domain.SignalDelegate, nil

	case domain.StageSpecialist:
		// The session classification, never the turn content, picks the specialist.
		res, err := e.specialist.specialize(ctx, t.scope, t.classification, t.prompt, t.memory, t.session)
		if err != nil {
			return "", err
		}
		t.specialist = res
		t.route = domain.RouteSpecialist
		return domain.SignalNext, nil

	case domain.StageRedactor:
		text, err := e.redactor.finalize(ctx, t.scope, t.specialist.Text, !t.specialist.NoPassages)
		if err != nil {
			// The turn deadline still wins over the pass-through fallback.
			if ctx.Err() != nil {
				return "", err
			}
			e.logger.Warn("redaction failed, returning raw answer", "session_id", t.sessionID, "turn_id", t.turnID, "error", err)
			t.reply = textutil.StripMarkers(t.specialist.Text)
			t.degrade(DegradedRedaction)
			return domain.SignalNext, nil
		}
		t.reply = text
		return domain.SignalNext, nil

	case domain.StageTerminal:
		if err := e.commit(ctx, t); err != nil {
			return "", err
		}
		return domain.SignalNext, nil
	}
	return "", fmt.Errorf("stage %q cannot be executed", t.stage)
}

func (e *Engine) stepGuardrail(ctx context.Context, t *turn) (domain.Signal, error) {
	v, err := e.guardrail.evaluate(ctx, t.scope, t.session, t.query, t.attachments)
	if err != nil {
		return "", err
	}

	switch {
	case v.Bypassed:
		t.classification = v.Domain
		return domain.SignalBypass, nil
	case !v.Accepted:
		t.reply = v.Reason
		return domain.SignalReject, nil
	}

	t.classification = v.Domain
	t.classify = v.Domain
	if v.Declared {
		if len(t.attachments) == 0 {
			t.reply = DeclaredMessage(v.Domain)
			t.route = domain.RouteDeclared
			return domain.SignalDeclare, nil
		}
		// The label classified the session; the documents are the question.
		t.prompt = ""
	}
	return domain.SignalNext, nil
}

func (e *Engine) stepTool(ctx context.Context, t *turn) (domain.Signal, error) {
	patch, err := e.tool.ingest(ctx, t.scope, t.attachments, t.session.KnownDocuments())
	if err != nil {
		return "", err
	}
	if err := t.memory.Apply(patch); err != nil {
		return "", err
	}

	failed := patch.Failed()
	if failed > 0 {
		t.degrade(DegradedExtraction)
	}
	if t.prompt == "" {
		if len(t.attachments) > 0 && failed == len(t.attachments) {
			return "", domain.NewTurnError(domain.KindNoUsableInput, "No se pudo leer ninguno de los documentos adjuntos y la consulta está vacía.")
		}
		t.prompt = DefaultDocQuery
	}
	return domain.SignalNext, nil
}

// commit appends the accepted turn and, if this turn classified the session,
// the classification, in one store write.
func (e *Engine) commit(ctx context.Context, t *turn) error {
	t.reply = textutil.StripMarkers(t.reply)
	if t.reply == "" {
		t.reply = NoAnswerMessage
	}

	entry := domain.Turn{
		ID:          t.turnID,
		Role:        domain.RoleUser,
		Status:      domain.EntryAccepted,
		Text:        t.query,
		Reply:       t.reply,
		Route:       t.route,
		Attachments: t.memory.Attachments,
		Documents:   t.memory.NewTags,
		Sources:     t.specialist.PassageIDs,
		CreatedAt:   e.now(),
	}
	if err := e.sessions.Commit(ctx, t.sessionID, domain.Commit{Turn: entry, Classification: t.classify}); err != nil {
		return fmt.Errorf("commit turn: %w", err)
	}
	return nil
}

// reject records the out-of-scope turn for audit, without classification.
func (e *Engine) reject(ctx context.Context, t *turn) domain.TurnResult {
	refs := make([]domain.AttachmentRef, 0, len(t.attachments))
	for _, a := range t.attachments {
		refs = append(refs, a.Ref())
	}
	entry := domain.Turn{
		ID:          t.turnID,
		Role:        domain.RoleUser,
		Status:      domain.EntryRejected,
		Text:        t.query,
		Reply:       t.reply,
		Attachments: refs,
		CreatedAt:   e.now(),
	}
	if err := e.sessions.Commit(ctx, t.sessionID, domain.Commit{Turn: entry}); err != nil {
		e.logger.Error("failed to record rejected turn", "session_id", t.sessionID, "turn_id", t.turnID, "error", err)
	}

	res := domain.Failure(t.sessionID, domain.NewTurnError(domain.KindGuardrailRejected, t.reply))
	res.Text = t.reply
	return res
}

// classifyFailure maps an internal error to a user-visible TurnError.
// Collaborator errors are never copied into the message.
func (e *Engine) classifyFailure(turnCtx context.Context, stage domain.Stage, err error) *domain.TurnError {
	var te *domain.TurnError
	if errors.As(err, &te) {
		return te
	}

	switch {
	case errors.Is(turnCtx.Err(), context.DeadlineExceeded):
		return domain.NewTurnError(domain.KindTurnTimeout, "La consulta tardó demasiado en procesarse. Inténtalo de nuevo.")
	case errors.Is(turnCtx.Err(), context.Canceled):
		return domain.NewTurnError(domain.KindInternal, "La consulta fue cancelada.")
	}

	var ce *callError
	if errors.As(err, &ce) {
		if stage == domain.StageGuardrail {
			return domain.NewTurnError(domain.KindClassificationUnavailable, "No se pudo verificar el ámbito de la consulta en este momento. Inténtalo de nuevo más tarde.")
		}
		return domain.NewTurnError(domain.KindProviderUnavailable, "Un servicio externo no está disponible en este momento. Inténtalo de nuevo más tarde.")
	}
	return domain.NewTurnError(domain.KindInternal, "Lo siento, ocurrió un error al procesar tu consulta.")
}

func inputErrorMessage(err error) string {
	switch {
	case errors.Is(err, textutil.ErrInputTooLarge):
		return "La consulta supera el tamaño máximo permitido."
	case errors.Is(err, textutil.ErrInvalidUTF8):
		return "La consulta contiene caracteres no válidos."
	}
	return "La consulta no es válida."
}

func (e *Engine) event(t *turn, typ domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: e.now(), Type: typ, SessionID: t.sessionID, TurnID: t.turnID}
}

func (e *Engine) stageEnter(ctx context.Context, t *turn) {
	e.logger.Debug("stage enter", "session_id", t.sessionID, "turn_id", t.turnID, "stage", t.stage)
	if e.hooks.OnStageEnter != nil {
		e.hooks.OnStageEnter(ctx, &domain.StageEvent{EventBase: e.event(t, domain.EventStageEnter), Stage: t.stage})
	}
}

func (e *Engine) stageLeave(ctx context.Context, t *turn, signal domain.Signal) {
	e.logger.Debug("stage leave", "session_id", t.sessionID, "turn_id", t.turnID, "stage", t.stage, "signal", signal)
	if e.hooks.OnStageLeave != nil {
		e.hooks.OnStageLeave(ctx, &domain.StageEvent{EventBase: e.event(t, domain.EventStageLeave), Stage: t.stage, Signal: signal})
	}
}
