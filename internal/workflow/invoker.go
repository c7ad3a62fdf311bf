package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jorge-rr00/newbackend/internal/resilience"
	"github.com/jorge-rr00/newbackend/pkg/domain"
	"github.com/jorge-rr00/newbackend/pkg/ports"
)

const (
	serviceGeneration = "generation"
	serviceRetrieval  = "retrieval"
	serviceExtraction = "extraction"
)

// callError marks a failure that came from an external collaborator after the
// retry policy gave up.
type callError struct {
	Service   string
	Operation string
	Err       error
}

func (e *callError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Service, e.Operation, e.Err)
}

func (e *callError) Unwrap() error { return e.Err }

// invoker is the only path from a node to a collaborator.
// It applies the retry policy and reports every attempt to the hooks.
type invoker struct {
	generator ports.Generator
	retriever ports.Retriever
	extractor ports.Extractor
	retrier   *resilience.Retrier
	hooks     domain.LifecycleHooks
	now       func() time.Time
}

// scope identifies the turn and stage an external call belongs to.
type scope struct {
	sessionID string
	turnID    string
	stage     domain.Stage
}

func invoke[T any](ctx context.Context, in *invoker, sc scope, service, op string, fn func(context.Context) (T, error)) (T, error) {
	r := in.retrier
	if in.hooks.OnExternalCall != nil {
		r = r.Observe(func(a resilience.Attempt) {
			in.hooks.OnExternalCall(ctx, &domain.CallEvent{
				EventBase: domain.EventBase{
					Timestamp: in.now(),
					Type:      domain.EventExternalCall,
					SessionID: sc.sessionID,
					TurnID:    sc.turnID,
				},
				Stage:     sc.stage,
				Service:   service,
				Operation: op,
				Attempt:   a.Number,
				Duration:  a.Duration,
				Outcome:   a.Outcome.String(),
				Err:       a.Err,
			})
		})
	}

	v, err := resilience.Do(ctx, r, service+"."+op, fn)
	if err != nil {
		// Turn deadline and cancellation are reported as such, not as an outage.
		if ctx.Err() != nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)) {
			return v, err
		}
		return v, &callError{Service: service, Operation: op, Err: err}
	}
	return v, nil
}

func (in *invoker) generate(ctx context.Context, sc scope, prompt domain.Prompt) (domain.Generation, error) {
	return invoke(ctx, in, sc, serviceGeneration, string(prompt.Mode), func(ctx context.Context) (domain.Generation, error) {
		return in.generator.Generate(ctx, prompt)
	})
}

func (in *invoker) search(ctx context.Context, sc scope, d domain.Domain, query string, topK int) ([]domain.Passage, error) {
	return invoke(ctx, in, sc, serviceRetrieval, "search", func(ctx context.Context) ([]domain.Passage, error) {
		return in.retriever.Search(ctx, d, query, topK)
	})
}

func (in *invoker) extract(ctx context.Context, sc scope, blob []byte, kind domain.Kind) (string, error) {
	return invoke(ctx, in, sc, serviceExtraction, string(kind), func(ctx context.Context) (string, error) {
		return in.extractor.Extract(ctx, blob, kind)
	})
}
