package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jorge-rr00/newbackend/pkg/faults"
)

// Attempt describes one finished call attempt.
type Attempt struct {
	Operation string
	Number    int
	Duration  time.Duration
	Outcome   faults.Outcome
	Err       error
}

// Observer receives every attempt, successful or not.
type Observer func(Attempt)

// Retrier executes calls under a Policy.
type Retrier struct {
	policy  Policy
	logger  *slog.Logger
	observe Observer
	sleep   func(ctx context.Context, d time.Duration) error
}

// Option configures the Retrier.
type Option func(*Retrier)

// WithLogger overrides the default component logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retrier) {
		r.logger = logger.With("component", "retry")
	}
}

// WithObserver registers an attempt callback.
func WithObserver(fn Observer) Option {
	return func(r *Retrier) {
		r.observe = fn
	}
}

// New creates a Retrier. The policy must be valid.
func New(policy Policy, opts ...Option) (*Retrier, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	r := &Retrier{
		policy: policy,
		logger: slog.Default().With("component", "retry"),
		sleep:  sleepCtx,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Observe returns a copy of r that reports attempts to fn instead.
func (r *Retrier) Observe(fn Observer) *Retrier {
	c := *r
	c.observe = fn
	return &c
}

// Policy returns the configured policy.
func (r *Retrier) Policy() Policy {
	return r.policy
}

// Do runs fn until it succeeds, fails fatally, the attempt budget is spent or
// ctx is done. Each attempt receives its own timeout context derived from ctx.
//
// When ctx itself is done the returned error wraps ctx.Err() so callers can
// tell a turn deadline apart from an exhausted budget, which wraps
// faults.ErrRetriesExhausted and the last failure.
func Do[T any](ctx context.Context, r *Retrier, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	if err := ctx.Err(); err != nil {
		return zero, err
	}

	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		start := time.Now()
		value, err := attemptOnce(ctx, r.policy.CallTimeout, fn)
		outcome := faults.Classify(err)
		if r.observe != nil {
			r.observe(Attempt{Operation: op, Number: attempt, Duration: time.Since(start), Outcome: outcome, Err: err})
		}

		if err == nil {
			if attempt > 1 {
				r.logger.Info("call succeeded after retry", "operation", op, "attempt", attempt)
			}
			return value, nil
		}

		// A done parent context ends the turn; never report it as exhaustion.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, fmt.Errorf("%s: %w", op, ctxErr)
		}

		if outcome != faults.OutcomeRetryable {
			r.logger.Debug("non-retryable error", "operation", op, "attempt", attempt, "error", err)
			return zero, err
		}
		lastErr = err

		if attempt == r.policy.MaxAttempts {
			break
		}

		wait := r.policy.delay(attempt, faults.RetryAfter(err))
		r.logger.Debug("retrying after backoff",
			"operation", op,
			"attempt", attempt,
			"backoff", wait,
			"error_type", faults.TypeOf(err),
		)
		if err := r.sleep(ctx, wait); err != nil {
			return zero, fmt.Errorf("%s: %w", op, err)
		}
	}

	r.logger.Warn("retries exhausted", "operation", op, "attempts", r.policy.MaxAttempts, "error", lastErr)
	return zero, fmt.Errorf("%s: %w: %w", op, faults.ErrRetriesExhausted, lastErr)
}

// attemptOnce bounds a single attempt by the per-call timeout.
func attemptOnce[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(callCtx)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
