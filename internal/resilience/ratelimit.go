package resilience

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/jorge-rr00/newbackend/pkg/domain"
	"github.com/jorge-rr00/newbackend/pkg/faults"
	"github.com/jorge-rr00/newbackend/pkg/ports"
)

// limitedGenerator throttles generation calls on the client side.
type limitedGenerator struct {
	next    ports.Generator
	limiter *rate.Limiter
}

// LimitGenerator wraps g with a token bucket of rps requests per second.
// A non-positive rps returns g unchanged.
func LimitGenerator(g ports.Generator, rps float64, burst int) ports.Generator {
	if rps <= 0 {
		return g
	}
	if burst <= 0 {
		burst = 1
	}
	return &limitedGenerator{next: g, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (l *limitedGenerator) Generate(ctx context.Context, prompt domain.Prompt) (domain.Generation, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		// Wait fails early when the deadline cannot fit the reservation.
		if ctx.Err() != nil {
			return domain.Generation{}, ctx.Err()
		}
		return domain.Generation{}, fmt.Errorf("%w: %w", faults.ErrRateLimitExceeded, err)
	}
	return l.next.Generate(ctx, prompt)
}
