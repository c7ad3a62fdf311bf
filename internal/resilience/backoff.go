package resilience

import (
	"math/rand/v2"
	"time"
)

// Backoff computes the delay before the attempt following attempt (1-based).
// Full jitter picks uniformly between zero and the exponential value.
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	backoff := p.InitialInterval
	if backoff <= 0 {
		backoff = time.Millisecond
	}
	for i := 1; i < attempt; i++ {
		backoff = time.Duration(float64(backoff) * max(p.Multiplier, 1.0))
		if p.MaxInterval > 0 && backoff > p.MaxInterval {
			backoff = p.MaxInterval
			break
		}
	}

	if p.UseJitter {
		jitterMs := rand.Int64N(backoff.Milliseconds() + 1) // #nosec G404 -- non-cryptographic jitter is appropriate here
		return time.Duration(jitterMs) * time.Millisecond
	}
	return backoff
}

// delay prefers the provider's Retry-After, capped, over the computed backoff.
func (p Policy) delay(attempt int, retryAfter time.Duration) time.Duration {
	if retryAfter > 0 {
		limit := p.MaxRetryAfter
		if limit <= 0 {
			limit = p.MaxInterval
		}
		if limit > 0 && retryAfter > limit {
			return limit
		}
		return retryAfter
	}
	return p.Backoff(attempt)
}
