// Package resilience owns the retry policy for every external call made by a
// turn: per-attempt timeouts, exponential backoff with full jitter, provider
// Retry-After guidance and client-side rate limiting.
//
// Workflow nodes never retry on their own; the engine wraps each collaborator
// call with Do.
package resilience
