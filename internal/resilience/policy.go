package resilience

import (
	"errors"
	"fmt"
	"time"
)

var (
	errMaxAttemptsInvalid     = errors.New("maxAttempts must be greater than 0")
	errInitialIntervalInvalid = errors.New("initialInterval must be greater than 0")
	errMaxIntervalInvalid     = errors.New("maxInterval must be >= initialInterval")
	errMultiplierInvalid      = errors.New("multiplier must be >= 1.0")
	errCallTimeoutInvalid     = errors.New("callTimeout must be >= 0")
)

// Policy configures retries for one class of external calls.
type Policy struct {
	// MaxAttempts counts the first call. 1 disables retries.
	MaxAttempts     int           `yaml:"max_attempts" validate:"min=1"`
	InitialInterval time.Duration `yaml:"initial_interval" validate:"gt=0"`
	MaxInterval     time.Duration `yaml:"max_interval" validate:"gtefield=InitialInterval"`
	Multiplier      float64       `yaml:"multiplier" validate:"gte=1"`
	UseJitter       bool          `yaml:"use_jitter"`
	// CallTimeout bounds every attempt. Zero leaves only the parent deadline.
	CallTimeout time.Duration `yaml:"call_timeout" validate:"gte=0"`
	// MaxRetryAfter caps provider supplied delays. Zero means MaxInterval.
	MaxRetryAfter time.Duration `yaml:"max_retry_after"`
}

// DefaultPolicy is used for generation, retrieval and extraction calls.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     8 * time.Second,
		Multiplier:      2,
		UseJitter:       true,
		CallTimeout:     30 * time.Second,
	}
}

// Validate reports the first invalid field.
func (p Policy) Validate() error {
	if p.MaxAttempts <= 0 {
		return fmt.Errorf("%w, got %d", errMaxAttemptsInvalid, p.MaxAttempts)
	}
	if p.InitialInterval <= 0 {
		return fmt.Errorf("%w, got %v", errInitialIntervalInvalid, p.InitialInterval)
	}
	if p.MaxInterval < p.InitialInterval {
		return fmt.Errorf("%w, MaxInterval: %v, InitialInterval: %v", errMaxIntervalInvalid, p.MaxInterval, p.InitialInterval)
	}
	if p.Multiplier < 1.0 {
		return fmt.Errorf("%w, got %f", errMultiplierInvalid, p.Multiplier)
	}
	if p.CallTimeout < 0 {
		return fmt.Errorf("%w, got %v", errCallTimeoutInvalid, p.CallTimeout)
	}
	return nil
}
