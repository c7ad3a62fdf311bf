package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jorge-rr00/newbackend/pkg/domain"
	"github.com/jorge-rr00/newbackend/pkg/faults"
)

type echoGenerator struct{ calls int }

func (e *echoGenerator) Generate(_ context.Context, p domain.Prompt) (domain.Generation, error) {
	e.calls++
	return domain.Generation{Text: string(p.Mode)}, nil
}

func TestLimitGenerator_Disabled(t *testing.T) {
	g := &echoGenerator{}
	assert.Same(t, g, LimitGenerator(g, 0, 0))
}

func TestLimitGenerator_DeadlineTooShort(t *testing.T) {
	g := &echoGenerator{}
	limited := LimitGenerator(g, 0.1, 1)

	_, err := limited.Generate(context.Background(), domain.Prompt{Mode: domain.ModeRoute})
	assert.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = limited.Generate(ctx, domain.Prompt{Mode: domain.ModeRoute})
	assert.ErrorIs(t, err, faults.ErrRateLimitExceeded)
	assert.True(t, faults.IsRetryableError(err))
	assert.Equal(t, 1, g.calls)
}
