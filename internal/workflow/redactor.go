package workflow

import (
	"context"
	"strings"

	"github.com/jorge-rr00/newbackend/internal/textutil"
	"github.com/jorge-rr00/newbackend/pkg/domain"
	"github.com/jorge-rr00/newbackend/pkg/faults"
)

// redactorNode polishes the specialist answer into the final reply.
type redactorNode struct {
	in          *invoker
	temperature float32
	maxTokens   int
}

// finalize returns an error when the polished text is unusable. The engine
// then falls back to the raw answer.
func (r *redactorNode) finalize(ctx context.Context, sc scope, raw string, usedRetrieval bool) (string, error) {
	system := redactInstructions
	if usedRetrieval {
		system += redactRetrievalNote
	}

	gen, err := r.in.generate(ctx, sc, domain.Prompt{
		Mode:        domain.ModeRedact,
		System:      system,
		Messages:    []domain.PromptMessage{{Role: domain.RoleUser, Content: raw}},
		Temperature: r.temperature,
		MaxTokens:   r.maxTokens,
	})
	if err != nil {
		return "", err
	}

	text := textutil.StripMarkers(strings.TrimSpace(gen.Text))
	if gen.NoAnswer || text == "" {
		return "", faults.ErrNoAnswer
	}
	return text, nil
}
