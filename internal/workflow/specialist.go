package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jorge-rr00/newbackend/internal/textutil"
	"github.com/jorge-rr00/newbackend/pkg/domain"
)

// specialistRouter runs the financial or legal retrieval-augmented specialist.
type specialistRouter struct {
	in          *invoker
	logger      *slog.Logger
	topK        int
	window      int
	maxChars    int
	temperature float32
}

// specialize selects the variant from d alone. Zero passages is a valid
// outcome and is made explicit in the prompt; a retrieval outage is an error.
func (s *specialistRouter) specialize(ctx context.Context, sc scope, d domain.Domain, query string, wm *domain.WorkingMemory, session *domain.Session) (domain.SpecialistResult, error) {
	if !d.Valid() {
		return domain.SpecialistResult{}, fmt.Errorf("specialist for %s: %w", d, domain.ErrInvalidDomain)
	}

	passages, err := s.in.search(ctx, sc, d, query, s.topK)
	if err != nil {
		return domain.SpecialistResult{}, err
	}
	wm.Passages = passages

	result := domain.SpecialistResult{Domain: d, NoPassages: len(passages) == 0}
	for _, p := range passages {
		result.PassageIDs = append(result.PassageIDs, p.ID)
	}
	s.logger.Debug("retrieval done", "session_id", sc.sessionID, "domain", d, "passages", len(passages))

	system := fmt.Sprintf(specialistInstructions,
		domainAdjective(d),
		historyText(session.Window(s.window), textutil.StripMarkers),
		documentContext(wm.Documents, s.maxChars, textutil.TruncateTail),
		domainAdjective(d),
		passageContext(passages),
	)

	gen, err := s.in.generate(ctx, sc, domain.Prompt{
		Mode:        domain.ModeSpecialist,
		System:      system,
		Messages:    []domain.PromptMessage{{Role: domain.RoleUser, Content: query}},
		Temperature: s.temperature,
	})
	if err != nil {
		return domain.SpecialistResult{}, err
	}

	result.Text = strings.TrimSpace(gen.Text)
	if gen.NoAnswer || result.Text == "" {
		result.Text = NoAnswerMessage
	}
	return result, nil
}
