package workflow

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"github.com/jorge-rr00/newbackend/pkg/domain"
)

// guardrailNode is the one-time admission gate of a session.
type guardrailNode struct {
	in          *invoker
	logger      *slog.Logger
	temperature float32
}

// evaluate never mutates the session. The classification it returns is
// committed by the engine together with the turn.
func (g *guardrailNode) evaluate(ctx context.Context, sc scope, session *domain.Session, text string, attachments []domain.Attachment) (domain.GuardrailVerdict, error) {
	if session.Classified() {
		return domain.GuardrailVerdict{Accepted: true, Domain: session.Classification, Bypassed: true}, nil
	}

	// A message that only names the domain classifies without a model call.
	if d, ok := domain.ParseDomain(text); ok {
		return domain.GuardrailVerdict{Accepted: true, Domain: d, Declared: true}, nil
	}

	gen, err := g.in.generate(ctx, sc, domain.Prompt{
		Mode:        domain.ModeClassify,
		System:      classifyInstructions,
		Messages:    []domain.PromptMessage{{Role: domain.RoleUser, Content: classificationInput(text, attachments)}},
		Temperature: g.temperature,
		MaxTokens:   8,
	})
	if err != nil {
		return domain.GuardrailVerdict{}, err
	}

	d, recognized := parseClassification(gen.Text)
	if !recognized {
		g.logger.Warn("unrecognized classification label, rejecting", "session_id", sc.sessionID, "label", truncateForLog(gen.Text))
	}
	if d == domain.DomainUnset {
		return domain.GuardrailVerdict{Accepted: false, Reason: RejectionMessage}, nil
	}
	return domain.GuardrailVerdict{Accepted: true, Domain: d}, nil
}

func classificationInput(text string, attachments []domain.Attachment) string {
	if len(attachments) == 0 {
		return text
	}
	names := make([]string, 0, len(attachments))
	for _, a := range attachments {
		names = append(names, a.Filename)
	}
	q := strings.TrimSpace(text)
	if q == "" {
		q = "(sin texto)"
	}
	return q + "\n\nDocumentos adjuntos: " + strings.Join(names, ", ")
}

// parseClassification reads the first protocol label in the model output.
// Unrecognized output classifies as out of scope.
func parseClassification(out string) (domain.Domain, bool) {
	fields := strings.FieldsFunc(strings.ToUpper(out), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '_'
	})
	for _, f := range fields {
		switch f {
		case labelOutOfScope:
			return domain.DomainUnset, true
		case labelFinancial:
			return domain.DomainFinancial, true
		case labelLegal:
			return domain.DomainLegal, true
		}
		if d, ok := domain.ParseDomain(f); ok {
			return d, true
		}
	}
	return domain.DomainUnset, false
}

func truncateForLog(s string) string {
	const max = 80
	s = strings.TrimSpace(s)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
