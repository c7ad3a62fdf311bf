package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jorge-rr00/newbackend/internal/textutil"
	"github.com/jorge-rr00/newbackend/pkg/domain"
)

// orchestratorNode decides between a direct answer and a specialist.
type orchestratorNode struct {
	in          *invoker
	logger      *slog.Logger
	window      int
	maxChars    int
	temperature float32
}

// route performs no retrieval. The delegation target is always the session
// classification d.
func (o *orchestratorNode) route(ctx context.Context, sc scope, d domain.Domain, query string, wm *domain.WorkingMemory, session *domain.Session) (domain.RoutingDecision, error) {
	system := fmt.Sprintf(routeInstructions, domainAdjective(d), documentContext(wm.Documents, o.maxChars, textutil.TruncateTail))

	var msgs []domain.PromptMessage
	for _, t := range session.Window(o.window) {
		msgs = append(msgs, domain.PromptMessage{Role: domain.RoleUser, Content: t.Text})
		if reply := textutil.StripMarkers(t.Reply); reply != "" {
			msgs = append(msgs, domain.PromptMessage{Role: domain.RoleAssistant, Content: reply})
		}
	}
	msgs = append(msgs, domain.PromptMessage{Role: domain.RoleUser, Content: query})

	gen, err := o.in.generate(ctx, sc, domain.Prompt{
		Mode:        domain.ModeRoute,
		System:      system,
		Messages:    msgs,
		Temperature: o.temperature,
	})
	if err != nil {
		return domain.RoutingDecision{}, err
	}
	if gen.NoAnswer {
		return domain.Delegate(d), nil
	}

	decision, clear := parseRouting(gen.Text, d)
	if !clear {
		o.logger.Debug("ambiguous routing output, delegating", "session_id", sc.sessionID, "output", truncateForLog(gen.Text))
	}
	return decision, nil
}

// parseRouting reads the routing protocol. Anything that is neither a
// non-empty ANSWER nor a DELEGATE signal is ambiguous and delegates.
func parseRouting(out string, d domain.Domain) (domain.RoutingDecision, bool) {
	text := strings.TrimSpace(out)
	upper := strings.ToUpper(text)

	if len(text) >= len(markerAnswer) && strings.EqualFold(text[:len(markerAnswer)], markerAnswer) {
		answer := textutil.StripMarkers(strings.TrimSpace(text[len(markerAnswer):]))
		if answer != "" && !strings.Contains(strings.ToUpper(answer), markerDelegate) {
			return domain.AnswerDirectly(answer), true
		}
		return domain.Delegate(d), false
	}
	if strings.Contains(upper, markerDelegate) || strings.Contains(upper, "DOMAIN:") {
		return domain.Delegate(d), true
	}
	return domain.Delegate(d), false
}
