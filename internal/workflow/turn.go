package workflow

import (
	"time"

	"github.com/jorge-rr00/newbackend/pkg/domain"
)

// turn is the forward-flowing record of one turn. Nodes read from it and the
// engine writes their results into it; it is dropped when the turn ends.
type turn struct {
	scope
	startedAt time.Time

	// query is the sanitized text as the user sent it; it is what gets stored.
	query string
	// prompt is the text fed to the models. It differs from query when the
	// query only names the domain or is empty next to documents.
	prompt      string
	attachments []domain.Attachment

	session *domain.Session
	memory  *domain.WorkingMemory

	// classify is set only when this turn classifies the session.
	classify       domain.Domain
	classification domain.Domain

	specialist domain.SpecialistResult
	reply      string
	route      domain.Route
	degraded   []string

	failedAt domain.Stage
	err      error
}

func (t *turn) degrade(reason string) {
	for _, d := range t.degraded {
		if d == reason {
			return
		}
	}
	t.degraded = append(t.degraded, reason)
}
