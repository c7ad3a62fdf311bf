package middleware

import (
	"regexp"

	"github.com/jorge-rr00/newbackend/pkg/domain"
	"github.com/jorge-rr00/newbackend/pkg/ports"
)

// DefaultPIIPatterns masks card numbers, IBANs and e-mail addresses.
var DefaultPIIPatterns = []string{
	`\b\d(?:[ -]?\d){12,18}\b`,
	`\b[A-Z]{2}\d{2}[A-Z0-9]{11,30}\b`,
	`[\w.+-]+@[\w-]+\.[\w.-]+`,
}

// NewPIIMiddleware masks matches of the patterns in stored user text and replies.
// Document text is left intact so later turns can still reason over it.
// Masking is one-way: loads return the masked text.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &transformer{
			next: next,
			onWrite: func(t *domain.Turn) error {
				t.Text = mask(t.Text, patterns)
				t.Reply = mask(t.Reply, patterns)
				return nil
			},
		}
	}
}

func mask(s string, patterns []*regexp.Regexp) string {
	for _, p := range patterns {
		s = p.ReplaceAllString(s, "***")
	}
	return s
}
