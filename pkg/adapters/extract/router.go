package extract

import (
	"context"

	"github.com/jorge-rr00/newbackend/pkg/domain"
	"github.com/jorge-rr00/newbackend/pkg/faults"
	"github.com/jorge-rr00/newbackend/pkg/ports"
)

// Router implements ports.Extractor by delegating on the document kind.
type Router struct {
	byKind map[domain.Kind]ports.Extractor
}

var _ ports.Extractor = (*Router)(nil)

// Option configures a Router.
type Option func(*Router)

// WithExtractor registers e for kind, replacing any previous registration.
func WithExtractor(kind domain.Kind, e ports.Extractor) Option {
	return func(r *Router) {
		if e != nil {
			r.byKind[kind] = e
		}
	}
}

// NewRouter returns a Router that reads plain text and DOCX out of the box.
func NewRouter(opts ...Option) *Router {
	r := &Router{
		byKind: map[domain.Kind]ports.Extractor{
			domain.KindText:       PlainText{},
			domain.KindStructured: DOCX{},
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Supports reports whether kind has a registered extractor.
func (r *Router) Supports(kind domain.Kind) bool {
	_, ok := r.byKind[kind]
	return ok
}

// Extract runs the extractor registered for kind.
func (r *Router) Extract(ctx context.Context, blob []byte, kind domain.Kind) (string, error) {
	e, ok := r.byKind[kind]
	if !ok {
		return "", &faults.UnsupportedFormatError{Kind: string(kind)}
	}
	return e.Extract(ctx, blob, kind)
}
