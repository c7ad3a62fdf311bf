package ports

import (
	"context"

	"github.com/jorge-rr00/newbackend/pkg/domain"
)

// Extractor is the text extraction service.
// Implementations fail with *faults.UnsupportedFormatError or *faults.ExtractionError.
type Extractor interface {
	Extract(ctx context.Context, blob []byte, kind domain.Kind) (string, error)
}

// Retriever is the knowledge retrieval service.
// An empty result is a valid answer and must not be reported as an error.
type Retriever interface {
	Search(ctx context.Context, d domain.Domain, query string, topK int) ([]domain.Passage, error)
}

// Generator is the language generation service.
// Implementations fail with *faults.ProviderError or *faults.RateLimitError.
type Generator interface {
	Generate(ctx context.Context, prompt domain.Prompt) (domain.Generation, error)
}

// Indexer adds passages to a knowledge index. Optional for retrievers.
type Indexer interface {
	Index(ctx context.Context, d domain.Domain, passages []domain.Passage) error
}
