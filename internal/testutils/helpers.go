// Package testutils provides scripted collaborators for workflow tests.
package testutils

import (
	"context"
	"sync"
	"time"

	"github.com/jorge-rr00/newbackend/pkg/domain"
	"github.com/jorge-rr00/newbackend/pkg/faults"
)

// Reply is one scripted generation outcome.
type Reply struct {
	Text     string
	NoAnswer bool
	Err      error
	// Delay blocks the call, honoring the call context.
	Delay time.Duration
}

// Generator answers by prompt mode. Each mode consumes its script in order and
// repeats the last entry once exhausted. Unscripted modes return ErrProviderUnavailable.
type Generator struct {
	mu      sync.Mutex
	script  map[domain.Mode][]Reply
	prompts map[domain.Mode][]domain.Prompt
}

// NewGenerator creates an empty scripted generator.
func NewGenerator() *Generator {
	return &Generator{
		script:  make(map[domain.Mode][]Reply),
		prompts: make(map[domain.Mode][]domain.Prompt),
	}
}

// On appends replies for mode and returns g for chaining.
func (g *Generator) On(mode domain.Mode, replies ...Reply) *Generator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.script[mode] = append(g.script[mode], replies...)
	return g
}

// Say is shorthand for a single successful text reply.
func (g *Generator) Say(mode domain.Mode, text string) *Generator {
	return g.On(mode, Reply{Text: text})
}

func (g *Generator) Generate(ctx context.Context, prompt domain.Prompt) (domain.Generation, error) {
	g.mu.Lock()
	g.prompts[prompt.Mode] = append(g.prompts[prompt.Mode], prompt)
	n := len(g.prompts[prompt.Mode])
	replies := g.script[prompt.Mode]
	g.mu.Unlock()

	if len(replies) == 0 {
		return domain.Generation{}, faults.ErrProviderUnavailable
	}
	r := replies[min(n, len(replies))-1]

	if r.Delay > 0 {
		select {
		case <-time.After(r.Delay):
		case <-ctx.Done():
			return domain.Generation{}, ctx.Err()
		}
	}
	if r.Err != nil {
		return domain.Generation{}, r.Err
	}
	return domain.Generation{Text: r.Text, NoAnswer: r.NoAnswer}, nil
}

// Calls counts the prompts received for mode.
func (g *Generator) Calls(mode domain.Mode) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts[mode])
}

// Prompts returns the prompts received for mode.
func (g *Generator) Prompts(mode domain.Mode) []domain.Prompt {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]domain.Prompt(nil), g.prompts[mode]...)
}

// LastPrompt returns the most recent prompt for mode, or the zero value.
func (g *Generator) LastPrompt(mode domain.Mode) domain.Prompt {
	ps := g.Prompts(mode)
	if len(ps) == 0 {
		return domain.Prompt{}
	}
	return ps[len(ps)-1]
}

// Retriever serves fixed passages per domain.
type Retriever struct {
	mu       sync.Mutex
	Passages map[domain.Domain][]domain.Passage
	Err      error
	domains  []domain.Domain
}

// NewRetriever creates a retriever with no passages.
func NewRetriever() *Retriever {
	return &Retriever{Passages: make(map[domain.Domain][]domain.Passage)}
}

func (r *Retriever) Search(_ context.Context, d domain.Domain, _ string, topK int) ([]domain.Passage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.domains = append(r.domains, d)
	if r.Err != nil {
		return nil, r.Err
	}
	hits := r.Passages[d]
	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return append([]domain.Passage(nil), hits...), nil
}

// Domains lists the domain of every search, in call order.
func (r *Retriever) Domains() []domain.Domain {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Domain(nil), r.domains...)
}

// Extractor maps blob contents to text. Unknown blobs fail permanently.
type Extractor struct {
	mu     sync.Mutex
	texts  map[string]string
	errs   map[string]error
	delays map[string]time.Duration
	calls  map[string]int
}

// NewExtractor creates an extractor with no known blobs.
func NewExtractor() *Extractor {
	return &Extractor{
		texts:  make(map[string]string),
		errs:   make(map[string]error),
		delays: make(map[string]time.Duration),
		calls:  make(map[string]int),
	}
}

// Returns registers the text produced for blob.
func (x *Extractor) Returns(blob, text string) *Extractor {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.texts[blob] = text
	return x
}

// Fails registers the error produced for blob.
func (x *Extractor) Fails(blob string, err error) *Extractor {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.errs[blob] = err
	return x
}

// Delays makes every extraction of blob block for d, honoring the call context.
func (x *Extractor) Delays(blob string, d time.Duration) *Extractor {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.delays[blob] = d
	return x
}

func (x *Extractor) Extract(ctx context.Context, blob []byte, kind domain.Kind) (string, error) {
	key := string(blob)
	x.mu.Lock()
	x.calls[key]++
	delay := x.delays[key]
	x.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if err, ok := x.errs[key]; ok {
		return "", err
	}
	if text, ok := x.texts[key]; ok {
		return text, nil
	}
	return "", &faults.ExtractionError{Kind: string(kind), Cause: faults.ErrEmptyExtraction}
}

// Calls counts extractions of blob.
func (x *Extractor) Calls(blob string) int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.calls[blob]
}

// TotalCalls counts every extraction.
func (x *Extractor) TotalCalls() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	n := 0
	for _, c := range x.calls {
		n += c
	}
	return n
}

// File builds an attachment whose bytes are content.
func File(name, content string) domain.Attachment {
	return domain.Attachment{Filename: name, Data: []byte(content)}
}
