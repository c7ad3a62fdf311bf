package domain

// Passage is one ranked retrieval hit.
type Passage struct {
	ID      string  `json:"id"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
	Source  string  `json:"source,omitempty"`
}

// WorkingMemory is the per-turn accumulator.
// It is created at turn start, owned by the engine and released at turn end
// whatever the outcome. Only the committed Turn outlives it.
type WorkingMemory struct {
	Query       string
	Attachments []AttachmentRef
	// Documents holds every document in scope for this turn, oldest first:
	// unexpired tags from history followed by the tags extracted in this turn.
	Documents []HiddenTag
	// NewTags holds only the tags produced by this turn's extraction.
	NewTags  []HiddenTag
	Passages []Passage

	released bool
}

// NewWorkingMemory acquires the accumulator for one turn.
func NewWorkingMemory(query string) *WorkingMemory {
	return &WorkingMemory{Query: query}
}

// Release drops all accumulated content. It is safe to call more than once.
func (w *WorkingMemory) Release() {
	w.Query = ""
	w.Attachments = nil
	w.Documents = nil
	w.NewTags = nil
	w.Passages = nil
	w.released = true
}

// Released reports whether the turn already discarded this memory.
func (w *WorkingMemory) Released() bool {
	return w.released
}

// ExtractionPatch is the ToolNode output merged by the engine.
type ExtractionPatch struct {
	// Attachments are in submission order, failures flagged.
	Attachments []AttachmentRef
	NewTags     []HiddenTag
	// Recalled holds the known tags matched by content hash instead of being
	// extracted again. They bring an expired document back into scope.
	Recalled []HiddenTag
}

// Failed counts attachments whose extraction did not succeed.
func (p ExtractionPatch) Failed() int {
	n := 0
	for _, a := range p.Attachments {
		if a.ExtractionFailed {
			n++
		}
	}
	return n
}

// Apply merges the patch into working memory. Documents stay unique by
// content hash.
func (w *WorkingMemory) Apply(p ExtractionPatch) error {
	if w.released {
		return ErrMemoryReleased
	}
	w.Attachments = append(w.Attachments, p.Attachments...)
	w.NewTags = append(w.NewTags, p.NewTags...)

	seen := make(map[string]bool, len(w.Documents))
	for _, d := range w.Documents {
		seen[d.ContentHash] = true
	}
	for _, group := range [][]HiddenTag{p.Recalled, p.NewTags} {
		for _, tag := range group {
			if seen[tag.ContentHash] {
				continue
			}
			seen[tag.ContentHash] = true
			w.Documents = append(w.Documents, tag)
		}
	}
	return nil
}

// GuardrailVerdict is the admission outcome for an unclassified session.
type GuardrailVerdict struct {
	Accepted bool
	Domain   Domain
	Reason   string
	// Declared marks a turn that only states the intended domain.
	Declared bool
	// Bypassed marks a pass-through on an already classified session.
	Bypassed bool
}

// RoutingDecision is either a direct answer or a delegation. Exactly one holds.
type RoutingDecision struct {
	direct   bool
	text     string
	delegate Domain
}

// AnswerDirectly builds the direct-answer decision.
func AnswerDirectly(text string) RoutingDecision {
	return RoutingDecision{direct: true, text: text}
}

// Delegate builds the specialist decision.
func Delegate(d Domain) RoutingDecision {
	return RoutingDecision{delegate: d}
}

// Direct returns the answer text when the decision is a direct answer.
func (r RoutingDecision) Direct() (string, bool) {
	return r.text, r.direct
}

// Delegated returns the target domain when the decision is a delegation.
func (r RoutingDecision) Delegated() (Domain, bool) {
	return r.delegate, !r.direct
}

// SpecialistResult is the raw specialist answer plus traceability data.
type SpecialistResult struct {
	Domain     Domain
	Text       string
	PassageIDs []string
	// NoPassages is set when retrieval succeeded with zero hits.
	NoPassages bool
}
