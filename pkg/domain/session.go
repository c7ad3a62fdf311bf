package domain

import (
	"time"
)

// EntryStatus records whether a persisted turn passed admission.
type EntryStatus string

const (
	EntryAccepted EntryStatus = "accepted"
	EntryRejected EntryStatus = "rejected"
)

// Route records which path produced the reply of a committed turn.
type Route string

const (
	RouteNone       Route = ""
	RouteDirect     Route = "direct"
	RouteSpecialist Route = "specialist"
	RouteDeclared   Route = "declared"
)

// AttachmentRef is the persisted reference to an uploaded file.
// The blob itself is never stored.
type AttachmentRef struct {
	ID               string `json:"id"`
	Filename         string `json:"filename"`
	Kind             Kind   `json:"kind"`
	ContentHash      string `json:"content_hash"`
	ExtractionFailed bool   `json:"extraction_failed,omitempty"`
	Reason           string `json:"reason,omitempty"`
}

// HiddenTag links a turn to extracted document text.
// It is keyed by the SHA-256 of the attachment bytes so that a re-upload of the
// same content is recognized without a second extraction. Tags are stored as a
// structured field of the turn and never appear in user-facing text.
type HiddenTag struct {
	ContentHash  string    `json:"content_hash"`
	AttachmentID string    `json:"attachment_id"`
	Filename     string    `json:"filename"`
	Kind         Kind      `json:"kind"`
	Text         string    `json:"text"`
	ExtractedAt  time.Time `json:"extracted_at"`
}

// Turn is one persisted exchange. Immutable once appended.
type Turn struct {
	ID          string          `json:"id"`
	Role        Role            `json:"role"`
	Status      EntryStatus     `json:"status"`
	Text        string          `json:"text"`
	Reply       string          `json:"reply,omitempty"`
	Route       Route           `json:"route,omitempty"`
	Attachments []AttachmentRef `json:"attachments,omitempty"`
	Documents   []HiddenTag     `json:"documents,omitempty"`
	Sources     []string        `json:"sources,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Accepted reports whether the turn counts as conversation history.
func (t Turn) Accepted() bool {
	return t.Role == RoleUser && t.Status == EntryAccepted
}

// Session is the conversational entity owned by SessionMemory.
type Session struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	Classification Domain    `json:"classification,omitempty"`
	Turns          []Turn    `json:"turns"`
}

// NewSession creates an empty, unclassified session.
func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
		Turns:     []Turn{},
	}
}

// SessionSummary is the listing projection of a session.
type SessionSummary struct {
	ID             string    `json:"id"`
	Classification Domain    `json:"classification,omitempty"`
	TurnCount      int       `json:"turn_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Summary projects the session for listings.
func (s *Session) Summary() SessionSummary {
	return SessionSummary{
		ID:             s.ID,
		Classification: s.Classification,
		TurnCount:      len(s.Turns),
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

// Classified reports whether the admission gate has already run successfully.
func (s *Session) Classified() bool {
	return s.Classification.Valid()
}

// Clone returns a deep copy so callers cannot mutate stored state by pointer.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Turns = make([]Turn, len(s.Turns))
	for i, t := range s.Turns {
		c.Turns[i] = t.Clone()
	}
	return &c
}

// Clone returns a deep copy of the turn.
func (t Turn) Clone() Turn {
	c := t
	c.Attachments = append([]AttachmentRef(nil), t.Attachments...)
	c.Documents = append([]HiddenTag(nil), t.Documents...)
	c.Sources = append([]string(nil), t.Sources...)
	return c
}

// KnownDocuments indexes every hidden tag of the session by content hash.
func (s *Session) KnownDocuments() map[string]HiddenTag {
	known := make(map[string]HiddenTag)
	for _, t := range s.Turns {
		for _, tag := range t.Documents {
			if _, ok := known[tag.ContentHash]; !ok {
				known[tag.ContentHash] = tag
			}
		}
	}
	return known
}

// ActiveDocuments returns the hidden tags still in scope, oldest first.
// A tag expires once ttl accepted turns have been committed after the turn that
// introduced it. A ttl of zero keeps every document.
func (s *Session) ActiveDocuments(ttl int) []HiddenTag {
	accepted := 0
	for _, t := range s.Turns {
		if t.Accepted() {
			accepted++
		}
	}

	var docs []HiddenTag
	seen := make(map[string]bool)
	position := 0
	for _, t := range s.Turns {
		if !t.Accepted() {
			continue
		}
		position++
		age := accepted - position
		if ttl > 0 && age >= ttl {
			continue
		}
		for _, tag := range t.Documents {
			if seen[tag.ContentHash] {
				continue
			}
			seen[tag.ContentHash] = true
			docs = append(docs, tag)
		}
	}
	return docs
}

// Window returns the most recent n accepted turns, oldest first.
// A non-positive n yields an empty window.
func (s *Session) Window(n int) []Turn {
	if n <= 0 {
		return nil
	}
	var accepted []Turn
	for _, t := range s.Turns {
		if t.Accepted() {
			accepted = append(accepted, t)
		}
	}
	if len(accepted) > n {
		accepted = accepted[len(accepted)-n:]
	}
	return accepted
}

// Message is one entry of the user-facing transcript.
type Message struct {
	Role        Role      `json:"role"`
	Content     string    `json:"content"`
	Attachments []string  `json:"attachments,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Transcript flattens the stored turns into user-facing messages.
// Hidden tags are never part of the output.
func (s *Session) Transcript() []Message {
	msgs := make([]Message, 0, len(s.Turns)*2)
	for _, t := range s.Turns {
		if t.Role == RoleUser {
			var names []string
			for _, a := range t.Attachments {
				names = append(names, a.Filename)
			}
			msgs = append(msgs, Message{Role: RoleUser, Content: t.Text, Attachments: names, CreatedAt: t.CreatedAt})
		}
		if t.Reply != "" {
			msgs = append(msgs, Message{Role: RoleAssistant, Content: t.Reply, CreatedAt: t.CreatedAt})
		}
	}
	return msgs
}
