package domain

// Commit is the patch applied to SessionMemory at the end of a turn.
// Stores apply it in a single atomic step: the turn is appended and, when
// Classification is set, the session is classified in the same write.
type Commit struct {
	Turn           Turn   `json:"turn"`
	Classification Domain `json:"classification,omitempty"`
}

// ApplyTo mutates s with the commit. It enforces the at-most-once
// classification rule and is shared by every store implementation.
func (c Commit) ApplyTo(s *Session) error {
	if c.Classification != DomainUnset {
		if err := s.Classify(c.Classification); err != nil {
			return err
		}
	}
	s.Turns = append(s.Turns, c.Turn.Clone())
	if c.Turn.CreatedAt.After(s.UpdatedAt) {
		s.UpdatedAt = c.Turn.CreatedAt
	}
	return nil
}

// Classify sets the classification at most once.
func (s *Session) Classify(d Domain) error {
	if !d.Valid() {
		return ErrInvalidDomain
	}
	if s.Classification != DomainUnset && s.Classification != d {
		return ErrAlreadyClassified
	}
	s.Classification = d
	return nil
}
