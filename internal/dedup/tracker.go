// Package dedup tracks, per entity, which reviewers and exact review texts
// have already been admitted.
package dedup

// Seen holds the reviewer identities and exact texts admitted for one entity.
type Seen struct {
	reviewers map[string]struct{}
	texts     map[string]struct{}
}

// NewSeen returns an empty Seen.
func NewSeen() *Seen {
	return &Seen{
		reviewers: make(map[string]struct{}),
		texts:     make(map[string]struct{}),
	}
}

// Collides reports whether reviewer or text was already admitted.
func (s *Seen) Collides(reviewer, text string) bool {
	if _, ok := s.reviewers[reviewer]; ok {
		return true
	}
	_, ok := s.texts[text]
	return ok
}

// Mark records reviewer and text as admitted.
func (s *Seen) Mark(reviewer, text string) {
	s.reviewers[reviewer] = struct{}{}
	s.texts[text] = struct{}{}
}

// Admit marks reviewer and text and returns true, unless either collides,
// in which case nothing is recorded and false is returned.
func (s *Seen) Admit(reviewer, text string) bool {
	if s.Collides(reviewer, text) {
		return false
	}
	s.Mark(reviewer, text)
	return true
}

// AdmitText marks text and returns true unless it was already admitted.
// Reviewers are neither checked nor recorded.
func (s *Seen) AdmitText(text string) bool {
	if _, ok := s.texts[text]; ok {
		return false
	}
	s.texts[text] = struct{}{}
	return true
}

// Tracker is a set of Seen values keyed by entity id, created on first use.
// It is not safe for concurrent use.
type Tracker struct {
	entities map[string]*Seen
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{entities: make(map[string]*Seen)}
}

// For returns the Seen for entity, creating it on first reference.
func (t *Tracker) For(entity string) *Seen {
	s, ok := t.entities[entity]
	if !ok {
		s = NewSeen()
		t.entities[entity] = s
	}
	return s
}

// Admit applies Seen.Admit to the entity's sets.
func (t *Tracker) Admit(entity, reviewer, text string) bool {
	return t.For(entity).Admit(reviewer, text)
}
