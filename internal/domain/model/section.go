package model

import "fmt"

// SectionKey identifies one of the fixed topical partitions of the wall.
type SectionKey string

// Section is static registry metadata. Titles are only consumed by presentation.
type Section struct {
	Key   SectionKey `json:"key"`
	Title string     `json:"title"`
}

// Sections is the immutable, ordered section registry.
// Registration order drives every flattened listing of the store.
type Sections struct {
	ordered []Section
	index   map[SectionKey]int
}

// DefaultSections mirrors the reference deployment.
func DefaultSections() []Section {
	return []Section{
		{Key: "section1", Title: "Kutlamalar"},
		{Key: "section2", Title: "Dilekler"},
		{Key: "section3", Title: "Fikirler"},
		{Key: "section4", Title: "Teşekkürler"},
		{Key: "section5", Title: "Duyurular"},
	}
}

// NewSections validates the definitions and freezes them into a registry.
func NewSections(defs []Section) (*Sections, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("section registry: %w: no sections defined", ErrInvalidInput)
	}

	s := &Sections{
		ordered: make([]Section, 0, len(defs)),
		index:   make(map[SectionKey]int, len(defs)),
	}
	for _, def := range defs {
		if def.Key == "" {
			return nil, fmt.Errorf("section registry: %w: empty section key", ErrInvalidInput)
		}
		if _, dup := s.index[def.Key]; dup {
			return nil, fmt.Errorf("section registry: %w: duplicate section %q", ErrInvalidInput, def.Key)
		}
		s.index[def.Key] = len(s.ordered)
		s.ordered = append(s.ordered, def)
	}
	return s, nil
}

// MustSections is NewSections for static definitions known to be valid.
func MustSections(defs []Section) *Sections {
	s, err := NewSections(defs)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Sections) Has(key SectionKey) bool {
	_, ok := s.index[key]
	return ok
}

func (s *Sections) Len() int { return len(s.ordered) }

// Keys returns section keys in registration order.
func (s *Sections) Keys() []SectionKey {
	keys := make([]SectionKey, len(s.ordered))
	for i, sec := range s.ordered {
		keys[i] = sec.Key
	}
	return keys
}

// List returns a copy of the definitions in registration order.
func (s *Sections) List() []Section {
	out := make([]Section, len(s.ordered))
	copy(out, s.ordered)
	return out
}
