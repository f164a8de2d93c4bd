// Package store holds the in-memory, per-section message collections that are
// the single source of truth of the wall.
//
// The store performs no journaling and no broadcasting; callers that mutate it
// are responsible for both. Each section is an append-only sequence capped at
// the retention limit. Eviction is purely size based: the oldest message goes
// first whatever its status, so a pending message may disappear before anyone
// moderates it.
package store

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/jonboulle/clockwork"
	"github.com/webitel/message-wall/internal/domain/model"
)

type Store struct {
	sections *model.Sections

	mu       sync.RWMutex
	messages map[model.SectionKey][]model.Message

	ids           IDGenerator
	clock         clockwork.Clock
	retention     int
	textMax       int
	authorMax     int
	defaultAuthor string
}

func New(sections *model.Sections, opts ...Option) *Store {
	s := &Store{
		sections:      sections,
		messages:      make(map[model.SectionKey][]model.Message, sections.Len()),
		clock:         clockwork.NewRealClock(),
		retention:     DefaultRetention,
		textMax:       DefaultTextMaxRunes,
		authorMax:     DefaultAuthorMaxRunes,
		defaultAuthor: DefaultAuthor,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.ids == nil {
		s.ids = NewSequence(s.clock)
	}
	for _, key := range sections.Keys() {
		s.messages[key] = nil
	}
	return s
}

func (s *Store) Sections() *model.Sections { return s.sections }

// Append sanitises the draft, stores it as pending at the tail of the section
// and trims the head once the section exceeds the retention cap.
func (s *Store) Append(section model.SectionKey, draft model.Draft) (model.Message, error) {
	if !s.sections.Has(section) {
		return model.Message{}, fmt.Errorf("append to %q: %w", section, model.ErrUnknownSection)
	}
	if strings.TrimSpace(draft.Text) == "" {
		return model.Message{}, fmt.Errorf("append to %q: %w: empty text", section, model.ErrInvalidInput)
	}

	author := truncateRunes(strings.TrimSpace(draft.Author), s.authorMax)
	if author == "" {
		author = s.defaultAuthor
	}

	msg := model.Message{
		ID:        s.ids.Next(),
		Section:   section,
		Author:    author,
		Text:      truncateRunes(draft.Text, s.textMax),
		Timestamp: s.clock.Now(),
		Status:    model.StatusPending,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list := append(s.messages[section], msg)
	if overflow := len(list) - s.retention; overflow > 0 {
		// [FIFO_TRIM] oldest entries leave first, whatever their status
		list = slices.Clone(list[overflow:])
	}
	s.messages[section] = list

	return msg, nil
}

// Find is an exact lookup by section and id.
func (s *Store) Find(section model.SectionKey, id int64) (model.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(section, id); i >= 0 {
		return s.messages[section][i], true
	}
	return model.Message{}, false
}

// Remove deletes the message and returns it; a miss is a no-op.
func (s *Store) Remove(section model.SectionKey, id int64) (model.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(section, id)
	if i < 0 {
		return model.Message{}, false
	}
	list := s.messages[section]
	removed := list[i]
	s.messages[section] = slices.Delete(list, i, i+1)
	return removed, true
}

// SetStatus mutates the status in place and returns the updated message.
func (s *Store) SetStatus(section model.SectionKey, id int64, status model.Status) (model.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(section, id)
	if i < 0 {
		return model.Message{}, false
	}
	s.messages[section][i].Status = status
	return s.messages[section][i], true
}

// All flattens every section in registration order, then arrival order.
func (s *Store) All() []model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Message, 0, s.lenLocked())
	for _, key := range s.sections.Keys() {
		out = append(out, s.messages[key]...)
	}
	return out
}

// Snapshot copies every section, including empty ones.
func (s *Store) Snapshot() model.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := make(model.Snapshot, s.sections.Len())
	for _, key := range s.sections.Keys() {
		list := make([]model.Message, len(s.messages[key]))
		copy(list, s.messages[key])
		snap[key] = list
	}
	return snap
}

// Counts reports the number of stored messages per section.
func (s *Store) Counts() map[model.SectionKey]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[model.SectionKey]int, s.sections.Len())
	for _, key := range s.sections.Keys() {
		counts[key] = len(s.messages[key])
	}
	return counts
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lenLocked()
}

// ClearSection empties one section and reports how many messages were dropped.
func (s *Store) ClearSection(section model.SectionKey) (int, error) {
	if !s.sections.Has(section) {
		return 0, fmt.Errorf("clear %q: %w", section, model.ErrUnknownSection)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.messages[section])
	s.messages[section] = nil
	return n, nil
}

// ClearAll empties every section and reports the total dropped.
func (s *Store) ClearAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for key, list := range s.messages {
		total += len(list)
		s.messages[key] = nil
	}
	return total
}

func (s *Store) indexOf(section model.SectionKey, id int64) int {
	return slices.IndexFunc(s.messages[section], func(m model.Message) bool { return m.ID == id })
}

func (s *Store) lenLocked() int {
	n := 0
	for _, list := range s.messages {
		n += len(list)
	}
	return n
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
