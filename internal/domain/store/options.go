package store

import "github.com/jonboulle/clockwork"

const (
	DefaultRetention      = 50
	DefaultTextMaxRunes   = 280
	DefaultAuthorMaxRunes = 50
	DefaultAuthor         = "Anonim"
)

// Option defines a functional configuration type for the Store.
type Option func(*Store)

// WithRetention caps every section at n messages; older ones are evicted first.
func WithRetention(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.retention = n
		}
	}
}

// WithTextLimit sets the number of code points kept from a submission's text.
func WithTextLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.textMax = n
		}
	}
}

// WithAuthorLimit sets the number of code points kept from the author field.
func WithAuthorLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.authorMax = n
		}
	}
}

// WithDefaultAuthor sets the placeholder used for anonymous submissions.
func WithDefaultAuthor(name string) Option {
	return func(s *Store) {
		if name != "" {
			s.defaultAuthor = name
		}
	}
}

func WithIDGenerator(g IDGenerator) Option {
	return func(s *Store) {
		if g != nil {
			s.ids = g
		}
	}
}

func WithClock(c clockwork.Clock) Option {
	return func(s *Store) {
		if c != nil {
			s.clock = c
		}
	}
}
