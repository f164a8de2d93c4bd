package store

import (
	"sync/atomic"

	"github.com/jonboulle/clockwork"
)

// IDGenerator hands out store-wide unique message ids.
type IDGenerator interface {
	Next() int64
}

// Sequence produces time-derived ids that are strictly increasing even when
// several submissions land in the same millisecond.
type Sequence struct {
	clock clockwork.Clock
	last  atomic.Int64
}

func NewSequence(clock clockwork.Clock) *Sequence {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Sequence{clock: clock}
}

func (s *Sequence) Next() int64 {
	for {
		prev := s.last.Load()
		next := s.clock.Now().UnixMilli()
		if next <= prev {
			next = prev + 1
		}
		if s.last.CompareAndSwap(prev, next) {
			return next
		}
	}
}
