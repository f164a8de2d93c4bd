package service

import (
	"context"

	"github.com/webitel/message-wall/internal/domain/event"
)

//go:generate mockgen -source=publisher.go -destination=mocks/publisher_mock.go -package=mocks

// Publisher hands a committed event to the realtime fan-out.
// It returns once the hub has taken the event, so events leave in commit order.
type Publisher interface {
	Publish(ctx context.Context, ev event.Eventer) error
}

// ContentFilter rewrites unacceptable fragments of a submission.
type ContentFilter interface {
	// Censor returns the cleaned text and whether anything was replaced.
	Censor(text string) (string, bool)
}
