package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"unicode/utf8"

	"github.com/webitel/message-wall/internal/domain/event"
	"github.com/webitel/message-wall/internal/domain/journal"
	"github.com/webitel/message-wall/internal/domain/model"
	"github.com/webitel/message-wall/internal/domain/store"
	"github.com/webitel/message-wall/internal/metrics"
)

// Moderator is the only writer of the message store and the event log.
type Moderator interface {
	Submit(ctx context.Context, section model.SectionKey, author, text string) (model.Message, error)
	Approve(ctx context.Context, section model.SectionKey, id int64) (model.Message, error)
	Reject(ctx context.Context, section model.SectionKey, id int64) error
	Delete(ctx context.Context, section model.SectionKey, id int64) error
	BulkApprove(ctx context.Context, refs []model.Ref) (int, error)
	BulkReject(ctx context.Context, refs []model.Ref) (int, error)
	ClearSection(ctx context.Context, section model.SectionKey) (int, error)
	ClearAll(ctx context.Context) (int, error)

	// Join runs attach with a snapshot taken under the engine lock, so the
	// session misses no event and sees none twice. attach returns the new
	// connection count.
	Join(ctx context.Context, client model.ClientInfo, attach func(model.Snapshot) (int, error)) error
	// Leave runs detach under the engine lock and journals the disconnect.
	Leave(ctx context.Context, client model.ClientInfo, detach func() int)
}

var _ Moderator = (*ModerationService)(nil)

// ModerationService serialises every mutation together with its journal entry
// and its broadcast.
type ModerationService struct {
	// [SERIALISATION] spans lookup, mutation, journal and publish
	mu sync.Mutex

	store   *store.Store
	journal *journal.Journal
	pub     Publisher
	filter  ContentFilter
	logger  *slog.Logger
}

// NewModerationService wires the engine. filter may be nil.
func NewModerationService(st *store.Store, j *journal.Journal, pub Publisher, filter ContentFilter, logger *slog.Logger) *ModerationService {
	return &ModerationService{
		store:   st,
		journal: j,
		pub:     pub,
		filter:  filter,
		logger:  logger,
	}
}

func (s *ModerationService) Submit(ctx context.Context, section model.SectionKey, author, text string) (model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	censored := false
	if s.filter != nil {
		text, censored = s.filter.Censor(text)
	}

	msg, err := s.store.Append(section, model.Draft{Author: author, Text: text})
	if err != nil {
		return model.Message{}, err
	}

	s.publish(ctx, event.NewPendingMessageAddedEvent(msg))
	s.journal.Append(model.LogNewMessage, "new message submitted", map[string]any{
		"section":    msg.Section,
		"author":     msg.Author,
		"textLength": utf8.RuneCountInString(msg.Text),
	})
	if censored {
		s.journal.Append(model.LogCensored, "banned words masked", map[string]any{
			"section": msg.Section,
			"id":      msg.ID,
		})
	}

	metrics.MessagesSubmittedTotal.WithLabelValues(string(msg.Section)).Inc()
	s.observe()
	return msg, nil
}

func (s *ModerationService) Approve(ctx context.Context, section model.SectionKey, id int64) (model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, err := s.find(section, id)
	if err != nil {
		return model.Message{}, err
	}
	// [IDEMPOTENT] approving twice changes nothing and tells nobody
	if msg.IsApproved() {
		return msg, nil
	}

	msg, _ = s.store.SetStatus(section, id, model.StatusApproved)
	s.journal.Append(model.LogApprove, "message approved", map[string]any{
		"section": section,
		"id":      id,
		"author":  msg.Author,
	})
	s.publish(ctx, event.NewMessageApprovedEvent(msg))
	return msg, nil
}

func (s *ModerationService) Reject(ctx context.Context, section model.SectionKey, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, err := s.find(section, id)
	if err != nil {
		return err
	}
	if !msg.IsPending() {
		return fmt.Errorf("reject %s/%d: %w", section, id, model.ErrNotPending)
	}

	s.store.Remove(section, id)
	s.journal.Append(model.LogReject, "message rejected", map[string]any{
		"section": section,
		"id":      id,
		"author":  msg.Author,
	})
	s.publish(ctx, event.NewMessageRejectedEvent(section, id))
	s.observe()
	return nil
}

func (s *ModerationService) Delete(ctx context.Context, section model.SectionKey, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.find(section, id); err != nil {
		return err
	}

	msg, _ := s.store.Remove(section, id)
	s.journal.Append(model.LogDelete, "message deleted", map[string]any{
		"section": section,
		"id":      id,
		"author":  msg.Author,
	})
	s.publish(ctx, event.NewMessageDeletedEvent(section, id))
	s.observe()
	return nil
}

// BulkApprove approves every addressed message that exists. Unknown refs are
// skipped. Every counted message is broadcast, already approved ones included.
func (s *ModerationService) BulkApprove(ctx context.Context, refs []model.Ref) (int, error) {
	if len(refs) == 0 {
		return 0, fmt.Errorf("bulk approve: %w: empty message list", model.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, ref := range refs {
		msg, ok := s.store.Find(ref.Section, ref.ID)
		if !ok {
			continue
		}
		if !msg.IsApproved() {
			msg, _ = s.store.SetStatus(ref.Section, ref.ID, model.StatusApproved)
		}
		count++
		s.publish(ctx, event.NewMessageApprovedEvent(msg))
	}

	s.journal.Append(model.LogApproveBulk, fmt.Sprintf("%d messages approved in bulk", count), map[string]any{
		"count": count,
	})
	return count, nil
}

// BulkReject removes every addressed pending message. Missing and approved
// messages are skipped and not counted.
func (s *ModerationService) BulkReject(ctx context.Context, refs []model.Ref) (int, error) {
	if len(refs) == 0 {
		return 0, fmt.Errorf("bulk reject: %w: empty message list", model.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, ref := range refs {
		msg, ok := s.store.Find(ref.Section, ref.ID)
		if !ok || !msg.IsPending() {
			continue
		}
		s.store.Remove(ref.Section, ref.ID)
		s.publish(ctx, event.NewMessageRejectedEvent(ref.Section, ref.ID))
		count++
	}

	s.journal.Append(model.LogRejectBulk, fmt.Sprintf("%d messages rejected in bulk", count), map[string]any{
		"count": count,
	})
	s.observe()
	return count, nil
}

func (s *ModerationService) ClearSection(ctx context.Context, section model.SectionKey) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count, err := s.store.ClearSection(section)
	if err != nil {
		return 0, err
	}

	s.journal.Append(model.LogDeleteSection, fmt.Sprintf("all messages of %s deleted", section), map[string]any{
		"section": section,
		"count":   count,
	})
	s.publish(ctx, event.NewSectionClearedEvent(section))
	s.observe()
	return count, nil
}

func (s *ModerationService) ClearAll(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := s.store.ClearAll()
	s.journal.Append(model.LogClearAll, "all messages deleted", map[string]any{
		"count": count,
	})
	s.publish(ctx, event.NewAllMessagesClearedEvent())
	s.observe()
	return count, nil
}

func (s *ModerationService) Join(ctx context.Context, client model.ClientInfo, attach func(model.Snapshot) (int, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	total, err := attach(s.store.Snapshot())
	if err != nil {
		return err
	}

	s.journal.Append(model.LogConnection, "client connected", map[string]any{
		"connectionId": client.ConnectionID.String(),
		"role":         client.Role,
		"total":        total,
	})
	return nil
}

func (s *ModerationService) Leave(ctx context.Context, client model.ClientInfo, detach func() int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := detach()
	s.journal.Append(model.LogDisconnect, "client disconnected", map[string]any{
		"connectionId": client.ConnectionID.String(),
		"role":         client.Role,
		"total":        total,
	})
}

// find resolves a ref, distinguishing an unknown section from a missing id.
func (s *ModerationService) find(section model.SectionKey, id int64) (model.Message, error) {
	if !s.store.Sections().Has(section) {
		return model.Message{}, fmt.Errorf("section %q: %w", section, model.ErrUnknownSection)
	}
	msg, ok := s.store.Find(section, id)
	if !ok {
		return model.Message{}, fmt.Errorf("%s/%d: %w", section, id, model.ErrNotFound)
	}
	return msg, nil
}

// publish never fails the operation: the mutation is already committed.
func (s *ModerationService) publish(ctx context.Context, ev event.Eventer) {
	if err := s.pub.Publish(context.WithoutCancel(ctx), ev); err != nil {
		s.logger.Warn("EVENT_PUBLISH_FAILED",
			"event", ev.GetKind().String(),
			"event_id", ev.GetID(),
			"err", err,
		)
		return
	}
	metrics.EventsPublishedTotal.WithLabelValues(ev.GetKind().String()).Inc()
}

func (s *ModerationService) observe() {
	for section, n := range s.store.Counts() {
		metrics.MessagesStored.WithLabelValues(string(section)).Set(float64(n))
	}
}
