package service

import (
	"context"

	"github.com/samber/lo"
	"github.com/webitel/message-wall/internal/domain/journal"
	"github.com/webitel/message-wall/internal/domain/model"
	"github.com/webitel/message-wall/internal/domain/registry"
	"github.com/webitel/message-wall/internal/domain/store"
)

// DefaultLogLimit is the page size of Logs when the caller gives none.
const DefaultLogLimit = 10

// Querier serves read-only views for admin dashboards and presentation clients.
type Querier interface {
	Messages(ctx context.Context) []model.Message
	Pending(ctx context.Context) model.PendingList
	Status(ctx context.Context) model.WallStatus
	Logs(ctx context.Context, limit int) []model.LogEntry
	Sections(ctx context.Context) []model.Section
}

var _ Querier = (*QueryService)(nil)

type QueryService struct {
	store   *store.Store
	journal *journal.Journal
	hub     registry.Hubber
}

func NewQueryService(st *store.Store, j *journal.Journal, hub registry.Hubber) *QueryService {
	return &QueryService{store: st, journal: j, hub: hub}
}

// Messages flattens the store in section registration order, then arrival order.
func (q *QueryService) Messages(_ context.Context) []model.Message {
	return q.store.All()
}

func (q *QueryService) Pending(_ context.Context) model.PendingList {
	pending := lo.Filter(q.store.All(), func(m model.Message, _ int) bool {
		return m.IsPending()
	})
	return model.PendingList{Count: len(pending), Messages: pending}
}

func (q *QueryService) Status(_ context.Context) model.WallStatus {
	counts := q.store.Counts()
	stats := q.hub.Stats()

	status := model.WallStatus{
		ActiveConnections: stats.TotalConnections,
		TotalMessages:     lo.Sum(lo.Values(counts)),
		MessagesBySection: counts,
		ConnectionsByRole: stats.Roles,
	}
	if last, ok := q.journal.Last(); ok {
		status.LastActivity = &last.Timestamp
	}
	return status
}

// Logs returns the newest entries first. A non-positive limit means DefaultLogLimit.
func (q *QueryService) Logs(_ context.Context, limit int) []model.LogEntry {
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	return q.journal.Tail(limit)
}

func (q *QueryService) Sections(_ context.Context) []model.Section {
	return q.store.Sections().List()
}
