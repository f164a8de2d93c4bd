package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/webitel/message-wall/internal/domain/model"
)

func TestQuery_Views(t *testing.T) {
	req := require.New(t)
	f := newDelivery(t, nil)
	q := NewQueryService(f.engine.store, f.journal, f.hub)
	ctx := context.Background()

	status := q.Status(ctx)
	req.Zero(status.TotalMessages)
	req.Nil(status.LastActivity)
	req.Len(status.MessagesBySection, 5)

	m1, _ := f.engine.Submit(ctx, "section2", "", "one")
	m2, _ := f.engine.Submit(ctx, "section1", "", "two")
	_, _ = f.engine.Submit(ctx, "section2", "", "three")
	_, err := f.engine.Approve(ctx, "section2", m1.ID)
	req.NoError(err)
	_, err = f.svc.Subscribe(ctx, model.ConnectMetadata{Role: model.RoleDisplay})
	req.NoError(err)

	all := q.Messages(ctx)
	req.Len(all, 3)
	req.Equal(m2.ID, all[0].ID, "section registration order first")
	req.Equal(m1.ID, all[1].ID)

	pending := q.Pending(ctx)
	req.Equal(2, pending.Count)
	for _, m := range pending.Messages {
		req.True(m.IsPending())
	}

	status = q.Status(ctx)
	req.Equal(3, status.TotalMessages)
	req.Equal(2, status.MessagesBySection["section2"])
	req.Equal(1, status.ActiveConnections)
	req.Equal(1, status.ConnectionsByRole[model.RoleDisplay])
	req.NotNil(status.LastActivity)

	logs := q.Logs(ctx, 0)
	req.Len(logs, 5)
	req.Equal(model.LogConnection, logs[0].Type)
	req.Len(q.Logs(ctx, 2), 2)

	sections := q.Sections(ctx)
	req.Len(sections, 5)
	req.Equal("Kutlamalar", sections[0].Title)
}
