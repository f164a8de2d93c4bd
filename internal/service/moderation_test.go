package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/webitel/message-wall/internal/domain/event"
	"github.com/webitel/message-wall/internal/domain/journal"
	"github.com/webitel/message-wall/internal/domain/model"
	"github.com/webitel/message-wall/internal/domain/store"
	"github.com/webitel/message-wall/internal/service/mocks"
	"go.uber.org/mock/gomock"
)

// published collects what the engine hands to the fan-out.
type published struct {
	mu     sync.Mutex
	events []event.Eventer
}

func (p *published) add(_ context.Context, ev event.Eventer) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *published) kinds() []event.EventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]event.EventKind, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.GetKind()
	}
	return out
}

func (p *published) reset() {
	p.mu.Lock()
	p.events = nil
	p.mu.Unlock()
}

type engineFixture struct {
	engine  *ModerationService
	store   *store.Store
	journal *journal.Journal
	out     *published
}

func newEngine(t *testing.T, filter ContentFilter, opts ...store.Option) *engineFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	pub := mocks.NewMockPublisher(ctrl)

	out := &published{}
	pub.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(out.add).AnyTimes()

	st := store.New(model.MustSections(model.DefaultSections()), opts...)
	j := journal.New(0, nil)
	return &engineFixture{
		engine:  NewModerationService(st, j, pub, filter, slog.New(slog.DiscardHandler)),
		store:   st,
		journal: j,
		out:     out,
	}
}

func TestModeration_SubmitCreatesPending(t *testing.T) {
	req := require.New(t)
	f := newEngine(t, nil)
	ctx := context.Background()

	msg, err := f.engine.Submit(ctx, "section1", "  Ada ", "Congrats!")
	req.NoError(err)
	req.Equal(model.StatusPending, msg.Status)
	req.Equal("Ada", msg.Author)

	stored, ok := f.store.Find("section1", msg.ID)
	req.True(ok)
	req.Equal(msg, stored)

	req.Equal([]event.EventKind{event.PendingMessageAdded}, f.out.kinds())
	payload := f.out.events[0].GetPayload().(*event.MessagePayload)
	req.Equal(msg, payload.Message)

	entry, ok := f.journal.Last()
	req.True(ok)
	req.Equal(model.LogNewMessage, entry.Type)
	req.Equal(model.SectionKey("section1"), entry.Data["section"])
	req.Equal(9, entry.Data["textLength"])
}

func TestModeration_SubmitRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		section model.SectionKey
		text    string
		err     error
	}{
		{name: "unknown section", section: "section6", text: "hi", err: model.ErrUnknownSection},
		{name: "empty text", section: "section1", text: "", err: model.ErrInvalidInput},
		{name: "blank text", section: "section1", text: "   ", err: model.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newEngine(t, nil)
			_, err := f.engine.Submit(context.Background(), tt.section, "", tt.text)
			require.ErrorIs(t, err, tt.err)
			require.Empty(t, f.out.kinds())
			require.Zero(t, f.journal.Len())
			require.Zero(t, f.store.Len())
		})
	}
}

func TestModeration_SubmitTruncatesAndDefaultsAuthor(t *testing.T) {
	req := require.New(t)
	f := newEngine(t, nil)

	msg, err := f.engine.Submit(context.Background(), "section2", "", strings.Repeat("ş", 300))
	req.NoError(err)
	req.Equal(store.DefaultAuthor, msg.Author)
	req.Equal(280, len([]rune(msg.Text)))
}

func TestModeration_SubmitCensors(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	filter := mocks.NewMockContentFilter(ctrl)
	filter.EXPECT().Censor("buy spam now").Return("buy **** now", true)
	f := newEngine(t, filter)

	msg, err := f.engine.Submit(context.Background(), "section3", "x", "buy spam now")
	req.NoError(err)
	req.Equal("buy **** now", msg.Text)

	logs := f.journal.Tail(0)
	req.Len(logs, 2)
	req.Equal(model.LogCensored, logs[0].Type)
	req.Equal(msg.ID, logs[0].Data["id"])
	req.Equal(model.LogNewMessage, logs[1].Type)
}

func TestModeration_Approve(t *testing.T) {
	req := require.New(t)
	f := newEngine(t, nil)
	ctx := context.Background()

	msg, err := f.engine.Submit(ctx, "section1", "a", "hello")
	req.NoError(err)
	f.out.reset()

	approved, err := f.engine.Approve(ctx, "section1", msg.ID)
	req.NoError(err)
	req.Equal(model.StatusApproved, approved.Status)
	req.Equal([]event.EventKind{event.MessageApproved}, f.out.kinds())
	logsBefore := f.journal.Len()

	// [IDEMPOTENT] second approval is silent
	again, err := f.engine.Approve(ctx, "section1", msg.ID)
	req.NoError(err)
	req.Equal(approved, again)
	req.Len(f.out.kinds(), 1)
	req.Equal(logsBefore, f.journal.Len())

	_, err = f.engine.Approve(ctx, "section1", 999)
	req.ErrorIs(err, model.ErrNotFound)
	_, err = f.engine.Approve(ctx, "nope", msg.ID)
	req.ErrorIs(err, model.ErrUnknownSection)
	req.Len(f.out.kinds(), 1)
}

func TestModeration_Reject(t *testing.T) {
	req := require.New(t)
	f := newEngine(t, nil)
	ctx := context.Background()

	pending, _ := f.engine.Submit(ctx, "section4", "a", "one")
	approved, _ := f.engine.Submit(ctx, "section4", "b", "two")
	_, err := f.engine.Approve(ctx, "section4", approved.ID)
	req.NoError(err)
	f.out.reset()

	req.NoError(f.engine.Reject(ctx, "section4", pending.ID))
	_, ok := f.store.Find("section4", pending.ID)
	req.False(ok)
	req.Equal([]event.EventKind{event.MessageRejected}, f.out.kinds())
	ref := f.out.events[0].GetPayload().(*event.RefPayload)
	req.Equal(pending.ID, ref.ID)

	err = f.engine.Reject(ctx, "section4", approved.ID)
	req.ErrorIs(err, model.ErrNotPending)
	req.ErrorIs(err, model.ErrNotFound)
	_, ok = f.store.Find("section4", approved.ID)
	req.True(ok, "approved message survives a reject")

	req.ErrorIs(f.engine.Reject(ctx, "section4", pending.ID), model.ErrNotFound)
	req.Len(f.out.kinds(), 1)
}

func TestModeration_DeleteAnyStatus(t *testing.T) {
	req := require.New(t)
	f := newEngine(t, nil)
	ctx := context.Background()

	a, _ := f.engine.Submit(ctx, "section5", "a", "pending one")
	b, _ := f.engine.Submit(ctx, "section5", "b", "approved one")
	_, _ = f.engine.Approve(ctx, "section5", b.ID)
	f.out.reset()

	req.NoError(f.engine.Delete(ctx, "section5", a.ID))
	req.NoError(f.engine.Delete(ctx, "section5", b.ID))
	req.Zero(f.store.Len())
	req.Equal([]event.EventKind{event.MessageDeleted, event.MessageDeleted}, f.out.kinds())

	entry, _ := f.journal.Last()
	req.Equal(model.LogDelete, entry.Type)
	req.Equal("b", entry.Data["author"])

	req.ErrorIs(f.engine.Delete(ctx, "section5", a.ID), model.ErrNotFound)
	req.ErrorIs(f.engine.Delete(ctx, "section0", a.ID), model.ErrUnknownSection)
}

func TestModeration_BulkApprove(t *testing.T) {
	req := require.New(t)
	f := newEngine(t, nil)
	ctx := context.Background()

	m1, _ := f.engine.Submit(ctx, "section1", "", "one")
	m2, _ := f.engine.Submit(ctx, "section2", "", "two")
	m3, _ := f.engine.Submit(ctx, "section2", "", "three")
	_, _ = f.engine.Approve(ctx, "section2", m3.ID)
	f.out.reset()

	count, err := f.engine.BulkApprove(ctx, []model.Ref{
		{Section: "section1", ID: m1.ID},
		{Section: "section2", ID: m2.ID},
		{Section: "section2", ID: m3.ID}, // already approved
		{Section: "section3", ID: m1.ID}, // wrong section
		{Section: "ghost", ID: 1},
	})
	req.NoError(err)
	req.Equal(3, count)
	req.Equal([]event.EventKind{event.MessageApproved, event.MessageApproved, event.MessageApproved}, f.out.kinds())
	req.Len(f.out.kinds(), count)

	entry, _ := f.journal.Last()
	req.Equal(model.LogApproveBulk, entry.Type)
	req.Equal(3, entry.Data["count"])

	for _, m := range f.store.All() {
		req.Equal(model.StatusApproved, m.Status)
	}

	_, err = f.engine.BulkApprove(ctx, nil)
	req.ErrorIs(err, model.ErrInvalidInput)
}

func TestModeration_BulkApproveEmitsOnePerCountedItem(t *testing.T) {
	req := require.New(t)
	f := newEngine(t, nil)
	ctx := context.Background()

	a, _ := f.engine.Submit(ctx, "section2", "", "a")
	c, _ := f.engine.Submit(ctx, "section2", "", "c")
	_, _ = f.engine.Approve(ctx, "section2", a.ID)
	f.out.reset()

	count, err := f.engine.BulkApprove(ctx, []model.Ref{
		{Section: "section2", ID: a.ID},
		{Section: "section2", ID: c.ID + 1000},
		{Section: "section2", ID: c.ID},
	})
	req.NoError(err)
	req.Equal(2, count)
	req.Len(f.out.kinds(), count)
	for _, k := range f.out.kinds() {
		req.Equal(event.MessageApproved, k)
	}
}

func TestModeration_BulkReject(t *testing.T) {
	req := require.New(t)
	f := newEngine(t, nil)
	ctx := context.Background()

	m1, _ := f.engine.Submit(ctx, "section1", "", "one")
	m2, _ := f.engine.Submit(ctx, "section1", "", "two")
	_, _ = f.engine.Approve(ctx, "section1", m2.ID)
	f.out.reset()

	count, err := f.engine.BulkReject(ctx, []model.Ref{
		{Section: "section1", ID: m1.ID},
		{Section: "section1", ID: m2.ID},
		{Section: "section1", ID: 12345},
	})
	req.NoError(err)
	req.Equal(1, count)
	req.Equal([]event.EventKind{event.MessageRejected}, f.out.kinds())
	req.Equal(1, f.store.Len())

	_, err = f.engine.BulkReject(ctx, []model.Ref{})
	req.ErrorIs(err, model.ErrInvalidInput)
}

func TestModeration_Clear(t *testing.T) {
	req := require.New(t)
	f := newEngine(t, nil)
	ctx := context.Background()

	for _, s := range []model.SectionKey{"section1", "section1", "section2"} {
		_, err := f.engine.Submit(ctx, s, "", "x")
		req.NoError(err)
	}
	f.out.reset()

	n, err := f.engine.ClearSection(ctx, "section1")
	req.NoError(err)
	req.Equal(2, n)
	entry, _ := f.journal.Last()
	req.Equal(model.LogDeleteSection, entry.Type)
	req.Equal(2, entry.Data["count"])

	n, err = f.engine.ClearSection(ctx, "section1")
	req.NoError(err)
	req.Zero(n)

	_, err = f.engine.ClearSection(ctx, "missing")
	req.ErrorIs(err, model.ErrUnknownSection)

	n, err = f.engine.ClearAll(ctx)
	req.NoError(err)
	req.Equal(1, n)
	req.Zero(f.store.Len())

	req.Equal([]event.EventKind{event.SectionCleared, event.SectionCleared, event.AllMessagesCleared}, f.out.kinds())
	entry, _ = f.journal.Last()
	req.Equal(model.LogClearAll, entry.Type)
}

func TestModeration_PublishFailureKeepsCommit(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	pub := mocks.NewMockPublisher(ctrl)
	pub.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("bus down")).Times(2)

	st := store.New(model.MustSections(model.DefaultSections()))
	engine := NewModerationService(st, journal.New(0, nil), pub, nil, slog.New(slog.DiscardHandler))

	msg, err := engine.Submit(context.Background(), "section1", "", "still stored")
	req.NoError(err)
	_, err = engine.Approve(context.Background(), "section1", msg.ID)
	req.NoError(err)

	got, ok := st.Find("section1", msg.ID)
	req.True(ok)
	req.True(got.IsApproved())
}

func TestModeration_PublishOrderFollowsCommitOrder(t *testing.T) {
	req := require.New(t)
	f := newEngine(t, nil, store.WithRetention(1000))
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 20 {
				_, _ = f.engine.Submit(ctx, "section3", "", "burst")
			}
		}()
	}
	wg.Wait()

	f.out.mu.Lock()
	defer f.out.mu.Unlock()
	req.Len(f.out.events, 200)

	all := f.store.All()
	for i, ev := range f.out.events {
		payload := ev.GetPayload().(*event.MessagePayload)
		req.Equal(all[i].ID, payload.Message.ID, "event %d out of store order", i)
	}
}

func TestModeration_JoinLeave(t *testing.T) {
	req := require.New(t)
	f := newEngine(t, nil)
	ctx := context.Background()

	_, _ = f.engine.Submit(ctx, "section2", "", "before join")
	client := model.ClientInfo{ConnectionID: uuid.New(), Role: model.RoleDisplay}

	var snap model.Snapshot
	err := f.engine.Join(ctx, client, func(s model.Snapshot) (int, error) {
		snap = s
		return 3, nil
	})
	req.NoError(err)
	req.Len(snap, 5)
	req.Len(snap["section2"], 1)

	entry, _ := f.journal.Last()
	req.Equal(model.LogConnection, entry.Type)
	req.Equal(3, entry.Data["total"])
	req.Equal(client.ConnectionID.String(), entry.Data["connectionId"])

	f.engine.Leave(ctx, client, func() int { return 2 })
	entry, _ = f.journal.Last()
	req.Equal(model.LogDisconnect, entry.Type)
	req.Equal(2, entry.Data["total"])

	logs := f.journal.Len()
	err = f.engine.Join(ctx, client, func(model.Snapshot) (int, error) {
		return 0, errors.New("gone")
	})
	req.Error(err)
	req.Equal(logs, f.journal.Len())
}
