package bus

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/require"
	"github.com/webitel/message-wall/internal/adapter/pubsub"
	"github.com/webitel/message-wall/internal/domain/event"
	"github.com/webitel/message-wall/internal/domain/model"
	"github.com/webitel/message-wall/internal/domain/registry"
)

type fakeHub struct {
	registry.Hubber

	mu       sync.Mutex
	events   []event.Eventer
	overflow bool
	panics   bool
}

func (h *fakeHub) Broadcast(ev event.Eventer) bool {
	if h.panics {
		panic("boom")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, ev)
	return !h.overflow
}

func (h *fakeHub) received() []event.Eventer {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]event.Eventer(nil), h.events...)
}

type fakeExporter struct {
	mu   sync.Mutex
	keys []string
}

func (e *fakeExporter) Export(routingKey string, _ []byte) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.keys = append(e.keys, routingKey)
	return true
}

func (e *fakeExporter) Close() error { return nil }

func (e *fakeExporter) exported() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.keys...)
}

func discardLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

func busMessage(t *testing.T, ev event.Eventer) *message.Message {
	t.Helper()
	bus := &capturePublisher{}
	require.NoError(t, pubsub.NewEventDispatcher(bus, "wall").Publish(context.Background(), ev))
	require.Len(t, bus.msgs, 1)
	return bus.msgs[0]
}

type capturePublisher struct{ msgs []*message.Message }

func (p *capturePublisher) Publish(_ string, msgs ...*message.Message) error {
	p.msgs = append(p.msgs, msgs...)
	return nil
}
func (p *capturePublisher) Close() error { return nil }

func TestBind_BroadcastsAndExports(t *testing.T) {
	req := require.New(t)
	hub := &fakeHub{}
	exp := &fakeExporter{}
	handler := Bind(NewEventHandler(hub, exp, discardLogger()))

	ev := event.NewSectionClearedEvent("section3")
	req.NoError(handler(busMessage(t, ev)))

	got := hub.received()
	req.Len(got, 1)
	req.Equal(ev.GetID(), got[0].GetID())
	req.Equal(event.SectionCleared, got[0].GetKind())
	req.Equal([]string{"message_wall.v1.section3.section-cleared"}, exp.exported())
}

func TestBind_SkipsExportWithoutRoutingKey(t *testing.T) {
	hub := &fakeHub{}
	exp := &fakeExporter{}
	handler := Bind(NewEventHandler(hub, exp, discardLogger()))

	require.NoError(t, handler(busMessage(t, event.NewInitialMessagesEvent(model.Snapshot{}))))
	require.Len(t, hub.received(), 1)
	require.Empty(t, exp.exported())
}

func TestBind_AcksPoisonAndPanics(t *testing.T) {
	req := require.New(t)

	hub := &fakeHub{}
	handler := Bind(NewEventHandler(hub, &fakeExporter{}, discardLogger()))
	req.NoError(handler(message.NewMessage("bad", []byte("{}"))))
	req.Empty(hub.received())

	panicking := Bind(NewEventHandler(&fakeHub{panics: true}, &fakeExporter{}, discardLogger()))
	req.NotPanics(func() {
		_ = panicking(busMessage(t, event.NewAllMessagesClearedEvent()))
	})

	overflowing := Bind(NewEventHandler(&fakeHub{overflow: true}, &fakeExporter{}, discardLogger()))
	req.NoError(overflowing(busMessage(t, event.NewAllMessagesClearedEvent())))
}

func TestRouter_DeliversInPublishOrder(t *testing.T) {
	req := require.New(t)
	ch := gochannel.NewGoChannel(gochannel.Config{BlockPublishUntilSubscriberAck: true}, watermill.NopLogger{})

	router, err := NewWatermillRouter(watermill.NopLogger{})
	req.NoError(err)

	hub := &fakeHub{}
	h := NewEventHandler(hub, &fakeExporter{}, discardLogger())
	h.RegisterHandlers(router, ch, "wall")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req.NoError(StartRouter(ctx, router, discardLogger()))
	t.Cleanup(func() {
		_ = router.Close()
		_ = ch.Close()
	})

	d := pubsub.NewEventDispatcher(ch, "wall")
	var ids []string
	for i := range 5 {
		ev := event.NewMessageDeletedEvent("section1", int64(i+1))
		ids = append(ids, ev.GetID())
		req.NoError(d.Publish(ctx, ev))
	}

	got := hub.received()
	req.Len(got, 5, "publish returns only after the handler acked")
	for i, ev := range got {
		req.Equal(ids[i], ev.GetID())
	}
}

func TestTraceIDMiddleware(t *testing.T) {
	var seen string
	h := TraceIDMiddleware(func(msg *message.Message) ([]*message.Message, error) {
		seen = TraceIDFromContext(msg.Context())
		return nil, nil
	})

	msg := message.NewMessage("1", nil)
	_, err := h(msg)
	require.NoError(t, err)
	require.NotEmpty(t, seen)
	require.Equal(t, seen, msg.Metadata.Get(MetaTraceID))

	msg = message.NewMessage("2", nil)
	msg.Metadata.Set(MetaTraceID, "abc")
	_, _ = h(msg)
	require.Equal(t, "abc", seen)
}
