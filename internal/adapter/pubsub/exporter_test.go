package pubsub

import (
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	fail   bool
	closed bool
}

func (p *recordingPublisher) Publish(topic string, msgs ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.topics = append(p.topics, topic)
	return nil
}

func (p *recordingPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.topics...)
}

func (p *recordingPublisher) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func TestAMQPExporter_PublishesByRoutingKey(t *testing.T) {
	req := require.New(t)
	pub := &recordingPublisher{}
	exp := NewAMQPExporter(pub, ExporterConfig{QueueSize: 8}, slog.New(slog.DiscardHandler))

	req.True(exp.Export("message_wall.v1.section1.message-approved", []byte(`{}`)))
	req.False(exp.Export("", []byte(`{}`)), "initial snapshots are never exported")

	req.Eventually(func() bool {
		return len(pub.published()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	req.Equal("message_wall.v1.section1.message-approved", pub.published()[0])

	req.NoError(exp.Close())
	req.True(pub.isClosed())
	req.False(exp.Export("message_wall.v1.all.all-messages-cleared", nil), "closed exporter drops frames")
}

func TestAMQPExporter_DropsEveryFrameAfterClose(t *testing.T) {
	req := require.New(t)
	exp := NewAMQPExporter(&recordingPublisher{}, ExporterConfig{QueueSize: 64}, slog.New(slog.DiscardHandler))
	req.NoError(exp.Close())

	for range 50 {
		req.False(exp.Export("message_wall.v1.section1.message-approved", []byte(`{}`)))
	}
	req.Empty(exp.queue)
}

func TestAMQPExporter_BreakerOpensOnFailures(t *testing.T) {
	req := require.New(t)
	pub := &recordingPublisher{fail: true}
	exp := NewAMQPExporter(pub, ExporterConfig{QueueSize: 8, BreakerThreshold: 2, BreakerTimeout: time.Hour}, slog.New(slog.DiscardHandler))
	t.Cleanup(func() { _ = exp.Close() })

	for range 3 {
		exp.Export("k", nil)
	}
	req.Eventually(func() bool {
		return exp.breaker.State().String() == "open"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestNoopExporter(t *testing.T) {
	var exp Exporter = NoopExporter{}
	require.False(t, exp.Export("k", nil))
	require.NoError(t, exp.Close())
}
