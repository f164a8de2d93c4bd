package pubsub

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/sony/gobreaker"
	"github.com/webitel/message-wall/internal/metrics"
)

// Exporter mirrors wall events to an external broker. Export must never block.
type Exporter interface {
	Export(routingKey string, frame []byte) bool
	Close() error
}

// NoopExporter is used when no broker is configured.
type NoopExporter struct{}

func (NoopExporter) Export(string, []byte) bool { return false }
func (NoopExporter) Close() error               { return nil }

type exportJob struct {
	routingKey string
	frame      []byte
}

// AMQPExporter publishes frames to RabbitMQ from a single background worker.
// A circuit breaker sheds load while the broker is unavailable.
type AMQPExporter struct {
	publisher message.Publisher
	breaker   *gobreaker.CircuitBreaker
	queue     chan exportJob
	logger    *slog.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

type ExporterConfig struct {
	QueueSize        int
	BreakerTimeout   time.Duration
	BreakerThreshold uint32
}

func NewAMQPExporter(pub message.Publisher, cfg ExporterConfig, logger *slog.Logger) *AMQPExporter {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.BreakerThreshold == 0 {
		cfg.BreakerThreshold = 5
	}

	e := &AMQPExporter{
		publisher: pub,
		queue:     make(chan exportJob, cfg.QueueSize),
		logger:    logger,
		stopCh:    make(chan struct{}),
	}
	e.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "amqp-export",
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= cfg.BreakerThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("EXPORT_BREAKER_STATE_CHANGED", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	e.wg.Add(1)
	go e.loop()
	return e
}

// Export queues the frame for publishing; false means it was dropped.
func (e *AMQPExporter) Export(routingKey string, frame []byte) bool {
	if routingKey == "" {
		return false
	}
	select {
	case <-e.stopCh:
		return false
	default:
	}
	select {
	case e.queue <- exportJob{routingKey: routingKey, frame: frame}:
		return true
	default:
		metrics.ExportFailuresTotal.WithLabelValues("queue_full").Inc()
		return false
	}
}

func (e *AMQPExporter) loop() {
	defer e.wg.Done()
	for {
		select {
		case <-e.stopCh:
			return
		case job := <-e.queue:
			e.publish(job)
		}
	}
}

func (e *AMQPExporter) publish(job exportJob) {
	_, err := e.breaker.Execute(func() (any, error) {
		msg := message.NewMessage(watermill.NewUUID(), job.frame)
		return nil, e.publisher.Publish(job.routingKey, msg)
	})
	if err == nil {
		return
	}

	reason := "publish_error"
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		reason = "circuit_open"
	}
	metrics.ExportFailuresTotal.WithLabelValues(reason).Inc()
	e.logger.Debug("EVENT_EXPORT_FAILED", "routing_key", job.routingKey, "reason", reason, "err", err)
}

// Close stops the worker and the underlying publisher. Queued frames are discarded.
func (e *AMQPExporter) Close() error {
	e.stopOnce.Do(func() { close(e.stopCh) })
	e.wg.Wait()
	return e.publisher.Close()
}
