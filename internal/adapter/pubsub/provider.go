package pubsub

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/webitel/message-wall/config"
)

// ExportExchange is the topic exchange wall events are mirrored to.
const ExportExchange = "message_wall.events"

// NewBus creates the in-process pub/sub. Publish blocks until the consumer
// acks, which keeps events in commit order all the way to the hub.
func NewBus(cfg *config.Config, logger watermill.LoggerAdapter) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            cfg.Bus.OutputBuffer,
		BlockPublishUntilSubscriberAck: true,
	}, logger)
}

// NewExporter builds the RabbitMQ exporter, or a no-op one when export is disabled.
func NewExporter(cfg *config.Config, wlogger watermill.LoggerAdapter, logger *slog.Logger) (Exporter, error) {
	if cfg.Export.URL == "" {
		return NoopExporter{}, nil
	}

	amqpConfig := amqp.Config{
		Connection: amqp.ConnectionConfig{
			AmqpURI: cfg.Export.URL,
		},
		Marshaler: amqp.DefaultMarshaler{},
		Exchange: amqp.ExchangeConfig{
			GenerateName: func(string) string { return ExportExchange },
			Type:         "topic",
			Durable:      true,
		},
		Publish: amqp.PublishConfig{
			GenerateRoutingKey: func(topic string) string { return topic },
		},
		TopologyBuilder: &amqp.DefaultTopologyBuilder{},
	}

	pub, err := amqp.NewPublisher(amqpConfig, wlogger)
	if err != nil {
		return nil, fmt.Errorf("amqp exporter: %w", err)
	}

	logger.Info("EVENT_EXPORT_ENABLED", "exchange", ExportExchange)
	return NewAMQPExporter(pub, ExporterConfig{
		QueueSize:        cfg.Export.QueueSize,
		BreakerTimeout:   cfg.Export.BreakerTimeout,
		BreakerThreshold: cfg.Export.BreakerThreshold,
	}, logger), nil
}
