package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/webitel/message-wall/internal/domain/model"
	"github.com/webitel/message-wall/internal/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/webitel/message-wall/internal/service"

var _ Moderator = (*ModeratorMiddleware)(nil)

// ModeratorMiddleware implements [DECORATOR_PATTERN] to add observability
// to moderation without touching business logic.
type ModeratorMiddleware struct {
	Next   Moderator
	Logger *slog.Logger
	tracer trace.Tracer
}

// NewModeratorMiddleware creates a logging and tracing decorator for the Moderator.
func NewModeratorMiddleware(next Moderator, logger *slog.Logger) Moderator {
	return &ModeratorMiddleware{
		Next:   next,
		Logger: logger,
		tracer: otel.Tracer(tracerName),
	}
}

// observe closes the span and emits one outcome log line per command.
func (m *ModeratorMiddleware) observe(span trace.Span, action string, start time.Time, err error, attrs ...any) {
	defer span.End()

	metrics.ModerationActionsTotal.WithLabelValues(action, metrics.Result(err)).Inc()
	attrs = append(attrs, "action", action, "duration_ms", time.Since(start).Milliseconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		m.Logger.Warn("MODERATION_COMMAND_FAILED", append(attrs, "err", err)...)
		return
	}
	m.Logger.Debug("MODERATION_COMMAND_COMPLETED", attrs...)
}

func (m *ModeratorMiddleware) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, "Moderator."+name, trace.WithAttributes(attrs...))
}

func refAttrs(section model.SectionKey, id int64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("wall.section", string(section)),
		attribute.Int64("wall.message_id", id),
	}
}

func (m *ModeratorMiddleware) Submit(ctx context.Context, section model.SectionKey, author, text string) (model.Message, error) {
	start := time.Now()
	ctx, span := m.start(ctx, "Submit", attribute.String("wall.section", string(section)))

	msg, err := m.Next.Submit(ctx, section, author, text)
	if err == nil {
		span.SetAttributes(attribute.Int64("wall.message_id", msg.ID))
	}
	m.observe(span, "submit", start, err, "section", section, "id", msg.ID)
	return msg, err
}

func (m *ModeratorMiddleware) Approve(ctx context.Context, section model.SectionKey, id int64) (model.Message, error) {
	start := time.Now()
	ctx, span := m.start(ctx, "Approve", refAttrs(section, id)...)

	msg, err := m.Next.Approve(ctx, section, id)
	m.observe(span, "approve", start, err, "section", section, "id", id)
	return msg, err
}

func (m *ModeratorMiddleware) Reject(ctx context.Context, section model.SectionKey, id int64) error {
	start := time.Now()
	ctx, span := m.start(ctx, "Reject", refAttrs(section, id)...)

	err := m.Next.Reject(ctx, section, id)
	m.observe(span, "reject", start, err, "section", section, "id", id)
	return err
}

func (m *ModeratorMiddleware) Delete(ctx context.Context, section model.SectionKey, id int64) error {
	start := time.Now()
	ctx, span := m.start(ctx, "Delete", refAttrs(section, id)...)

	err := m.Next.Delete(ctx, section, id)
	m.observe(span, "delete", start, err, "section", section, "id", id)
	return err
}

func (m *ModeratorMiddleware) BulkApprove(ctx context.Context, refs []model.Ref) (int, error) {
	start := time.Now()
	ctx, span := m.start(ctx, "BulkApprove", attribute.Int("wall.refs", len(refs)))

	n, err := m.Next.BulkApprove(ctx, refs)
	span.SetAttributes(attribute.Int("wall.count", n))
	m.observe(span, "approve_bulk", start, err, "refs", len(refs), "count", n)
	return n, err
}

func (m *ModeratorMiddleware) BulkReject(ctx context.Context, refs []model.Ref) (int, error) {
	start := time.Now()
	ctx, span := m.start(ctx, "BulkReject", attribute.Int("wall.refs", len(refs)))

	n, err := m.Next.BulkReject(ctx, refs)
	span.SetAttributes(attribute.Int("wall.count", n))
	m.observe(span, "reject_bulk", start, err, "refs", len(refs), "count", n)
	return n, err
}

func (m *ModeratorMiddleware) ClearSection(ctx context.Context, section model.SectionKey) (int, error) {
	start := time.Now()
	ctx, span := m.start(ctx, "ClearSection", attribute.String("wall.section", string(section)))

	n, err := m.Next.ClearSection(ctx, section)
	m.observe(span, "clear_section", start, err, "section", section, "count", n)
	return n, err
}

func (m *ModeratorMiddleware) ClearAll(ctx context.Context) (int, error) {
	start := time.Now()
	ctx, span := m.start(ctx, "ClearAll")

	n, err := m.Next.ClearAll(ctx)
	m.observe(span, "clear_all", start, err, "count", n)
	return n, err
}

func (m *ModeratorMiddleware) Join(ctx context.Context, client model.ClientInfo, attach func(model.Snapshot) (int, error)) error {
	err := m.Next.Join(ctx, client, attach)
	if err != nil {
		m.Logger.Warn("CLIENT_JOIN_FAILED", "conn_id", client.ConnectionID, "role", client.Role, "err", err)
		return err
	}
	m.Logger.Info("CLIENT_JOINED", "conn_id", client.ConnectionID, "role", client.Role, "remote_ip", client.RemoteIP)
	return nil
}

func (m *ModeratorMiddleware) Leave(ctx context.Context, client model.ClientInfo, detach func() int) {
	m.Next.Leave(ctx, client, detach)
	m.Logger.Info("CLIENT_LEFT",
		"conn_id", client.ConnectionID,
		"role", client.Role,
		"session_s", time.Since(client.ConnectedAt).Seconds(),
	)
}
