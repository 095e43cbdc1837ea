package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/logger"
	"github.com/utafrali/storefront/services/storefront/internal/notify"
)

// Kafka topic constants for storefront events.
const (
	TopicNotification  = "ecommerce.storefront.notification"
	TopicSessionChange = "ecommerce.storefront.session.changed"
)

// Aggregate type constant.
const AggregateTypeSession = "storefront_session"

// Source identifier for events originating from the storefront service.
const SourceStorefront = "storefront-service"

// NotificationData is the payload for a storefront.notification event.
type NotificationData struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id,omitempty"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
}

// SessionChangeData is the payload for a storefront.session.changed event.
type SessionChangeData struct {
	SessionID     string `json:"session_id"`
	UserID        string `json:"user_id,omitempty"`
	Authenticated bool   `json:"authenticated"`
}

// Publisher is the subset of the Kafka producer used here.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes storefront events to Kafka.
type Producer struct {
	kafka  Publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer for the storefront service.
func NewProducer(kafka Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// Notify publishes n as a storefront.notification event. Failures are
// logged and dropped so toasts never fail the operation that raised them.
func (p *Producer) Notify(ctx context.Context, n notify.Notification) {
	sessionID := logger.SessionIDFromContext(ctx)
	data := NotificationData{
		SessionID: sessionID,
		UserID:    logger.UserIDFromContext(ctx),
		Kind:      string(n.Kind),
		Message:   n.Message,
	}

	if err := p.publish(ctx, TopicNotification, sessionID, data); err != nil {
		p.logger.WarnContext(ctx, "dropping notification event",
			slog.String("error", err.Error()),
		)
	}
}

// PublishSessionChange publishes a storefront.session.changed event.
func (p *Producer) PublishSessionChange(ctx context.Context, sessionID, userID string, authenticated bool) error {
	data := SessionChangeData{
		SessionID:     sessionID,
		UserID:        userID,
		Authenticated: authenticated,
	}
	return p.publish(ctx, TopicSessionChange, sessionID, data)
}

func (p *Producer) publish(ctx context.Context, topic, sessionID string, data any) error {
	var opts []pkgkafka.EventOption
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		opts = append(opts, pkgkafka.WithCorrelationID(id))
	}
	if id := logger.UserIDFromContext(ctx); id != "" {
		opts = append(opts, pkgkafka.WithMetadata("user_id", id))
	}
	event, err := pkgkafka.NewEvent(topic, sessionID, AggregateTypeSession, SourceStorefront, data, opts...)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published storefront event",
		slog.String("topic", topic),
		slog.String("session_id", sessionID),
	)
	return nil
}
