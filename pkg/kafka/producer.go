package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
)

// ProducerConfig holds Kafka producer configuration.
type ProducerConfig struct {
	Brokers      []string
	BatchSize    int
	BatchTimeout time.Duration
	WriteTimeout time.Duration
	// Async makes Publish return once the message is queued. Delivery
	// failures are then logged and counted but not returned.
	Async bool
}

// DefaultProducerConfig returns the producer defaults for brokers.
func DefaultProducerConfig(brokers []string) ProducerConfig {
	return ProducerConfig{
		Brokers:      brokers,
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
	}
}

// Producer publishes Events with a kafka-go writer.
type Producer struct {
	writer  *kafka.Writer
	brokers []string
	async   bool
	logger  *slog.Logger
}

// NewProducer creates a producer. No connection is made until the first write.
func NewProducer(cfg ProducerConfig, logger *slog.Logger) *Producer {
	p := &Producer{brokers: cfg.Brokers, async: cfg.Async, logger: logger}
	p.writer = &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafka.RequireAll,
		Async:        cfg.Async,
	}
	if cfg.Async {
		p.writer.Completion = p.completed
	}
	return p
}

// Publish writes event to topic, propagating the trace context in the
// message headers.
func (p *Producer) Publish(ctx context.Context, topic string, event *Event) error {
	msg, err := event.message(topic)
	if err != nil {
		return err
	}
	otel.GetTextMapPropagator().Inject(ctx, NewHeaderCarrier(&msg.Headers))

	start := time.Now()
	err = p.writer.WriteMessages(ctx, msg)
	if p.async && err == nil {
		return nil
	}
	publishDuration.WithLabelValues(topic).Observe(time.Since(start).Seconds())

	if err != nil {
		publishErrors.WithLabelValues(topic).Inc()
		p.logger.ErrorContext(ctx, "failed to publish event",
			slog.String("topic", topic),
			slog.String("event_type", event.EventType),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("publish %s to %s: %w", event.EventType, topic, err)
	}

	messagesPublished.WithLabelValues(topic).Inc()
	p.logger.DebugContext(ctx, "event published",
		slog.String("topic", topic),
		slog.String("event_type", event.EventType),
		slog.String("aggregate_id", event.AggregateID),
	)
	return nil
}

// completed receives the outcome of async batches.
func (p *Producer) completed(msgs []kafka.Message, err error) {
	counter := messagesPublished
	if err != nil {
		counter = publishErrors
	}
	for _, m := range msgs {
		counter.WithLabelValues(m.Topic).Inc()
	}
	if err != nil {
		p.logger.Error("async kafka batch failed",
			slog.Int("messages", len(msgs)),
			slog.String("error", err.Error()),
		)
	}
}

// Ping reports whether any configured broker answers.
func (p *Producer) Ping(ctx context.Context) error {
	return PingBrokers(ctx, p.brokers)
}

// PingBrokers returns nil once one broker accepts a connection and lists
// the cluster.
func PingBrokers(ctx context.Context, brokers []string) error {
	if len(brokers) == 0 {
		return errors.New("kafka: no brokers configured")
	}

	var errs []error
	for _, addr := range brokers {
		conn, err := kafka.DialContext(ctx, "tcp", addr)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		_, err = conn.Brokers()
		_ = conn.Close()
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	return fmt.Errorf("kafka ping: all brokers unreachable: %w", errors.Join(errs...))
}

// Close flushes queued async messages and closes the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
