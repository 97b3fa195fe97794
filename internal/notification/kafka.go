package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/Shivanand-hulikatti/event-checkout/internal/clock"
	"github.com/Shivanand-hulikatti/event-checkout/internal/metrics"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaDispatcher publishes notifications to a Kafka topic for the mailer.
type KafkaDispatcher struct {
	writer messageWriter
	topic  string
	clock  clock.Clock
	logger *slog.Logger
}

// NewKafkaDispatcher creates a dispatcher writing to topic on brokers.
func NewKafkaDispatcher(brokers []string, topic string, clk clock.Clock, logger *slog.Logger) *KafkaDispatcher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
	}
	return newKafkaDispatcher(w, topic, clk, logger)
}

func newKafkaDispatcher(w messageWriter, topic string, clk clock.Clock, logger *slog.Logger) *KafkaDispatcher {
	return &KafkaDispatcher{writer: w, topic: topic, clock: clk, logger: logger}
}

// Dispatch publishes n keyed by its registration uuid.
func (d *KafkaDispatcher) Dispatch(ctx context.Context, n Notification) error {
	env, err := NewEnvelope(ctx, n, d.clock.Now())
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	msg := kafka.Message{
		Topic: d.topic,
		Key:   []byte(n.RegistrationUUID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(env.EventType)},
			{Key: "source", Value: []byte(Source)},
		},
	}
	if env.CorrelationID != "" {
		msg.Headers = append(msg.Headers, kafka.Header{Key: "correlation_id", Value: []byte(env.CorrelationID)})
	}

	if err := d.writer.WriteMessages(ctx, msg); err != nil {
		metrics.NotificationsDispatched.WithLabelValues(string(n.Kind), "failed").Inc()
		return fmt.Errorf("publish notification to %s: %w", d.topic, err)
	}
	metrics.NotificationsDispatched.WithLabelValues(string(n.Kind), "published").Inc()
	d.logger.DebugContext(ctx, "notification published",
		slog.String("topic", d.topic),
		slog.String("event_type", env.EventType),
		slog.String("registration_uuid", n.RegistrationUUID),
	)
	return nil
}

// Close flushes and closes the underlying writer.
func (d *KafkaDispatcher) Close() error {
	return d.writer.Close()
}
