// Package notifier consumes storefront domain events and sends the
// corresponding transactional email.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	pkgkafka "github.com/oakmart/storefront/pkg/kafka"

	"github.com/oakmart/storefront/internal/event"
	"github.com/oakmart/storefront/internal/mailer"
)

// ConsumerGroupID identifies the notifier's Kafka consumer group.
const ConsumerGroupID = "storefront-notifier"

// idempotencyTTL is how long processed event IDs are remembered.
const idempotencyTTL = 24 * time.Hour

// Notifier routes incoming events to the mailer.
type Notifier struct {
	mailer mailer.Mailer
	logger *slog.Logger
}

// New creates a notifier backed by the given mailer.
func New(m mailer.Mailer, logger *slog.Logger) *Notifier {
	return &Notifier{
		mailer: m,
		logger: logger,
	}
}

// Handle processes an incoming Kafka event based on its event type.
func (n *Notifier) Handle(ctx context.Context, evt *pkgkafka.Event) error {
	switch evt.EventType {
	case event.TopicUserRegistered:
		return n.handleUserRegistered(ctx, evt)
	default:
		n.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", evt.EventType),
			slog.String("event_id", evt.EventID),
		)
		return nil
	}
}

// handleUserRegistered sends a welcome email to the newly registered user.
func (n *Notifier) handleUserRegistered(ctx context.Context, evt *pkgkafka.Event) error {
	var data event.UserRegisteredData
	if err := json.Unmarshal(evt.Data, &data); err != nil {
		return fmt.Errorf("unmarshal user.registered data: %w", err)
	}

	msg := &mailer.Message{
		To:      data.Email,
		Subject: "Welcome to Storefront",
		Body:    fmt.Sprintf("Hello %s,\n\nYour account has been created. Happy shopping!", data.Name),
	}

	if err := n.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("send welcome email: %w", err)
	}

	n.logger.InfoContext(ctx, "welcome email sent",
		slog.String("user_id", data.ID),
		slog.String("email", data.Email),
	)

	return nil
}

// NewConsumer creates the Kafka consumer for the notifier. The handler is
// wrapped with idempotency tracking so redelivered events do not produce
// duplicate email, and failed messages go to the dead-letter queue.
func NewConsumer(brokers []string, n *Notifier, logger *slog.Logger) *pkgkafka.Consumer {
	cfg := pkgkafka.ConsumerConfig{
		Brokers:  brokers,
		GroupID:  ConsumerGroupID,
		Topic:    event.TopicUserRegistered,
		MinBytes: 1,
		MaxBytes: 10e6,
	}

	store := pkgkafka.NewMemoryIdempotencyStore(idempotencyTTL)
	handler := pkgkafka.IdempotentHandler(store, n.Handle, logger)
	dlq := pkgkafka.NewDLQProducer(brokers, logger)

	return pkgkafka.NewConsumer(cfg, handler, logger).WithDLQ(dlq)
}
