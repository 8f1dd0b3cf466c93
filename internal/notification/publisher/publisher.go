// Package publisher announces created notifications to other systems.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"taskflow/internal/notification/metrics"
	"taskflow/internal/notification/models"
)

// ErrCircuitOpen is returned while publishing is suspended after repeated
// delivery failures.
var ErrCircuitOpen = errors.New("notification publisher circuit open")

// EventCreated is the event type of every record this package produces.
const EventCreated = "notification.created"

// Event is the wire form of a created notification.
type Event struct {
	Type           string    `json:"type"`
	NotificationID string    `json:"notificationId"`
	Recipient      string    `json:"recipient"`
	Sender         string    `json:"sender,omitempty"`
	Task           string    `json:"task,omitempty"`
	Kind           string    `json:"kind"`
	Message        string    `json:"message"`
	CreatedAt      time.Time `json:"createdAt"`
}

// NewEvent converts a notification into its event form.
func NewEvent(n *models.Notification) Event {
	e := Event{
		Type:           EventCreated,
		NotificationID: n.ID.String(),
		Recipient:      n.Recipient.String(),
		Kind:           string(n.Type),
		Message:        n.Message,
		CreatedAt:      n.CreatedAt,
	}
	if n.Sender != nil {
		e.Sender = n.Sender.String()
	}
	if n.Task != nil {
		e.Task = n.Task.String()
	}
	return e
}

// Kafka produces notification events keyed by recipient, so a consumer sees
// each recipient's notifications in creation order.
type Kafka struct {
	client  *kgo.Client
	topic   string
	breaker *Breaker
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Kafka)

func WithLogger(logger *slog.Logger) Option {
	return func(k *Kafka) {
		k.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(k *Kafka) {
		k.metrics = m
	}
}

// WithBreaker replaces the default circuit breaker.
func WithBreaker(b *Breaker) Option {
	return func(k *Kafka) {
		k.breaker = b
	}
}

// NewKafka constructs a publisher producing to topic.
func NewKafka(client *kgo.Client, topic string, opts ...Option) *Kafka {
	k := &Kafka{client: client, topic: topic, breaker: NewBreaker(5, time.Minute), logger: slog.Default()}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Publish enqueues the event and returns without waiting for the broker.
// Delivery failures are logged and counted from the produce callback. While
// the breaker is open events are dropped.
func (k *Kafka) Publish(ctx context.Context, n *models.Notification) error {
	if !k.breaker.Allow() {
		return ErrCircuitOpen
	}
	value, err := json.Marshal(NewEvent(n))
	if err != nil {
		return fmt.Errorf("marshal notification event: %w", err)
	}
	record := &kgo.Record{
		Topic: k.topic,
		Key:   []byte(n.Recipient.String()),
		Value: value,
	}
	notificationID := n.ID.String()
	// The request context ends before the broker acks; delivery must not be cancelled with it.
	k.client.Produce(context.WithoutCancel(ctx), record, func(_ *kgo.Record, err error) {
		if err != nil {
			k.breaker.RecordFailure()
			k.metrics.IncrementPublishFailure()
			k.logger.Error("failed to publish notification event",
				"notification_id", notificationID,
				"error", err,
			)
			return
		}
		k.breaker.RecordSuccess()
	})
	return nil
}

// Flush waits for buffered events to be delivered, for use at shutdown.
func (k *Kafka) Flush(ctx context.Context) error {
	return k.client.Flush(ctx)
}

// Noop discards events. It is used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, *models.Notification) error { return nil }

func (Noop) Flush(context.Context) error { return nil }
