/**
 * @description
 * Fire-and-forget analytics event publishing. Events are published to a
 * RabbitMQ topic exchange and consumed by the analytics pipeline; losing one
 * is acceptable, blocking checkout on one is not, so publish failures are
 * logged and swallowed.
 *
 * @dependencies
 * - github.com/rs/zerolog: Structured logging.
 * - pkg/rabbitmq: The AMQP event producer.
 */
package analytics

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/catalisa/contribution-service/pkg/rabbitmq"
)

// Event is the payload published for every tracked interaction.
type Event struct {
	Category   string    `json:"category"`
	Action     string    `json:"action"`
	Label      string    `json:"label,omitempty"`
	Value      int64     `json:"value,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Producer publishes analytics events. A nil Producer, or one constructed
// with a nil AMQP producer, is a no-op: analytics must never break the flows
// it observes.
type Producer struct {
	producer *rabbitmq.EventProducer
	exchange string
	logger   zerolog.Logger
}

// NewProducer creates an analytics producer publishing to the given exchange.
func NewProducer(producer *rabbitmq.EventProducer, exchange string, logger zerolog.Logger) *Producer {
	return &Producer{
		producer: producer,
		exchange: exchange,
		logger:   logger.With().Str("component", "analytics").Logger(),
	}
}

// Emit publishes one event. It implements the checkout package's EventSink.
func (p *Producer) Emit(ctx context.Context, category, action, label string, value int64) {
	if p == nil || p.producer == nil {
		return
	}

	event := Event{
		Category:   category,
		Action:     action,
		Label:      label,
		Value:      value,
		OccurredAt: time.Now().UTC(),
	}

	if err := p.producer.Publish(ctx, p.exchange, routingKey(category, action), event); err != nil {
		p.logger.Warn().Err(err).Str("category", category).Str("action", action).Msg("failed to publish analytics event")
	}
}

// routingKey builds the topic routing key for an event, e.g.
// "analytics.contribution_create.contribution_started".
func routingKey(category, action string) string {
	normalize := func(s string) string {
		s = strings.TrimSpace(strings.ToLower(s))
		s = strings.ReplaceAll(s, " ", "_")
		s = strings.ReplaceAll(s, ".", "_")
		if s == "" {
			return "unknown"
		}
		return s
	}
	return "analytics." + normalize(category) + "." + normalize(action)
}
