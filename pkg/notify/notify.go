/**
 * @description
 * Notification dispatch over RabbitMQ. The contribution-service does not send
 * email itself; it publishes templated notification messages that the
 * platform's notification pipeline renders and delivers. The dispatcher
 * implements the app layer's Notifier interface.
 *
 * @dependencies
 * - github.com/google/uuid: Recipient and subject identifiers.
 * - github.com/rs/zerolog: Structured logging.
 * - pkg/rabbitmq: The AMQP event producer.
 */
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/catalisa/contribution-service/pkg/rabbitmq"
)

// Message is the payload published for every dispatched notification.
type Message struct {
	TemplateName   string            `json:"template_name"`
	RecipientID    uuid.UUID         `json:"recipient_id"`
	ContributionID uuid.UUID         `json:"contribution_id"`
	Options        map[string]string `json:"options,omitempty"`
	DispatchedAt   time.Time         `json:"dispatched_at"`
}

// Dispatcher publishes notification messages to the notification exchange.
// When constructed without a live AMQP producer it degrades to a warn-and-skip
// no-op, so a broker outage does not fail contribution flows.
type Dispatcher struct {
	producer *rabbitmq.EventProducer
	exchange string
	logger   zerolog.Logger
}

// NewDispatcher creates a notification dispatcher for the given exchange.
func NewDispatcher(producer *rabbitmq.EventProducer, exchange string, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		producer: producer,
		exchange: exchange,
		logger:   logger.With().Str("component", "notify").Logger(),
	}
}

// NotifyOnce publishes one templated notification for the recipient about the
// contribution. Per-template dedup is the caller's concern; the dispatcher
// only delivers.
func (d *Dispatcher) NotifyOnce(ctx context.Context, templateName string, recipientID, contributionID uuid.UUID, options map[string]string) error {
	if d == nil || d.producer == nil {
		d.warnDegraded(templateName, contributionID)
		return nil
	}

	msg := Message{
		TemplateName:   templateName,
		RecipientID:    recipientID,
		ContributionID: contributionID,
		Options:        options,
		DispatchedAt:   time.Now().UTC(),
	}

	routingKey := "notification." + templateName
	if err := d.producer.Publish(ctx, d.exchange, routingKey, msg); err != nil {
		return fmt.Errorf("failed to publish notification %q: %w", templateName, err)
	}
	return nil
}

func (d *Dispatcher) warnDegraded(templateName string, contributionID uuid.UUID) {
	if d == nil {
		return
	}
	d.logger.Warn().
		Str("template", templateName).
		Str("contribution_id", contributionID.String()).
		Msg("notification broker unavailable; message dropped")
}
