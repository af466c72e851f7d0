package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/league-registration/internal/config"
	"github.com/iliyamo/league-registration/internal/log"
)

// Publisher sends confirmation events to the configured queue. Each
// publish opens its own connection; volume is one message per team.
type Publisher struct {
	cfg config.QueueConfig
}

// NewPublisher returns a publisher for cfg.
func NewPublisher(cfg config.QueueConfig) *Publisher {
	return &Publisher{cfg: cfg}
}

// Enqueue publishes ev as a persistent JSON message. Errors are wrapped
// with the failing step and returned; logging them is up to the caller.
func (p *Publisher) Enqueue(ctx context.Context, ev RegistrationConfirmed) error {
	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}
	ctx, cancel := context.WithTimeout(ctx, p.cfg.PublishTimeout)
	defer cancel()

	conn, err := amqp.Dial(p.cfg.URL)
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(p.cfg.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.EventID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.cfg.Queue, false, false, pub); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	log.Debug(log.CatQueue, "published", "queue", p.cfg.Queue, "message_id", ev.EventID, "team", ev.TeamNumber)
	return nil
}
