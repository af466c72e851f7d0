package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/iliyamo/league-registration/internal/config"
	"github.com/iliyamo/league-registration/internal/log"
	"github.com/iliyamo/league-registration/internal/tracing"
)

const maxBackoff = 30 * time.Second

// Consumer drains the confirmation queue and hands each event to a
// handler. A failing message is rejected without requeue so a poison
// message cannot spin the loop.
type Consumer struct {
	cfg    config.QueueConfig
	handle HandlerFunc
	tracer trace.Tracer
}

// NewConsumer returns a consumer for cfg. tracer may be nil.
func NewConsumer(cfg config.QueueConfig, handle HandlerFunc, tracer trace.Tracer) *Consumer {
	if tracer == nil {
		tracer = tracing.Noop()
	}
	return &Consumer{cfg: cfg, handle: handle, tracer: tracer}
}

// Run connects and consumes until ctx is cancelled, reconnecting with
// exponential backoff whenever the broker goes away.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.cfg.URL)
		if err != nil {
			log.Warn(log.CatQueue, "failed to dial broker; retrying", "error", err.Error(), "backoff", backoff.String())
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < maxBackoff {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn(log.CatQueue, "consume loop ended; reconnecting", "error", fmt.Sprint(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		log.Warn(log.CatQueue, "set QoS failed", "error", err.Error())
	}
	if _, err := ch.QueueDeclare(c.cfg.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(c.cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	log.Info(log.CatQueue, "consuming", "queue", c.cfg.Queue, "prefetch", c.cfg.Prefetch)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.HandleDelivery(ctx, d.MessageId, d.Body); err != nil {
				log.ErrorErr(log.CatQueue, "handle message failed", err, "message_id", d.MessageId)
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// HandleDelivery decodes one message body and runs the handler inside a
// span.
func (c *Consumer) HandleDelivery(ctx context.Context, messageID string, body []byte) (err error) {
	ctx, span := c.tracer.Start(ctx, tracing.SpanHandleMessage, trace.WithSpanKind(trace.SpanKindConsumer))
	span.SetAttributes(attribute.String(tracing.AttrMessageID, messageID), attribute.String(tracing.AttrQueue, c.cfg.Queue))
	defer func() { tracing.End(span, err) }()

	var ev RegistrationConfirmed
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	span.SetAttributes(attribute.String(tracing.AttrTeamNumber, ev.TeamNumber))
	return c.handle(ctx, ev)
}
