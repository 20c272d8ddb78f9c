package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Consumer drains the ticket.issued queue into a Mailer.
type Consumer struct {
	url    string
	mailer Mailer
	log    logrus.FieldLogger
}

// NewConsumer returns a consumer for the broker at url.
func NewConsumer(url string, mailer Mailer, log logrus.FieldLogger) *Consumer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Consumer{url: url, mailer: mailer, log: log}
}

// Run connects, declares the queue and consumes until ctx is cancelled.
// Broker failures trigger a reconnect with exponential backoff capped at
// thirty seconds.  A message that cannot be handled is rejected without
// requeue so a poison message cannot spin the loop.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.WithError(err).Warnf("ticket-consumer: dial failed, retrying in %s", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.WithError(err).Warn("ticket-consumer: consume loop ended, reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.WithError(err).Warn("ticket-consumer: set QoS failed")
	}
	if _, err := ch.QueueDeclare(TicketIssuedQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(TicketIssuedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.Handle(ctx, d.Body); err != nil {
				c.log.WithError(err).Warn("ticket-consumer: handle message failed")
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle decodes one message body and sends the rendered mail.
func (c *Consumer) Handle(ctx context.Context, body []byte) error {
	var ev TicketIssuedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.TicketID == "" || ev.ParticipantEmail == "" {
		return errors.New("ticket event without ticket id or recipient")
	}
	if err := c.mailer.Send(ctx, RenderTicketMail(ev)); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	c.log.WithFields(logrus.Fields{
		"ticket_id": ev.TicketID,
		"event_id":  ev.EventID,
	}).Info("ticket mail sent")
	return nil
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
