package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Publisher sends ticket notifications to RabbitMQ.  It dials per publish;
// volume is one message per confirmed registration, and a broker outage
// then costs nothing beyond the failed call.
type Publisher struct {
	url string
	log logrus.FieldLogger
}

// NewPublisher returns a publisher for the broker at url.
func NewPublisher(url string, log logrus.FieldLogger) *Publisher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Publisher{url: url, log: log}
}

// PublishTicketIssued publishes event to the ticket.issued queue as a
// persistent JSON message.  Errors are logged and returned so the caller
// can decide to ignore them.
func (p *Publisher) PublishTicketIssued(ctx context.Context, event TicketIssuedEvent) error {
	log := p.log.WithField("ticket_id", event.TicketID)
	conn, err := amqp.Dial(p.url)
	if err != nil {
		log.WithError(err).Warn("rabbitmq: dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.WithError(err).Warn("rabbitmq: channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(TicketIssuedQueue, true, false, false, false, nil); err != nil {
		log.WithError(err).Warn("rabbitmq: queue declare failed")
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	// default exchange, routing key = queue name
	if err := ch.PublishWithContext(ctx, "", TicketIssuedQueue, false, false, pub); err != nil {
		log.WithError(err).Warn("rabbitmq: publish failed")
		return err
	}
	return nil
}
