// Package queue carries ticket notifications over RabbitMQ.  The
// registration engine publishes after commit; the consumer turns each
// message into a confirmation mail.
package queue

import "time"

// TicketIssuedQueue is the durable queue ticket notifications travel on.
const TicketIssuedQueue = "ticket.issued"

// TicketIssuedEvent is published once a registration holds a ticket.  It
// carries everything the mail needs so the consumer never queries the
// primary database.
type TicketIssuedEvent struct {
	TicketID         string    `json:"ticket_id"`
	RegistrationID   uint64    `json:"registration_id"`
	ParticipantID    uint64    `json:"participant_id"`
	ParticipantName  string    `json:"participant_name"`
	ParticipantEmail string    `json:"participant_email"`
	EventID          uint64    `json:"event_id"`
	EventName        string    `json:"event_name"`
	EventDate        time.Time `json:"event_date"`
	RegistrationType string    `json:"registration_type"`
	AmountPaid       int64     `json:"amount_paid"`
	QRPayload        string    `json:"qr_payload"`
	IssuedAt         time.Time `json:"issued_at"`
}
