package service

import (
	"context"
	"encoding/base32"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/felicity-registration/internal/model"
	"github.com/iliyamo/felicity-registration/internal/repository"
)

const (
	defaultTicketPrefix = "FEL"
	ticketCodeLen       = 5
	maxTicketAttempts   = 5
)

var errTicketSpace = errors.New("could not allocate a unique ticket id")

// TicketPayload is what a ticket QR code carries.  It is encoded as JSON so
// scanners can hand the whole payload back to Verify.
type TicketPayload struct {
	TicketID        string    `json:"ticketId"`
	ParticipantID   uint64    `json:"participantId"`
	ParticipantName string    `json:"participantName"`
	EventID         uint64    `json:"eventId"`
	EventName       string    `json:"eventName"`
	EventDate       time.Time `json:"eventDate"`
}

// TicketIssuer mints ticket ids of the form PREFIX-YEAR-CODE, where CODE is
// five base32 characters taken from a random UUID.
type TicketIssuer struct {
	prefix string
	newID  func() uuid.UUID
}

// NewTicketIssuer returns an issuer using prefix, or FEL when empty.
func NewTicketIssuer(prefix string) *TicketIssuer {
	if prefix == "" {
		prefix = defaultTicketPrefix
	}
	return &TicketIssuer{prefix: prefix, newID: uuid.New}
}

// NewID returns a candidate ticket id for the given issue time.
func (t *TicketIssuer) NewID(at time.Time) string {
	id := t.newID()
	code := base32.StdEncoding.EncodeToString(id[:])[:ticketCodeLen]
	return fmt.Sprintf("%s-%d-%s", t.prefix, at.Year(), strings.ToUpper(code))
}

// Issue picks an id not yet used by any registration visible to tx and
// builds the ticket token.  Persisting both is the caller's job.
func (t *TicketIssuer) Issue(ctx context.Context, tx repository.Tx, p *model.Participant, ev *model.Event, at time.Time) (string, string, error) {
	for attempt := 0; attempt < maxTicketAttempts; attempt++ {
		id := t.NewID(at)
		taken, err := tx.TicketExists(ctx, id)
		if err != nil {
			return "", "", err
		}
		if taken {
			continue
		}
		token, err := EncodeTicketToken(TicketPayload{
			TicketID:        id,
			ParticipantID:   p.ID,
			ParticipantName: p.Name,
			EventID:         ev.ID,
			EventName:       ev.Name,
			EventDate:       ev.StartDate,
		})
		if err != nil {
			return "", "", err
		}
		return id, token, nil
	}
	return "", "", errTicketSpace
}

// EncodeTicketToken serializes a payload for the QR code.
func EncodeTicketToken(p TicketPayload) (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode ticket token: %w", err)
	}
	return string(b), nil
}

// DecodeTicketToken parses a token produced by EncodeTicketToken.
func DecodeTicketToken(token string) (TicketPayload, error) {
	var p TicketPayload
	if err := json.Unmarshal([]byte(token), &p); err != nil {
		return TicketPayload{}, fmt.Errorf("%w: malformed ticket token", model.ErrInvalidInput)
	}
	if p.TicketID == "" {
		return TicketPayload{}, fmt.Errorf("%w: ticket token without ticketId", model.ErrInvalidInput)
	}
	return p, nil
}
