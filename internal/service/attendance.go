package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/felicity-registration/internal/model"
	"github.com/iliyamo/felicity-registration/internal/repository"
)

// AlreadyScannedError reports a ticket that was checked in before, with
// the details of that first scan.  It matches model.ErrAlreadyScanned.
type AlreadyScannedError struct {
	TicketID   string
	AttendedAt time.Time
	ScannedBy  uint64
}

func (e *AlreadyScannedError) Error() string {
	return fmt.Sprintf("ticket %s already scanned at %s", e.TicketID, e.AttendedAt.Format(time.RFC3339))
}

func (e *AlreadyScannedError) Unwrap() error { return model.ErrAlreadyScanned }

// Verification is the result of a successful scan.
type Verification struct {
	Registration    *model.Registration `json:"registration"`
	ParticipantName string              `json:"participant_name"`
	EventName       string              `json:"event_name"`
	TotalAttendance int                 `json:"total_attendance"`
}

// Verify checks in the holder of a ticket.  scanned may be the bare ticket
// id or the full JSON token from the QR code.  The attended flag is tested
// and set under the event lock, so a retried scan is refused rather than
// counted twice.
func (s *Service) Verify(ctx context.Context, organizerID uint64, scanned string) (*Verification, error) {
	l := s.entry("verify", logrus.Fields{"organizer_id": organizerID})
	ticketID, err := ticketIDFromScan(scanned)
	if err != nil {
		s.logOutcome(l, err)
		return nil, err
	}
	l = l.WithField("ticket_id", ticketID)
	pre, err := s.store.FindRegistrationByTicket(ctx, ticketID)
	if err != nil {
		s.logOutcome(l, err)
		return nil, err
	}

	var out *Verification
	err = s.store.WithinTx(ctx, func(tx repository.Tx) error {
		ev, r, err := lockPair(ctx, tx, pre.EventID, pre.ID)
		if err != nil {
			return err
		}
		if ev.OrganizerID != organizerID {
			return model.ErrUnauthorized
		}
		if r.Attended {
			e := &AlreadyScannedError{TicketID: r.TicketID}
			if r.AttendedAt != nil {
				e.AttendedAt = *r.AttendedAt
			}
			if r.ScannedBy != nil {
				e.ScannedBy = *r.ScannedBy
			}
			return e
		}
		if r.Status != model.StatusConfirmed {
			return fmt.Errorf("%w: registration is %s", model.ErrInvalidState, r.Status)
		}
		at := s.now()
		scanner := organizerID
		r.Attended = true
		r.AttendedAt = &at
		r.ScannedBy = &scanner
		ev.TotalAttendance++
		if err := tx.UpdateRegistration(ctx, r); err != nil {
			return err
		}
		if err := tx.SaveEvent(ctx, ev); err != nil {
			return err
		}
		out = &Verification{Registration: r, EventName: ev.Name, TotalAttendance: ev.TotalAttendance}
		return nil
	})
	if err != nil {
		s.logOutcome(l, err)
		return nil, err
	}
	if p, err := s.store.GetParticipant(ctx, out.Registration.ParticipantID); err == nil {
		out.ParticipantName = p.Name
	}
	l.Info("attendance marked")
	return out, nil
}

func ticketIDFromScan(scanned string) (string, error) {
	scanned = strings.TrimSpace(scanned)
	if strings.HasPrefix(scanned, "{") {
		p, err := DecodeTicketToken(scanned)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(p.TicketID), nil
	}
	if scanned == "" {
		return "", fmt.Errorf("%w: ticket id is required", model.ErrInvalidInput)
	}
	return scanned, nil
}
