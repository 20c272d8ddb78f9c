package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/felicity-registration/internal/model"
	"github.com/iliyamo/felicity-registration/internal/repository"
)

// Approve confirms a purchase whose payment proof the organizer accepted.
// The variant units, the ticket, the revenue and the state change commit
// as one unit; if the units are gone by now the approval fails with the
// stock error and nothing changes.
func (s *Service) Approve(ctx context.Context, organizerID, regID uint64) (*model.Registration, error) {
	l := s.entry("approve", logrus.Fields{"registration_id": regID, "organizer_id": organizerID})
	pre, err := s.store.GetRegistration(ctx, regID)
	if err != nil {
		s.logOutcome(l, err)
		return nil, err
	}
	p, err := s.store.GetParticipant(ctx, pre.ParticipantID)
	if err != nil {
		s.logOutcome(l, err)
		return nil, err
	}

	now := s.now()
	var reg *model.Registration
	var snapshot *model.Event
	err = s.withinTicketTx(ctx, l, func(tx repository.Tx) error {
		ev, r, err := lockPair(ctx, tx, pre.EventID, regID)
		if err != nil {
			return err
		}
		if ev.OrganizerID != organizerID {
			return model.ErrUnauthorized
		}
		if r.PaymentStatus != model.PaymentPendingApproval || r.Status != model.StatusPending {
			return fmt.Errorf("%w: payment is %s", model.ErrInvalidState, r.PaymentStatus)
		}
		if r.Merchandise != nil {
			key := r.Merchandise.Key()
			if err := TryReserve(ev, &key, r.Merchandise.Quantity); err != nil {
				return err
			}
		}

		ticketID, token, err := s.tickets.Issue(ctx, tx, p, ev, now)
		if err != nil {
			return err
		}
		approvedAt := now
		approver := organizerID
		r.TicketID = ticketID
		r.TicketToken = token
		r.Status = model.StatusConfirmed
		r.PaymentStatus = model.PaymentPaid
		r.ApprovedBy = &approver
		r.ApprovedAt = &approvedAt
		r.RejectionReason = nil
		ev.TotalRevenue += r.AmountPaid

		if err := tx.UpdateRegistration(ctx, r); err != nil {
			return err
		}
		if err := tx.SaveEvent(ctx, ev); err != nil {
			return err
		}
		reg, snapshot = r, ev
		return nil
	})
	if err != nil {
		s.logOutcome(l, err)
		return nil, err
	}
	l.WithField("ticket_id", reg.TicketID).Info("payment approved")
	s.notify(p, snapshot, reg)
	return reg, nil
}

// Reject turns down a pending payment with a reason the participant will
// see.  The uploaded proof is discarded; no stock or revenue moved, so
// none is restored.
func (s *Service) Reject(ctx context.Context, organizerID, regID uint64, reason string) (*model.Registration, error) {
	l := s.entry("reject", logrus.Fields{"registration_id": regID, "organizer_id": organizerID})
	reason = strings.TrimSpace(reason)
	if utf8.RuneCountInString(reason) < s.rejectionReasonMin {
		err := fmt.Errorf("%w: rejection reason must be at least %d characters", model.ErrInvalidInput, s.rejectionReasonMin)
		s.logOutcome(l, err)
		return nil, err
	}
	eventID, err := s.eventOf(ctx, regID)
	if err != nil {
		s.logOutcome(l, err)
		return nil, err
	}

	var reg *model.Registration
	err = s.store.WithinTx(ctx, func(tx repository.Tx) error {
		ev, r, err := lockPair(ctx, tx, eventID, regID)
		if err != nil {
			return err
		}
		if ev.OrganizerID != organizerID {
			return model.ErrUnauthorized
		}
		if r.PaymentStatus != model.PaymentPendingApproval || r.Status != model.StatusPending {
			return fmt.Errorf("%w: payment is %s", model.ErrInvalidState, r.PaymentStatus)
		}
		r.Status = model.StatusRejected
		r.PaymentStatus = model.PaymentUnpaid
		r.PaymentProof = nil
		r.RejectionReason = &reason
		if err := tx.UpdateRegistration(ctx, r); err != nil {
			return err
		}
		reg = r
		return nil
	})
	if err != nil {
		s.logOutcome(l, err)
		return nil, err
	}
	l.Info("payment rejected")
	return reg, nil
}

// Resubmit stores a new payment proof from the participant and puts the
// purchase back in the approval queue.  It works on a purchase still
// awaiting approval or one that was rejected, never on a paid one.
func (s *Service) Resubmit(ctx context.Context, participantID, regID uint64, proof string) (*model.Registration, error) {
	l := s.entry("resubmit", logrus.Fields{"registration_id": regID, "participant_id": participantID})
	proof = strings.TrimSpace(proof)
	if proof == "" {
		err := fmt.Errorf("%w: payment proof is required", model.ErrInvalidInput)
		s.logOutcome(l, err)
		return nil, err
	}
	eventID, err := s.eventOf(ctx, regID)
	if err != nil {
		s.logOutcome(l, err)
		return nil, err
	}

	var reg *model.Registration
	err = s.store.WithinTx(ctx, func(tx repository.Tx) error {
		_, r, err := lockPair(ctx, tx, eventID, regID)
		if err != nil {
			return err
		}
		if r.ParticipantID != participantID {
			return model.ErrUnauthorized
		}
		awaiting := r.PaymentStatus == model.PaymentPendingApproval && r.Status == model.StatusPending
		rejected := r.PaymentStatus == model.PaymentUnpaid && r.Status == model.StatusRejected
		if !awaiting && !rejected {
			return fmt.Errorf("%w: registration is %s/%s", model.ErrInvalidState, r.Status, r.PaymentStatus)
		}
		r.Status = model.StatusPending
		r.PaymentStatus = model.PaymentPendingApproval
		r.PaymentProof = &proof
		r.RejectionReason = nil
		if err := tx.UpdateRegistration(ctx, r); err != nil {
			return err
		}
		reg = r
		return nil
	})
	if err != nil {
		s.logOutcome(l, err)
		return nil, err
	}
	l.Info("payment proof resubmitted")
	return reg, nil
}
