package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/felicity-registration/internal/model"
	"github.com/iliyamo/felicity-registration/internal/repository"
)

// RegisterInput is a participant's request for a seat at a NORMAL event.
type RegisterInput struct {
	ParticipantID uint64
	EventID       uint64
	FormResponse  map[string]any
}

// PurchaseInput is a participant's request for merchandise.
type PurchaseInput struct {
	ParticipantID uint64
	EventID       uint64
	Size          string
	Color         string
	Quantity      int
	PaymentProof  string
}

// Register admits a participant to a NORMAL event.  Preconditions are
// checked in a fixed order and the first failure is returned: the event
// exists, is published, the participant holds no live registration for it,
// is eligible, the deadline has not passed, and a seat is free.  On
// success the seat, the ticket and the confirmed registration commit
// together.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*model.Registration, error) {
	l := s.entry("register", logrus.Fields{"event_id": in.EventID, "participant_id": in.ParticipantID})
	p, err := s.store.GetParticipant(ctx, in.ParticipantID)
	if err != nil {
		s.logOutcome(l, err)
		return nil, err
	}

	now := s.now()
	var reg *model.Registration
	var snapshot *model.Event
	err = s.withinTicketTx(ctx, l, func(tx repository.Tx) error {
		ev, err := tx.LockEvent(ctx, in.EventID)
		if err != nil {
			return err
		}
		if ev.Type != model.EventNormal {
			return fmt.Errorf("%w: merchandise events take purchases, not registrations", model.ErrInvalidState)
		}
		if ev.Status != model.EventPublished {
			return fmt.Errorf("%w: event is %s", model.ErrInvalidState, ev.Status)
		}
		if err := noLiveRegistration(ctx, tx, p.ID, ev.ID); err != nil {
			return err
		}
		if !IsEligible(ev.Eligibility, p.Category) {
			return model.ErrIneligible
		}
		if !ev.RegistrationDeadline.IsZero() && !now.Before(ev.RegistrationDeadline) {
			return model.ErrDeadlinePassed
		}
		if err := validateForm(ev.CustomForm, in.FormResponse); err != nil {
			return err
		}
		if err := TryReserve(ev, nil, 1); err != nil {
			return err
		}

		ticketID, token, err := s.tickets.Issue(ctx, tx, p, ev, now)
		if err != nil {
			return err
		}
		payment := model.PaymentPaid
		if ev.RegistrationFee > 0 {
			payment = model.PaymentUnpaid
		}
		reg = &model.Registration{
			ParticipantID: p.ID,
			EventID:       ev.ID,
			TicketID:      ticketID,
			TicketToken:   token,
			Type:          model.EventNormal,
			Status:        model.StatusConfirmed,
			PaymentStatus: payment,
			FormResponse:  in.FormResponse,
		}
		if err := tx.InsertRegistration(ctx, reg); err != nil {
			return err
		}
		// The form is frozen by the first registration and stays frozen.
		ev.FormLocked = true
		if err := tx.SaveEvent(ctx, ev); err != nil {
			return err
		}
		snapshot = ev
		return nil
	})
	if err != nil {
		s.logOutcome(l, err)
		return nil, err
	}

	l.WithField("ticket_id", reg.TicketID).Info("registration confirmed")
	s.countRegistration(ctx, reg, now)
	s.notify(p, snapshot, reg)
	return reg, nil
}

// Purchase records a merchandise order awaiting payment approval.  Stock is
// only checked here; it is taken when an organizer approves the payment.
func (s *Service) Purchase(ctx context.Context, in PurchaseInput) (*model.Registration, error) {
	l := s.entry("purchase", logrus.Fields{"event_id": in.EventID, "participant_id": in.ParticipantID})
	p, err := s.store.GetParticipant(ctx, in.ParticipantID)
	if err != nil {
		s.logOutcome(l, err)
		return nil, err
	}

	var reg *model.Registration
	err = s.store.WithinTx(ctx, func(tx repository.Tx) error {
		ev, err := tx.LockEvent(ctx, in.EventID)
		if err != nil {
			return err
		}
		if ev.Type != model.EventMerchandise {
			return fmt.Errorf("%w: event does not sell merchandise", model.ErrInvalidState)
		}
		if ev.Status != model.EventPublished {
			return fmt.Errorf("%w: event is %s", model.ErrInvalidState, ev.Status)
		}
		if err := noLiveRegistration(ctx, tx, p.ID, ev.ID); err != nil {
			return err
		}
		key := model.VariantKey{Size: strings.TrimSpace(in.Size), Color: strings.TrimSpace(in.Color)}
		vs, err := CheckPurchase(ev.Merchandise, key, in.Quantity)
		if err != nil {
			return err
		}
		if vs.Index != noVariant {
			// store the canonical key so approval finds the variant exactly
			key = ev.Merchandise.Variants[vs.Index].Key()
		}
		unit := ev.RegistrationFee
		if vs.UnitPrice > 0 {
			unit = vs.UnitPrice
		}

		reg = &model.Registration{
			ParticipantID: p.ID,
			EventID:       ev.ID,
			Type:          model.EventMerchandise,
			Status:        model.StatusPending,
			PaymentStatus: model.PaymentPendingApproval,
			Merchandise:   &model.MerchandiseDetails{Size: key.Size, Color: key.Color, Quantity: in.Quantity},
			AmountPaid:    unit * int64(in.Quantity),
		}
		if proof := strings.TrimSpace(in.PaymentProof); proof != "" {
			reg.PaymentProof = &proof
		}
		return tx.InsertRegistration(ctx, reg)
	})
	if err != nil {
		s.logOutcome(l, err)
		return nil, err
	}
	l.WithField("registration_id", reg.ID).Info("purchase awaiting approval")
	return reg, nil
}

// Cancel withdraws a registration before the event starts.  A participant
// may cancel its own registration and an organizer any registration of its
// event; the actor's role decides which of the two applies.  A confirmed NORMAL
// registration gives its seat back; an approved purchase gives its units
// back and is marked refunded.
func (s *Service) Cancel(ctx context.Context, actor model.Actor, regID uint64) (*model.Registration, error) {
	l := s.entry("cancel", logrus.Fields{"registration_id": regID, "actor_id": actor.ID, "role": actor.Role})
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
		if !mayAccess(actor, r, ev) {
			return model.ErrUnauthorized
		}
		if r.Status == model.StatusCancelled || r.Status == model.StatusCompleted {
			return fmt.Errorf("%w: registration is %s", model.ErrInvalidState, r.Status)
		}
		if !s.now().Before(ev.StartDate) {
			return fmt.Errorf("%w: event has already started", model.ErrInvalidState)
		}

		switch {
		case r.Type == model.EventNormal && r.Status == model.StatusConfirmed:
			Release(ev, nil, 1)
		case r.Type == model.EventMerchandise && r.PaymentStatus == model.PaymentPaid && r.Merchandise != nil:
			key := r.Merchandise.Key()
			Release(ev, &key, r.Merchandise.Quantity)
			ev.TotalRevenue -= r.AmountPaid
			if ev.TotalRevenue < 0 {
				ev.TotalRevenue = 0
			}
		}

		switch r.PaymentStatus {
		case model.PaymentPaid:
			if r.Type == model.EventMerchandise {
				r.PaymentStatus = model.PaymentRefunded
			}
		case model.PaymentPendingApproval:
			r.PaymentStatus = model.PaymentUnpaid
		}
		r.Status = model.StatusCancelled
		if err := tx.UpdateRegistration(ctx, r); err != nil {
			return err
		}
		if err := tx.SaveEvent(ctx, ev); err != nil {
			return err
		}
		reg = r
		return nil
	})
	if err != nil {
		s.logOutcome(l, err)
		return nil, err
	}
	l.Info("registration cancelled")
	return reg, nil
}

func noLiveRegistration(ctx context.Context, tx repository.Tx, participantID, eventID uint64) error {
	_, err := tx.FindActiveRegistration(ctx, participantID, eventID)
	switch {
	case err == nil:
		return model.ErrAlreadyRegistered
	case errors.Is(err, model.ErrNotFound):
		return nil
	default:
		return err
	}
}

// validateForm checks that every required field of the event's custom form
// has a non-empty answer.
func validateForm(form []model.FormField, resp map[string]any) error {
	for _, f := range form {
		if !f.Required {
			continue
		}
		v, ok := resp[f.Label]
		if !ok || v == nil {
			return fmt.Errorf("%w: missing answer for %q", model.ErrInvalidInput, f.Label)
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			return fmt.Errorf("%w: missing answer for %q", model.ErrInvalidInput, f.Label)
		}
	}
	return nil
}
