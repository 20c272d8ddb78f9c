package service

import (
	"context"
	"fmt"

	"github.com/iliyamo/felicity-registration/internal/model"
	"github.com/iliyamo/felicity-registration/internal/repository"
)

// Availability summarizes what is left of an event.
type Availability struct {
	EventID              uint64             `json:"event_id"`
	Status               model.EventStatus  `json:"status"`
	RegistrationLimit    *int               `json:"registration_limit,omitempty"`
	CurrentRegistrations int                `json:"current_registrations"`
	SeatsLeft            *int               `json:"seats_left,omitempty"`
	Variants             []VariantAvailable `json:"variants,omitempty"`
	RegisteredLast24h    int64              `json:"registered_last_24h"`
}

// VariantAvailable is the resolved stock of one merchandise variant.
type VariantAvailable struct {
	Size      string `json:"size"`
	Color     string `json:"color"`
	Price     int64  `json:"price"`
	Available int    `json:"available"`
}

// Availability reads the event without locking; the numbers are advisory.
func (s *Service) Availability(ctx context.Context, eventID uint64) (*Availability, error) {
	ev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	out := &Availability{
		EventID:              ev.ID,
		Status:               ev.Status,
		RegistrationLimit:    ev.RegistrationLimit,
		CurrentRegistrations: ev.CurrentRegistrations,
	}
	if ev.RegistrationLimit != nil {
		left := *ev.RegistrationLimit - ev.CurrentRegistrations
		if left < 0 {
			left = 0
		}
		out.SeatsLeft = &left
	}
	if ev.Merchandise != nil {
		for _, v := range ev.Merchandise.Variants {
			vs, err := ResolveVariantStock(ev.Merchandise, v.Key())
			if err != nil {
				return nil, err
			}
			out.Variants = append(out.Variants, VariantAvailable{Size: v.Size, Color: v.Color, Price: v.Price, Available: vs.Available})
		}
	}
	if s.counter != nil {
		n, err := s.counter.Count(ctx, ev.ID, s.now())
		if err != nil {
			s.log.WithError(err).WithField("event_id", ev.ID).Warn("rolling registration counter unavailable")
		}
		out.RegisteredLast24h = n
	}
	return out, nil
}

// MyRegistrations lists a participant's registrations, newest first.
func (s *Service) MyRegistrations(ctx context.Context, participantID uint64) ([]model.Registration, error) {
	return s.store.ListRegistrationsByParticipant(ctx, participantID)
}

// GetRegistration returns a registration to its participant or to the
// organizer of its event.
func (s *Service) GetRegistration(ctx context.Context, viewer model.Actor, regID uint64) (*model.Registration, error) {
	r, err := s.store.GetRegistration(ctx, regID)
	if err != nil {
		return nil, err
	}
	ev, err := s.store.GetEvent(ctx, r.EventID)
	if err != nil {
		return nil, err
	}
	if !mayAccess(viewer, r, ev) {
		return nil, model.ErrUnauthorized
	}
	return r, nil
}

// EventRegistrations returns the export rows of an event to its organizer.
func (s *Service) EventRegistrations(ctx context.Context, organizerID, eventID uint64) ([]model.ExportRow, error) {
	ev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if ev.OrganizerID != organizerID {
		return nil, model.ErrUnauthorized
	}
	return s.store.ListExportRows(ctx, eventID)
}

// UpdateCustomForm replaces an event's registration form.  Once the first
// registration has landed the form is locked and cannot change again.
func (s *Service) UpdateCustomForm(ctx context.Context, organizerID, eventID uint64, form []model.FormField) (*model.Event, error) {
	for _, f := range form {
		if f.Label == "" {
			return nil, fmt.Errorf("%w: form field without label", model.ErrInvalidInput)
		}
	}
	var out *model.Event
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		ev, err := tx.LockEvent(ctx, eventID)
		if err != nil {
			return err
		}
		if ev.OrganizerID != organizerID {
			return model.ErrUnauthorized
		}
		if ev.FormLocked {
			return fmt.Errorf("%w: form is locked after the first registration", model.ErrInvalidState)
		}
		ev.CustomForm = form
		if err := tx.SaveEvent(ctx, ev); err != nil {
			return err
		}
		out = ev
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
