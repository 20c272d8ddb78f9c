// Package repository persists events, participants and registrations.  All
// counter mutations go through Tx so that a capacity check and the
// registration write that depends on it commit or roll back together.
package repository

import (
	"context"
	"errors"

	"github.com/iliyamo/felicity-registration/internal/model"
)

// ErrTicketConflict reports that a registration write collided with a
// ticket id committed by a concurrent transaction.  TicketExists cannot see
// uncommitted rows, so the unique key is the final arbiter; the transaction
// has been rolled back and may be run again.
var ErrTicketConflict = errors.New("ticket id already taken")

// Store exposes non-locking reads and the transaction entry point.  Reads
// outside a transaction may be stale by the time a caller acts on them and
// must never feed a counter update.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error

	GetEvent(ctx context.Context, id uint64) (*model.Event, error)
	GetParticipant(ctx context.Context, id uint64) (*model.Participant, error)
	GetRegistration(ctx context.Context, id uint64) (*model.Registration, error)
	FindRegistrationByTicket(ctx context.Context, ticketID string) (*model.Registration, error)
	ListRegistrationsByParticipant(ctx context.Context, participantID uint64) ([]model.Registration, error)
	ListExportRows(ctx context.Context, eventID uint64) ([]model.ExportRow, error)
}

// Tx is a unit of work.  Lock methods hold the row until commit, so callers
// lock the event before any of its registrations to keep a single lock order.
// Missing rows are reported as model.ErrNotFound.
type Tx interface {
	LockEvent(ctx context.Context, id uint64) (*model.Event, error)
	SaveEvent(ctx context.Context, ev *model.Event) error

	LockRegistration(ctx context.Context, id uint64) (*model.Registration, error)
	FindActiveRegistration(ctx context.Context, participantID, eventID uint64) (*model.Registration, error)
	TicketExists(ctx context.Context, ticketID string) (bool, error)
	InsertRegistration(ctx context.Context, r *model.Registration) error
	UpdateRegistration(ctx context.Context, r *model.Registration) error
}
