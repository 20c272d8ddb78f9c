package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/felicity-registration/internal/model"
)

func seededStore() *MemoryStore {
	s := NewMemoryStore()
	s.PutEvent(&model.Event{ID: 1, OrganizerID: 9, Name: "Hackathon", Type: model.EventNormal, Status: model.EventPublished})
	s.PutParticipant(&model.Participant{ID: 5, Name: "Asha", Email: "asha@example.com", Category: model.CategoryIIIT})
	return s
}

func TestMemoryStoreRollsBackOnError(t *testing.T) {
	s := seededStore()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(tx Tx) error {
		ev, err := tx.LockEvent(ctx, 1)
		require.NoError(t, err)
		ev.CurrentRegistrations = 7
		require.NoError(t, tx.SaveEvent(ctx, ev))
		require.NoError(t, tx.InsertRegistration(ctx, &model.Registration{ParticipantID: 5, EventID: 1, Status: model.StatusConfirmed}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	ev, err := s.GetEvent(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, ev.CurrentRegistrations)
	regs, err := s.ListRegistrationsByParticipant(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, regs)
}

func TestMemoryStoreCommitAndLookups(t *testing.T) {
	s := seededStore()
	ctx := context.Background()

	var id uint64
	err := s.WithinTx(ctx, func(tx Tx) error {
		r := &model.Registration{ParticipantID: 5, EventID: 1, TicketID: "FEL-2026-ABCDE", Status: model.StatusConfirmed}
		if err := tx.InsertRegistration(ctx, r); err != nil {
			return err
		}
		id = r.ID

		// staged writes are visible inside the same transaction
		found, err := tx.FindActiveRegistration(ctx, 5, 1)
		require.NoError(t, err)
		assert.Equal(t, id, found.ID)
		exists, err := tx.TicketExists(ctx, "FEL-2026-ABCDE")
		require.NoError(t, err)
		assert.True(t, exists)
		return nil
	})
	require.NoError(t, err)

	r, err := s.FindRegistrationByTicket(ctx, "FEL-2026-ABCDE")
	require.NoError(t, err)
	assert.Equal(t, id, r.ID)
	assert.False(t, r.CreatedAt.IsZero())

	rows, err := s.ListExportRows(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Asha", rows[0].ParticipantName)
	assert.Equal(t, "asha@example.com", rows[0].ParticipantEmail)
}

func TestMemoryStoreCancelledRegistrationIsNotActive(t *testing.T) {
	s := seededStore()
	ctx := context.Background()

	require.NoError(t, s.WithinTx(ctx, func(tx Tx) error {
		return tx.InsertRegistration(ctx, &model.Registration{ParticipantID: 5, EventID: 1, Status: model.StatusCancelled})
	}))
	require.NoError(t, s.WithinTx(ctx, func(tx Tx) error {
		_, err := tx.FindActiveRegistration(ctx, 5, 1)
		assert.ErrorIs(t, err, model.ErrNotFound)
		return nil
	}))
}

func TestMemoryStoreRefusesDuplicateTicket(t *testing.T) {
	s := seededStore()
	ctx := context.Background()
	first := &model.Registration{ParticipantID: 5, EventID: 1, TicketID: "FEL-2026-ABCDE", Status: model.StatusConfirmed}
	require.NoError(t, s.WithinTx(ctx, func(tx Tx) error { return tx.InsertRegistration(ctx, first) }))

	err := s.WithinTx(ctx, func(tx Tx) error {
		return tx.InsertRegistration(ctx, &model.Registration{ParticipantID: 5, EventID: 1, TicketID: "FEL-2026-ABCDE"})
	})
	assert.ErrorIs(t, err, ErrTicketConflict)

	// rewriting a row with its own ticket is not a conflict
	require.NoError(t, s.WithinTx(ctx, func(tx Tx) error {
		r, err := tx.LockRegistration(ctx, first.ID)
		require.NoError(t, err)
		r.Attended = true
		return tx.UpdateRegistration(ctx, r)
	}))
}

func TestMemoryStoreMissingRows(t *testing.T) {
	s := seededStore()
	ctx := context.Background()

	_, err := s.GetEvent(ctx, 42)
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = s.GetRegistration(ctx, 42)
	assert.ErrorIs(t, err, model.ErrNotFound)
	err = s.WithinTx(ctx, func(tx Tx) error {
		return tx.UpdateRegistration(ctx, &model.Registration{ID: 42})
	})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestMemoryRollingCounterDropsOldEntries(t *testing.T) {
	c := NewMemoryRollingCounter()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, c.Incr(ctx, 1, "a", now.Add(-25*time.Hour)))
	require.NoError(t, c.Incr(ctx, 1, "b", now.Add(-2*time.Hour)))
	require.NoError(t, c.Incr(ctx, 1, "c", now))
	require.NoError(t, c.Incr(ctx, 2, "d", now))

	n, err := c.Count(ctx, 1, now)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.Equal(t, []string{"b", "c"}, c.Members(1))
}
