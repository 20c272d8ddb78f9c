package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/felicity-registration/internal/model"
)

func registered(t *testing.T, f *fixture, pid uint64) *model.Registration {
	t.Helper()
	reg, err := f.svc.Register(context.Background(), RegisterInput{ParticipantID: pid, EventID: 1})
	require.NoError(t, err)
	return reg
}

func TestVerifyMarksAttendanceOnce(t *testing.T) {
	f := newFixture(t)
	f.store.PutEvent(normalEvent(1, nil))
	ctx := context.Background()
	reg := registered(t, f, 1)

	f.clock = t0.Add(49 * time.Hour)
	v, err := f.svc.Verify(ctx, organizerID, reg.TicketID)
	require.NoError(t, err)
	assert.True(t, v.Registration.Attended)
	assert.Equal(t, "participant", v.ParticipantName)
	assert.Equal(t, "Hackathon", v.EventName)
	assert.Equal(t, 1, v.TotalAttendance)

	f.clock = t0.Add(50 * time.Hour)
	_, err = f.svc.Verify(ctx, organizerID, reg.TicketID)
	require.ErrorIs(t, err, model.ErrAlreadyScanned)
	var scanned *AlreadyScannedError
	require.ErrorAs(t, err, &scanned)
	assert.Equal(t, t0.Add(49*time.Hour), scanned.AttendedAt)
	assert.EqualValues(t, organizerID, scanned.ScannedBy)

	assert.Equal(t, 1, f.event(t, 1).TotalAttendance)
}

func TestVerifyAcceptsQRToken(t *testing.T) {
	f := newFixture(t)
	f.store.PutEvent(normalEvent(1, nil))
	reg := registered(t, f, 1)

	v, err := f.svc.Verify(context.Background(), organizerID, "  "+reg.TicketToken+"\n")
	require.NoError(t, err)
	assert.Equal(t, reg.ID, v.Registration.ID)
}

func TestVerifyConcurrentScansCountOnce(t *testing.T) {
	f := newFixture(t)
	f.store.PutEvent(normalEvent(1, nil))
	reg := registered(t, f, 1)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Verify(context.Background(), organizerID, reg.TicketID)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, model.ErrAlreadyScanned)
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, f.event(t, 1).TotalAttendance)
}

func TestVerifyRefusals(t *testing.T) {
	f := newFixture(t)
	f.store.PutEvent(normalEvent(1, nil))
	ctx := context.Background()
	reg := registered(t, f, 1)
	cancelled := registered(t, f, 3)
	_, err := f.svc.Cancel(ctx, model.AsParticipant(3), cancelled.ID)
	require.NoError(t, err)

	tests := []struct {
		name      string
		organizer uint64
		scanned   string
		wantErr   error
	}{
		{"unknown ticket", organizerID, "FEL-2026-ZZZZZ", model.ErrNotFound},
		{"empty input", organizerID, "   ", model.ErrInvalidInput},
		{"broken token", organizerID, "{not json", model.ErrInvalidInput},
		{"other organizer", organizerID + 1, reg.TicketID, model.ErrUnauthorized},
		{"cancelled ticket", organizerID, cancelled.TicketID, model.ErrInvalidState},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Verify(ctx, tt.organizer, tt.scanned)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Zero(t, f.event(t, 1).TotalAttendance)
	assert.False(t, f.registration(t, reg.ID).Attended)
}

func TestQueriesRespectOwnership(t *testing.T) {
	f := newFixture(t)
	f.store.PutEvent(normalEvent(1, nil))
	ctx := context.Background()
	a := registered(t, f, 1)
	registered(t, f, 3)

	mine, err := f.svc.MyRegistrations(ctx, 1)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, a.ID, mine[0].ID)

	_, err = f.svc.GetRegistration(ctx, model.AsParticipant(1), a.ID)
	require.NoError(t, err)
	_, err = f.svc.GetRegistration(ctx, model.AsOrganizer(organizerID), a.ID)
	require.NoError(t, err)
	_, err = f.svc.GetRegistration(ctx, model.AsParticipant(3), a.ID)
	assert.ErrorIs(t, err, model.ErrUnauthorized)

	rows, err := f.svc.EventRegistrations(ctx, organizerID, 1)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	_, err = f.svc.EventRegistrations(ctx, 1, 1)
	assert.ErrorIs(t, err, model.ErrUnauthorized)
}
