package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/felicity-registration/internal/model"
	"github.com/iliyamo/felicity-registration/internal/repository"
)

var ticketPattern = regexp.MustCompile(`^FEL-2026-[A-Z2-7]{5}$`)

func TestTicketIssuerFormat(t *testing.T) {
	issuer := NewTicketIssuer("")
	seen := map[string]bool{}
	for range 200 {
		id := issuer.NewID(t0)
		assert.Regexp(t, ticketPattern, id)
		seen[id] = true
	}
	assert.Greater(t, len(seen), 190)
}

func TestTicketIssuerRetriesOnCollision(t *testing.T) {
	ids := []uuid.UUID{
		uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
		uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
		uuid.MustParse("f47ac10b-58cc-4372-a567-0e02b2c3d479"),
	}
	next := 0
	issuer := NewTicketIssuer("")
	issuer.newID = func() uuid.UUID {
		id := ids[next]
		next++
		return id
	}
	taken := issuer.NewID(t0)
	next = 0

	store := repository.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.WithinTx(ctx, func(tx repository.Tx) error {
		return tx.InsertRegistration(ctx, &model.Registration{TicketID: taken, Status: model.StatusConfirmed})
	}))

	p := &model.Participant{ID: 7, Name: "Ravi"}
	ev := &model.Event{ID: 3, Name: "Hackathon", StartDate: t0.Add(48 * time.Hour)}
	var id, token string
	require.NoError(t, store.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		id, token, err = issuer.Issue(ctx, tx, p, ev, t0)
		return err
	}))
	assert.NotEqual(t, taken, id)
	assert.Equal(t, 3, next, "both colliding candidates were skipped")

	payload, err := DecodeTicketToken(token)
	require.NoError(t, err)
	assert.Equal(t, TicketPayload{
		TicketID:        id,
		ParticipantID:   7,
		ParticipantName: "Ravi",
		EventID:         3,
		EventName:       "Hackathon",
		EventDate:       t0.Add(48 * time.Hour),
	}, payload)
}

func TestTicketIssuerGivesUp(t *testing.T) {
	fixed := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	issuer := NewTicketIssuer("")
	issuer.newID = func() uuid.UUID { return fixed }

	store := repository.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.WithinTx(ctx, func(tx repository.Tx) error {
		return tx.InsertRegistration(ctx, &model.Registration{TicketID: issuer.NewID(t0)})
	}))
	err := store.WithinTx(ctx, func(tx repository.Tx) error {
		_, _, err := issuer.Issue(ctx, tx, &model.Participant{}, &model.Event{}, t0)
		return err
	})
	assert.ErrorIs(t, err, errTicketSpace)
	assert.Equal(t, "INTERNAL", model.ErrorCode(err))
}

// collidingStore loses the next conflicts registration writes to a ticket
// id committed elsewhere, the way the unique key reports it under MySQL.
type collidingStore struct {
	*repository.MemoryStore
	conflicts int
}

func (s *collidingStore) WithinTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	return s.MemoryStore.WithinTx(ctx, func(tx repository.Tx) error {
		return fn(&collidingTx{Tx: tx, s: s})
	})
}

type collidingTx struct {
	repository.Tx
	s *collidingStore
}

func (t *collidingTx) collide() bool {
	if t.s.conflicts == 0 {
		return false
	}
	t.s.conflicts--
	return true
}

func (t *collidingTx) InsertRegistration(ctx context.Context, r *model.Registration) error {
	if t.collide() {
		return repository.ErrTicketConflict
	}
	return t.Tx.InsertRegistration(ctx, r)
}

func (t *collidingTx) UpdateRegistration(ctx context.Context, r *model.Registration) error {
	if t.collide() {
		return repository.ErrTicketConflict
	}
	return t.Tx.UpdateRegistration(ctx, r)
}

func newCollidingService(t *testing.T, conflicts int) (*collidingStore, *Service) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	store := &collidingStore{MemoryStore: repository.NewMemoryStore(), conflicts: conflicts}
	store.PutParticipant(&model.Participant{ID: 1, Name: "participant", Category: model.CategoryIIIT})
	store.PutEvent(normalEvent(1, intPtr(5)))
	store.PutEvent(merchEvent(2))
	svc := New(store, WithClock(func() time.Time { return t0 }), WithLogger(logger))
	return store, svc
}

func TestRegisterRetriesTicketConflict(t *testing.T) {
	store, svc := newCollidingService(t, 1)
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegisterInput{ParticipantID: 1, EventID: 1})
	require.NoError(t, err)
	assert.Regexp(t, ticketPattern, reg.TicketID)
	assert.Zero(t, store.conflicts)

	ev, err := store.GetEvent(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, ev.CurrentRegistrations, "the rolled back attempt takes no seat")
}

func TestRegisterGivesUpAfterRepeatedConflicts(t *testing.T) {
	store, svc := newCollidingService(t, maxTicketConflicts)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{ParticipantID: 1, EventID: 1})
	require.ErrorIs(t, err, repository.ErrTicketConflict)
	assert.Equal(t, "INTERNAL", model.ErrorCode(err))

	ev, err := store.GetEvent(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, ev.CurrentRegistrations)
}

func TestApproveRetriesTicketConflict(t *testing.T) {
	store, svc := newCollidingService(t, 0)
	ctx := context.Background()
	reg, err := svc.Purchase(ctx, PurchaseInput{ParticipantID: 1, EventID: 2, Size: "S", Color: "Black", Quantity: 1})
	require.NoError(t, err)

	store.conflicts = 1
	got, err := svc.Approve(ctx, organizerID, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPaid, got.PaymentStatus)

	ev, err := store.GetEvent(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, ev.Merchandise.Variants[0].Stock)
	assert.Equal(t, 1, ev.Merchandise.Variants[0].Sold)
	assert.EqualValues(t, 300, ev.TotalRevenue)
}

func TestDecodeTicketTokenRejectsGarbage(t *testing.T) {
	_, err := DecodeTicketToken("{not json")
	assert.ErrorIs(t, err, model.ErrInvalidInput)
	_, err = DecodeTicketToken(`{"eventId":1}`)
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}
