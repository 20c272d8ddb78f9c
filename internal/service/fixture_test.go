package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/felicity-registration/internal/model"
	"github.com/iliyamo/felicity-registration/internal/queue"
	"github.com/iliyamo/felicity-registration/internal/repository"
)

const organizerID = 100

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type fakePublisher struct {
	mu   sync.Mutex
	sent []queue.TicketIssuedEvent
	err  error
}

func (f *fakePublisher) PublishTicketIssued(_ context.Context, ev queue.TicketIssuedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, ev)
	return nil
}

func (f *fakePublisher) messages() []queue.TicketIssuedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]queue.TicketIssuedEvent(nil), f.sent...)
}

type fixture struct {
	store   *repository.MemoryStore
	counter *repository.MemoryRollingCounter
	pub     *fakePublisher
	svc     *Service
	clock   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger, _ := test.NewNullLogger()
	f := &fixture{
		store:   repository.NewMemoryStore(),
		counter: repository.NewMemoryRollingCounter(),
		pub:     &fakePublisher{},
		clock:   t0,
	}
	f.svc = New(f.store,
		WithClock(func() time.Time { return f.clock }),
		WithRollingCounter(f.counter),
		WithPublisher(f.pub),
		WithLogger(logger),
	)
	for id := uint64(1); id <= 40; id++ {
		cat := model.CategoryIIIT
		if id%2 == 0 {
			cat = model.CategoryNonIIIT
		}
		f.store.PutParticipant(&model.Participant{ID: id, Name: "participant", Email: "p@example.com", Category: cat})
	}
	return f
}

func intPtr(n int) *int { return &n }

func normalEvent(id uint64, limit *int) *model.Event {
	return &model.Event{
		ID:                   id,
		OrganizerID:          organizerID,
		Name:                 "Hackathon",
		Type:                 model.EventNormal,
		Eligibility:          model.EligibilityAll,
		RegistrationLimit:    limit,
		RegistrationDeadline: t0.Add(24 * time.Hour),
		StartDate:            t0.Add(48 * time.Hour),
		EndDate:              t0.Add(72 * time.Hour),
		Status:               model.EventPublished,
	}
}

func merchEvent(id uint64) *model.Event {
	ev := normalEvent(id, nil)
	ev.Name = "Fest T-Shirt"
	ev.Type = model.EventMerchandise
	ev.RegistrationFee = 250
	ev.Merchandise = &model.Merchandise{
		Variants: []model.Variant{
			{Size: "S", Color: "Black", Price: 300, Stock: 5},
			{Size: "M", Color: "Black", Price: 300, Stock: 2},
		},
		PurchaseLimit: 3,
	}
	return ev
}

func (f *fixture) event(t *testing.T, id uint64) *model.Event {
	t.Helper()
	ev, err := f.store.GetEvent(context.Background(), id)
	require.NoError(t, err)
	return ev
}

func (f *fixture) registration(t *testing.T, id uint64) *model.Registration {
	t.Helper()
	r, err := f.store.GetRegistration(context.Background(), id)
	require.NoError(t, err)
	return r
}
