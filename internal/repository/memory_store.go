package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/felicity-registration/internal/model"
)

// MemoryStore keeps everything in process.  It backs STORE=memory dev mode
// and the service tests.  A transaction holds the write lock for its whole
// duration and stages its writes, so a failed callback leaves no trace.
type MemoryStore struct {
	mu            sync.RWMutex
	events        map[uint64]*model.Event
	participants  map[uint64]*model.Participant
	registrations map[uint64]*model.Registration
	nextRegID     uint64
	now           func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events:        make(map[uint64]*model.Event),
		participants:  make(map[uint64]*model.Participant),
		registrations: make(map[uint64]*model.Registration),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// PutEvent inserts or replaces an event.  Events are authored by the
// organizer tooling, so this is only used for seeding.
func (s *MemoryStore) PutEvent(ev *model.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[ev.ID] = ev.Clone()
}

// PutParticipant inserts or replaces a participant.
func (s *MemoryStore) PutParticipant(p *model.Participant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.participants[p.ID] = &cp
}

// WithinTx runs fn with exclusive access to the store.  Staged writes are
// applied only when fn returns nil.
func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryTx{
		s:             s,
		events:        make(map[uint64]*model.Event),
		registrations: make(map[uint64]*model.Registration),
		nextRegID:     s.nextRegID,
	}
	if err := fn(tx); err != nil {
		return err
	}
	for id, ev := range tx.events {
		s.events[id] = ev
	}
	for id, r := range tx.registrations {
		s.registrations[id] = r
	}
	s.nextRegID = tx.nextRegID
	return nil
}

func (s *MemoryStore) GetEvent(_ context.Context, id uint64) (*model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.events[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return ev.Clone(), nil
}

func (s *MemoryStore) GetParticipant(_ context.Context, id uint64) (*model.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.participants[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) GetRegistration(_ context.Context, id uint64) (*model.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.registrations[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return r.Clone(), nil
}

func (s *MemoryStore) FindRegistrationByTicket(_ context.Context, ticketID string) (*model.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.registrations {
		if r.TicketID != "" && r.TicketID == ticketID {
			return r.Clone(), nil
		}
	}
	return nil, model.ErrNotFound
}

func (s *MemoryStore) ListRegistrationsByParticipant(_ context.Context, participantID uint64) ([]model.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Registration, 0)
	for _, r := range s.registrations {
		if r.ParticipantID == participantID {
			out = append(out, *r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *MemoryStore) ListExportRows(_ context.Context, eventID uint64) ([]model.ExportRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.ExportRow, 0)
	for _, r := range s.registrations {
		if r.EventID != eventID {
			continue
		}
		row := model.ExportRow{
			RegistrationID: r.ID,
			TicketID:       r.TicketID,
			ParticipantID:  r.ParticipantID,
			Status:         r.Status,
			PaymentStatus:  r.PaymentStatus,
			AmountPaid:     r.AmountPaid,
			Attended:       r.Attended,
			CreatedAt:      r.CreatedAt,
		}
		if p, ok := s.participants[r.ParticipantID]; ok {
			row.ParticipantName = p.Name
			row.ParticipantEmail = p.Email
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegistrationID < out[j].RegistrationID })
	return out, nil
}

// memoryTx reads through its staged copies before falling back to the
// committed maps.  Every value handed out is a clone.
type memoryTx struct {
	s             *MemoryStore
	events        map[uint64]*model.Event
	registrations map[uint64]*model.Registration
	nextRegID     uint64
}

func (tx *memoryTx) LockEvent(_ context.Context, id uint64) (*model.Event, error) {
	if ev, ok := tx.events[id]; ok {
		return ev.Clone(), nil
	}
	ev, ok := tx.s.events[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return ev.Clone(), nil
}

func (tx *memoryTx) SaveEvent(_ context.Context, ev *model.Event) error {
	if _, ok := tx.s.events[ev.ID]; !ok {
		if _, staged := tx.events[ev.ID]; !staged {
			return model.ErrNotFound
		}
	}
	cp := ev.Clone()
	cp.UpdatedAt = tx.s.now()
	tx.events[ev.ID] = cp
	return nil
}

func (tx *memoryTx) registration(id uint64) (*model.Registration, bool) {
	if r, ok := tx.registrations[id]; ok {
		return r, true
	}
	r, ok := tx.s.registrations[id]
	return r, ok
}

func (tx *memoryTx) LockRegistration(_ context.Context, id uint64) (*model.Registration, error) {
	r, ok := tx.registration(id)
	if !ok {
		return nil, model.ErrNotFound
	}
	return r.Clone(), nil
}

func (tx *memoryTx) each(fn func(r *model.Registration) bool) {
	for _, r := range tx.registrations {
		if fn(r) {
			return
		}
	}
	for id, r := range tx.s.registrations {
		if _, staged := tx.registrations[id]; staged {
			continue
		}
		if fn(r) {
			return
		}
	}
}

func (tx *memoryTx) FindActiveRegistration(_ context.Context, participantID, eventID uint64) (*model.Registration, error) {
	var found *model.Registration
	tx.each(func(r *model.Registration) bool {
		if r.ParticipantID == participantID && r.EventID == eventID && r.Active() {
			found = r
			return true
		}
		return false
	})
	if found == nil {
		return nil, model.ErrNotFound
	}
	return found.Clone(), nil
}

func (tx *memoryTx) TicketExists(_ context.Context, ticketID string) (bool, error) {
	exists := false
	tx.each(func(r *model.Registration) bool {
		exists = r.TicketID == ticketID
		return exists
	})
	return exists, nil
}

// ticketTaken mirrors the unique key on ticket_id.
func (tx *memoryTx) ticketTaken(r *model.Registration) bool {
	if r.TicketID == "" {
		return false
	}
	taken := false
	tx.each(func(o *model.Registration) bool {
		taken = o.ID != r.ID && o.TicketID == r.TicketID
		return taken
	})
	return taken
}

func (tx *memoryTx) InsertRegistration(_ context.Context, r *model.Registration) error {
	if tx.ticketTaken(r) {
		return ErrTicketConflict
	}
	tx.nextRegID++
	now := tx.s.now()
	r.ID = tx.nextRegID
	r.CreatedAt = now
	r.UpdatedAt = now
	tx.registrations[r.ID] = r.Clone()
	return nil
}

func (tx *memoryTx) UpdateRegistration(_ context.Context, r *model.Registration) error {
	if _, ok := tx.registration(r.ID); !ok {
		return model.ErrNotFound
	}
	if tx.ticketTaken(r) {
		return ErrTicketConflict
	}
	r.UpdatedAt = tx.s.now()
	tx.registrations[r.ID] = r.Clone()
	return nil
}
