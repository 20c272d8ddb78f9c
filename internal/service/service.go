// Package service is the registration and capacity lifecycle engine.  Every
// operation that moves a counter runs inside one repository transaction
// that first locks the event row, then the registration row, so that the
// counter change and the registration transition commit together.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/felicity-registration/internal/model"
	"github.com/iliyamo/felicity-registration/internal/queue"
	"github.com/iliyamo/felicity-registration/internal/repository"
)

const (
	defaultRejectionReasonMin = 10
	notifyTimeout             = 10 * time.Second
	maxTicketConflicts        = 3
)

// TicketPublisher hands ticket notifications to the mail pipeline.
type TicketPublisher interface {
	PublishTicketIssued(ctx context.Context, event queue.TicketIssuedEvent) error
}

// Service implements registration, purchase, payment approval and
// attendance on top of a repository.Store.
type Service struct {
	store              repository.Store
	counter            repository.RollingCounter
	tickets            *TicketIssuer
	publisher          TicketPublisher
	log                logrus.FieldLogger
	now                func() time.Time
	rejectionReasonMin int

	inflight sync.WaitGroup
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithRollingCounter sets the 24h registration counter.
func WithRollingCounter(c repository.RollingCounter) Option {
	return func(s *Service) { s.counter = c }
}

// WithPublisher sets where ticket notifications go.  Without one they are
// dropped.
func WithPublisher(p TicketPublisher) Option { return func(s *Service) { s.publisher = p } }

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option { return func(s *Service) { s.log = l } }

// WithTicketIssuer replaces the default FEL issuer.
func WithTicketIssuer(t *TicketIssuer) Option { return func(s *Service) { s.tickets = t } }

// WithRejectionReasonMin sets the minimum length of a rejection reason.
func WithRejectionReasonMin(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.rejectionReasonMin = n
		}
	}
}

// New returns a Service over store.
func New(store repository.Store, opts ...Option) *Service {
	s := &Service{
		store:              store,
		counter:            repository.NewMemoryRollingCounter(),
		tickets:            NewTicketIssuer(""),
		log:                logrus.StandardLogger(),
		now:                func() time.Time { return time.Now().UTC() },
		rejectionReasonMin: defaultRejectionReasonMin,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Wait blocks until every detached notification has finished.  It is
// called on shutdown; request paths never wait.
func (s *Service) Wait() { s.inflight.Wait() }

// notify publishes a ticket notification in the background.  Its outcome
// never reaches the caller.
func (s *Service) notify(p *model.Participant, ev *model.Event, r *model.Registration) {
	if s.publisher == nil {
		return
	}
	msg := queue.TicketIssuedEvent{
		TicketID:         r.TicketID,
		RegistrationID:   r.ID,
		ParticipantID:    p.ID,
		ParticipantName:  p.Name,
		ParticipantEmail: p.Email,
		EventID:          ev.ID,
		EventName:        ev.Name,
		EventDate:        ev.StartDate,
		RegistrationType: string(r.Type),
		AmountPaid:       r.AmountPaid,
		QRPayload:        r.TicketToken,
		IssuedAt:         s.now(),
	}
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := s.publisher.PublishTicketIssued(ctx, msg); err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"ticket_id":       msg.TicketID,
				"registration_id": msg.RegistrationID,
			}).Warn("ticket notification not sent")
		}
	}()
}

// countRegistration feeds the rolling counter.  Failures are logged only.
func (s *Service) countRegistration(ctx context.Context, r *model.Registration, at time.Time) {
	if s.counter == nil {
		return
	}
	member := strconv.FormatUint(r.ID, 10)
	if err := s.counter.Incr(ctx, r.EventID, member, at); err != nil {
		s.log.WithError(err).WithField("event_id", r.EventID).Warn("rolling registration counter not updated")
	}
}

// eventOf reads the event a registration belongs to without locking.  A
// registration's event never changes, so the answer stays valid for the
// transaction that follows.
func (s *Service) eventOf(ctx context.Context, regID uint64) (uint64, error) {
	pre, err := s.store.GetRegistration(ctx, regID)
	if err != nil {
		return 0, err
	}
	return pre.EventID, nil
}

// withinTicketTx runs fn in a transaction and runs it again when the write
// lost its ticket id to a concurrent transaction.  Each run starts from
// fresh locks, so nothing from a failed run leaks into the next.
func (s *Service) withinTicketTx(ctx context.Context, l logrus.FieldLogger, fn func(tx repository.Tx) error) error {
	for attempt := 1; ; attempt++ {
		err := s.store.WithinTx(ctx, fn)
		if !errors.Is(err, repository.ErrTicketConflict) || attempt == maxTicketConflicts {
			return err
		}
		l.WithField("attempt", attempt).Warn("ticket id collided at commit, retrying")
	}
}

// lockPair locks the event and then the registration, the one lock order
// every writer follows.
func lockPair(ctx context.Context, tx repository.Tx, eventID, regID uint64) (*model.Event, *model.Registration, error) {
	ev, err := tx.LockEvent(ctx, eventID)
	if err != nil {
		return nil, nil, err
	}
	r, err := tx.LockRegistration(ctx, regID)
	if err != nil {
		return nil, nil, err
	}
	if r.EventID != ev.ID {
		return nil, nil, fmt.Errorf("registration %d moved events", regID)
	}
	return ev, r, nil
}

// mayAccess reports whether a owns r, either as the participant who holds
// it or as the organizer of ev.  The role decides which id is compared.
func mayAccess(a model.Actor, r *model.Registration, ev *model.Event) bool {
	switch a.Role {
	case model.RoleParticipant:
		return r.ParticipantID == a.ID
	case model.RoleOrganizer:
		return ev.OrganizerID == a.ID
	}
	return false
}

func (s *Service) entry(op string, fields logrus.Fields) logrus.FieldLogger {
	return s.log.WithField("op", op).WithFields(fields)
}

// logOutcome records a failed operation at a level matching its kind:
// expected refusals at Info, everything else at Error.
func (s *Service) logOutcome(l logrus.FieldLogger, err error) {
	if err == nil {
		return
	}
	code := model.ErrorCode(err)
	if code == "INTERNAL" && !errors.Is(err, context.Canceled) {
		l.WithError(err).Error("operation failed")
		return
	}
	l.WithField("code", code).Info("operation refused")
}
