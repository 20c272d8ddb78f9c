package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/felicity-registration/internal/model"
)

// MySQLStore is the durable Store.  Row locks come from SELECT ... FOR
// UPDATE inside an InnoDB transaction, which serializes every writer of the
// same event row until commit.
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore returns a MySQLStore bound to the given database.
func NewMySQLStore(db *sql.DB) *MySQLStore { return &MySQLStore{db: db} }

// DB exposes the underlying pool for health checks.
func (s *MySQLStore) DB() *sql.DB { return s.db }

// WithinTx begins a transaction, hands it to fn and commits when fn returns
// nil.  Any error, including a panic unwinding through fn, rolls it back.
func (s *MySQLStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&mysqlTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}

func (s *MySQLStore) GetEvent(ctx context.Context, id uint64) (*model.Event, error) {
	return scanEvent(s.db.QueryRowContext(ctx, selectEvent+` WHERE id = ?`, id))
}

func (s *MySQLStore) GetParticipant(ctx context.Context, id uint64) (*model.Participant, error) {
	const q = `SELECT id, name, email, category FROM participants WHERE id = ?`
	var p model.Participant
	err := s.db.QueryRowContext(ctx, q, id).Scan(&p.ID, &p.Name, &p.Email, &p.Category)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get participant %d: %w", id, err)
	}
	return &p, nil
}

func (s *MySQLStore) GetRegistration(ctx context.Context, id uint64) (*model.Registration, error) {
	return scanRegistration(s.db.QueryRowContext(ctx, selectRegistration+` WHERE id = ?`, id))
}

func (s *MySQLStore) FindRegistrationByTicket(ctx context.Context, ticketID string) (*model.Registration, error) {
	return scanRegistration(s.db.QueryRowContext(ctx, selectRegistration+` WHERE ticket_id = ?`, ticketID))
}

func (s *MySQLStore) ListRegistrationsByParticipant(ctx context.Context, participantID uint64) ([]model.Registration, error) {
	rows, err := s.db.QueryContext(ctx, selectRegistration+` WHERE participant_id = ? ORDER BY id DESC`, participantID)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()
	out := make([]model.Registration, 0)
	for rows.Next() {
		r, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (s *MySQLStore) ListExportRows(ctx context.Context, eventID uint64) ([]model.ExportRow, error) {
	const q = `SELECT r.id, COALESCE(r.ticket_id, ''), r.participant_id, p.name, p.email,
                      r.status, r.payment_status, r.amount_paid, r.attended, r.created_at
               FROM registrations r
               JOIN participants p ON p.id = r.participant_id
               WHERE r.event_id = ?
               ORDER BY r.id`
	rows, err := s.db.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, fmt.Errorf("list export rows: %w", err)
	}
	defer rows.Close()
	out := make([]model.ExportRow, 0)
	for rows.Next() {
		var row model.ExportRow
		if err := rows.Scan(&row.RegistrationID, &row.TicketID, &row.ParticipantID, &row.ParticipantName,
			&row.ParticipantEmail, &row.Status, &row.PaymentStatus, &row.AmountPaid, &row.Attended, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan export row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

type mysqlTx struct {
	tx *sql.Tx
}

func (t *mysqlTx) LockEvent(ctx context.Context, id uint64) (*model.Event, error) {
	return scanEvent(t.tx.QueryRowContext(ctx, selectEvent+` WHERE id = ? FOR UPDATE`, id))
}

func (t *mysqlTx) SaveEvent(ctx context.Context, ev *model.Event) error {
	merch, err := jsonColumn(ev.Merchandise)
	if err != nil {
		return err
	}
	form, err := jsonColumn(ev.CustomForm)
	if err != nil {
		return err
	}
	const q = `UPDATE events
               SET current_registrations = ?, merchandise = ?, form_locked = ?, custom_form = ?,
                   total_revenue = ?, total_attendance = ?
               WHERE id = ?`
	res, err := t.tx.ExecContext(ctx, q, ev.CurrentRegistrations, merch, ev.FormLocked, form,
		ev.TotalRevenue, ev.TotalAttendance, ev.ID)
	if err != nil {
		return fmt.Errorf("save event %d: %w", ev.ID, err)
	}
	return expectOne(res)
}

func (t *mysqlTx) LockRegistration(ctx context.Context, id uint64) (*model.Registration, error) {
	return scanRegistration(t.tx.QueryRowContext(ctx, selectRegistration+` WHERE id = ? FOR UPDATE`, id))
}

func (t *mysqlTx) FindActiveRegistration(ctx context.Context, participantID, eventID uint64) (*model.Registration, error) {
	const where = ` WHERE participant_id = ? AND event_id = ? AND status <> 'CANCELLED' ORDER BY id DESC LIMIT 1 FOR UPDATE`
	return scanRegistration(t.tx.QueryRowContext(ctx, selectRegistration+where, participantID, eventID))
}

func (t *mysqlTx) TicketExists(ctx context.Context, ticketID string) (bool, error) {
	var one int
	err := t.tx.QueryRowContext(ctx, `SELECT 1 FROM registrations WHERE ticket_id = ? LIMIT 1`, ticketID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("ticket lookup: %w", err)
	}
	return true, nil
}

func (t *mysqlTx) InsertRegistration(ctx context.Context, r *model.Registration) error {
	args, err := registrationArgs(r)
	if err != nil {
		return err
	}
	const q = `INSERT INTO registrations (participant_id, event_id, ticket_id, ticket_token, registration_type,
                   status, payment_status, merchandise, amount_paid, payment_proof, rejection_reason,
                   approved_by, approved_at, attended, attended_at, scanned_by, form_response)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := t.tx.ExecContext(ctx, q, append([]any{r.ParticipantID, r.EventID}, args...)...)
	if err != nil {
		return fmt.Errorf("insert registration: %w", ticketConflict(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	// Query back the full row to populate timestamps.
	fresh, err := scanRegistration(t.tx.QueryRowContext(ctx, selectRegistration+` WHERE id = ?`, id))
	if err != nil {
		return err
	}
	*r = *fresh
	return nil
}

func (t *mysqlTx) UpdateRegistration(ctx context.Context, r *model.Registration) error {
	args, err := registrationArgs(r)
	if err != nil {
		return err
	}
	const q = `UPDATE registrations
               SET ticket_id = ?, ticket_token = ?, registration_type = ?, status = ?, payment_status = ?,
                   merchandise = ?, amount_paid = ?, payment_proof = ?, rejection_reason = ?,
                   approved_by = ?, approved_at = ?, attended = ?, attended_at = ?, scanned_by = ?, form_response = ?
               WHERE id = ?`
	res, err := t.tx.ExecContext(ctx, q, append(args, r.ID)...)
	if err != nil {
		return fmt.Errorf("update registration %d: %w", r.ID, ticketConflict(err))
	}
	return expectOne(res)
}

// errDupEntry is MySQL's ER_DUP_ENTRY.
const errDupEntry = 1062

// ticketConflict maps a duplicate on the ticket id unique key to
// ErrTicketConflict and leaves every other error alone.
func ticketConflict(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == errDupEntry && strings.Contains(me.Message, "uq_registrations_ticket") {
		return fmt.Errorf("%w: %s", ErrTicketConflict, me.Message)
	}
	return err
}

// expectOne treats a zero row count as a missing row.  The DSN sets
// clientFoundRows so an update that matches but changes nothing still
// counts as one.
func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return nil
}
