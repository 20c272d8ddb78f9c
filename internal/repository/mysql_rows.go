package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iliyamo/felicity-registration/internal/model"
)

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const selectEvent = `SELECT id, organizer_id, name, type, eligibility, registration_limit, current_registrations,
       registration_fee, registration_deadline, start_date, end_date, status, merchandise, form_locked,
       custom_form, total_revenue, total_attendance, created_at, updated_at
FROM events`

func scanEvent(row rowScanner) (*model.Event, error) {
	var ev model.Event
	var limit sql.NullInt64
	var merch, form []byte
	err := row.Scan(&ev.ID, &ev.OrganizerID, &ev.Name, &ev.Type, &ev.Eligibility, &limit, &ev.CurrentRegistrations,
		&ev.RegistrationFee, &ev.RegistrationDeadline, &ev.StartDate, &ev.EndDate, &ev.Status, &merch, &ev.FormLocked,
		&form, &ev.TotalRevenue, &ev.TotalAttendance, &ev.CreatedAt, &ev.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan event: %w", err)
	}
	if limit.Valid {
		n := int(limit.Int64)
		ev.RegistrationLimit = &n
	}
	if len(merch) > 0 {
		if err := json.Unmarshal(merch, &ev.Merchandise); err != nil {
			return nil, fmt.Errorf("decode merchandise of event %d: %w", ev.ID, err)
		}
	}
	if len(form) > 0 {
		if err := json.Unmarshal(form, &ev.CustomForm); err != nil {
			return nil, fmt.Errorf("decode custom form of event %d: %w", ev.ID, err)
		}
	}
	return &ev, nil
}

const selectRegistration = `SELECT id, participant_id, event_id, ticket_id, ticket_token, registration_type, status,
       payment_status, merchandise, amount_paid, payment_proof, rejection_reason, approved_by, approved_at,
       attended, attended_at, scanned_by, form_response, created_at, updated_at
FROM registrations`

func scanRegistration(row rowScanner) (*model.Registration, error) {
	var r model.Registration
	var ticketID, token, proof, reason sql.NullString
	var approvedBy, scannedBy sql.NullInt64
	var approvedAt, attendedAt sql.NullTime
	var merch, form []byte
	err := row.Scan(&r.ID, &r.ParticipantID, &r.EventID, &ticketID, &token, &r.Type, &r.Status,
		&r.PaymentStatus, &merch, &r.AmountPaid, &proof, &reason, &approvedBy, &approvedAt,
		&r.Attended, &attendedAt, &scannedBy, &form, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan registration: %w", err)
	}
	r.TicketID = ticketID.String
	r.TicketToken = token.String
	if proof.Valid {
		r.PaymentProof = &proof.String
	}
	if reason.Valid {
		r.RejectionReason = &reason.String
	}
	if approvedBy.Valid {
		v := uint64(approvedBy.Int64)
		r.ApprovedBy = &v
	}
	if scannedBy.Valid {
		v := uint64(scannedBy.Int64)
		r.ScannedBy = &v
	}
	if approvedAt.Valid {
		r.ApprovedAt = &approvedAt.Time
	}
	if attendedAt.Valid {
		r.AttendedAt = &attendedAt.Time
	}
	if len(merch) > 0 {
		if err := json.Unmarshal(merch, &r.Merchandise); err != nil {
			return nil, fmt.Errorf("decode merchandise of registration %d: %w", r.ID, err)
		}
	}
	if len(form) > 0 {
		if err := json.Unmarshal(form, &r.FormResponse); err != nil {
			return nil, fmt.Errorf("decode form response of registration %d: %w", r.ID, err)
		}
	}
	return &r, nil
}

// registrationArgs returns the mutable columns in the order shared by the
// insert and update statements.
func registrationArgs(r *model.Registration) ([]any, error) {
	merch, err := jsonColumn(r.Merchandise)
	if err != nil {
		return nil, err
	}
	form, err := jsonColumn(r.FormResponse)
	if err != nil {
		return nil, err
	}
	return []any{
		nullString(r.TicketID), nullString(r.TicketToken), r.Type, r.Status, r.PaymentStatus,
		merch, r.AmountPaid, r.PaymentProof, r.RejectionReason,
		r.ApprovedBy, r.ApprovedAt, r.Attended, r.AttendedAt, r.ScannedBy, form,
	}, nil
}

// jsonColumn encodes v for a JSON column, mapping nil pointers and slices
// to SQL NULL.
func jsonColumn(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode json column: %w", err)
	}
	if string(b) == "null" {
		return nil, nil
	}
	return string(b), nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
