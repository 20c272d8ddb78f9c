package model

import "time"

// RegistrationStatus is the lifecycle state of a registration.
type RegistrationStatus string

const (
	StatusPending   RegistrationStatus = "PENDING"
	StatusConfirmed RegistrationStatus = "CONFIRMED"
	StatusCancelled RegistrationStatus = "CANCELLED"
	StatusRejected  RegistrationStatus = "REJECTED"
	StatusCompleted RegistrationStatus = "COMPLETED"
)

// PaymentStatus tracks the money side of a registration independently of
// its lifecycle state.
type PaymentStatus string

const (
	PaymentUnpaid          PaymentStatus = "UNPAID"
	PaymentPaid            PaymentStatus = "PAID"
	PaymentPendingApproval PaymentStatus = "PENDING_APPROVAL"
	PaymentRefunded        PaymentStatus = "REFUNDED"
)

// MerchandiseDetails records what a purchase asked for.
type MerchandiseDetails struct {
	Size     string `json:"size"`
	Color    string `json:"color"`
	Quantity int    `json:"quantity"`
}

// Key returns the variant key of the purchase.
func (d MerchandiseDetails) Key() VariantKey { return VariantKey{Size: d.Size, Color: d.Color} }

// Registration binds one participant to one event.  EventID never changes
// after creation.  TicketID stays empty until the registration is confirmed.
type Registration struct {
	ID               uint64              `json:"id"`
	ParticipantID    uint64              `json:"participant_id"`
	EventID          uint64              `json:"event_id"`
	TicketID         string              `json:"ticket_id,omitempty"`
	TicketToken      string              `json:"ticket_token,omitempty"`
	Type             EventType           `json:"registration_type"`
	Status           RegistrationStatus  `json:"status"`
	PaymentStatus    PaymentStatus       `json:"payment_status"`
	Merchandise      *MerchandiseDetails `json:"merchandise,omitempty"`
	AmountPaid       int64               `json:"amount_paid"`
	PaymentProof     *string             `json:"payment_proof,omitempty"`
	RejectionReason  *string             `json:"rejection_reason,omitempty"`
	ApprovedBy       *uint64             `json:"approved_by,omitempty"`
	ApprovedAt       *time.Time          `json:"approved_at,omitempty"`
	Attended         bool                `json:"attended"`
	AttendedAt       *time.Time          `json:"attended_at,omitempty"`
	ScannedBy        *uint64             `json:"scanned_by,omitempty"`
	FormResponse     map[string]any      `json:"form_response,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// Active reports whether the registration still blocks a new one for the
// same participant and event.  A rejected purchase stays active because the
// participant is expected to resubmit proof on it.
func (r *Registration) Active() bool {
	return r.Status != StatusCancelled
}

// Clone returns a deep copy of the registration.
func (r *Registration) Clone() *Registration {
	if r == nil {
		return nil
	}
	out := *r
	if r.Merchandise != nil {
		m := *r.Merchandise
		out.Merchandise = &m
	}
	out.PaymentProof = cloneString(r.PaymentProof)
	out.RejectionReason = cloneString(r.RejectionReason)
	if r.ApprovedBy != nil {
		v := *r.ApprovedBy
		out.ApprovedBy = &v
	}
	if r.ScannedBy != nil {
		v := *r.ScannedBy
		out.ScannedBy = &v
	}
	if r.ApprovedAt != nil {
		t := *r.ApprovedAt
		out.ApprovedAt = &t
	}
	if r.AttendedAt != nil {
		t := *r.AttendedAt
		out.AttendedAt = &t
	}
	if r.FormResponse != nil {
		out.FormResponse = make(map[string]any, len(r.FormResponse))
		for k, v := range r.FormResponse {
			out.FormResponse[k] = v
		}
	}
	return &out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// ExportRow is the flattened registration handed to the CSV exporter.
type ExportRow struct {
	RegistrationID   uint64             `json:"registration_id"`
	TicketID         string             `json:"ticket_id"`
	ParticipantID    uint64             `json:"participant_id"`
	ParticipantName  string             `json:"participant_name"`
	ParticipantEmail string             `json:"participant_email"`
	Status           RegistrationStatus `json:"status"`
	PaymentStatus    PaymentStatus      `json:"payment_status"`
	AmountPaid       int64              `json:"amount_paid"`
	Attended         bool               `json:"attended"`
	CreatedAt        time.Time          `json:"created_at"`
}
