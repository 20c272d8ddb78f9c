package model

import (
	"fmt"
	"time"
)

// EventType distinguishes seat based events from merchandise sales.
type EventType string

const (
	EventNormal      EventType = "NORMAL"
	EventMerchandise EventType = "MERCHANDISE"
)

// Eligibility restricts which participant categories may register.
type Eligibility string

const (
	EligibilityIIITOnly    Eligibility = "IIIT_ONLY"
	EligibilityNonIIITOnly Eligibility = "NON_IIIT_ONLY"
	EligibilityAll         Eligibility = "ALL"
)

// EventStatus is the publication lifecycle of an event.
type EventStatus string

const (
	EventDraft     EventStatus = "DRAFT"
	EventPublished EventStatus = "PUBLISHED"
	EventOngoing   EventStatus = "ONGOING"
	EventCompleted EventStatus = "COMPLETED"
	EventClosed    EventStatus = "CLOSED"
)

// Event is the organizer owned snapshot that registrations consume.  The
// counters (CurrentRegistrations, variant Stock/Sold, TotalRevenue and
// TotalAttendance) are written back only while the event row is locked.
//
// Fields:
//  ID                   – events.id
//  OrganizerID          – owner of the event; the only approver and scanner.
//  RegistrationLimit    – nil means unbounded.
//  CurrentRegistrations – seats consumed, moved by the capacity ledger only.
//  RegistrationFee      – fee in the smallest currency unit.
//  Merchandise          – set for MERCHANDISE events only.
//  FormLocked           – set once the first registration lands.
type Event struct {
	ID                   uint64         `json:"id"`
	OrganizerID          uint64         `json:"organizer_id"`
	Name                 string         `json:"name"`
	Type                 EventType      `json:"type"`
	Eligibility          Eligibility    `json:"eligibility"`
	RegistrationLimit    *int           `json:"registration_limit,omitempty"`
	CurrentRegistrations int            `json:"current_registrations"`
	RegistrationFee      int64          `json:"registration_fee"`
	RegistrationDeadline time.Time      `json:"registration_deadline"`
	StartDate            time.Time      `json:"start_date"`
	EndDate              time.Time      `json:"end_date"`
	Status               EventStatus    `json:"status"`
	Merchandise          *Merchandise   `json:"merchandise,omitempty"`
	FormLocked           bool           `json:"form_locked"`
	CustomForm           []FormField    `json:"custom_form,omitempty"`
	TotalRevenue         int64          `json:"total_revenue"`
	TotalAttendance      int            `json:"total_attendance"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
}

// FormField describes one question of an event's custom registration form.
type FormField struct {
	Label    string   `json:"label"`
	Kind     string   `json:"kind"`
	Required bool     `json:"required"`
	Options  []string `json:"options,omitempty"`
}

// Merchandise holds the stock of a MERCHANDISE event.  Variants are kept in
// declaration order because the even split fallback depends on the index.
type Merchandise struct {
	Variants      []Variant `json:"variants"`
	StockQuantity int       `json:"stock_quantity"`
	PurchaseLimit int       `json:"purchase_limit"`
}

// Limit returns the per purchase quantity cap, defaulting to one.
func (m *Merchandise) Limit() int {
	if m == nil || m.PurchaseLimit <= 0 {
		return 1
	}
	return m.PurchaseLimit
}

// Variant is a single size/color combination with its own stock.
type Variant struct {
	Size  string `json:"size"`
	Color string `json:"color"`
	Price int64  `json:"price"`
	Stock int    `json:"stock"`
	// Sold counts units taken.  Only a variant with Stock <= 0 and Sold == 0
	// falls back to an even share of Merchandise.StockQuantity.
	Sold int `json:"sold"`
}

// VariantKey identifies a variant by size and color.
type VariantKey struct {
	Size  string `json:"size"`
	Color string `json:"color"`
}

// DisplayName renders the "{size} - {color}" label clients sometimes send
// in place of a structured key.
func (k VariantKey) DisplayName() string {
	return fmt.Sprintf("%s - %s", k.Size, k.Color)
}

// Key returns the variant's identifying key.
func (v Variant) Key() VariantKey { return VariantKey{Size: v.Size, Color: v.Color} }

// Clone returns a deep copy so stores can hand out snapshots without
// sharing slices or pointers with their own state.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	out := *e
	if e.RegistrationLimit != nil {
		n := *e.RegistrationLimit
		out.RegistrationLimit = &n
	}
	if e.Merchandise != nil {
		m := *e.Merchandise
		m.Variants = append([]Variant(nil), e.Merchandise.Variants...)
		out.Merchandise = &m
	}
	if e.CustomForm != nil {
		out.CustomForm = make([]FormField, len(e.CustomForm))
		for i, f := range e.CustomForm {
			f.Options = append([]string(nil), f.Options...)
			out.CustomForm[i] = f
		}
	}
	return &out
}
