package model

// Category is a participant's affiliation as read from the identity store.
type Category string

const (
	CategoryIIIT    Category = "IIIT"
	CategoryNonIIIT Category = "NON_IIIT"
)

// Participant is the read-only identity used for eligibility checks and
// ticket payloads.  Accounts are provisioned elsewhere.
type Participant struct {
	ID       uint64   `json:"id"`
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Category Category `json:"category"`
}
