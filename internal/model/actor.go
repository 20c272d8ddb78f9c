package model

// Role is the "role" claim of an access token.
type Role string

const (
	RoleParticipant Role = "PARTICIPANT"
	RoleOrganizer   Role = "ORGANIZER"
)

// Actor is an authenticated caller.  Participant and organizer ids are
// drawn from separate tables and can coincide, so an id alone never
// identifies an owner.
type Actor struct {
	ID   uint64
	Role Role
}

// AsParticipant returns a participant-role actor.
func AsParticipant(id uint64) Actor { return Actor{ID: id, Role: RoleParticipant} }

// AsOrganizer returns an organizer-role actor.
func AsOrganizer(id uint64) Actor { return Actor{ID: id, Role: RoleOrganizer} }
