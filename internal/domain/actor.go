package domain

// ActorKind differentiates customers from staff.
type ActorKind string

const (
	ActorKindCustomer ActorKind = "CUSTOMER"
	ActorKindStaff    ActorKind = "STAFF"
)

// Actor is the identifier + role pair resolved for the current
// session. It is a runtime context value, not a stored entity.
type Actor struct {
	ID   string    `json:"id"`
	Role string    `json:"role"`
	Kind ActorKind `json:"kind"`
}

// IsStaff reports whether the actor operates the desk rather than
// using it.
func (a Actor) IsStaff() bool {
	return a.Kind == ActorKindStaff
}
