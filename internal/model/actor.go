package model

// Actor is the authenticated caller of an operation, derived from JWT claims.
type Actor struct {
	ID   string     `json:"id"`
	Role SenderRole `json:"role"`
}

// IsAdmin reports whether the actor has administrative capability.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }
