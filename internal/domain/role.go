package domain

import "time"

// Permission is an opaque capability token drawn from the closed
// catalog in internal/permission.
type Permission string

// Role groups capability tokens under a name. System roles are seeded
// at bootstrap and protected from structural edits.
type Role struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Permissions []Permission `json:"permissions"`
	IsSystem    bool         `json:"is_system"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// HasPermission reports whether the role carries the token.
func (r *Role) HasPermission(p Permission) bool {
	for _, candidate := range r.Permissions {
		if candidate == p {
			return true
		}
	}
	return false
}
