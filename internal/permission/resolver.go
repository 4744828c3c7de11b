package permission

import "github.com/spec-kit/support-desk/internal/domain"

// AdminRoleID is the administrator sentinel. The resolver grants it
// the full catalog before consulting the registry at all; this is a
// deliberate, documented superuser escape hatch kept for
// compatibility, not a general pattern.
const AdminRoleID = "admin"

// RoleSource supplies stored permission sets, normally the role
// registry.
type RoleSource interface {
	GetPermissions(roleID string) []domain.Permission
}

// Resolver computes effective capability sets for a role identifier.
type Resolver struct {
	roles RoleSource
}

// NewResolver constructs a resolver backed by the given role source.
func NewResolver(roles RoleSource) *Resolver {
	return &Resolver{roles: roles}
}

// Permissions returns the effective capability set for the role.
func (r *Resolver) Permissions(roleID string) []domain.Permission {
	if roleID == AdminRoleID {
		return All()
	}
	return r.roles.GetPermissions(roleID)
}

// HasPermission reports whether the role grants a single token.
func (r *Resolver) HasPermission(roleID string, token domain.Permission) bool {
	if roleID == AdminRoleID {
		return Known(token)
	}
	for _, granted := range r.roles.GetPermissions(roleID) {
		if granted == token {
			return true
		}
	}
	return false
}

// HasAll reports whether every token is granted, evaluating in token
// order and stopping at the first miss.
func (r *Resolver) HasAll(roleID string, tokens ...domain.Permission) bool {
	for _, token := range tokens {
		if !r.HasPermission(roleID, token) {
			return false
		}
	}
	return true
}

// HasAny reports whether at least one token is granted, evaluating in
// token order and stopping at the first hit.
func (r *Resolver) HasAny(roleID string, tokens ...domain.Permission) bool {
	for _, token := range tokens {
		if r.HasPermission(roleID, token) {
			return true
		}
	}
	return false
}
