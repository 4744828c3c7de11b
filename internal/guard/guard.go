package guard

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/identity"
	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/pkg/apperrors"
)

const (
	actorKey = "guard_actor"
	tokenKey = "guard_token"
)

// PermissionChecker answers capability queries for a role identifier;
// the permission resolver satisfies it.
type PermissionChecker interface {
	HasPermission(roleID string, token domain.Permission) bool
	HasAll(roleID string, tokens ...domain.Permission) bool
	HasAny(roleID string, tokens ...domain.Permission) bool
}

// Guard gates routes: it resolves the actor from the bearer token and
// checks capability tokens before handlers run. Mutating operations
// trust this boundary; the stores do not re-check.
type Guard struct {
	resolver *identity.Resolver
	perms    PermissionChecker
}

// New constructs a guard.
func New(resolver *identity.Resolver, perms PermissionChecker) *Guard {
	return &Guard{resolver: resolver, perms: perms}
}

// Authenticate validates the bearer token and stores the actor on the
// request context.
func (g *Guard) Authenticate(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	actor, err := g.resolver.CurrentActor(c.UserContext(), parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid session")
	}

	c.Locals(actorKey, *actor)
	c.Locals(tokenKey, parts[1])
	return c.Next()
}

// RequireStaff ensures the actor operates the desk.
func (g *Guard) RequireStaff() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := ActorFromContext(c)
		if !ok || !actor.IsStaff() {
			return apperrors.NewForbidden("staff access required")
		}
		return c.Next()
	}
}

// RequireCustomer ensures the actor is a customer.
func (g *Guard) RequireCustomer() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := ActorFromContext(c)
		if !ok || actor.IsStaff() {
			return apperrors.NewForbidden("customer access required")
		}
		return c.Next()
	}
}

// RequirePermission ensures the actor's effective permission set
// covers every listed token.
func (g *Guard) RequirePermission(tokens ...domain.Permission) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := ActorFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !g.perms.HasAll(actor.Role, tokens...) {
			for _, token := range tokens {
				if !g.perms.HasPermission(actor.Role, token) {
					observability.PermissionDeniedTotal.WithLabelValues(string(token)).Inc()
				}
			}
			return apperrors.NewForbidden("insufficient permissions")
		}
		return c.Next()
	}
}

// RequireAnyPermission ensures at least one listed token is granted.
func (g *Guard) RequireAnyPermission(tokens ...domain.Permission) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := ActorFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !g.perms.HasAny(actor.Role, tokens...) {
			for _, token := range tokens {
				observability.PermissionDeniedTotal.WithLabelValues(string(token)).Inc()
			}
			return apperrors.NewForbidden("insufficient permissions")
		}
		return c.Next()
	}
}

// ActorFromContext retrieves the authenticated actor.
func ActorFromContext(c *fiber.Ctx) (domain.Actor, bool) {
	actor, ok := c.Locals(actorKey).(domain.Actor)
	return actor, ok
}

// TokenFromContext retrieves the session token.
func TokenFromContext(c *fiber.Ctx) (string, bool) {
	token, ok := c.Locals(tokenKey).(string)
	return token, ok
}
