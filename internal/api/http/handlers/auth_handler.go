package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/guard"
	"github.com/spec-kit/support-desk/internal/identity"
	"github.com/spec-kit/support-desk/pkg/apperrors"
)

// AuthHandler exposes the session/attribute resolver over HTTP.
type AuthHandler struct {
	resolver *identity.Resolver
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(resolver *identity.Resolver) *AuthHandler {
	return &AuthHandler{resolver: resolver}
}

// Login POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	token, actor, err := h.resolver.Login(c.UserContext(), req.Identifier, req.Secret)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			return apperrors.NewUnauthorized("invalid credentials")
		}
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"token": token,
		"actor": actor,
	}})
}

// Logout POST /auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	token, ok := guard.TokenFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.resolver.Logout(c.UserContext(), token); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Me GET /auth/me returns the actor plus resolved display attributes.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	actor, ok := guard.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	token, _ := guard.TokenFromContext(c)

	attributes, err := h.resolver.Attributes(c.UserContext(), token)
	if err != nil {
		if errors.Is(err, identity.ErrNotAuthenticated) {
			return apperrors.NewUnauthorized("session attributes unavailable")
		}
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"actor":      actor,
		"attributes": attributes,
	}})
}
