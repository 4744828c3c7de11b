package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/permission"
	"github.com/spec-kit/support-desk/internal/role"
	"github.com/spec-kit/support-desk/pkg/apperrors"
)

// RolesHandler serves role administration.
type RolesHandler struct {
	registry *role.Registry
}

// NewRolesHandler constructs the handler.
func NewRolesHandler(registry *role.Registry) *RolesHandler {
	return &RolesHandler{registry: registry}
}

// List GET /staff/roles.
func (h *RolesHandler) List(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.registry.List(c.UserContext())})
}

// Get GET /staff/roles/:id.
func (h *RolesHandler) Get(c *fiber.Ctx) error {
	found := h.registry.GetByID(c.Params("id"))
	if found == nil {
		return apperrors.NewNotFound("role", nil)
	}
	return c.JSON(fiber.Map{"data": found})
}

// Create POST /staff/roles.
func (h *RolesHandler) Create(c *fiber.Ctx) error {
	input, err := parseRoleRequest(c)
	if err != nil {
		return err
	}
	created, err := h.registry.Create(c.UserContext(), input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": created})
}

// Update PUT /staff/roles/:id. The registry refuses structural edits
// of system roles with a nil sentinel; here that surfaces as a
// conflict so UI flows can tell it apart from not-found.
func (h *RolesHandler) Update(c *fiber.Ctx) error {
	input, err := parseRoleRequest(c)
	if err != nil {
		return err
	}
	id := c.Params("id")
	if h.registry.GetByID(id) == nil {
		return apperrors.NewNotFound("role", nil)
	}
	updated, err := h.registry.Update(c.UserContext(), id, input)
	if err != nil {
		return err
	}
	if updated == nil {
		return apperrors.NewConflict("system role is protected", nil)
	}
	return c.JSON(fiber.Map{"data": updated})
}

// Delete DELETE /staff/roles/:id.
func (h *RolesHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if h.registry.GetByID(id) == nil {
		return apperrors.NewNotFound("role", nil)
	}
	deleted, err := h.registry.Delete(c.UserContext(), id)
	if err != nil {
		return err
	}
	if !deleted {
		return apperrors.NewConflict("system role is protected", nil)
	}
	return c.SendStatus(http.StatusNoContent)
}

// Catalog GET /staff/permissions returns the closed token catalog
// grouped by presentation category, for editing UIs with bulk
// toggle-by-group.
func (h *RolesHandler) Catalog(c *fiber.Ctx) error {
	groups := make([]fiber.Map, 0, len(permission.Categories()))
	for _, category := range permission.Categories() {
		groups = append(groups, fiber.Map{
			"category":    category,
			"permissions": permission.ByCategory(category),
		})
	}
	return c.JSON(fiber.Map{"data": groups})
}

func parseRoleRequest(c *fiber.Ctx) (role.Input, error) {
	var req dto.RoleRequest
	if err := c.BodyParser(&req); err != nil {
		return role.Input{}, apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return role.Input{}, err
	}
	input := role.Input{
		Name:        req.Name,
		Description: req.Description,
		Permissions: make([]domain.Permission, 0, len(req.Permissions)),
	}
	for _, token := range req.Permissions {
		input.Permissions = append(input.Permissions, domain.Permission(token))
	}
	return input, nil
}
