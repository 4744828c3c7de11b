package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/guard"
	"github.com/spec-kit/support-desk/internal/permission"
	"github.com/spec-kit/support-desk/internal/ticket"
	"github.com/spec-kit/support-desk/pkg/apperrors"
)

// StaffTicketsHandler serves the staff triage endpoints.
type StaffTicketsHandler struct {
	store *ticket.Store
	perms *permission.Resolver
}

// NewStaffTicketsHandler constructs the handler.
func NewStaffTicketsHandler(store *ticket.Store, perms *permission.Resolver) *StaffTicketsHandler {
	return &StaffTicketsHandler{store: store, perms: perms}
}

// List GET /staff/tickets with conjunctive filters.
func (h *StaffTicketsHandler) List(c *fiber.Ctx) error {
	params := ticket.FilterParams{
		Search: c.Query("search"),
	}
	for _, raw := range splitQuery(c.Query("status")) {
		params.Statuses = append(params.Statuses, domain.TicketStatus(raw))
	}
	for _, raw := range splitQuery(c.Query("priority")) {
		params.Priorities = append(params.Priorities, domain.TicketPriority(raw))
	}
	for _, raw := range splitQuery(c.Query("category")) {
		canonical, ok := domain.CanonicalCategory(raw)
		if !ok {
			return apperrors.NewValidationError("unknown category", map[string]any{"category": raw})
		}
		params.Categories = append(params.Categories, canonical)
	}
	if c.QueryBool("unassigned") {
		params.Unassigned = true
	} else if assignee := c.Query("assigned_to"); assignee != "" {
		params.AssignedTo = &assignee
	}

	return c.JSON(fiber.Map{"data": h.store.Filter(c.UserContext(), params)})
}

// Get GET /staff/tickets/:id returns the ticket with its full thread,
// audit entries included.
func (h *StaffTicketsHandler) Get(c *fiber.Ctx) error {
	found := h.store.Get(c.UserContext(), c.Params("id"))
	if found == nil {
		return apperrors.NewNotFound("ticket", nil)
	}
	comments := h.store.GetComments(c.UserContext(), found.ID, true)
	return c.JSON(fiber.Map{"data": fiber.Map{
		"ticket":   found,
		"comments": comments,
	}})
}

// Update PATCH /staff/tickets/:id. Each provided field is gated by its
// own capability token before the store is invoked; the store trusts
// this boundary.
func (h *StaffTicketsHandler) Update(c *fiber.Ctx) error {
	actor, ok := guard.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	if req.Status != nil && !h.perms.HasPermission(actor.Role, permission.TicketsChangeStatus) {
		return apperrors.NewForbidden("status changes not permitted")
	}
	if req.AssignedTo != nil && !h.perms.HasPermission(actor.Role, permission.TicketsAssign) {
		return apperrors.NewForbidden("assignment changes not permitted")
	}
	if (req.Title != nil || req.Description != nil || req.Category != nil || req.Priority != nil) &&
		!h.perms.HasPermission(actor.Role, permission.TicketsEdit) {
		return apperrors.NewForbidden("ticket edits not permitted")
	}

	input := ticket.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		AssignedTo:  req.AssignedTo,
	}
	if req.Priority != nil {
		priority := domain.TicketPriority(*req.Priority)
		input.Priority = &priority
	}
	if req.Status != nil {
		status := domain.TicketStatus(*req.Status)
		input.Status = &status
	}

	updated, err := h.store.Update(c.UserContext(), actor, c.Params("id"), input)
	if err != nil {
		return err
	}
	if updated == nil {
		return apperrors.NewNotFound("ticket", nil)
	}
	return c.JSON(fiber.Map{"data": updated})
}

// AddComment POST /staff/tickets/:id/comments. Staff may post internal
// notes.
func (h *StaffTicketsHandler) AddComment(c *fiber.Ctx) error {
	actor, ok := guard.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	comment, err := h.store.AddComment(c.UserContext(), actor, c.Params("id"), req.Body, req.IsInternal, req.Attachments)
	if err != nil {
		return err
	}
	if comment == nil {
		return apperrors.NewNotFound("ticket", nil)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": comment})
}

// ClearAll DELETE /staff/tickets wipes the whole store. Guarded by the
// strongest capability token at the route.
func (h *StaffTicketsHandler) ClearAll(c *fiber.Ctx) error {
	actor, ok := guard.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.store.ClearAll(c.UserContext(), actor); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func splitQuery(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
