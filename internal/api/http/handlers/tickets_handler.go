package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/guard"
	"github.com/spec-kit/support-desk/internal/ticket"
	"github.com/spec-kit/support-desk/pkg/apperrors"
)

// TicketsHandler serves the customer self-service endpoints. Reads are
// always customer-scoped: internal comments never leave this surface.
type TicketsHandler struct {
	store *ticket.Store
}

// NewTicketsHandler constructs the handler.
func NewTicketsHandler(store *ticket.Store) *TicketsHandler {
	return &TicketsHandler{store: store}
}

// Create POST /tickets.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	actor, ok := guard.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	input := ticket.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Priority:    domain.TicketPriority(req.Priority),
		Attachments: req.Attachments,
	}
	if req.Source != "" {
		input.Metadata = map[string]string{"source": req.Source}
	}
	created, err := h.store.Create(c.UserContext(), actor.ID, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": created})
}

// List GET /tickets returns the actor's own tickets.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	actor, ok := guard.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	return c.JSON(fiber.Map{"data": h.store.ListForActor(c.UserContext(), actor.ID)})
}

// Get GET /tickets/:id.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	_, found, err := h.ownTicket(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": found})
}

// ListComments GET /tickets/:id/comments. Internal entries are
// filtered out unconditionally on this surface.
func (h *TicketsHandler) ListComments(c *fiber.Ctx) error {
	if _, _, err := h.ownTicket(c); err != nil {
		return err
	}
	comments := h.store.GetComments(c.UserContext(), c.Params("id"), false)
	return c.JSON(fiber.Map{"data": comments})
}

// AddComment POST /tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	actor, _, err := h.ownTicket(c)
	if err != nil {
		return err
	}
	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	comment, err := h.store.AddComment(c.UserContext(), actor, c.Params("id"), req.Body, false, req.Attachments)
	if err != nil {
		return err
	}
	if comment == nil {
		return apperrors.NewNotFound("ticket", nil)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": comment})
}

// ownTicket resolves the actor and the ticket, enforcing ownership.
func (h *TicketsHandler) ownTicket(c *fiber.Ctx) (domain.Actor, *domain.Ticket, error) {
	actor, ok := guard.ActorFromContext(c)
	if !ok {
		return domain.Actor{}, nil, apperrors.NewUnauthorized("authentication required")
	}
	found := h.store.Get(c.UserContext(), c.Params("id"))
	if found == nil {
		return actor, nil, apperrors.NewNotFound("ticket", nil)
	}
	if found.CreatedBy != actor.ID {
		return actor, nil, apperrors.NewForbidden("access denied")
	}
	return actor, found, nil
}
