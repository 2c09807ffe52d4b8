package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/fieldops/dispatch/internal/api/dto"
	"github.com/fieldops/dispatch/internal/domain"
	"github.com/fieldops/dispatch/internal/service"
	apperrors "github.com/fieldops/dispatch/pkg/errorutil"
)

// InternalTicketsHandler manages internal task endpoints.
type InternalTicketsHandler struct {
	service *service.InternalTicketService
}

// NewInternalTicketsHandler constructs handler.
func NewInternalTicketsHandler(internalService *service.InternalTicketService) *InternalTicketsHandler {
	return &InternalTicketsHandler{service: internalService}
}

// List GET /v1/internal-tickets.
func (h *InternalTicketsHandler) List(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	query := service.InternalTicketListQuery{
		Status:     domain.TicketStatus(c.Query("status")),
		SectorID:   optionalQuery(c, "sector_id"),
		AssigneeID: optionalQuery(c, "assignee_id"),
	}
	tickets, err := h.service.List(c.UserContext(), actor, query)
	if err != nil {
		return err
	}
	resp := make([]dto.InternalTicketResponse, 0, len(tickets))
	for i := range tickets {
		resp = append(resp, internalTicketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// Create POST /v1/internal-tickets.
func (h *InternalTicketsHandler) Create(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.CreateInternalTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.Create(c.UserContext(), actor, service.InternalTicketCreateInput{
		SectorID:    req.SectorID,
		Title:       req.Title,
		Description: req.Description,
		AssigneeID:  req.AssigneeID,
		IsPriority:  req.IsPriority,
		ScheduledTo: req.ScheduledTo,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": internalTicketResponse(ticket)})
}

// Grab POST /v1/internal-tickets/:id/grab.
func (h *InternalTicketsHandler) Grab(c *fiber.Ctx) error {
	return h.act(c, h.service.Grab)
}

// Conclude POST /v1/internal-tickets/:id/conclude.
func (h *InternalTicketsHandler) Conclude(c *fiber.Ctx) error {
	return h.act(c, h.service.Conclude)
}

// Cancel POST /v1/internal-tickets/:id/cancel.
func (h *InternalTicketsHandler) Cancel(c *fiber.Ctx) error {
	return h.act(c, h.service.Cancel)
}

// AddComment POST /v1/internal-tickets/:id/comments.
func (h *InternalTicketsHandler) AddComment(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	comment, err := h.service.AddComment(c.UserContext(), actor, c.Params("id"), req.Content)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": commentResponse(*comment)})
}

type internalAction func(ctx context.Context, actor *domain.User, ticketID string) (*domain.InternalTicket, error)

func (h *InternalTicketsHandler) act(c *fiber.Ctx, action internalAction) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	ticket, err := action(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": internalTicketResponse(ticket)})
}

func internalTicketResponse(ticket *domain.InternalTicket) dto.InternalTicketResponse {
	return dto.InternalTicketResponse{
		ID:          ticket.ID,
		Status:      ticket.Status,
		Title:       ticket.Title,
		Description: ticket.Description,
		CreatorID:   ticket.CreatorID,
		SectorID:    ticket.SectorID,
		AssigneeID:  ticket.AssigneeID,
		IsPriority:  ticket.IsPriority,
		ScheduledTo: ticket.ScheduledTo,
		CreatedAt:   ticket.CreatedAt,
		UpdatedAt:   ticket.UpdatedAt,
	}
}
