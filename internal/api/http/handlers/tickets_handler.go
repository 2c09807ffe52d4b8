package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/fieldops/dispatch/internal/api/dto"
	"github.com/fieldops/dispatch/internal/auth"
	"github.com/fieldops/dispatch/internal/domain"
	"github.com/fieldops/dispatch/internal/lifecycle"
	"github.com/fieldops/dispatch/internal/service"
	apperrors "github.com/fieldops/dispatch/pkg/errorutil"
)

// TicketsHandler manages external ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// ListTickets GET /v1/tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	query := service.TicketListQuery{
		SectorID:     optionalQuery(c, "sector_id"),
		TechnicianID: optionalQuery(c, "technician_id"),
	}
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		s := domain.TicketStatus(status)
		query.Status = &s
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 0)
	if pageSize > 0 {
		query.Limit = pageSize
		query.Offset = (page - 1) * pageSize
	}

	views, filter, err := h.service.List(c.UserContext(), actor, query)
	if err != nil {
		return err
	}
	items := ticketResponses(views)
	return c.JSON(dto.TicketListResponse{Data: items, Filter: filter, Count: len(items)})
}

// Board GET /v1/tickets/board.
func (h *TicketsHandler) Board(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	columns, err := h.service.Board(c.UserContext(), actor, optionalQuery(c, "sector_id"))
	if err != nil {
		return err
	}
	resp := make([]dto.BoardColumnResponse, 0, len(columns))
	for _, column := range columns {
		items := ticketResponses(column.Tickets)
		resp = append(resp, dto.BoardColumnResponse{Status: column.Status, Count: len(items), Tickets: items})
	}
	return c.JSON(fiber.Map{"data": resp, "view_mode": h.service.ViewMode(actor)})
}

// CreateTicket POST /v1/tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.Create(c.UserContext(), actor, service.TicketCreateInput{
		ClientID:      req.ClientID,
		SectorID:      req.SectorID,
		Type:          req.Type,
		Description:   req.Description,
		RequesterName: req.RequesterName,
		ScheduledTo:   req.ScheduledTo,
		SLAHours:      req.SLAHours,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// GetTicket GET /v1/tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	view, err := h.service.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": viewResponse(*view)})
}

// Take POST /v1/tickets/:id/take.
func (h *TicketsHandler) Take(c *fiber.Ctx) error {
	return h.act(c, h.service.Take)
}

// Cancel POST /v1/tickets/:id/cancel.
func (h *TicketsHandler) Cancel(c *fiber.Ctx) error {
	return h.act(c, h.service.Cancel)
}

// CheckIn POST /v1/tickets/:id/check-in.
func (h *TicketsHandler) CheckIn(c *fiber.Ctx) error {
	return h.act(c, h.service.CheckIn)
}

// ReturnToPending POST /v1/tickets/:id/return.
func (h *TicketsHandler) ReturnToPending(c *fiber.Ctx) error {
	return h.act(c, h.service.ReturnToPending)
}

// Reopen POST /v1/tickets/:id/reopen.
func (h *TicketsHandler) Reopen(c *fiber.Ctx) error {
	return h.act(c, h.service.Reopen)
}

// Assign POST /v1/tickets/:id/assign.
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.AssignTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.Assign(c.UserContext(), actor, c.Params("id"), req.TechnicianID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// EnRoute POST /v1/tickets/:id/en-route.
func (h *TicketsHandler) EnRoute(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	ticket, cleared, err := h.service.SetEnRoute(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	if cleared == nil {
		cleared = []string{}
	}
	return c.JSON(dto.EnRouteResponse{Data: ticketResponse(ticket), ClearedIDs: cleared})
}

// Finalize POST /v1/tickets/:id/finalize.
func (h *TicketsHandler) Finalize(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.FinalizeTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.Finalize(c.UserContext(), actor, c.Params("id"), domain.TechnicalReport{
		Observations: req.Observations,
		Photos:       req.Photos,
		Signature:    req.Signature,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// AddComment POST /v1/tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
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

// History GET /v1/tickets/:id/history.
func (h *TicketsHandler) History(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	entries, err := h.service.History(c.UserContext(), actor, c.Params("id"), pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	resp := make([]dto.HistoryEntryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, dto.HistoryEntryResponse{
			ID:        entry.ID,
			Action:    entry.Action,
			ActorID:   entry.ActorID,
			OldValue:  entry.OldValue,
			NewValue:  entry.NewValue,
			CreatedAt: entry.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": resp})
}

type ticketAction func(ctx context.Context, actor *domain.User, ticketID string) (*domain.ExternalTicket, error)

func (h *TicketsHandler) act(c *fiber.Ctx, action ticketAction) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	ticket, err := action(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

func requireActor(c *fiber.Ctx) (*domain.User, error) {
	actor, ok := auth.ActorFromContext(c)
	if !ok || actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return actor, nil
}

func optionalQuery(c *fiber.Ctx, key string) *string {
	val := strings.TrimSpace(c.Query(key))
	if val == "" {
		return nil
	}
	return &val
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func ticketResponses(views []service.TicketView) []dto.TicketResponse {
	items := make([]dto.TicketResponse, 0, len(views))
	for _, view := range views {
		items = append(items, viewResponse(view))
	}
	return items
}

func viewResponse(view service.TicketView) dto.TicketResponse {
	resp := ticketResponse(&view.Ticket)
	resp.PriorityClass = view.Class.String()
	if view.SLA.Tracked {
		resp.SLA = &dto.SLAResponse{
			ExpiresAt:        *view.SLA.ExpiresAt,
			Remaining:        lifecycle.FormatCountdown(view.SLA.Remaining),
			RemainingSeconds: int64(view.SLA.Remaining.Seconds()),
			Violated:         view.SLA.Violated,
		}
	}
	resp.AvailableActions = make([]string, 0, len(view.Actions))
	for _, action := range view.Actions {
		resp.AvailableActions = append(resp.AvailableActions, string(action))
	}
	return resp
}

func ticketResponse(ticket *domain.ExternalTicket) dto.TicketResponse {
	resp := dto.TicketResponse{
		ID:              ticket.ID,
		Code:            ticket.Code,
		Status:          ticket.Status,
		Type:            ticket.Type,
		Client:          ticket.Client,
		Description:     ticket.Description,
		RequesterName:   ticket.RequesterName,
		CreatorID:       ticket.CreatorID,
		SectorID:        ticket.SectorID,
		TechnicianID:    ticket.TechnicianID,
		ScheduledTo:     ticket.ScheduledTo,
		SLAExpiresAt:    ticket.SLAExpiresAt,
		EnRoute:         ticket.EnRoute,
		EnRouteAt:       ticket.EnRouteAt,
		CheckIn:         ticket.CheckIn,
		CheckOut:        ticket.CheckOut,
		TechnicalReport: ticket.TechnicalReport,
		CreatedAt:       ticket.CreatedAt,
		UpdatedAt:       ticket.UpdatedAt,
	}
	for _, comment := range ticket.Comments {
		resp.Comments = append(resp.Comments, commentResponse(comment))
	}
	return resp
}

func commentResponse(comment domain.Comment) dto.CommentResponse {
	return dto.CommentResponse{
		ID:        comment.ID,
		AuthorID:  comment.AuthorID,
		Content:   comment.Content,
		CreatedAt: comment.CreatedAt,
	}
}
