package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fieldops/dispatch/internal/domain"
	"github.com/fieldops/dispatch/internal/events"
	"github.com/fieldops/dispatch/internal/lifecycle"
	"github.com/fieldops/dispatch/internal/observability"
	"github.com/fieldops/dispatch/internal/repository"
	apperrors "github.com/fieldops/dispatch/pkg/errorutil"
)

// InternalTicketService coordinates internal tasks and reminders.
type InternalTicketService struct {
	tickets    repository.InternalTicketRepository
	sectors    repository.SectorRepository
	comments   repository.CommentRepository
	logs       repository.SystemLogRepository
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// InternalTicketDependencies bundles collaborators.
type InternalTicketDependencies struct {
	TicketRepo    repository.InternalTicketRepository
	SectorRepo    repository.SectorRepository
	CommentRepo   repository.CommentRepository
	SystemLogRepo repository.SystemLogRepository
	Dispatcher    events.Dispatcher
	Metrics       *observability.Metrics
	Logger        *zap.Logger
	Clock         func() time.Time
}

// InternalTicketCreateInput describes an internal task.
type InternalTicketCreateInput struct {
	SectorID    string
	Title       string
	Description string
	AssigneeID  *string
	IsPriority  bool
	ScheduledTo *time.Time
}

// InternalTicketListQuery narrows a listing.
type InternalTicketListQuery struct {
	Status     domain.TicketStatus
	SectorID   *string
	AssigneeID *string
	Limit      int
	Offset     int
}

// NewInternalTicketService constructs the service.
func NewInternalTicketService(deps InternalTicketDependencies) *InternalTicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &InternalTicketService{
		tickets:    deps.TicketRepo,
		sectors:    deps.SectorRepo,
		comments:   deps.CommentRepo,
		logs:       deps.SystemLogRepo,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		now:        clock,
	}
}

// Create opens a pending internal ticket.
func (s *InternalTicketService) Create(ctx context.Context, actor *domain.User, input InternalTicketCreateInput) (*domain.InternalTicket, error) {
	if actor == nil || !actor.Active {
		return nil, apperrors.NewUnauthorized("actor required")
	}
	details := map[string]any{}
	if strings.TrimSpace(input.SectorID) == "" {
		details["sector_id"] = "required"
	}
	if strings.TrimSpace(input.Title) == "" {
		details["title"] = "required"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid internal ticket", details)
	}

	sector, err := s.sectors.GetByID(ctx, input.SectorID)
	if err != nil {
		return nil, lookupError(err, "sector", input.SectorID)
	}
	if !lifecycle.HasSectorAccess(actor, sector.ID) {
		return nil, apperrors.NewForbidden("no access to sector")
	}

	now := s.now()
	ticket := &domain.InternalTicket{
		Status:      domain.TicketStatusPending,
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		CreatorID:   actor.ID,
		SectorID:    sector.ID,
		AssigneeID:  trimmedOrNil(input.AssigneeID),
		IsPriority:  input.IsPriority,
		ScheduledTo: input.ScheduledTo,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.afterWrite(ctx, actor, ticket, domain.LogActionCreated, nil)
	return ticket, nil
}

// List returns the internal tickets of one status visible to actor.
func (s *InternalTicketService) List(ctx context.Context, actor *domain.User, query InternalTicketListQuery) ([]domain.InternalTicket, error) {
	status := query.Status
	if status == "" {
		status = domain.TicketStatusPending
	}
	if !status.Valid() {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"field": "status"})
	}
	sectors, err := visibleSectors(actor, query.SectorID)
	if err != nil {
		return nil, err
	}
	tickets, err := s.tickets.List(ctx, repository.InternalTicketFilter{
		SectorIDs:  sectors,
		Statuses:   []domain.TicketStatus{status},
		AssigneeID: query.AssigneeID,
		Order:      orderFor(status),
		Limit:      query.Limit,
		Offset:     query.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	lifecycle.SortInternalForFilter(tickets, status)
	return tickets, nil
}

// Grab assigns a pending internal ticket to actor.
func (s *InternalTicketService) Grab(ctx context.Context, actor *domain.User, ticketID string) (*domain.InternalTicket, error) {
	return s.apply(ctx, actor, ticketID, "grab", domain.LogActionGrabbed, lifecycle.Grab)
}

// Conclude completes a pending internal ticket.
func (s *InternalTicketService) Conclude(ctx context.Context, actor *domain.User, ticketID string) (*domain.InternalTicket, error) {
	return s.apply(ctx, actor, ticketID, "conclude", domain.LogActionConcluded, lifecycle.Conclude)
}

// Cancel cancels a pending internal ticket.
func (s *InternalTicketService) Cancel(ctx context.Context, actor *domain.User, ticketID string) (*domain.InternalTicket, error) {
	return s.apply(ctx, actor, ticketID, "cancel", domain.LogActionCancelled, lifecycle.CancelInternal)
}

// AddComment appends a comment to an internal ticket.
func (s *InternalTicketService) AddComment(ctx context.Context, actor *domain.User, ticketID, content string) (*domain.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("comment content required", map[string]any{"field": "content"})
	}
	ticket, err := s.load(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	comment := &domain.Comment{
		ID:         uuid.NewString(),
		TicketID:   ticket.ID,
		TicketKind: domain.TicketKindInternal,
		AuthorID:   actor.ID,
		Content:    content,
		CreatedAt:  s.now(),
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.recordLog(ctx, actor.ID, ticket.ID, domain.LogActionCommented, nil, map[string]any{"comment_id": comment.ID})
	s.publishEvent(ctx, events.Event{
		Type:       events.EventTicketCommentAdded,
		TicketID:   ticket.ID,
		SectorID:   ticket.SectorID,
		TicketKind: domain.TicketKindInternal,
		Actor:      actorOf(actor),
		Payload: events.TicketCommentAddedPayload{
			CommentID:   comment.ID,
			AuthorID:    comment.AuthorID,
			BodyPreview: stringPreview(comment.Content, 120),
		},
	})
	return comment, nil
}

type internalTransition func(actor *domain.User, ticket *domain.InternalTicket, now time.Time) error

func (s *InternalTicketService) apply(ctx context.Context, actor *domain.User, ticketID, action string, logAction domain.SystemLogAction, fn internalTransition) (*domain.InternalTicket, error) {
	ticket, err := s.load(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	before := map[string]any{"status": ticket.Status, "assignee_id": derefString(ticket.AssigneeID)}
	rev := repository.Revision{Status: ticket.Status, UpdatedAt: ticket.UpdatedAt}
	if err := fn(actor, ticket, s.now()); err != nil {
		return nil, guardError(err)
	}
	if err := s.tickets.Update(ctx, ticket, rev); err != nil {
		return nil, writeError(err)
	}
	s.afterWrite(ctx, actor, ticket, logAction, before)
	s.logger.Info("internal ticket transition",
		zap.String("ticket_id", ticket.ID),
		zap.String("action", action),
		zap.String("actor_id", actor.ID))
	return ticket, nil
}

func (s *InternalTicketService) load(ctx context.Context, actor *domain.User, ticketID string) (*domain.InternalTicket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("actor required")
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, lookupError(err, "internal ticket", ticketID)
	}
	if !lifecycle.HasSectorAccess(actor, ticket.SectorID) {
		return nil, apperrors.NewForbidden("no access to ticket sector")
	}
	return ticket, nil
}

func (s *InternalTicketService) afterWrite(ctx context.Context, actor *domain.User, ticket *domain.InternalTicket, logAction domain.SystemLogAction, before map[string]any) {
	s.recordLog(ctx, actor.ID, ticket.ID, logAction, before, map[string]any{
		"status":      ticket.Status,
		"assignee_id": derefString(ticket.AssigneeID),
	})
	s.publishEvent(ctx, events.Event{
		Type:       events.EventInternalTicketChanged,
		TicketID:   ticket.ID,
		SectorID:   ticket.SectorID,
		TicketKind: domain.TicketKindInternal,
		Actor:      actorOf(actor),
		Payload: events.InternalTicketChangedPayload{
			Action:     string(logAction),
			Status:     ticket.Status,
			AssigneeID: ticket.AssigneeID,
		},
	})
	s.metrics.RecordTransition(string(domain.TicketKindInternal), string(logAction))
}

func (s *InternalTicketService) recordLog(ctx context.Context, actorID, ticketID string, action domain.SystemLogAction, oldValue, newValue map[string]any) {
	if s.logs == nil {
		return
	}
	entry := &domain.SystemLog{
		ID:         uuid.NewString(),
		TicketID:   ticketID,
		TicketKind: domain.TicketKindInternal,
		ActorID:    actorID,
		Action:     action,
		OldValue:   oldValue,
		NewValue:   newValue,
		CreatedAt:  s.now(),
	}
	if err := s.logs.Create(ctx, entry); err != nil {
		s.logger.Warn("system log write failed", zap.String("ticket_id", ticketID), zap.Error(err))
	}
}

func (s *InternalTicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
