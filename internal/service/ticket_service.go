package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fieldops/dispatch/internal/config"
	"github.com/fieldops/dispatch/internal/domain"
	"github.com/fieldops/dispatch/internal/events"
	"github.com/fieldops/dispatch/internal/lifecycle"
	"github.com/fieldops/dispatch/internal/observability"
	"github.com/fieldops/dispatch/internal/repository"
	apperrors "github.com/fieldops/dispatch/pkg/errorutil"
)

// TicketService coordinates external ticket workflows. Every write goes
// through the lifecycle policy before it reaches the store.
type TicketService struct {
	tickets    repository.ExternalTicketRepository
	users      repository.UserRepository
	clients    repository.ClientRepository
	sectors    repository.SectorRepository
	comments   repository.CommentRepository
	logs       repository.SystemLogRepository
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	board      config.BoardConfig
	loc        *time.Location
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo    repository.ExternalTicketRepository
	UserRepo      repository.UserRepository
	ClientRepo    repository.ClientRepository
	SectorRepo    repository.SectorRepository
	CommentRepo   repository.CommentRepository
	SystemLogRepo repository.SystemLogRepository
	Dispatcher    events.Dispatcher
	Metrics       *observability.Metrics
	Logger        *zap.Logger
	Board         config.BoardConfig
	Clock         func() time.Time
}

// TicketCreateInput describes ticket creation payload. SLAHours overrides the
// client's commitment when set.
type TicketCreateInput struct {
	ClientID      string
	SectorID      string
	Type          domain.TicketType
	Description   string
	RequesterName *string
	ScheduledTo   *time.Time
	SLAHours      *int
}

// TicketListQuery narrows a listing. A nil Status falls back to the actor's
// preferred filter.
type TicketListQuery struct {
	Status       *domain.TicketStatus
	SectorID     *string
	TechnicianID *string
	Limit        int
	Offset       int
}

// TicketView is a ticket with the state derived for display.
type TicketView struct {
	Ticket  domain.ExternalTicket
	Class   lifecycle.PriorityClass
	SLA     lifecycle.SLAStatus
	Actions []lifecycle.Action
}

// BoardColumn is one kanban column.
type BoardColumn struct {
	Status  domain.TicketStatus
	Tickets []TicketView
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		clients:    deps.ClientRepo,
		sectors:    deps.SectorRepo,
		comments:   deps.CommentRepo,
		logs:       deps.SystemLogRepo,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		board:      deps.Board,
		loc:        deps.Board.Location(),
		now:        clock,
	}
}

// Create opens a pending ticket for a client.
func (s *TicketService) Create(ctx context.Context, actor *domain.User, input TicketCreateInput) (*domain.ExternalTicket, error) {
	if actor == nil || !actor.Active {
		return nil, apperrors.NewUnauthorized("actor required")
	}
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	sector, err := s.sectors.GetByID(ctx, input.SectorID)
	if err != nil {
		return nil, lookupError(err, "sector", input.SectorID)
	}
	if !sector.IsActive {
		return nil, apperrors.NewValidationError("sector inactive", map[string]any{"field": "sector_id"})
	}
	if !lifecycle.HasSectorAccess(actor, sector.ID) {
		return nil, apperrors.NewForbidden("no access to sector")
	}
	client, err := s.clients.GetByID(ctx, input.ClientID)
	if err != nil {
		return nil, lookupError(err, "client", input.ClientID)
	}

	ticketType := input.Type
	if ticketType == "" {
		ticketType = domain.TicketTypeStandard
	}
	now := s.now()
	ticket := &domain.ExternalTicket{
		Code:          generateTicketCode(),
		Status:        domain.TicketStatusPending,
		Type:          ticketType,
		Client:        client.Ref(),
		Description:   strings.TrimSpace(input.Description),
		RequesterName: trimmedOrNil(input.RequesterName),
		CreatorID:     actor.ID,
		SectorID:      sector.ID,
		ScheduledTo:   input.ScheduledTo,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	switch {
	case input.SLAHours != nil:
		ticket.SLAExpiresAt = lifecycle.SLAExpiry(now, *input.SLAHours)
	case client.SLAHours != nil:
		ticket.SLAExpiresAt = lifecycle.SLAExpiry(now, *client.SLAHours)
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.recordLog(ctx, actor.ID, ticket.ID, domain.LogActionCreated, nil, map[string]any{
		"status": ticket.Status,
		"type":   ticket.Type,
	})
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		SectorID: ticket.SectorID,
		Actor:    actorOf(actor),
		Payload: events.TicketCreatedPayload{
			SectorID:     ticket.SectorID,
			Type:         ticket.Type,
			ClientName:   ticket.Client.Name,
			SLAExpiresAt: ticket.SLAExpiresAt,
		},
	})
	s.metrics.RecordTransition(string(domain.TicketKindExternal), "create")
	s.logger.Info("ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("code", ticket.Code),
		zap.String("sector_id", ticket.SectorID),
		zap.String("type", string(ticket.Type)))
	return ticket, nil
}

func validateCreateInput(input TicketCreateInput) error {
	details := map[string]any{}
	if strings.TrimSpace(input.ClientID) == "" {
		details["client_id"] = "required"
	}
	if strings.TrimSpace(input.SectorID) == "" {
		details["sector_id"] = "required"
	}
	if strings.TrimSpace(input.Description) == "" {
		details["description"] = "required"
	}
	if input.Type != "" && !input.Type.Valid() {
		details["type"] = "unknown ticket type"
	}
	if input.SLAHours != nil && *input.SLAHours < 0 {
		details["sla_hours"] = "must not be negative"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid ticket", details)
	}
	return nil
}

// Get returns a ticket with its comments, if actor may see its sector.
func (s *TicketService) Get(ctx context.Context, actor *domain.User, ticketID string) (*TicketView, error) {
	ticket, err := s.loadVisible(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByTicket(ctx, domain.TicketKindExternal, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	ticket.Comments = comments
	view := s.view(actor, *ticket, s.now())
	return &view, nil
}

// List returns the tickets of one status visible to actor, ranked for display
// and annotated with their SLA countdown.
func (s *TicketService) List(ctx context.Context, actor *domain.User, query TicketListQuery) ([]TicketView, domain.TicketStatus, error) {
	filter, err := s.resolveFilter(actor, query.Status)
	if err != nil {
		return nil, "", err
	}
	sectors, err := visibleSectors(actor, query.SectorID)
	if err != nil {
		return nil, "", err
	}
	now := s.now()
	tickets, err := s.tickets.List(ctx, repository.ExternalTicketFilter{
		SectorIDs:    sectors,
		Statuses:     []domain.TicketStatus{filter},
		TechnicianID: query.TechnicianID,
		Order:        orderFor(filter),
		RankAt:       now,
		RankLocation: s.loc,
		Limit:        query.Limit,
		Offset:       query.Offset,
	})
	if err != nil {
		return nil, "", apperrors.MapError(err)
	}
	lifecycle.SortForFilter(tickets, filter, now, s.loc)
	return s.views(actor, tickets, now), filter, nil
}

// Board groups every visible ticket into status columns, each ranked with the
// rule of its own filter.
func (s *TicketService) Board(ctx context.Context, actor *domain.User, sectorID *string) ([]BoardColumn, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("actor required")
	}
	sectors, err := visibleSectors(actor, sectorID)
	if err != nil {
		return nil, err
	}
	tickets, err := s.tickets.List(ctx, repository.ExternalTicketFilter{SectorIDs: sectors})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	grouped := make(map[domain.TicketStatus][]domain.ExternalTicket, len(domain.AllStatuses))
	for _, ticket := range tickets {
		grouped[ticket.Status] = append(grouped[ticket.Status], ticket)
	}
	now := s.now()
	columns := make([]BoardColumn, 0, len(domain.AllStatuses))
	for _, status := range domain.AllStatuses {
		column := grouped[status]
		lifecycle.SortForFilter(column, status, now, s.loc)
		columns = append(columns, BoardColumn{Status: status, Tickets: s.views(actor, column, now)})
	}
	return columns, nil
}

// Take lets actor claim an unassigned pending ticket.
func (s *TicketService) Take(ctx context.Context, actor *domain.User, ticketID string) (*domain.ExternalTicket, error) {
	ticket, err := s.transition(ctx, actor, ticketID, lifecycle.ActionTake, domain.LogActionAssigned,
		func(t *domain.ExternalTicket, now time.Time) error {
			return lifecycle.Take(actor, t, now)
		}, nil)
	if err != nil {
		return nil, err
	}
	s.publishAssigned(ctx, actor, ticket, true)
	return ticket, nil
}

// Assign hands an unassigned pending ticket to a technician.
func (s *TicketService) Assign(ctx context.Context, actor *domain.User, ticketID, technicianID string) (*domain.ExternalTicket, error) {
	if strings.TrimSpace(technicianID) == "" {
		return nil, apperrors.NewValidationError("technician required", map[string]any{"field": "technician_id"})
	}
	assignee, err := s.users.GetByID(ctx, technicianID)
	if err != nil {
		return nil, lookupError(err, "technician", technicianID)
	}
	ticket, err := s.transition(ctx, actor, ticketID, lifecycle.ActionAssign, domain.LogActionAssigned,
		func(t *domain.ExternalTicket, now time.Time) error {
			return lifecycle.Assign(actor, assignee, t, now)
		}, nil)
	if err != nil {
		return nil, err
	}
	s.publishAssigned(ctx, actor, ticket, false)
	return ticket, nil
}

// Cancel moves a ticket to the cancelled state.
func (s *TicketService) Cancel(ctx context.Context, actor *domain.User, ticketID string) (*domain.ExternalTicket, error) {
	return s.transition(ctx, actor, ticketID, lifecycle.ActionCancel, domain.LogActionCancelled,
		func(t *domain.ExternalTicket, now time.Time) error {
			return lifecycle.Cancel(actor, t, now)
		}, nil)
}

// CheckIn stamps the technician's arrival on site.
func (s *TicketService) CheckIn(ctx context.Context, actor *domain.User, ticketID string) (*domain.ExternalTicket, error) {
	ticket, err := s.transition(ctx, actor, ticketID, lifecycle.ActionCheckIn, domain.LogActionCheckedIn,
		func(t *domain.ExternalTicket, now time.Time) error {
			return lifecycle.CheckIn(actor, t, now)
		}, nil)
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCheckedIn,
		TicketID: ticket.ID,
		SectorID: ticket.SectorID,
		Actor:    actorOf(actor),
		Payload:  ticket.CheckIn,
	})
	return ticket, nil
}

// SetEnRoute marks ticket as its technician's current destination and clears
// the flag on every other ticket of that technician in the same write.
func (s *TicketService) SetEnRoute(ctx context.Context, actor *domain.User, ticketID string) (*domain.ExternalTicket, []string, error) {
	var cleared []string
	ticket, err := s.transition(ctx, actor, ticketID, lifecycle.ActionEnRoute, domain.LogActionEnRoute,
		func(t *domain.ExternalTicket, now time.Time) error {
			return lifecycle.MarkEnRoute(actor, t, now)
		},
		func(ctx context.Context, t *domain.ExternalTicket, rev repository.Revision) error {
			ids, err := s.tickets.SetEnRoute(ctx, t, rev)
			cleared = ids
			return err
		})
	if err != nil {
		return nil, nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketEnRouteChanged,
		TicketID: ticket.ID,
		SectorID: ticket.SectorID,
		Actor:    actorOf(actor),
		Payload: events.TicketEnRoutePayload{
			TechnicianID: derefString(ticket.TechnicianID),
			ClearedIDs:   cleared,
		},
	})
	return ticket, cleared, nil
}

// Finalize completes a ticket with its technical report.
func (s *TicketService) Finalize(ctx context.Context, actor *domain.User, ticketID string, report domain.TechnicalReport) (*domain.ExternalTicket, error) {
	if err := lifecycle.ValidateReport(report); err != nil {
		return nil, guardError(err)
	}
	return s.transition(ctx, actor, ticketID, lifecycle.ActionFinalize, domain.LogActionFinalized,
		func(t *domain.ExternalTicket, now time.Time) error {
			return lifecycle.Finalize(actor, t, report, now)
		}, nil)
}

// ReturnToPending puts an in-progress ticket back in the queue.
func (s *TicketService) ReturnToPending(ctx context.Context, actor *domain.User, ticketID string) (*domain.ExternalTicket, error) {
	return s.transition(ctx, actor, ticketID, lifecycle.ActionReturnToPending, domain.LogActionReturnedPending,
		func(t *domain.ExternalTicket, now time.Time) error {
			return lifecycle.ReturnToPending(actor, t, now)
		}, nil)
}

// Reopen sends a completed ticket back to the queue as a return visit.
func (s *TicketService) Reopen(ctx context.Context, actor *domain.User, ticketID string) (*domain.ExternalTicket, error) {
	return s.transition(ctx, actor, ticketID, lifecycle.ActionReopen, domain.LogActionReopened,
		func(t *domain.ExternalTicket, now time.Time) error {
			return lifecycle.Reopen(actor, t, now)
		}, nil)
}

// AddComment appends a comment. Comments are never edited or removed.
func (s *TicketService) AddComment(ctx context.Context, actor *domain.User, ticketID, content string) (*domain.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("comment content required", map[string]any{"field": "content"})
	}
	ticket, err := s.loadVisible(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	comment := &domain.Comment{
		ID:         uuid.NewString(),
		TicketID:   ticket.ID,
		TicketKind: domain.TicketKindExternal,
		AuthorID:   actor.ID,
		Content:    content,
		CreatedAt:  s.now(),
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.recordLog(ctx, actor.ID, ticket.ID, domain.LogActionCommented, nil, map[string]any{"comment_id": comment.ID})
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCommentAdded,
		TicketID: ticket.ID,
		SectorID: ticket.SectorID,
		Actor:    actorOf(actor),
		Payload: events.TicketCommentAddedPayload{
			CommentID:   comment.ID,
			AuthorID:    comment.AuthorID,
			BodyPreview: stringPreview(comment.Content, 120),
		},
	})
	return comment, nil
}

// History returns the audit trail of a ticket, newest first.
func (s *TicketService) History(ctx context.Context, actor *domain.User, ticketID string, limit, offset int) ([]domain.SystemLog, error) {
	ticket, err := s.loadVisible(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	entries, err := s.logs.ListByTicket(ctx, domain.TicketKindExternal, ticket.ID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

type applyFunc func(ticket *domain.ExternalTicket, now time.Time) error

type persistFunc func(ctx context.Context, ticket *domain.ExternalTicket, rev repository.Revision) error

// transition loads the ticket, applies a lifecycle transition and persists
// it. A nil persist writes through Update.
func (s *TicketService) transition(ctx context.Context, actor *domain.User, ticketID string, action lifecycle.Action, logAction domain.SystemLogAction, apply applyFunc, persist persistFunc) (*domain.ExternalTicket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("actor required")
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, lookupError(err, "ticket", ticketID)
	}
	before := snapshot(ticket)
	rev := repository.Revision{Status: ticket.Status, UpdatedAt: ticket.UpdatedAt}

	if err := apply(ticket, s.now()); err != nil {
		s.logger.Debug("transition rejected",
			zap.String("ticket_id", ticket.ID),
			zap.String("action", string(action)),
			zap.String("actor_id", actor.ID),
			zap.Error(err))
		return nil, guardError(err)
	}

	if persist == nil {
		persist = s.tickets.Update
	}
	if err := persist(ctx, ticket, rev); err != nil {
		return nil, writeError(err)
	}

	after := snapshot(ticket)
	s.recordLog(ctx, actor.ID, ticket.ID, logAction, before, after)
	if before["status"] != after["status"] {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: ticket.ID,
			SectorID: ticket.SectorID,
			Actor:    actorOf(actor),
			Payload: events.TicketStatusChangedPayload{
				OldStatus: before["status"].(domain.TicketStatus),
				NewStatus: ticket.Status,
				Action:    string(action),
			},
		})
	}
	s.metrics.RecordTransition(string(domain.TicketKindExternal), string(action))
	s.logger.Info("ticket transition",
		zap.String("ticket_id", ticket.ID),
		zap.String("action", string(action)),
		zap.String("actor_id", actor.ID),
		zap.String("status", string(ticket.Status)))
	return ticket, nil
}

func (s *TicketService) loadVisible(ctx context.Context, actor *domain.User, ticketID string) (*domain.ExternalTicket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("actor required")
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, lookupError(err, "ticket", ticketID)
	}
	if !lifecycle.HasSectorAccess(actor, ticket.SectorID) {
		return nil, apperrors.NewForbidden("no access to ticket sector")
	}
	return ticket, nil
}

// resolveFilter picks the status filter: explicit request, then the actor's
// saved preference, then the board default.
func (s *TicketService) resolveFilter(actor *domain.User, requested *domain.TicketStatus) (domain.TicketStatus, error) {
	if actor == nil {
		return "", apperrors.NewUnauthorized("actor required")
	}
	if requested != nil {
		if !requested.Valid() {
			return "", apperrors.NewValidationError("unknown status", map[string]any{"field": "status"})
		}
		return *requested, nil
	}
	if actor.Preferences.DefaultFilter.Valid() {
		return actor.Preferences.DefaultFilter, nil
	}
	if status := domain.TicketStatus(s.board.DefaultFilter); status.Valid() {
		return status, nil
	}
	return domain.TicketStatusPending, nil
}

// orderFor is the storage order matching the display rank of filter, so a
// page is a slice of the ranked list.
func orderFor(filter domain.TicketStatus) repository.TicketOrder {
	if filter == domain.TicketStatusDone {
		return repository.OrderRecentlyUpdated
	}
	return repository.OrderRanked
}

// ViewMode returns the actor's preferred board layout, else the configured one.
func (s *TicketService) ViewMode(actor *domain.User) string {
	if actor != nil && actor.Preferences.ViewMode != "" {
		return actor.Preferences.ViewMode
	}
	if s.board.ViewMode != "" {
		return s.board.ViewMode
	}
	return "kanban"
}

func (s *TicketService) views(actor *domain.User, tickets []domain.ExternalTicket, now time.Time) []TicketView {
	views := make([]TicketView, 0, len(tickets))
	for _, ticket := range tickets {
		views = append(views, s.view(actor, ticket, now))
	}
	return views
}

func (s *TicketService) view(actor *domain.User, ticket domain.ExternalTicket, now time.Time) TicketView {
	return TicketView{
		Ticket:  ticket,
		Class:   lifecycle.ClassOf(&ticket, now, s.loc),
		SLA:     lifecycle.SLAStatusAt(&ticket, now),
		Actions: lifecycle.AvailableActions(actor, &ticket),
	}
}

func (s *TicketService) publishAssigned(ctx context.Context, actor *domain.User, ticket *domain.ExternalTicket, selfService bool) {
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		SectorID: ticket.SectorID,
		Actor:    actorOf(actor),
		Payload: events.TicketAssignedPayload{
			TechnicianID:  derefString(ticket.TechnicianID),
			SectorID:      ticket.SectorID,
			Code:          ticket.Code,
			Type:          ticket.Type,
			ClientName:    ticket.Client.Name,
			ClientPhone:   ticket.Client.Phone,
			ClientAddress: ticket.Client.Address,
			Description:   ticket.Description,
			SelfService:   selfService,
		},
	})
}

func (s *TicketService) recordLog(ctx context.Context, actorID, ticketID string, action domain.SystemLogAction, oldValue, newValue map[string]any) {
	if s.logs == nil {
		return
	}
	entry := &domain.SystemLog{
		ID:         uuid.NewString(),
		TicketID:   ticketID,
		TicketKind: domain.TicketKindExternal,
		ActorID:    actorID,
		Action:     action,
		OldValue:   oldValue,
		NewValue:   newValue,
		CreatedAt:  s.now(),
	}
	if err := s.logs.Create(ctx, entry); err != nil {
		s.logger.Warn("system log write failed",
			zap.String("ticket_id", ticketID),
			zap.String("action", string(action)),
			zap.Error(err))
	}
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.TicketKind == "" {
		event.TicketKind = domain.TicketKindExternal
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

// snapshot captures the fields a transition may touch, for the audit trail.
func snapshot(ticket *domain.ExternalTicket) map[string]any {
	return map[string]any{
		"status":        ticket.Status,
		"type":          ticket.Type,
		"technician_id": derefString(ticket.TechnicianID),
		"en_route":      ticket.EnRoute,
		"checked_in":    ticket.CheckIn != nil,
	}
}

// visibleSectors returns the sector scope for a listing. Nil means every
// sector.
func visibleSectors(actor *domain.User, requested *string) ([]string, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("actor required")
	}
	if requested != nil && *requested != "" {
		if !lifecycle.HasSectorAccess(actor, *requested) {
			return nil, apperrors.NewForbidden("no access to sector")
		}
		return []string{*requested}, nil
	}
	switch actor.Role {
	case domain.RoleAdmin, domain.RoleManager:
		return nil, nil
	}
	return append([]string{}, actor.SectorIDs...), nil
}

func actorOf(user *domain.User) events.Actor {
	return events.Actor{UserID: user.ID, Role: user.Role}
}

func generateTicketCode() string {
	return "OS-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
