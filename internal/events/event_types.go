package events

import (
	"time"

	"github.com/fieldops/dispatch/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketStatusChanged   EventType = "ticket_status_changed"
	EventTicketAssigned        EventType = "ticket_assigned"
	EventTicketCheckedIn       EventType = "ticket_checked_in"
	EventTicketEnRouteChanged  EventType = "ticket_en_route_changed"
	EventTicketCommentAdded    EventType = "ticket_comment_added"
	EventTicketSLAViolated     EventType = "ticket_sla_violated"
	EventInternalTicketChanged EventType = "internal_ticket_changed"
)

// AllEventTypes lists every event type, for subscribers that relay everything.
var AllEventTypes = []EventType{
	EventTicketCreated,
	EventTicketStatusChanged,
	EventTicketAssigned,
	EventTicketCheckedIn,
	EventTicketEnRouteChanged,
	EventTicketCommentAdded,
	EventTicketSLAViolated,
	EventInternalTicketChanged,
}

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role,omitempty"`
}

// SystemActor marks events raised by background workers.
var SystemActor = Actor{UserID: "system"}

// Event represents a domain event emitted by services.
type Event struct {
	ID         string            `json:"id"`
	Type       EventType         `json:"type"`
	TicketID   string            `json:"ticket_id"`
	TicketKind domain.TicketKind `json:"ticket_kind"`
	SectorID   string            `json:"sector_id,omitempty"`
	Actor      Actor             `json:"actor"`
	Timestamp  time.Time         `json:"timestamp"`
	Payload    interface{}       `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	SectorID     string            `json:"sector_id"`
	Type         domain.TicketType `json:"type"`
	ClientName   string            `json:"client_name"`
	SLAExpiresAt *time.Time        `json:"sla_expires_at,omitempty"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Action    string              `json:"action"`
}

// TicketAssignedPayload carries everything the assignee notification needs.
type TicketAssignedPayload struct {
	TechnicianID  string            `json:"technician_id"`
	SectorID      string            `json:"sector_id"`
	Code          string            `json:"code"`
	Type          domain.TicketType `json:"type"`
	ClientName    string            `json:"client_name"`
	ClientPhone   string            `json:"client_phone"`
	ClientAddress *string           `json:"client_address,omitempty"`
	Description   string            `json:"description"`
	SelfService   bool              `json:"self_service"`
}

// TicketEnRoutePayload payload.
type TicketEnRoutePayload struct {
	TechnicianID string   `json:"technician_id"`
	ClearedIDs   []string `json:"cleared_ids"`
}

// TicketCommentAddedPayload payload.
type TicketCommentAddedPayload struct {
	CommentID   string `json:"comment_id"`
	AuthorID    string `json:"author_id"`
	BodyPreview string `json:"body_preview"`
}

// TicketSLAViolatedPayload payload.
type TicketSLAViolatedPayload struct {
	SectorID     string    `json:"sector_id"`
	SLAExpiresAt time.Time `json:"sla_expires_at"`
}

// InternalTicketChangedPayload payload.
type InternalTicketChangedPayload struct {
	Action     string              `json:"action"`
	Status     domain.TicketStatus `json:"status"`
	AssigneeID *string             `json:"assignee_id,omitempty"`
}
