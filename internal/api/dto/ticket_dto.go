package dto

import (
	"time"

	"github.com/fieldops/dispatch/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	ClientID      string            `json:"client_id"`
	SectorID      string            `json:"sector_id"`
	Type          domain.TicketType `json:"type"`
	Description   string            `json:"description"`
	RequesterName *string           `json:"requester_name"`
	ScheduledTo   *time.Time        `json:"scheduled_to"`
	SLAHours      *int              `json:"sla_hours"`
}

// AssignTicketRequest payload.
type AssignTicketRequest struct {
	TechnicianID string `json:"technician_id"`
}

// FinalizeTicketRequest carries the technical report.
type FinalizeTicketRequest struct {
	Observations string   `json:"observations"`
	Photos       []string `json:"photos"`
	Signature    *string  `json:"signature"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Content string `json:"content"`
}

// SLAResponse is the derived countdown. Remaining is HH:MM:SS.
type SLAResponse struct {
	ExpiresAt        time.Time `json:"expires_at"`
	Remaining        string    `json:"remaining"`
	RemainingSeconds int64     `json:"remaining_seconds"`
	Violated         bool      `json:"violated"`
}

// TicketResponse is an external ticket as shown on lists and detail pages.
type TicketResponse struct {
	ID               string                  `json:"id"`
	Code             string                  `json:"code"`
	Status           domain.TicketStatus     `json:"status"`
	Type             domain.TicketType       `json:"type"`
	Client           domain.ClientRef        `json:"client"`
	Description      string                  `json:"description"`
	RequesterName    *string                 `json:"requester_name,omitempty"`
	CreatorID        string                  `json:"creator_id"`
	SectorID         string                  `json:"sector_id"`
	TechnicianID     *string                 `json:"technician_id"`
	ScheduledTo      *time.Time              `json:"scheduled_to,omitempty"`
	SLAExpiresAt     *time.Time              `json:"sla_expires_at,omitempty"`
	EnRoute          bool                    `json:"en_route"`
	EnRouteAt        *time.Time              `json:"en_route_at,omitempty"`
	CheckIn          *domain.CheckIn         `json:"check_in,omitempty"`
	CheckOut         *time.Time              `json:"check_out,omitempty"`
	TechnicalReport  *domain.TechnicalReport `json:"technical_report,omitempty"`
	Comments         []CommentResponse       `json:"comments,omitempty"`
	CreatedAt        time.Time               `json:"created_at"`
	UpdatedAt        time.Time               `json:"updated_at"`
	PriorityClass    string                  `json:"priority_class,omitempty"`
	SLA              *SLAResponse            `json:"sla,omitempty"`
	AvailableActions []string                `json:"available_actions,omitempty"`
}

// TicketListResponse wraps a ranked listing.
type TicketListResponse struct {
	Data   []TicketResponse    `json:"data"`
	Filter domain.TicketStatus `json:"filter"`
	Count  int                 `json:"count"`
}

// BoardColumnResponse is one kanban column.
type BoardColumnResponse struct {
	Status  domain.TicketStatus `json:"status"`
	Count   int                 `json:"count"`
	Tickets []TicketResponse    `json:"tickets"`
}

// EnRouteResponse reports the flagged ticket and the ones cleared with it.
type EnRouteResponse struct {
	Data       TicketResponse `json:"data"`
	ClearedIDs []string       `json:"cleared_ids"`
}

// CommentResponse represents a ticket comment.
type CommentResponse struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryEntryResponse is one audit trail entry.
type HistoryEntryResponse struct {
	ID        string                 `json:"id"`
	Action    domain.SystemLogAction `json:"action"`
	ActorID   string                 `json:"actor_id"`
	OldValue  map[string]any         `json:"old_value,omitempty"`
	NewValue  map[string]any         `json:"new_value,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}
