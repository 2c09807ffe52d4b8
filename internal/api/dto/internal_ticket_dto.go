package dto

import (
	"time"

	"github.com/fieldops/dispatch/internal/domain"
)

// CreateInternalTicketRequest payload.
type CreateInternalTicketRequest struct {
	SectorID    string     `json:"sector_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	AssigneeID  *string    `json:"assignee_id"`
	IsPriority  bool       `json:"is_priority"`
	ScheduledTo *time.Time `json:"scheduled_to"`
}

// InternalTicketResponse represents an internal task.
type InternalTicketResponse struct {
	ID          string              `json:"id"`
	Status      domain.TicketStatus `json:"status"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	CreatorID   string              `json:"creator_id"`
	SectorID    string              `json:"sector_id"`
	AssigneeID  *string             `json:"assignee_id"`
	IsPriority  bool                `json:"is_priority"`
	ScheduledTo *time.Time          `json:"scheduled_to,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}
