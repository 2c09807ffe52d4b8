package domain

import "time"

// SystemLogAction names what happened to a ticket.
type SystemLogAction string

const (
	LogActionCreated         SystemLogAction = "created"
	LogActionAssigned        SystemLogAction = "assigned"
	LogActionCancelled       SystemLogAction = "cancelled"
	LogActionCheckedIn       SystemLogAction = "checked_in"
	LogActionEnRoute         SystemLogAction = "en_route"
	LogActionFinalized       SystemLogAction = "finalized"
	LogActionReturnedPending SystemLogAction = "returned_to_pending"
	LogActionReopened        SystemLogAction = "reopened"
	LogActionGrabbed         SystemLogAction = "grabbed"
	LogActionConcluded       SystemLogAction = "concluded"
	LogActionCommented       SystemLogAction = "commented"
)

// SystemLog is an immutable audit trail entry.
type SystemLog struct {
	ID         string
	TicketID   string
	TicketKind TicketKind
	ActorID    string
	Action     SystemLogAction
	OldValue   map[string]any
	NewValue   map[string]any
	CreatedAt  time.Time
}
