package lifecycle

import (
	"time"

	"github.com/fieldops/dispatch/internal/domain"
)

// CanActOnInternal reports whether actor may conclude or cancel an internal ticket.
func CanActOnInternal(actor *domain.User, ticket *domain.InternalTicket) bool {
	if actor == nil || ticket == nil || !actor.Active {
		return false
	}
	if ticket.AssigneeID != nil && *ticket.AssigneeID == actor.ID {
		return true
	}
	if ticket.CreatorID == actor.ID {
		return true
	}
	return SupervisesSector(actor, ticket.SectorID)
}

// Grab assigns a pending internal ticket to actor without changing its status.
func Grab(actor *domain.User, ticket *domain.InternalTicket, now time.Time) error {
	if actor == nil || !actor.Active {
		return ErrForbidden
	}
	if ticket.Status != domain.TicketStatusPending {
		return ErrInvalidTransition
	}
	if ticket.AssigneeID != nil {
		return ErrAlreadyAssigned
	}
	if !HasSectorAccess(actor, ticket.SectorID) {
		return ErrNoSectorAccess
	}
	id := actor.ID
	ticket.AssigneeID = &id
	ticket.UpdatedAt = now
	return nil
}

// Conclude completes a pending internal ticket.
func Conclude(actor *domain.User, ticket *domain.InternalTicket, now time.Time) error {
	return closeInternal(actor, ticket, domain.TicketStatusDone, now)
}

// CancelInternal cancels a pending internal ticket.
func CancelInternal(actor *domain.User, ticket *domain.InternalTicket, now time.Time) error {
	return closeInternal(actor, ticket, domain.TicketStatusCancelled, now)
}

func closeInternal(actor *domain.User, ticket *domain.InternalTicket, next domain.TicketStatus, now time.Time) error {
	if ticket.Status != domain.TicketStatusPending {
		return ErrInvalidTransition
	}
	if !CanActOnInternal(actor, ticket) {
		return ErrForbidden
	}
	ticket.Status = next
	ticket.UpdatedAt = now
	return nil
}
