package lifecycle

import (
	"strings"
	"time"

	"github.com/fieldops/dispatch/internal/domain"
)

// Take lets actor claim an unassigned pending ticket.
func Take(actor *domain.User, ticket *domain.ExternalTicket, now time.Time) error {
	if err := CanTransition(actor, ticket, ActionTake); err != nil {
		return err
	}
	startWork(ticket, actor.ID, now)
	return nil
}

// Assign hands an unassigned pending ticket to assignee on behalf of a supervisor.
func Assign(actor, assignee *domain.User, ticket *domain.ExternalTicket, now time.Time) error {
	if err := CanTransition(actor, ticket, ActionAssign); err != nil {
		return err
	}
	if err := CanReceiveAssignment(assignee, ticket.SectorID); err != nil {
		return err
	}
	startWork(ticket, assignee.ID, now)
	return nil
}

func startWork(ticket *domain.ExternalTicket, technicianID string, now time.Time) {
	id := technicianID
	ticket.TechnicianID = &id
	ticket.Status = domain.TicketStatusInProgress
	ticket.UpdatedAt = now
}

// Cancel moves a pending or in-progress ticket to the absorbing cancelled state.
func Cancel(actor *domain.User, ticket *domain.ExternalTicket, now time.Time) error {
	if err := CanTransition(actor, ticket, ActionCancel); err != nil {
		return err
	}
	ticket.Status = domain.TicketStatusCancelled
	ticket.TechnicianID = nil
	clearEnRoute(ticket)
	ticket.UpdatedAt = now
	return nil
}

// CheckIn stamps the technician's arrival. A second check-in is rejected and
// the original timestamp kept.
func CheckIn(actor *domain.User, ticket *domain.ExternalTicket, now time.Time) error {
	if err := CanTransition(actor, ticket, ActionCheckIn); err != nil {
		return err
	}
	ticket.CheckIn = &domain.CheckIn{TicketID: ticket.ID, Timestamp: now}
	ticket.UpdatedAt = now
	return nil
}

// MarkEnRoute flags ticket as the technician's next destination. Clearing the
// flag on the technician's other tickets is the store's job and must happen in
// the same atomic write.
func MarkEnRoute(actor *domain.User, ticket *domain.ExternalTicket, now time.Time) error {
	if err := CanTransition(actor, ticket, ActionEnRoute); err != nil {
		return err
	}
	at := now
	ticket.EnRoute = true
	ticket.EnRouteAt = &at
	ticket.UpdatedAt = now
	return nil
}

// ValidateReport checks the technical report before finalization.
func ValidateReport(report domain.TechnicalReport) error {
	if strings.TrimSpace(report.Observations) == "" {
		return ErrMissingObservations
	}
	return nil
}

// Finalize completes an in-progress ticket, attaching report and stamping checkout.
func Finalize(actor *domain.User, ticket *domain.ExternalTicket, report domain.TechnicalReport, now time.Time) error {
	if err := CanTransition(actor, ticket, ActionFinalize); err != nil {
		return err
	}
	if err := ValidateReport(report); err != nil {
		return err
	}
	photos := make([]string, 0, len(report.Photos))
	for _, p := range report.Photos {
		if p = strings.TrimSpace(p); p != "" {
			photos = append(photos, p)
		}
	}
	attached := domain.TechnicalReport{
		Observations: strings.TrimSpace(report.Observations),
		Photos:       photos,
		Signature:    report.Signature,
	}
	checkOut := now
	ticket.TechnicalReport = &attached
	ticket.CheckOut = &checkOut
	ticket.Status = domain.TicketStatusDone
	clearEnRoute(ticket)
	ticket.UpdatedAt = now
	return nil
}

// ReturnToPending puts an in-progress ticket back in the queue without a technician.
func ReturnToPending(actor *domain.User, ticket *domain.ExternalTicket, now time.Time) error {
	if err := CanTransition(actor, ticket, ActionReturnToPending); err != nil {
		return err
	}
	ticket.Status = domain.TicketStatusPending
	ticket.TechnicianID = nil
	ticket.CheckIn = nil
	clearEnRoute(ticket)
	ticket.UpdatedAt = now
	return nil
}

// Reopen sends a completed ticket back to the queue as a return visit.
func Reopen(actor *domain.User, ticket *domain.ExternalTicket, now time.Time) error {
	if err := CanTransition(actor, ticket, ActionReopen); err != nil {
		return err
	}
	ticket.Status = domain.TicketStatusPending
	ticket.Type = domain.TicketTypeReturn
	ticket.TechnicianID = nil
	ticket.CheckIn = nil
	ticket.CheckOut = nil
	ticket.TechnicalReport = nil
	clearEnRoute(ticket)
	ticket.UpdatedAt = now
	return nil
}

func clearEnRoute(ticket *domain.ExternalTicket) {
	ticket.EnRoute = false
	ticket.EnRouteAt = nil
}
