package lifecycle

import (
	"time"

	"github.com/fieldops/dispatch/internal/domain"
)

var baseTime = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func newUser(id string, role domain.Role, sectors ...string) *domain.User {
	return &domain.User{ID: id, Name: id, Role: role, SectorIDs: sectors, Active: true}
}

func pendingTicket(id, sector string) *domain.ExternalTicket {
	return &domain.ExternalTicket{
		ID:        id,
		Status:    domain.TicketStatusPending,
		Type:      domain.TicketTypeStandard,
		SectorID:  sector,
		CreatedAt: baseTime,
		UpdatedAt: baseTime,
	}
}

func inProgressTicket(id, sector, technician string) *domain.ExternalTicket {
	t := pendingTicket(id, sector)
	t.Status = domain.TicketStatusInProgress
	t.TechnicianID = strPtr(technician)
	return t
}
