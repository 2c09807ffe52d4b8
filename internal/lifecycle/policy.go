package lifecycle

import (
	"github.com/fieldops/dispatch/internal/domain"
)

// Action is a user-triggered operation on an external ticket.
type Action string

const (
	ActionTake            Action = "take"
	ActionAssign          Action = "assign"
	ActionCancel          Action = "cancel"
	ActionCheckIn         Action = "check_in"
	ActionEnRoute         Action = "en_route"
	ActionFinalize        Action = "finalize"
	ActionReturnToPending Action = "return_to_pending"
	ActionReopen          Action = "reopen"
)

var actionsByStatus = map[domain.TicketStatus][]Action{
	domain.TicketStatusPending:    {ActionTake, ActionAssign, ActionCancel},
	domain.TicketStatusInProgress: {ActionCheckIn, ActionEnRoute, ActionFinalize, ActionReturnToPending, ActionCancel},
	domain.TicketStatusDone:       {ActionReopen},
	domain.TicketStatusCancelled:  {},
}

func allowedFrom(status domain.TicketStatus, action Action) bool {
	for _, candidate := range actionsByStatus[status] {
		if candidate == action {
			return true
		}
	}
	return false
}

// HasSectorAccess reports whether actor may see tickets of sectorID.
func HasSectorAccess(actor *domain.User, sectorID string) bool {
	if actor == nil {
		return false
	}
	switch actor.Role {
	case domain.RoleAdmin, domain.RoleManager:
		return true
	case domain.RoleSupervisor, domain.RoleTechnician:
		return actor.InSector(sectorID)
	}
	return false
}

// SupervisesSector reports whether actor holds elevated rights over sectorID.
func SupervisesSector(actor *domain.User, sectorID string) bool {
	if actor == nil {
		return false
	}
	switch actor.Role {
	case domain.RoleAdmin, domain.RoleManager:
		return true
	case domain.RoleSupervisor:
		return actor.InSector(sectorID)
	}
	return false
}

// CanIntervene reports whether actor may act on ticket. A completed ticket is
// open to any operator so that it can be reopened.
func CanIntervene(actor *domain.User, ticket *domain.ExternalTicket) bool {
	if actor == nil || ticket == nil {
		return false
	}
	if ticket.TechnicianID != nil && *ticket.TechnicianID == actor.ID {
		return true
	}
	if SupervisesSector(actor, ticket.SectorID) {
		return true
	}
	return ticket.Status == domain.TicketStatusDone
}

// CanTransition validates action against ticket state and actor rights. It
// returns nil when the action may proceed.
func CanTransition(actor *domain.User, ticket *domain.ExternalTicket, action Action) error {
	if actor == nil || !actor.Active {
		return ErrForbidden
	}
	if !allowedFrom(ticket.Status, action) {
		return ErrInvalidTransition
	}

	switch action {
	case ActionTake:
		if ticket.TechnicianID != nil {
			return ErrAlreadyAssigned
		}
		if !HasSectorAccess(actor, ticket.SectorID) {
			return ErrNoSectorAccess
		}
		return nil
	case ActionAssign:
		if ticket.TechnicianID != nil {
			return ErrAlreadyAssigned
		}
		if !SupervisesSector(actor, ticket.SectorID) {
			return ErrForbidden
		}
		return nil
	}

	if !CanIntervene(actor, ticket) {
		return ErrForbidden
	}

	switch action {
	case ActionCheckIn:
		if ticket.CheckIn != nil {
			return ErrAlreadyCheckedIn
		}
	case ActionEnRoute:
		if ticket.TechnicianID == nil {
			return ErrNotAssigned
		}
	case ActionFinalize:
		if ticket.CheckIn == nil {
			return ErrNotCheckedIn
		}
		if ticket.TechnicalReport != nil {
			return ErrReportAttached
		}
	}
	return nil
}

// AvailableActions lists every action actor could trigger on ticket right now.
func AvailableActions(actor *domain.User, ticket *domain.ExternalTicket) []Action {
	var actions []Action
	for _, action := range actionsByStatus[ticket.Status] {
		if CanTransition(actor, ticket, action) == nil {
			actions = append(actions, action)
		}
	}
	return actions
}

// CanReceiveAssignment checks that assignee may hold tickets of sectorID.
func CanReceiveAssignment(assignee *domain.User, sectorID string) error {
	if assignee == nil || !assignee.Active {
		return ErrInvalidAssignee
	}
	if !HasSectorAccess(assignee, sectorID) {
		return ErrInvalidAssignee
	}
	return nil
}
