package lifecycle

import (
	"sort"
	"time"

	"github.com/fieldops/dispatch/internal/domain"
)

// PriorityClass orders external tickets for display. Lower sorts first.
type PriorityClass int

const (
	ClassOverdue PriorityClass = iota
	ClassScheduledToday
	ClassReturn
	ClassContract
	ClassUrgent
	ClassStandard
	ClassScheduledFuture
	ClassUnknown
)

var classNames = map[PriorityClass]string{
	ClassOverdue:         "overdue",
	ClassScheduledToday:  "scheduled_today",
	ClassReturn:          "return",
	ClassContract:        "contract",
	ClassUrgent:          "urgent",
	ClassStandard:        "standard",
	ClassScheduledFuture: "scheduled_future",
	ClassUnknown:         "unknown",
}

func (c PriorityClass) String() string {
	if name, ok := classNames[c]; ok {
		return name
	}
	return "unknown"
}

// ClassOf derives the priority class of ticket. Scheduled tickets are compared
// to now by calendar day in loc; one without a date ranks as future.
func ClassOf(ticket *domain.ExternalTicket, now time.Time, loc *time.Location) PriorityClass {
	switch ticket.Type {
	case domain.TicketTypeReturn:
		return ClassReturn
	case domain.TicketTypeContract:
		return ClassContract
	case domain.TicketTypeUrgent:
		return ClassUrgent
	case domain.TicketTypeStandard:
		return ClassStandard
	case domain.TicketTypeScheduled:
		if ticket.ScheduledTo == nil {
			return ClassScheduledFuture
		}
		if loc == nil {
			loc = time.UTC
		}
		scheduled := ticket.ScheduledTo.In(loc)
		current := now.In(loc)
		if sameDay(scheduled, current) {
			return ClassScheduledToday
		}
		if scheduled.Before(current) {
			return ClassOverdue
		}
		return ClassScheduledFuture
	}
	return ClassUnknown
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// SortForFilter orders tickets in place for the given status filter. The
// completed filter shows the most recently completed first; every other
// filter ranks by priority class, then oldest first.
func SortForFilter(tickets []domain.ExternalTicket, filter domain.TicketStatus, now time.Time, loc *time.Location) {
	if filter == domain.TicketStatusDone {
		sort.SliceStable(tickets, func(i, j int) bool {
			return tickets[i].UpdatedAt.After(tickets[j].UpdatedAt)
		})
		return
	}
	ranked := make([]rankedTicket, len(tickets))
	for i := range tickets {
		ranked[i] = rankedTicket{ticket: tickets[i], class: ClassOf(&tickets[i], now, loc)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].class != ranked[j].class {
			return ranked[i].class < ranked[j].class
		}
		return ranked[i].ticket.CreatedAt.Before(ranked[j].ticket.CreatedAt)
	})
	for i := range ranked {
		tickets[i] = ranked[i].ticket
	}
}

type rankedTicket struct {
	ticket domain.ExternalTicket
	class  PriorityClass
}

// SortInternalForFilter orders internal tickets: priority flag first, then
// oldest first. The completed filter shows the most recently completed first.
func SortInternalForFilter(tickets []domain.InternalTicket, filter domain.TicketStatus) {
	if filter == domain.TicketStatusDone {
		sort.SliceStable(tickets, func(i, j int) bool {
			return tickets[i].UpdatedAt.After(tickets[j].UpdatedAt)
		})
		return
	}
	sort.SliceStable(tickets, func(i, j int) bool {
		if tickets[i].IsPriority != tickets[j].IsPriority {
			return tickets[i].IsPriority
		}
		return tickets[i].CreatedAt.Before(tickets[j].CreatedAt)
	})
}
