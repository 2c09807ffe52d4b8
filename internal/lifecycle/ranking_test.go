package lifecycle

import (
	"testing"
	"time"

	"github.com/fieldops/dispatch/internal/domain"
)

func ticketOfType(id string, typ domain.TicketType, created time.Time) domain.ExternalTicket {
	return domain.ExternalTicket{
		ID:        id,
		Status:    domain.TicketStatusPending,
		Type:      typ,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func ids(tickets []domain.ExternalTicket) []string {
	out := make([]string, len(tickets))
	for i := range tickets {
		out[i] = tickets[i].ID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSortByTypeIgnoresCreationTime(t *testing.T) {
	tickets := []domain.ExternalTicket{
		ticketOfType("padrao", domain.TicketTypeStandard, baseTime.Add(-4*time.Hour)),
		ticketOfType("urgente", domain.TicketTypeUrgent, baseTime.Add(-3*time.Hour)),
		ticketOfType("contrato", domain.TicketTypeContract, baseTime.Add(-2*time.Hour)),
		ticketOfType("retorno", domain.TicketTypeReturn, baseTime.Add(-1*time.Hour)),
	}
	SortForFilter(tickets, domain.TicketStatusPending, baseTime, time.UTC)

	want := []string{"retorno", "contrato", "urgente", "padrao"}
	if got := ids(tickets); !equalIDs(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
}

func TestSortTieBreaksOnCreatedAt(t *testing.T) {
	tickets := []domain.ExternalTicket{
		ticketOfType("newer", domain.TicketTypeUrgent, baseTime),
		ticketOfType("older", domain.TicketTypeUrgent, baseTime.Add(-time.Hour)),
	}
	SortForFilter(tickets, domain.TicketStatusInProgress, baseTime, time.UTC)

	if got := ids(tickets); !equalIDs(got, []string{"older", "newer"}) {
		t.Fatalf("order = %v", got)
	}
}

func TestScheduledClasses(t *testing.T) {
	loc := time.FixedZone("BRT", -3*3600)
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, loc)
	at := func(d time.Duration) *time.Time { v := now.Add(d); return &v }

	cases := []struct {
		name      string
		scheduled *time.Time
		want      PriorityClass
	}{
		{"yesterday", at(-24 * time.Hour), ClassOverdue},
		{"earlier today", at(-2 * time.Hour), ClassScheduledToday},
		{"later today", at(2 * time.Hour), ClassScheduledToday},
		{"tomorrow", at(24 * time.Hour), ClassScheduledFuture},
		{"no date", nil, ClassScheduledFuture},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ticket := ticketOfType("s", domain.TicketTypeScheduled, now)
			ticket.ScheduledTo = tc.scheduled
			if got := ClassOf(&ticket, now, loc); got != tc.want {
				t.Errorf("ClassOf = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestFullClassOrder(t *testing.T) {
	now := baseTime
	yesterday := now.Add(-24 * time.Hour)
	laterToday := now.Add(time.Hour)
	nextWeek := now.Add(7 * 24 * time.Hour)

	overdue := ticketOfType("overdue", domain.TicketTypeScheduled, now)
	overdue.ScheduledTo = &yesterday
	today := ticketOfType("today", domain.TicketTypeScheduled, now)
	today.ScheduledTo = &laterToday
	future := ticketOfType("future", domain.TicketTypeScheduled, now)
	future.ScheduledTo = &nextWeek

	tickets := []domain.ExternalTicket{
		ticketOfType("mystery", domain.TicketType("outro"), now.Add(-48*time.Hour)),
		future,
		ticketOfType("padrao", domain.TicketTypeStandard, now),
		ticketOfType("urgente", domain.TicketTypeUrgent, now),
		ticketOfType("contrato", domain.TicketTypeContract, now),
		ticketOfType("retorno", domain.TicketTypeReturn, now),
		today,
		overdue,
	}
	SortForFilter(tickets, domain.TicketStatusPending, now, time.UTC)

	want := []string{"overdue", "today", "retorno", "contrato", "urgente", "padrao", "future", "mystery"}
	if got := ids(tickets); !equalIDs(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
}

func TestCompletedFilterSortsByUpdatedAtDesc(t *testing.T) {
	a := ticketOfType("a", domain.TicketTypeReturn, baseTime)
	a.UpdatedAt = baseTime.Add(time.Hour)
	b := ticketOfType("b", domain.TicketTypeStandard, baseTime)
	b.UpdatedAt = baseTime.Add(3 * time.Hour)
	c := ticketOfType("c", domain.TicketTypeUrgent, baseTime)
	c.UpdatedAt = baseTime.Add(2 * time.Hour)

	tickets := []domain.ExternalTicket{a, b, c}
	SortForFilter(tickets, domain.TicketStatusDone, baseTime, time.UTC)

	if got := ids(tickets); !equalIDs(got, []string{"b", "c", "a"}) {
		t.Fatalf("order = %v", got)
	}
}

func TestSortInternal(t *testing.T) {
	tickets := []domain.InternalTicket{
		{ID: "old", CreatedAt: baseTime.Add(-time.Hour), UpdatedAt: baseTime},
		{ID: "prio", IsPriority: true, CreatedAt: baseTime, UpdatedAt: baseTime.Add(-time.Hour)},
		{ID: "new", CreatedAt: baseTime, UpdatedAt: baseTime.Add(time.Hour)},
	}
	SortInternalForFilter(tickets, domain.TicketStatusPending)
	if tickets[0].ID != "prio" || tickets[1].ID != "old" || tickets[2].ID != "new" {
		t.Fatalf("unexpected order: %s %s %s", tickets[0].ID, tickets[1].ID, tickets[2].ID)
	}

	SortInternalForFilter(tickets, domain.TicketStatusDone)
	if tickets[0].ID != "new" || tickets[2].ID != "prio" {
		t.Fatalf("unexpected completed order: %s %s %s", tickets[0].ID, tickets[1].ID, tickets[2].ID)
	}
}
