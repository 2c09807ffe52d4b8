package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fieldops/dispatch/internal/domain"
	"github.com/fieldops/dispatch/internal/lifecycle"
)

// renderQueue ranks tickets for filter and writes one row per ticket.
func renderQueue(out io.Writer, tickets []domain.ExternalTicket, filter domain.TicketStatus, now time.Time, loc *time.Location) error {
	lifecycle.SortForFilter(tickets, filter, now, loc)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tTYPE\tCLASS\tCLIENT\tTECHNICIAN\tSLA")
	for i := range tickets {
		ticket := &tickets[i]
		technician := "-"
		if ticket.TechnicianID != nil {
			technician = *ticket.TechnicianID
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			ticket.Code,
			ticket.Type,
			lifecycle.ClassOf(ticket, now, loc),
			ticket.Client.Name,
			technician,
			slaColumn(ticket, now),
		)
	}
	return w.Flush()
}

func slaColumn(ticket *domain.ExternalTicket, now time.Time) string {
	sla := lifecycle.SLAStatusAt(ticket, now)
	switch {
	case !sla.Tracked:
		return "-"
	case sla.Violated:
		return "VIOLATED"
	default:
		return lifecycle.FormatCountdown(sla.Remaining)
	}
}
