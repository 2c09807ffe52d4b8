package domain

import "time"

// TicketKind tells which ticket collection a comment or log entry belongs to.
type TicketKind string

const (
	TicketKindExternal TicketKind = "external"
	TicketKindInternal TicketKind = "internal"
)

// Comment is an append-only note on a ticket thread.
type Comment struct {
	ID         string
	TicketID   string
	TicketKind TicketKind
	AuthorID   string
	Content    string
	CreatedAt  time.Time
}
