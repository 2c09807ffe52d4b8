package domain

import "time"

// TicketStatus enumerates lifecycle states shared by external and internal tickets.
type TicketStatus string

const (
	TicketStatusPending    TicketStatus = "pendente"
	TicketStatusInProgress TicketStatus = "em andamento"
	TicketStatusDone       TicketStatus = "concluído"
	TicketStatusCancelled  TicketStatus = "cancelado"
)

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusPending, TicketStatusInProgress, TicketStatusDone, TicketStatusCancelled:
		return true
	}
	return false
}

// AllStatuses lists statuses in board column order.
var AllStatuses = []TicketStatus{
	TicketStatusPending,
	TicketStatusInProgress,
	TicketStatusDone,
	TicketStatusCancelled,
}

// TicketType classifies an external ticket for ranking.
type TicketType string

const (
	TicketTypeStandard  TicketType = "padrão"
	TicketTypeContract  TicketType = "contrato"
	TicketTypeUrgent    TicketType = "urgente"
	TicketTypeScheduled TicketType = "agendado"
	TicketTypeReturn    TicketType = "retorno"
)

// Valid reports whether t is a known ticket type.
func (t TicketType) Valid() bool {
	switch t {
	case TicketTypeStandard, TicketTypeContract, TicketTypeUrgent, TicketTypeScheduled, TicketTypeReturn:
		return true
	}
	return false
}

// ClientRef is the client snapshot embedded in an external ticket.
type ClientRef struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Phone   string  `json:"phone"`
	IsWhats bool    `json:"isWhats"`
	Address *string `json:"address,omitempty"`
}

// CheckIn marks the technician's arrival on site.
type CheckIn struct {
	TicketID  string    `json:"ticketId"`
	Timestamp time.Time `json:"timestamp"`
}

// TechnicalReport is attached once, at finalization.
type TechnicalReport struct {
	Observations string   `json:"observations"`
	Photos       []string `json:"photos"`
	Signature    *string  `json:"signature,omitempty"`
}

// ExternalTicket is a client-facing service request routed to a field technician.
type ExternalTicket struct {
	ID              string
	Code            string
	Status          TicketStatus
	Type            TicketType
	Client          ClientRef
	Description     string
	RequesterName   *string
	CreatorID       string
	SectorID        string
	TechnicianID    *string
	ScheduledTo     *time.Time
	SLAExpiresAt    *time.Time
	EnRoute         bool
	EnRouteAt       *time.Time
	CheckIn         *CheckIn
	CheckOut        *time.Time
	TechnicalReport *TechnicalReport
	Comments        []Comment
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// InternalTicket is an internal task or reminder, optionally assigned within a sector.
type InternalTicket struct {
	ID          string
	Status      TicketStatus
	Title       string
	Description string
	CreatorID   string
	SectorID    string
	AssigneeID  *string
	IsPriority  bool
	ScheduledTo *time.Time
	Comments    []Comment
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
