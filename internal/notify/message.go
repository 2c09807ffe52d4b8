package notify

import (
	"fmt"
	"strings"

	"github.com/fieldops/dispatch/internal/domain"
)

// AssignmentMessage is what a technician receives when a ticket is handed to them.
type AssignmentMessage struct {
	Code          string
	Type          domain.TicketType
	ClientName    string
	ClientPhone   string
	ClientAddress *string
	Description   string
}

// Render formats the message body.
func (m AssignmentMessage) Render() string {
	var b strings.Builder
	b.WriteString("Novo chamado atribuído a você")
	if m.Code != "" {
		fmt.Fprintf(&b, " (%s)", m.Code)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Tipo: %s\n", m.Type)
	fmt.Fprintf(&b, "Cliente: %s\n", m.ClientName)
	if m.ClientPhone != "" {
		fmt.Fprintf(&b, "Contato: %s\n", m.ClientPhone)
	}
	if m.ClientAddress != nil && strings.TrimSpace(*m.ClientAddress) != "" {
		fmt.Fprintf(&b, "Endereço: %s\n", strings.TrimSpace(*m.ClientAddress))
	}
	fmt.Fprintf(&b, "Descrição: %s", strings.TrimSpace(m.Description))
	return b.String()
}
