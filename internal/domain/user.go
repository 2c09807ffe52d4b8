package domain

import "time"

// Role enumerates operator roles.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleManager    Role = "gerente"
	RoleSupervisor Role = "encarregado"
	RoleTechnician Role = "tecnico"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleSupervisor, RoleTechnician:
		return true
	}
	return false
}

// Preferences holds per-user board settings.
type Preferences struct {
	DefaultFilter TicketStatus `json:"defaultFilter,omitempty"`
	ViewMode      string       `json:"viewMode,omitempty"`
}

// User is an operator: admins, managers, sector supervisors and technicians.
type User struct {
	ID          string
	Name        string
	Email       string
	Phone       *string
	Role        Role
	SectorIDs   []string
	Active      bool
	Preferences Preferences
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// InSector reports whether the user is a member of sectorID.
func (u *User) InSector(sectorID string) bool {
	for _, id := range u.SectorIDs {
		if id == sectorID {
			return true
		}
	}
	return false
}
