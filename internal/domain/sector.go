package domain

import "time"

// Sector is an organizational unit scoping technician and supervisor visibility.
type Sector struct {
	ID        string
	Name      string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
