package repository

import (
	"errors"
	"time"

	"github.com/fieldops/dispatch/internal/domain"
)

// ErrStaleWrite reports that the row changed between the read a write was
// computed from and the write itself.
var ErrStaleWrite = errors.New("ticket changed since it was read")

// Revision identifies the stored state a write was computed from. Updates only
// apply while the row still matches it.
type Revision struct {
	Status    domain.TicketStatus
	UpdatedAt time.Time
}
