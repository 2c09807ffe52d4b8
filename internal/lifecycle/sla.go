package lifecycle

import (
	"fmt"
	"time"

	"github.com/fieldops/dispatch/internal/domain"
)

// SLAStatus is the derived countdown of a ticket. It is never persisted.
type SLAStatus struct {
	Tracked   bool
	ExpiresAt *time.Time
	Remaining time.Duration
	Violated  bool
}

// SLAExpiry returns createdAt plus hours, or nil when hours is not positive.
func SLAExpiry(createdAt time.Time, hours int) *time.Time {
	if hours <= 0 {
		return nil
	}
	exp := createdAt.Add(time.Duration(hours) * time.Hour)
	return &exp
}

// SLAStatusAt computes the countdown for ticket at now. Only pending tickets
// with an expiry are tracked.
func SLAStatusAt(ticket *domain.ExternalTicket, now time.Time) SLAStatus {
	if ticket.SLAExpiresAt == nil || ticket.Status != domain.TicketStatusPending {
		return SLAStatus{}
	}
	status := SLAStatus{Tracked: true, ExpiresAt: ticket.SLAExpiresAt}
	if now.After(*ticket.SLAExpiresAt) {
		status.Violated = true
		return status
	}
	status.Remaining = ticket.SLAExpiresAt.Sub(now)
	return status
}

// FormatCountdown renders d as HH:MM:SS, hours unbounded.
func FormatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
