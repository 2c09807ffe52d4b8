package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fieldops/dispatch/internal/domain"
	"github.com/fieldops/dispatch/internal/events"
	"github.com/fieldops/dispatch/internal/lifecycle"
	"github.com/fieldops/dispatch/internal/repository"
)

const violationMarkerTTL = 7 * 24 * time.Hour

// TicketLister is the read side the watcher scans.
type TicketLister interface {
	List(ctx context.Context, filter repository.ExternalTicketFilter) ([]domain.ExternalTicket, error)
}

// Deduper records that a violation was already announced. go-redis clients
// satisfy it.
type Deduper interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// SLAWatcher announces each pending ticket whose SLA expired, once. It never
// changes ticket status.
type SLAWatcher struct {
	tickets    TicketLister
	dedupe     Deduper
	dispatcher events.Dispatcher
	interval   time.Duration
	now        func() time.Time
	logger     *zap.Logger
}

// NewSLAWatcher builds a watcher.
func NewSLAWatcher(tickets TicketLister, dedupe Deduper, dispatcher events.Dispatcher, interval time.Duration, logger *zap.Logger) *SLAWatcher {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SLAWatcher{
		tickets:    tickets,
		dedupe:     dedupe,
		dispatcher: dispatcher,
		interval:   interval,
		now:        time.Now,
		logger:     logger,
	}
}

// Run scans on every tick until ctx is done.
func (w *SLAWatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	w.logger.Info("sla watcher started", zap.Duration("interval", w.interval))
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("sla watcher stopped")
			return
		case <-ticker.C:
			if _, err := w.Scan(ctx); err != nil && ctx.Err() == nil {
				w.logger.Warn("sla scan failed", zap.Error(err))
			}
		}
	}
}

// Scan checks pending tickets once and returns how many new violations it
// announced.
func (w *SLAWatcher) Scan(ctx context.Context) (int, error) {
	tickets, err := w.tickets.List(ctx, repository.ExternalTicketFilter{
		Statuses:    []domain.TicketStatus{domain.TicketStatusPending},
		OnlyWithSLA: true,
	})
	if err != nil {
		return 0, err
	}

	now := w.now()
	announced := 0
	for i := range tickets {
		ticket := &tickets[i]
		status := lifecycle.SLAStatusAt(ticket, now)
		if !status.Violated {
			continue
		}
		first, err := w.markViolation(ctx, ticket)
		if err != nil {
			return announced, err
		}
		if !first {
			continue
		}
		announced++
		_ = w.dispatcher.Publish(ctx, events.Event{
			ID:         uuid.NewString(),
			Type:       events.EventTicketSLAViolated,
			TicketID:   ticket.ID,
			SectorID:   ticket.SectorID,
			TicketKind: domain.TicketKindExternal,
			Actor:      events.SystemActor,
			Timestamp:  now,
			Payload: events.TicketSLAViolatedPayload{
				SectorID:     ticket.SectorID,
				SLAExpiresAt: *ticket.SLAExpiresAt,
			},
		})
	}
	if announced > 0 {
		w.logger.Info("sla violations announced", zap.Int("count", announced))
	}
	return announced, nil
}

// markViolation reports whether this is the first time the violation is seen.
// The key includes the expiry so a reopened ticket with a new SLA is announced
// again.
func (w *SLAWatcher) markViolation(ctx context.Context, ticket *domain.ExternalTicket) (bool, error) {
	key := fmt.Sprintf("sla:violated:%s:%d", ticket.ID, ticket.SLAExpiresAt.Unix())
	return w.dedupe.SetNX(ctx, key, 1, violationMarkerTTL).Result()
}
