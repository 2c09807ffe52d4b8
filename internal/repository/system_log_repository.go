package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldops/dispatch/internal/domain"
)

// SystemLogRepository stores audit entries.
type SystemLogRepository interface {
	Create(ctx context.Context, entry *domain.SystemLog) error
	ListByTicket(ctx context.Context, kind domain.TicketKind, ticketID string, limit, offset int) ([]domain.SystemLog, error)
}

type systemLogRepository struct {
	pool *pgxpool.Pool
}

// NewSystemLogRepository builds repository.
func NewSystemLogRepository(pool *pgxpool.Pool) SystemLogRepository {
	return &systemLogRepository{pool: pool}
}

func (r *systemLogRepository) Create(ctx context.Context, entry *domain.SystemLog) error {
	const query = `
        INSERT INTO system_logs (id, ticket_id, ticket_kind, actor_id, action, old_value, new_value, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := r.pool.Exec(ctx, query,
		entry.ID,
		entry.TicketID,
		entry.TicketKind,
		entry.ActorID,
		entry.Action,
		entry.OldValue,
		entry.NewValue,
		entry.CreatedAt,
	)
	return err
}

func (r *systemLogRepository) ListByTicket(ctx context.Context, kind domain.TicketKind, ticketID string, limit, offset int) ([]domain.SystemLog, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, ticket_id, ticket_kind, actor_id, action, old_value, new_value, created_at
        FROM system_logs WHERE ticket_kind=$1 AND ticket_id=$2 ORDER BY created_at ASC LIMIT $3 OFFSET $4`
	rows, err := r.pool.Query(ctx, query, kind, ticketID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SystemLog
	for rows.Next() {
		var entry domain.SystemLog
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.TicketKind,
			&entry.ActorID,
			&entry.Action,
			&entry.OldValue,
			&entry.NewValue,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
