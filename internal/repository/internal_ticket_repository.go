package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldops/dispatch/internal/domain"
)

// InternalTicketFilter captures listing parameters. A nil SectorIDs means every
// sector; a non-positive Limit means no limit. OrderRanked puts priority
// tickets first.
type InternalTicketFilter struct {
	SectorIDs  []string
	Statuses   []domain.TicketStatus
	AssigneeID *string
	Order      TicketOrder
	Limit      int
	Offset     int
}

// InternalTicketRepository encapsulates internal ticket persistence.
type InternalTicketRepository interface {
	Create(ctx context.Context, ticket *domain.InternalTicket) error
	// Update writes ticket if the stored row still matches rev, else it
	// returns ErrStaleWrite.
	Update(ctx context.Context, ticket *domain.InternalTicket, rev Revision) error
	GetByID(ctx context.Context, id string) (*domain.InternalTicket, error)
	List(ctx context.Context, filter InternalTicketFilter) ([]domain.InternalTicket, error)
}

type internalTicketRepository struct {
	pool *pgxpool.Pool
}

// NewInternalTicketRepository instantiates repository.
func NewInternalTicketRepository(pool *pgxpool.Pool) InternalTicketRepository {
	return &internalTicketRepository{pool: pool}
}

const internalTicketColumns = `id, status, title, description, creator_id, sector_id, assignee_id, is_priority,
        scheduled_to, created_at, updated_at`

func (r *internalTicketRepository) Create(ctx context.Context, ticket *domain.InternalTicket) error {
	const query = `
        INSERT INTO internal_tickets (status, title, description, creator_id, sector_id, assignee_id, is_priority,
            scheduled_to, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id`
	return r.pool.QueryRow(ctx, query,
		ticket.Status,
		ticket.Title,
		ticket.Description,
		ticket.CreatorID,
		ticket.SectorID,
		ticket.AssigneeID,
		ticket.IsPriority,
		ticket.ScheduledTo,
		ticket.CreatedAt,
		ticket.UpdatedAt,
	).Scan(&ticket.ID)
}

func (r *internalTicketRepository) Update(ctx context.Context, ticket *domain.InternalTicket, rev Revision) error {
	const query = `
        UPDATE internal_tickets SET status=$1, title=$2, description=$3, assignee_id=$4, is_priority=$5,
            scheduled_to=$6, updated_at=$7
        WHERE id=$8 AND status=$9 AND updated_at=$10`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.Status,
		ticket.Title,
		ticket.Description,
		ticket.AssigneeID,
		ticket.IsPriority,
		ticket.ScheduledTo,
		ticket.UpdatedAt,
		ticket.ID,
		rev.Status,
		rev.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrStaleWrite
	}
	return nil
}

func (r *internalTicketRepository) GetByID(ctx context.Context, id string) (*domain.InternalTicket, error) {
	query := `SELECT ` + internalTicketColumns + ` FROM internal_tickets WHERE id=$1`
	return scanInternalTicket(r.pool.QueryRow(ctx, query, id))
}

func (r *internalTicketRepository) List(ctx context.Context, filter InternalTicketFilter) ([]domain.InternalTicket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.SectorIDs != nil {
		args = append(args, filter.SectorIDs)
		clauses = append(clauses, fmt.Sprintf("sector_id = ANY($%d)", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("assignee_id=$%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM internal_tickets WHERE %s ORDER BY %s`,
		internalTicketColumns, strings.Join(clauses, " AND "), internalOrderClause(filter.Order))
	query += pageClause(filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.InternalTicket
	for rows.Next() {
		ticket, err := scanInternalTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func scanInternalTicket(row rowScanner) (*domain.InternalTicket, error) {
	var ticket domain.InternalTicket
	if err := row.Scan(
		&ticket.ID,
		&ticket.Status,
		&ticket.Title,
		&ticket.Description,
		&ticket.CreatorID,
		&ticket.SectorID,
		&ticket.AssigneeID,
		&ticket.IsPriority,
		&ticket.ScheduledTo,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func internalOrderClause(order TicketOrder) string {
	switch order {
	case OrderRanked:
		return "is_priority DESC, created_at ASC, id ASC"
	case OrderRecentlyUpdated:
		return "updated_at DESC, id ASC"
	}
	return "created_at ASC, id ASC"
}
