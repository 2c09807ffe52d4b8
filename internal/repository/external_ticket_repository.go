package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldops/dispatch/internal/domain"
)

// TicketOrder selects the row order of a listing.
type TicketOrder int

const (
	// OrderCreated lists oldest first.
	OrderCreated TicketOrder = iota
	// OrderRanked lists by priority class, then oldest first. Scheduled
	// tickets are classed against the calendar day of RankAt in RankLocation.
	OrderRanked
	// OrderRecentlyUpdated lists the most recently updated first.
	OrderRecentlyUpdated
)

// ExternalTicketFilter captures listing parameters. A nil SectorIDs means every
// sector; a non-positive Limit means no limit.
type ExternalTicketFilter struct {
	SectorIDs    []string
	Statuses     []domain.TicketStatus
	TechnicianID *string
	ClientID     *string
	OnlyWithSLA  bool
	Order        TicketOrder
	RankAt       time.Time
	RankLocation *time.Location
	Limit        int
	Offset       int
}

// ExternalTicketRepository encapsulates external ticket persistence.
type ExternalTicketRepository interface {
	Create(ctx context.Context, ticket *domain.ExternalTicket) error
	// Update writes ticket if the stored row still matches rev, else it
	// returns ErrStaleWrite.
	Update(ctx context.Context, ticket *domain.ExternalTicket, rev Revision) error
	GetByID(ctx context.Context, id string) (*domain.ExternalTicket, error)
	List(ctx context.Context, filter ExternalTicketFilter) ([]domain.ExternalTicket, error)
	// SetEnRoute persists ticket's en-route flag and clears it on every other
	// ticket of the same technician, atomically. It returns the cleared ids.
	SetEnRoute(ctx context.Context, ticket *domain.ExternalTicket, rev Revision) ([]string, error)
}

type externalTicketRepository struct {
	pool *pgxpool.Pool
}

// NewExternalTicketRepository instantiates repository.
func NewExternalTicketRepository(pool *pgxpool.Pool) ExternalTicketRepository {
	return &externalTicketRepository{pool: pool}
}

const externalTicketColumns = `id, code, status, type, client, description, requester_name, creator_id, sector_id,
        technician_id, scheduled_to, sla_expires_at, en_route, en_route_at, check_in, check_out,
        technical_report, created_at, updated_at`

func (r *externalTicketRepository) Create(ctx context.Context, ticket *domain.ExternalTicket) error {
	const query = `
        INSERT INTO external_tickets (code, status, type, client, description, requester_name, creator_id, sector_id,
            technician_id, scheduled_to, sla_expires_at, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        RETURNING id`
	return r.pool.QueryRow(ctx, query,
		ticket.Code,
		ticket.Status,
		ticket.Type,
		ticket.Client,
		ticket.Description,
		ticket.RequesterName,
		ticket.CreatorID,
		ticket.SectorID,
		ticket.TechnicianID,
		ticket.ScheduledTo,
		ticket.SLAExpiresAt,
		ticket.CreatedAt,
		ticket.UpdatedAt,
	).Scan(&ticket.ID)
}

func (r *externalTicketRepository) Update(ctx context.Context, ticket *domain.ExternalTicket, rev Revision) error {
	const query = `
        UPDATE external_tickets SET status=$1, type=$2, description=$3, technician_id=$4, scheduled_to=$5,
            sla_expires_at=$6, en_route=$7, en_route_at=$8, check_in=$9, check_out=$10, technical_report=$11,
            updated_at=$12
        WHERE id=$13 AND status=$14 AND updated_at=$15`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.Status,
		ticket.Type,
		ticket.Description,
		ticket.TechnicianID,
		ticket.ScheduledTo,
		ticket.SLAExpiresAt,
		ticket.EnRoute,
		ticket.EnRouteAt,
		ticket.CheckIn,
		ticket.CheckOut,
		ticket.TechnicalReport,
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

func (r *externalTicketRepository) GetByID(ctx context.Context, id string) (*domain.ExternalTicket, error) {
	query := `SELECT ` + externalTicketColumns + ` FROM external_tickets WHERE id=$1`
	ticket, err := scanExternalTicket(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *externalTicketRepository) List(ctx context.Context, filter ExternalTicketFilter) ([]domain.ExternalTicket, error) {
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
	if filter.TechnicianID != nil {
		args = append(args, *filter.TechnicianID)
		clauses = append(clauses, fmt.Sprintf("technician_id=$%d", len(args)))
	}
	if filter.ClientID != nil {
		args = append(args, *filter.ClientID)
		clauses = append(clauses, fmt.Sprintf("client->>'id'=$%d", len(args)))
	}
	if filter.OnlyWithSLA {
		clauses = append(clauses, "sla_expires_at IS NOT NULL")
	}

	order, args := orderClause(filter, args)
	query := fmt.Sprintf(`SELECT %s FROM external_tickets WHERE %s ORDER BY %s`,
		externalTicketColumns, strings.Join(clauses, " AND "), order)
	query += pageClause(filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ExternalTicket
	for rows.Next() {
		ticket, err := scanExternalTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

// orderClause renders the ORDER BY expression of filter. The ranked order
// mirrors lifecycle.ClassOf so pages are slices of the display order.
func orderClause(filter ExternalTicketFilter, args []any) (string, []any) {
	switch filter.Order {
	case OrderRecentlyUpdated:
		return "updated_at DESC, id ASC", args
	case OrderRanked:
		loc := filter.RankLocation
		if loc == nil {
			loc = time.UTC
		}
		at := filter.RankAt
		if at.IsZero() {
			at = time.Now()
		}
		y, m, d := at.In(loc).Date()
		dayStart := time.Date(y, m, d, 0, 0, 0, 0, loc)
		args = append(args, dayStart, dayStart.AddDate(0, 0, 1))
		start, end := len(args)-1, len(args)
		rank := fmt.Sprintf(`CASE
            WHEN type='%[3]s' AND scheduled_to < $%[1]d THEN 0
            WHEN type='%[3]s' AND scheduled_to < $%[2]d THEN 1
            WHEN type='%[4]s' THEN 2
            WHEN type='%[5]s' THEN 3
            WHEN type='%[6]s' THEN 4
            WHEN type='%[7]s' THEN 5
            WHEN type='%[3]s' THEN 6
            ELSE 7 END`,
			start, end,
			domain.TicketTypeScheduled, domain.TicketTypeReturn, domain.TicketTypeContract,
			domain.TicketTypeUrgent, domain.TicketTypeStandard)
		return rank + ", created_at ASC, id ASC", args
	default:
		return "created_at ASC, id ASC", args
	}
}

func pageClause(limit, offset int) string {
	if offset < 0 {
		offset = 0
	}
	switch {
	case limit > 0:
		return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
	case offset > 0:
		return fmt.Sprintf(" OFFSET %d", offset)
	}
	return ""
}

func (r *externalTicketRepository) SetEnRoute(ctx context.Context, ticket *domain.ExternalTicket, rev Revision) ([]string, error) {
	if ticket.TechnicianID == nil {
		return nil, fmt.Errorf("ticket %s has no technician", ticket.ID)
	}
	enRouteAt := ticket.UpdatedAt
	if ticket.EnRouteAt != nil {
		enRouteAt = *ticket.EnRouteAt
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	batch := &pgx.Batch{}
	batch.Queue(`
        UPDATE external_tickets SET en_route=FALSE, en_route_at=NULL, updated_at=$3
        WHERE technician_id=$1 AND en_route AND id<>$2
        RETURNING id`, *ticket.TechnicianID, ticket.ID, ticket.UpdatedAt)
	batch.Queue(`
        UPDATE external_tickets SET en_route=TRUE, en_route_at=$2, updated_at=$3
        WHERE id=$1 AND status=$4 AND updated_at=$5`, ticket.ID, enRouteAt, ticket.UpdatedAt, rev.Status, rev.UpdatedAt)

	results := tx.SendBatch(ctx, batch)
	cleared, err := collectIDs(results)
	if err != nil {
		_ = results.Close()
		return nil, err
	}
	cmd, err := results.Exec()
	if err != nil {
		_ = results.Close()
		return nil, err
	}
	if err := results.Close(); err != nil {
		return nil, err
	}
	if cmd.RowsAffected() == 0 {
		return nil, ErrStaleWrite
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return cleared, nil
}

func collectIDs(results pgx.BatchResults) ([]string, error) {
	rows, err := results.Query()
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExternalTicket(row rowScanner) (*domain.ExternalTicket, error) {
	var ticket domain.ExternalTicket
	if err := row.Scan(
		&ticket.ID,
		&ticket.Code,
		&ticket.Status,
		&ticket.Type,
		&ticket.Client,
		&ticket.Description,
		&ticket.RequesterName,
		&ticket.CreatorID,
		&ticket.SectorID,
		&ticket.TechnicianID,
		&ticket.ScheduledTo,
		&ticket.SLAExpiresAt,
		&ticket.EnRoute,
		&ticket.EnRouteAt,
		&ticket.CheckIn,
		&ticket.CheckOut,
		&ticket.TechnicalReport,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}
