package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/fieldops/dispatch/internal/domain"
	"github.com/fieldops/dispatch/internal/lifecycle"
	"github.com/fieldops/dispatch/internal/persistence"
)

// setupTestDB migrates a throwaway schema on the database named by
// DISPATCH_TEST_POSTGRES_DSN. Tests skip when it is unset.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("DISPATCH_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("DISPATCH_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()

	schema := "test_" + uuid.NewString()[:8]
	admin, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(admin.Close)
	if _, err := admin.Exec(ctx, fmt.Sprintf(`CREATE SCHEMA %q`, schema)); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() {
		_, _ = admin.Exec(context.Background(), fmt.Sprintf(`DROP SCHEMA %q CASCADE`, schema))
	})

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		t.Fatalf("parse dsn: %v", err)
	}
	cfg.ConnConfig.RuntimeParams["search_path"] = schema + ",public"
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := persistence.RunMigrations(ctx, pool, filepath.Join("..", "..", "migrations"), zap.NewNop()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := pool.Exec(ctx, `
        INSERT INTO sectors (id, name) VALUES ('s1', 'Centro');
        INSERT INTO users (id, name, email, role, sector_ids) VALUES
            ('t1', 'Ana', 'ana@example.com', 'tecnico', '{s1}'),
            ('t2', 'Bia', 'bia@example.com', 'tecnico', '{s1}')`); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return pool
}

var dbBase = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func insertTicket(t *testing.T, repo ExternalTicketRepository, ticket domain.ExternalTicket) domain.ExternalTicket {
	t.Helper()
	if ticket.Code == "" {
		ticket.Code = "OS-" + uuid.NewString()[:8]
	}
	if ticket.Status == "" {
		ticket.Status = domain.TicketStatusPending
	}
	if ticket.Type == "" {
		ticket.Type = domain.TicketTypeStandard
	}
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = dbBase
	}
	ticket.UpdatedAt = ticket.CreatedAt
	ticket.SectorID = "s1"
	ticket.CreatorID = "t1"
	ticket.Client = domain.ClientRef{ID: "c1", Name: "Padaria"}
	if err := repo.Create(context.Background(), &ticket); err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	return ticket
}

func markEnRoute(t *testing.T, repo ExternalTicketRepository, id string, at time.Time) ([]string, error) {
	t.Helper()
	stored, err := repo.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get %s: %v", id, err)
	}
	rev := Revision{Status: stored.Status, UpdatedAt: stored.UpdatedAt}
	stored.EnRoute = true
	stored.EnRouteAt = &at
	stored.UpdatedAt = at
	return repo.SetEnRoute(context.Background(), stored, rev)
}

func TestSetEnRouteClearsSiblingsAtomically(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewExternalTicketRepository(pool)
	ctx := context.Background()
	t1, t2 := "t1", "t2"

	a := insertTicket(t, repo, domain.ExternalTicket{Status: domain.TicketStatusInProgress, TechnicianID: &t1})
	b := insertTicket(t, repo, domain.ExternalTicket{Status: domain.TicketStatusInProgress, TechnicianID: &t1})
	other := insertTicket(t, repo, domain.ExternalTicket{Status: domain.TicketStatusInProgress, TechnicianID: &t2})

	if _, err := markEnRoute(t, repo, other.ID, dbBase.Add(time.Minute)); err != nil {
		t.Fatalf("en route other: %v", err)
	}
	if cleared, err := markEnRoute(t, repo, a.ID, dbBase.Add(2*time.Minute)); err != nil || len(cleared) != 0 {
		t.Fatalf("en route a: cleared=%v err=%v", cleared, err)
	}
	cleared, err := markEnRoute(t, repo, b.ID, dbBase.Add(3*time.Minute))
	if err != nil {
		t.Fatalf("en route b: %v", err)
	}
	if len(cleared) != 1 || cleared[0] != a.ID {
		t.Fatalf("cleared = %v, want [%s]", cleared, a.ID)
	}

	for id, want := range map[string]bool{a.ID: false, b.ID: true, other.ID: true} {
		got, err := repo.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("get %s: %v", id, err)
		}
		if got.EnRoute != want {
			t.Errorf("ticket %s en_route = %v, want %v", id, got.EnRoute, want)
		}
	}

	// A write computed from an old read rolls back the whole batch.
	stale := a
	stale.EnRoute = true
	at := dbBase.Add(4 * time.Minute)
	stale.EnRouteAt = &at
	stale.UpdatedAt = at
	if _, err := repo.SetEnRoute(ctx, &stale, Revision{Status: a.Status, UpdatedAt: a.UpdatedAt}); !errors.Is(err, ErrStaleWrite) {
		t.Fatalf("stale SetEnRoute err = %v", err)
	}
	if got, _ := repo.GetByID(ctx, b.ID); !got.EnRoute {
		t.Fatal("rolled back batch still cleared the current destination")
	}

	// The partial unique index refuses a second en-route ticket.
	_, err = pool.Exec(ctx, `UPDATE external_tickets SET en_route=TRUE WHERE id=$1`, a.ID)
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		t.Fatalf("duplicate en route err = %v", err)
	}
}

func TestUpdateRejectsStaleRevision(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewExternalTicketRepository(pool)
	ctx := context.Background()
	ticket := insertTicket(t, repo, domain.ExternalTicket{})
	stored, err := repo.GetByID(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	rev := Revision{Status: stored.Status, UpdatedAt: stored.UpdatedAt}

	first := *stored
	t1 := "t1"
	first.Status = domain.TicketStatusInProgress
	first.TechnicianID = &t1
	first.UpdatedAt = dbBase.Add(time.Minute)
	if err := repo.Update(ctx, &first, rev); err != nil {
		t.Fatalf("first update: %v", err)
	}

	second := *stored
	t2 := "t2"
	second.Status = domain.TicketStatusInProgress
	second.TechnicianID = &t2
	second.UpdatedAt = dbBase.Add(2 * time.Minute)
	if err := repo.Update(ctx, &second, rev); !errors.Is(err, ErrStaleWrite) {
		t.Fatalf("second update err = %v", err)
	}
	if got, _ := repo.GetByID(ctx, ticket.ID); *got.TechnicianID != "t1" {
		t.Fatalf("technician = %s", *got.TechnicianID)
	}
}

func TestListRankedOrderMatchesLifecycle(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewExternalTicketRepository(pool)
	ctx := context.Background()
	now := dbBase
	yesterday, today, tomorrow := now.Add(-24*time.Hour), now.Add(2*time.Hour), now.Add(24*time.Hour)

	for i, ticket := range []domain.ExternalTicket{
		{Type: domain.TicketTypeStandard},
		{Type: domain.TicketTypeStandard},
		{Type: domain.TicketTypeReturn},
		{Type: domain.TicketTypeScheduled, ScheduledTo: &tomorrow},
		{Type: domain.TicketTypeScheduled, ScheduledTo: &today},
		{Type: domain.TicketTypeScheduled, ScheduledTo: &yesterday},
		{Type: domain.TicketTypeUrgent},
		{Type: domain.TicketTypeContract},
	} {
		ticket.CreatedAt = dbBase.Add(-time.Duration(10-i) * time.Minute)
		insertTicket(t, repo, ticket)
	}

	filter := ExternalTicketFilter{
		Statuses:     []domain.TicketStatus{domain.TicketStatusPending},
		Order:        OrderRanked,
		RankAt:       now,
		RankLocation: time.UTC,
	}
	all, err := repo.List(ctx, filter)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	expected := append([]domain.ExternalTicket(nil), all...)
	lifecycle.SortForFilter(expected, domain.TicketStatusPending, now, time.UTC)
	for i := range all {
		if all[i].ID != expected[i].ID {
			t.Fatalf("row %d = %s (%s), lifecycle ranks %s (%s) there",
				i, all[i].ID, all[i].Type, expected[i].ID, expected[i].Type)
		}
	}

	filter.Limit = 3
	page, err := repo.List(ctx, filter)
	if err != nil {
		t.Fatalf("List page: %v", err)
	}
	if len(page) != 3 || page[2].Type != domain.TicketTypeReturn {
		t.Fatalf("first page = %v", typesOf(page))
	}
}

func typesOf(tickets []domain.ExternalTicket) []domain.TicketType {
	out := make([]domain.TicketType, len(tickets))
	for i, ticket := range tickets {
		out[i] = ticket.Type
	}
	return out
}
