package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/fieldops/dispatch/internal/api/http/handlers"
	"github.com/fieldops/dispatch/internal/auth"
	"github.com/fieldops/dispatch/internal/config"
	"github.com/fieldops/dispatch/internal/domain"
	"github.com/fieldops/dispatch/internal/observability"
	"github.com/fieldops/dispatch/internal/repository"
	"github.com/fieldops/dispatch/internal/service"
	apperrors "github.com/fieldops/dispatch/pkg/errorutil"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type memTickets struct {
	tickets map[string]domain.ExternalTicket
}

func (m *memTickets) Create(_ context.Context, t *domain.ExternalTicket) error {
	t.ID = "new"
	m.tickets[t.ID] = *t
	return nil
}

func (m *memTickets) Update(_ context.Context, t *domain.ExternalTicket, rev repository.Revision) error {
	if stored := m.tickets[t.ID]; stored.Status != rev.Status {
		return repository.ErrStaleWrite
	}
	m.tickets[t.ID] = *t
	return nil
}

func (m *memTickets) GetByID(_ context.Context, id string) (*domain.ExternalTicket, error) {
	t, ok := m.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &t, nil
}

func (m *memTickets) List(_ context.Context, f repository.ExternalTicketFilter) ([]domain.ExternalTicket, error) {
	var out []domain.ExternalTicket
	for _, t := range m.tickets {
		if len(f.Statuses) > 0 && t.Status != f.Statuses[0] {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (m *memTickets) SetEnRoute(_ context.Context, t *domain.ExternalTicket, _ repository.Revision) ([]string, error) {
	m.tickets[t.ID] = *t
	return nil, nil
}

type memComments struct{}

func (memComments) Create(context.Context, *domain.Comment) error { return nil }

func (memComments) ListByTicket(context.Context, domain.TicketKind, string) ([]domain.Comment, error) {
	return nil, nil
}

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

type chanSource struct {
	messages [][]byte
}

func (s chanSource) Listen(context.Context) (<-chan []byte, func(), error) {
	ch := make(chan []byte, len(s.messages))
	for _, msg := range s.messages {
		ch <- msg
	}
	close(ch)
	return ch, func() {}, nil
}

var users = map[string]*domain.User{
	"tech": {ID: "tech", Role: domain.RoleTechnician, SectorIDs: []string{"s1"}, Active: true},
	"boss": {ID: "boss", Role: domain.RoleManager, Active: true},
}

// testAuth stands in for JWT verification: the X-User header names the actor.
func testAuth(c *fiber.Ctx) error {
	user, ok := users[c.Get("X-User")]
	if !ok {
		return apperrors.NewUnauthorized("unknown user")
	}
	auth.WithActor(c, user)
	return c.Next()
}

func newTestApp(t *testing.T, tickets *memTickets, source chanSource) *fiber.App {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	svc := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  tickets,
		CommentRepo: memComments{},
		Metrics:     metrics,
		Logger:      logger,
		Board:       config.BoardConfig{Timezone: "UTC", DefaultFilter: "pendente"},
		Clock:       func() time.Time { return now },
	})

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:          handlers.NewHealthHandler("dispatch", "test", okPinger{}, okPinger{}, metrics),
		Tickets:         handlers.NewTicketsHandler(svc),
		InternalTickets: handlers.NewInternalTicketsHandler(service.NewInternalTicketService(service.InternalTicketDependencies{})),
		Stream:          handlers.NewStreamHandler(source, time.Hour, logger),
		AuthMiddleware:  testAuth,
	})
	return app
}

func do(t *testing.T, app *fiber.App, method, target, user, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User", user)
	}
	resp, err := app.Test(req, 2000)
	if err != nil {
		t.Fatalf("%s %s: %v", method, target, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	var decoded map[string]any
	_ = json.Unmarshal(raw, &decoded)
	return resp.StatusCode, decoded
}

func seeded() *memTickets {
	expires := now.Add(90 * time.Minute)
	return &memTickets{tickets: map[string]domain.ExternalTicket{
		"t1": {ID: "t1", Status: domain.TicketStatusPending, Type: domain.TicketTypeStandard, SectorID: "s1", SLAExpiresAt: &expires, CreatedAt: now.Add(-time.Hour)},
		"t2": {ID: "t2", Status: domain.TicketStatusPending, Type: domain.TicketTypeUrgent, SectorID: "s1", CreatedAt: now},
	}}
}

func TestListTicketsRanksAndAnnotatesSLA(t *testing.T) {
	app := newTestApp(t, seeded(), chanSource{})
	status, body := do(t, app, http.MethodGet, "/v1/tickets?status=pendente", "tech", "")
	if status != http.StatusOK {
		t.Fatalf("status = %d body = %v", status, body)
	}
	data := body["data"].([]any)
	if len(data) != 2 {
		t.Fatalf("data = %v", data)
	}
	first := data[0].(map[string]any)
	second := data[1].(map[string]any)
	if first["id"] != "t2" || second["id"] != "t1" {
		t.Fatalf("order = %v, %v", first["id"], second["id"])
	}
	sla := second["sla"].(map[string]any)
	if sla["remaining"] != "01:30:00" || sla["violated"] != false {
		t.Fatalf("sla = %v", sla)
	}
	if body["filter"] != "pendente" {
		t.Fatalf("filter = %v", body["filter"])
	}
}

func TestGuardFailureRendersConflict(t *testing.T) {
	tickets := seeded()
	app := newTestApp(t, tickets, chanSource{})

	status, _ := do(t, app, http.MethodPost, "/v1/tickets/t1/take", "tech", "")
	if status != http.StatusOK {
		t.Fatalf("take status = %d", status)
	}
	status, body := do(t, app, http.MethodPost, "/v1/tickets/t1/finalize", "tech", `{"observations":"done"}`)
	if status != http.StatusConflict {
		t.Fatalf("finalize status = %d", status)
	}
	errBody := body["error"].(map[string]any)
	if errBody["code"] != "CONFLICT" {
		t.Fatalf("error = %v", errBody)
	}
	if tickets.tickets["t1"].Status != domain.TicketStatusInProgress {
		t.Fatalf("status changed to %s", tickets.tickets["t1"].Status)
	}
}

func TestUnknownTicketAndMissingActor(t *testing.T) {
	app := newTestApp(t, seeded(), chanSource{})
	if status, _ := do(t, app, http.MethodGet, "/v1/tickets/nope", "tech", ""); status != http.StatusNotFound {
		t.Fatalf("status = %d", status)
	}
	if status, _ := do(t, app, http.MethodGet, "/v1/tickets", "", ""); status != http.StatusUnauthorized {
		t.Fatalf("status = %d", status)
	}
}

func TestHealthEndpoints(t *testing.T) {
	app := newTestApp(t, seeded(), chanSource{})
	if status, body := do(t, app, http.MethodGet, "/health/ready", "", ""); status != http.StatusOK || body["status"] != "ready" {
		t.Fatalf("ready = %d %v", status, body)
	}
	do(t, app, http.MethodGet, "/health/live", "", "")
	status, body := do(t, app, http.MethodGet, "/health/metrics", "", "")
	if status != http.StatusOK {
		t.Fatalf("metrics status = %d", status)
	}
	if _, ok := body["requests"]; !ok {
		t.Fatalf("metrics = %v", body)
	}
}

func TestStreamFiltersBySector(t *testing.T) {
	source := chanSource{messages: [][]byte{
		[]byte(`{"type":"ticket_created","ticket_id":"a","sector_id":"s1"}`),
		[]byte(`{"type":"ticket_created","ticket_id":"b","sector_id":"s2"}`),
	}}
	app := newTestApp(t, seeded(), source)

	req := httptest.NewRequest(http.MethodGet, "/v1/stream", nil)
	req.Header.Set("X-User", "tech")
	resp, err := app.Test(req, 2000)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	body := string(raw)

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("content type = %q", ct)
	}
	if !strings.Contains(body, "event: ready") || !strings.Contains(body, `"ticket_id":"a"`) {
		t.Fatalf("body = %q", body)
	}
	if strings.Contains(body, `"ticket_id":"b"`) {
		t.Fatalf("foreign sector leaked: %q", body)
	}
}

func TestUnknownRouteKeepsStatus(t *testing.T) {
	app := newTestApp(t, seeded(), chanSource{})
	status, body := do(t, app, http.MethodGet, "/nowhere", "", "")
	if status != http.StatusNotFound {
		t.Fatalf("status = %d", status)
	}
	if code := body["error"].(map[string]any)["code"]; code != "NOT_FOUND" {
		t.Fatalf("code = %v", code)
	}
}
