package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/fieldops/dispatch/internal/config"
	"github.com/fieldops/dispatch/internal/domain"
	"github.com/fieldops/dispatch/internal/events"
	"github.com/fieldops/dispatch/internal/lifecycle"
	"github.com/fieldops/dispatch/internal/observability"
	"github.com/fieldops/dispatch/internal/repository"
)

var baseTime = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

type fakeExternalTickets struct {
	mu      sync.Mutex
	seq     int
	tickets map[string]domain.ExternalTicket
	failOn  string
	lists   []repository.ExternalTicketFilter

	// beforeWrite simulates another request landing between read and write.
	beforeWrite func()
}

func newFakeExternalTickets() *fakeExternalTickets {
	return &fakeExternalTickets{tickets: map[string]domain.ExternalTicket{}}
}

func (f *fakeExternalTickets) Create(_ context.Context, ticket *domain.ExternalTicket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ticket.ID == "" {
		f.seq++
		ticket.ID = fmt.Sprintf("t-%d", f.seq)
	}
	f.tickets[ticket.ID] = *ticket
	return nil
}

func (f *fakeExternalTickets) Update(_ context.Context, ticket *domain.ExternalTicket, rev repository.Revision) error {
	f.interleave()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn == ticket.ID {
		return errors.New("write rejected")
	}
	if err := f.checkRevision(ticket.ID, rev); err != nil {
		return err
	}
	f.tickets[ticket.ID] = *ticket
	return nil
}

// interleave runs the pending concurrent write, once, between a service's
// read and its write.
func (f *fakeExternalTickets) interleave() {
	if hook := f.beforeWrite; hook != nil {
		f.beforeWrite = nil
		hook()
	}
}

func (f *fakeExternalTickets) checkRevision(id string, rev repository.Revision) error {
	stored, ok := f.tickets[id]
	if !ok || stored.Status != rev.Status || !stored.UpdatedAt.Equal(rev.UpdatedAt) {
		return repository.ErrStaleWrite
	}
	return nil
}

func (f *fakeExternalTickets) GetByID(_ context.Context, id string) (*domain.ExternalTicket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ticket, ok := f.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &ticket, nil
}

func (f *fakeExternalTickets) List(_ context.Context, filter repository.ExternalTicketFilter) ([]domain.ExternalTicket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ExternalTicket
	for _, ticket := range f.tickets {
		if filter.SectorIDs != nil && !contains(filter.SectorIDs, ticket.SectorID) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
			continue
		}
		if filter.TechnicianID != nil && (ticket.TechnicianID == nil || *ticket.TechnicianID != *filter.TechnicianID) {
			continue
		}
		if filter.OnlyWithSLA && ticket.SLAExpiresAt == nil {
			continue
		}
		out = append(out, ticket)
	}
	f.lists = append(f.lists, filter)
	// Same row order as the SQL ORDER BY, applied before paging.
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	switch filter.Order {
	case repository.OrderRanked:
		lifecycle.SortForFilter(out, domain.TicketStatusPending, filter.RankAt, filter.RankLocation)
	case repository.OrderRecentlyUpdated:
		lifecycle.SortForFilter(out, domain.TicketStatusDone, filter.RankAt, filter.RankLocation)
	default:
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	}
	return page(out, filter.Limit, filter.Offset), nil
}

// SetEnRoute mirrors the transactional clear-then-set of the Postgres store.
func (f *fakeExternalTickets) SetEnRoute(_ context.Context, ticket *domain.ExternalTicket, rev repository.Revision) ([]string, error) {
	f.interleave()
	f.mu.Lock()
	defer f.mu.Unlock()
	if ticket.TechnicianID == nil {
		return nil, errors.New("no technician")
	}
	if err := f.checkRevision(ticket.ID, rev); err != nil {
		return nil, err
	}
	var cleared []string
	for id, other := range f.tickets {
		if id == ticket.ID || !other.EnRoute || other.TechnicianID == nil || *other.TechnicianID != *ticket.TechnicianID {
			continue
		}
		other.EnRoute = false
		other.EnRouteAt = nil
		other.UpdatedAt = ticket.UpdatedAt
		f.tickets[id] = other
		cleared = append(cleared, id)
	}
	f.tickets[ticket.ID] = *ticket
	return cleared, nil
}

func (f *fakeExternalTickets) get(id string) domain.ExternalTicket {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tickets[id]
}

type fakeInternalTickets struct {
	mu      sync.Mutex
	seq     int
	tickets map[string]domain.InternalTicket
}

func newFakeInternalTickets() *fakeInternalTickets {
	return &fakeInternalTickets{tickets: map[string]domain.InternalTicket{}}
}

func (f *fakeInternalTickets) Create(_ context.Context, ticket *domain.InternalTicket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ticket.ID == "" {
		f.seq++
		ticket.ID = fmt.Sprintf("i-%d", f.seq)
	}
	f.tickets[ticket.ID] = *ticket
	return nil
}

func (f *fakeInternalTickets) Update(_ context.Context, ticket *domain.InternalTicket, rev repository.Revision) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.tickets[ticket.ID]
	if !ok || stored.Status != rev.Status || !stored.UpdatedAt.Equal(rev.UpdatedAt) {
		return repository.ErrStaleWrite
	}
	f.tickets[ticket.ID] = *ticket
	return nil
}

func (f *fakeInternalTickets) GetByID(_ context.Context, id string) (*domain.InternalTicket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ticket, ok := f.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &ticket, nil
}

func (f *fakeInternalTickets) List(_ context.Context, filter repository.InternalTicketFilter) ([]domain.InternalTicket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.InternalTicket
	for _, ticket := range f.tickets {
		if filter.SectorIDs != nil && !contains(filter.SectorIDs, ticket.SectorID) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
			continue
		}
		out = append(out, ticket)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	switch filter.Order {
	case repository.OrderRanked:
		lifecycle.SortInternalForFilter(out, domain.TicketStatusPending)
	case repository.OrderRecentlyUpdated:
		lifecycle.SortInternalForFilter(out, domain.TicketStatusDone)
	default:
		sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	}
	return page(out, filter.Limit, filter.Offset), nil
}

func page[T any](rows []T, limit, offset int) []T {
	if offset > len(rows) {
		return nil
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}

type fakeUsers struct {
	users map[string]*domain.User
}

func (f *fakeUsers) Create(_ context.Context, user *domain.User) error {
	f.users[user.ID] = user
	return nil
}

func (f *fakeUsers) Update(_ context.Context, user *domain.User) error {
	f.users[user.ID] = user
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return user, nil
}

func (f *fakeUsers) List(_ context.Context, _ repository.UserFilter) ([]domain.User, error) {
	out := make([]domain.User, 0, len(f.users))
	for _, user := range f.users {
		out = append(out, *user)
	}
	return out, nil
}

type fakeClients struct {
	clients map[string]*domain.Client
}

func (f *fakeClients) Create(_ context.Context, client *domain.Client) error {
	f.clients[client.ID] = client
	return nil
}

func (f *fakeClients) GetByID(_ context.Context, id string) (*domain.Client, error) {
	client, ok := f.clients[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return client, nil
}

type fakeSectors struct {
	sectors map[string]*domain.Sector
}

func (f *fakeSectors) Create(_ context.Context, sector *domain.Sector) error {
	f.sectors[sector.ID] = sector
	return nil
}

func (f *fakeSectors) GetByID(_ context.Context, id string) (*domain.Sector, error) {
	sector, ok := f.sectors[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return sector, nil
}

func (f *fakeSectors) ListActive(_ context.Context) ([]domain.Sector, error) {
	var out []domain.Sector
	for _, sector := range f.sectors {
		if sector.IsActive {
			out = append(out, *sector)
		}
	}
	return out, nil
}

type fakeComments struct {
	comments []domain.Comment
}

func (f *fakeComments) Create(_ context.Context, comment *domain.Comment) error {
	f.comments = append(f.comments, *comment)
	return nil
}

func (f *fakeComments) ListByTicket(_ context.Context, kind domain.TicketKind, ticketID string) ([]domain.Comment, error) {
	var out []domain.Comment
	for _, comment := range f.comments {
		if comment.TicketKind == kind && comment.TicketID == ticketID {
			out = append(out, comment)
		}
	}
	return out, nil
}

type fakeLogs struct {
	entries []domain.SystemLog
}

func (f *fakeLogs) Create(_ context.Context, entry *domain.SystemLog) error {
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeLogs) ListByTicket(_ context.Context, kind domain.TicketKind, ticketID string, _, _ int) ([]domain.SystemLog, error) {
	var out []domain.SystemLog
	for i := len(f.entries) - 1; i >= 0; i-- {
		if f.entries[i].TicketKind == kind && f.entries[i].TicketID == ticketID {
			out = append(out, f.entries[i])
		}
	}
	return out, nil
}

func (f *fakeLogs) actions(ticketID string) []domain.SystemLogAction {
	var out []domain.SystemLogAction
	for _, entry := range f.entries {
		if entry.TicketID == ticketID {
			out = append(out, entry.Action)
		}
	}
	return out
}

type recordingSender struct {
	to   []string
	body []string
	err  error
}

func (r *recordingSender) Send(_ context.Context, to, body string) error {
	if r.err != nil {
		return r.err
	}
	r.to = append(r.to, to)
	r.body = append(r.body, body)
	return nil
}

type eventLog struct {
	mu     sync.Mutex
	events []events.Event
}

func (l *eventLog) handle(_ context.Context, e events.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
	return nil
}

func (l *eventLog) types() []events.EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]events.EventType, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, e.Type)
	}
	return out
}

// fixture wires both ticket services over in-memory stores with two sectors,
// a client with a 4h SLA and one user per role.
type fixture struct {
	clock      *fakeClock
	tickets    *fakeExternalTickets
	internal   *fakeInternalTickets
	users      *fakeUsers
	comments   *fakeComments
	logs       *fakeLogs
	sender     *recordingSender
	events     *eventLog
	metrics    *observability.Metrics
	service    *TicketService
	internals  *InternalTicketService
	admin      *domain.User
	supervisor *domain.User
	tech       *domain.User
	otherTech  *domain.User
}

func newFixture() *fixture {
	f := &fixture{
		clock:    &fakeClock{now: baseTime},
		tickets:  newFakeExternalTickets(),
		internal: newFakeInternalTickets(),
		comments: &fakeComments{},
		logs:     &fakeLogs{},
		sender:   &recordingSender{},
		events:   &eventLog{},
		metrics:  observability.NewMetrics(),
	}
	f.admin = &domain.User{ID: "admin", Role: domain.RoleAdmin, Active: true}
	f.supervisor = &domain.User{ID: "sup", Role: domain.RoleSupervisor, SectorIDs: []string{"s1"}, Active: true}
	f.tech = &domain.User{ID: "tech", Role: domain.RoleTechnician, SectorIDs: []string{"s1"}, Phone: strPtr("(11) 98765-4321"), Active: true}
	f.otherTech = &domain.User{ID: "tech2", Role: domain.RoleTechnician, SectorIDs: []string{"s2"}, Active: true}
	f.users = &fakeUsers{users: map[string]*domain.User{
		f.admin.ID: f.admin, f.supervisor.ID: f.supervisor, f.tech.ID: f.tech, f.otherTech.ID: f.otherTech,
	}}
	clients := &fakeClients{clients: map[string]*domain.Client{
		"c1": {ID: "c1", Name: "ACME", Phone: "1133334444", Address: strPtr("Rua A, 10"), SLAHours: intPtr(4)},
		"c2": {ID: "c2", Name: "Globex", Phone: "1133335555"},
	}}
	sectors := &fakeSectors{sectors: map[string]*domain.Sector{
		"s1": {ID: "s1", Name: "Norte", IsActive: true},
		"s2": {ID: "s2", Name: "Sul", IsActive: true},
		"s3": {ID: "s3", Name: "Antigo", IsActive: false},
	}}

	logger := zap.NewNop()
	dispatcher := events.NewInMemoryDispatcher(logger)
	for _, eventType := range events.AllEventTypes {
		dispatcher.Subscribe(eventType, f.events.handle)
	}
	NewNotificationService(NotificationDependencies{
		Dispatcher: dispatcher,
		UserRepo:   f.users,
		Sender:     f.sender,
		Metrics:    f.metrics,
		Logger:     logger,
	}).RegisterHandlers()

	f.service = NewTicketService(TicketDependencies{
		TicketRepo:    f.tickets,
		UserRepo:      f.users,
		ClientRepo:    clients,
		SectorRepo:    sectors,
		CommentRepo:   f.comments,
		SystemLogRepo: f.logs,
		Dispatcher:    dispatcher,
		Metrics:       f.metrics,
		Logger:        logger,
		Board:         config.BoardConfig{Timezone: "UTC", DefaultFilter: "pendente"},
		Clock:         f.clock.Now,
	})
	f.internals = NewInternalTicketService(InternalTicketDependencies{
		TicketRepo:    f.internal,
		SectorRepo:    sectors,
		CommentRepo:   f.comments,
		SystemLogRepo: f.logs,
		Dispatcher:    dispatcher,
		Metrics:       f.metrics,
		Logger:        logger,
		Clock:         f.clock.Now,
	})
	return f
}

// seed stores a ticket directly, bypassing Create.
func (f *fixture) seed(ticket domain.ExternalTicket) domain.ExternalTicket {
	if ticket.Status == "" {
		ticket.Status = domain.TicketStatusPending
	}
	if ticket.Type == "" {
		ticket.Type = domain.TicketTypeStandard
	}
	if ticket.SectorID == "" {
		ticket.SectorID = "s1"
	}
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = baseTime
	}
	ticket.UpdatedAt = ticket.CreatedAt
	_ = f.tickets.Create(context.Background(), &ticket)
	return ticket
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

func containsStatus(list []domain.TicketStatus, value domain.TicketStatus) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
