package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fieldops/dispatch/internal/api/http/handlers"
	"github.com/fieldops/dispatch/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health          *handlers.HealthHandler
	Tickets         *handlers.TicketsHandler
	InternalTickets *handlers.InternalTicketsHandler
	Stream          *handlers.StreamHandler
	AuthMiddleware  fiber.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	v1 := app.Group("/v1", cfg.AuthMiddleware, auth.RequireRole())

	tickets := v1.Group("/tickets")
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/board", cfg.Tickets.Board)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Get("/:id/history", cfg.Tickets.History)
	tickets.Post("/:id/take", cfg.Tickets.Take)
	tickets.Post("/:id/assign", cfg.Tickets.Assign)
	tickets.Post("/:id/cancel", cfg.Tickets.Cancel)
	tickets.Post("/:id/check-in", cfg.Tickets.CheckIn)
	tickets.Post("/:id/en-route", cfg.Tickets.EnRoute)
	tickets.Post("/:id/finalize", cfg.Tickets.Finalize)
	tickets.Post("/:id/return", cfg.Tickets.ReturnToPending)
	tickets.Post("/:id/reopen", cfg.Tickets.Reopen)
	tickets.Post("/:id/comments", cfg.Tickets.AddComment)

	internal := v1.Group("/internal-tickets")
	internal.Get("/", cfg.InternalTickets.List)
	internal.Post("/", cfg.InternalTickets.Create)
	internal.Post("/:id/grab", cfg.InternalTickets.Grab)
	internal.Post("/:id/conclude", cfg.InternalTickets.Conclude)
	internal.Post("/:id/cancel", cfg.InternalTickets.Cancel)
	internal.Post("/:id/comments", cfg.InternalTickets.AddComment)

	if cfg.Stream != nil {
		v1.Get("/stream", cfg.Stream.Stream)
	}
}
