package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/PicoRmin/TicketingBot-sub000/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Tickets *handlers.TicketsHandler
	SLA     *handlers.SLAHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Get("/departments", cfg.Tickets.ListDepartments)

	tickets := app.Group("/tickets")
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/messages", cfg.Tickets.AddMessage)
	tickets.Patch("/:id/status", cfg.Tickets.UpdateStatus)
	tickets.Patch("/:id/assignee", cfg.Tickets.AssignTicket)

	slaGroup := app.Group("/sla")
	slaGroup.Get("/rules", cfg.SLA.ListRules)
	slaGroup.Post("/scan", cfg.SLA.TriggerScan)

	reports := app.Group("/reports/sla")
	reports.Get("/summary", cfg.SLA.ComplianceSummary)
	reports.Get("/by-priority", cfg.SLA.ComplianceByPriority)
}
