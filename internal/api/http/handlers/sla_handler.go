package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/PicoRmin/TicketingBot-sub000/internal/api/dto"
	"github.com/PicoRmin/TicketingBot-sub000/internal/repository"
	"github.com/PicoRmin/TicketingBot-sub000/internal/service"
)

// SLAHandler exposes the compliance reports, the rule catalog and a manual
// scan trigger. Rule administration happens elsewhere; this surface is
// read-only apart from the trigger.
type SLAHandler struct {
	rules   repository.SLARuleRepository
	reports *service.SLAReportService
	sla     *service.SLAService
}

// NewSLAHandler constructs handler.
func NewSLAHandler(rules repository.SLARuleRepository, reports *service.SLAReportService, slaService *service.SLAService) *SLAHandler {
	return &SLAHandler{rules: rules, reports: reports, sla: slaService}
}

// ListRules GET /sla/rules.
func (h *SLAHandler) ListRules(c *fiber.Ctx) error {
	rules, err := h.rules.List(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.SLARuleResponse, 0, len(rules))
	for i := range rules {
		items = append(items, dto.NewSLARuleResponse(&rules[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ComplianceSummary GET /reports/sla/summary.
func (h *SLAHandler) ComplianceSummary(c *fiber.Ctx) error {
	summary, err := h.reports.GetComplianceSummary(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summary})
}

// ComplianceByPriority GET /reports/sla/by-priority.
func (h *SLAHandler) ComplianceByPriority(c *fiber.Ctx) error {
	rows, err := h.reports.GetComplianceByPriority(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": rows})
}

// TriggerScan POST /sla/scan runs one scan cycle inline and returns its
// summary. Useful for operations and tests; the periodic worker remains the
// primary driver.
func (h *SLAHandler) TriggerScan(c *fiber.Ctx) error {
	summary, err := h.sla.Scan(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summary})
}
