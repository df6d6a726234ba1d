package dto

import (
	"time"

	"github.com/PicoRmin/TicketingBot-sub000/internal/domain"
)

// SLARuleResponse is the read-only view of a timing policy. Durations are
// surfaced in minutes, matching how administrators configure them.
type SLARuleResponse struct {
	ID                       string                 `json:"id"`
	Name                     string                 `json:"name"`
	Priority                 *domain.TicketPriority `json:"priority"`
	Category                 *string                `json:"category"`
	DepartmentID             *string                `json:"department_id"`
	ResponseMinutes          int64                  `json:"response_minutes"`
	ResolutionMinutes        int64                  `json:"resolution_minutes"`
	ResponseWarningMinutes   int64                  `json:"response_warning_minutes"`
	ResolutionWarningMinutes int64                  `json:"resolution_warning_minutes"`
	EscalationEnabled        bool                   `json:"escalation_enabled"`
	EscalationDelayMinutes   *int64                 `json:"escalation_delay_minutes"`
	IsActive                 bool                   `json:"is_active"`
	CreatedAt                time.Time              `json:"created_at"`
}

// NewSLARuleResponse maps a domain rule to its API view.
func NewSLARuleResponse(rule *domain.SLARule) SLARuleResponse {
	resp := SLARuleResponse{
		ID:                       rule.ID,
		Name:                     rule.Name,
		Priority:                 rule.Priority,
		Category:                 rule.Category,
		DepartmentID:             rule.DepartmentID,
		ResponseMinutes:          int64(rule.ResponseTime.Minutes()),
		ResolutionMinutes:        int64(rule.ResolutionTime.Minutes()),
		ResponseWarningMinutes:   int64(rule.ResponseWarningWindow.Minutes()),
		ResolutionWarningMinutes: int64(rule.ResolutionWarningWindow.Minutes()),
		EscalationEnabled:        rule.EscalationEnabled,
		IsActive:                 rule.IsActive,
		CreatedAt:                rule.CreatedAt,
	}
	if rule.EscalationDelay != nil {
		minutes := int64(rule.EscalationDelay.Minutes())
		resp.EscalationDelayMinutes = &minutes
	}
	return resp
}
