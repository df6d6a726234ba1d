package service

import (
	"context"

	"github.com/PicoRmin/TicketingBot-sub000/internal/domain"
	"github.com/PicoRmin/TicketingBot-sub000/internal/repository"
	"github.com/PicoRmin/TicketingBot-sub000/internal/sla"
)

// DimensionSummary reports one dimension's counts and compliance rate.
// The rate excludes WARNING and UNSET logs from the denominator.
type DimensionSummary struct {
	OnTime   int64   `json:"on_time"`
	Warning  int64   `json:"warning"`
	Breached int64   `json:"breached"`
	Rate     float64 `json:"compliance_rate"`
}

// ComplianceSummary is the global compliance picture across all SLA logs.
type ComplianceSummary struct {
	TotalTracked int64            `json:"total_tracked"`
	Response     DimensionSummary `json:"response"`
	Resolution   DimensionSummary `json:"resolution"`
	Escalated    int64            `json:"escalated"`
}

// PrioritySummary is one row of the per-priority breakdown.
type PrioritySummary struct {
	Priority     domain.TicketPriority `json:"priority"`
	RuleID       string                `json:"rule_id"`
	RuleName     string                `json:"rule_name"`
	TotalTracked int64                 `json:"total_tracked"`
	Response     DimensionSummary      `json:"response"`
	Resolution   DimensionSummary      `json:"resolution"`
	Escalated    int64                 `json:"escalated"`
}

// SLAReportService answers read-only compliance queries.
type SLAReportService struct {
	logs repository.SLALogRepository
}

// NewSLAReportService constructs the service.
func NewSLAReportService(logs repository.SLALogRepository) *SLAReportService {
	return &SLAReportService{logs: logs}
}

// GetComplianceSummary aggregates all logs into global counts and rates.
func (s *SLAReportService) GetComplianceSummary(ctx context.Context) (*ComplianceSummary, error) {
	counts, err := s.logs.CountStatuses(ctx)
	if err != nil {
		return nil, err
	}
	return &ComplianceSummary{
		TotalTracked: counts.Total,
		Response:     dimensionSummary(counts.ResponseOnTime, counts.ResponseWarning, counts.ResponseBreached),
		Resolution:   dimensionSummary(counts.ResolutionOnTime, counts.ResolutionWarning, counts.ResolutionBreached),
		Escalated:    counts.Escalated,
	}, nil
}

// GetComplianceByPriority computes the same rates per priority, one row per
// active rule scoped to exactly that priority.
func (s *SLAReportService) GetComplianceByPriority(ctx context.Context) ([]PrioritySummary, error) {
	rows, err := s.logs.CountByPriorityRule(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]PrioritySummary, 0, len(rows))
	for _, row := range rows {
		result = append(result, PrioritySummary{
			Priority:     row.Priority,
			RuleID:       row.RuleID,
			RuleName:     row.RuleName,
			TotalTracked: row.Counts.Total,
			Response:     dimensionSummary(row.Counts.ResponseOnTime, row.Counts.ResponseWarning, row.Counts.ResponseBreached),
			Resolution:   dimensionSummary(row.Counts.ResolutionOnTime, row.Counts.ResolutionWarning, row.Counts.ResolutionBreached),
			Escalated:    row.Counts.Escalated,
		})
	}
	return result, nil
}

func dimensionSummary(onTime, warning, breached int64) DimensionSummary {
	return DimensionSummary{
		OnTime:   onTime,
		Warning:  warning,
		Breached: breached,
		Rate:     sla.ComplianceRate(onTime, breached),
	}
}
