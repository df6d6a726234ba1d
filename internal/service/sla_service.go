package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/PicoRmin/TicketingBot-sub000/internal/domain"
	"github.com/PicoRmin/TicketingBot-sub000/internal/events"
	"github.com/PicoRmin/TicketingBot-sub000/internal/repository"
	"github.com/PicoRmin/TicketingBot-sub000/internal/sla"
)

// SLAService owns the compliance lifecycle: creating logs when tickets are
// tracked, re-evaluating open tickets during scans, and handing alerts to the
// dispatcher.
type SLAService struct {
	rules      repository.SLARuleRepository
	logs       repository.SLALogRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// SLADependencies bundles collaborators for the SLA service.
type SLADependencies struct {
	RuleRepo   repository.SLARuleRepository
	LogRepo    repository.SLALogRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Now        func() time.Time
}

// NewSLAService constructs the service.
func NewSLAService(deps SLADependencies) *SLAService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SLAService{
		rules:      deps.RuleRepo,
		logs:       deps.LogRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        now,
	}
}

// ScanSummary reports the outcome of one compliance scan cycle.
type ScanSummary struct {
	Checked     int `json:"checked"`
	Warnings    int `json:"warnings_sent"`
	Breaches    int `json:"breaches_sent"`
	Escalations int `json:"escalations_sent"`
	Errors      int `json:"errors"`
}

// TrackTicket resolves the best matching rule for a freshly created ticket
// and creates its SLA log. Deadlines are fixed from the ticket's creation
// time and never recomputed. A nil return with nil error means no rule
// matched and the ticket stays untracked.
func (s *SLAService) TrackTicket(ctx context.Context, ticket *domain.Ticket) (*domain.SLALog, error) {
	rules, err := s.rules.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	rule := sla.ResolveRule(rules, sla.RuleMatch{
		Priority:     ticket.Priority,
		Category:     ticket.Category,
		DepartmentID: ticket.DepartmentID,
	})
	if rule == nil {
		s.logger.Debug("no sla rule matched, ticket untracked",
			zap.String("ticket_id", ticket.ID),
			zap.String("priority", string(ticket.Priority)),
			zap.String("category", ticket.Category))
		return nil, nil
	}

	log := &domain.SLALog{
		TicketID:           ticket.ID,
		RuleID:             rule.ID,
		TargetResponseAt:   ticket.CreatedAt.Add(rule.ResponseTime),
		TargetResolutionAt: ticket.CreatedAt.Add(rule.ResolutionTime),
		ResponseStatus:     domain.SLAStatusUnset,
		ResolutionStatus:   domain.SLAStatusUnset,
	}
	if err := s.logs.Create(ctx, log); err != nil {
		return nil, err
	}
	s.logger.Info("sla log created",
		zap.String("ticket_id", ticket.ID),
		zap.String("rule", rule.Name),
		zap.Time("response_due", log.TargetResponseAt),
		zap.Time("resolution_due", log.TargetResolutionAt))
	return log, nil
}

// Scan re-evaluates every open tracked ticket. One ticket's failure is
// logged and counted but never stops the pass. Alerts are dispatched after
// their status change has been persisted, so a lost delivery is never
// retried.
func (s *SLAService) Scan(ctx context.Context) (ScanSummary, error) {
	var summary ScanSummary

	items, err := s.logs.ListOpenForScan(ctx, domain.OpenStatuses)
	if err != nil {
		return summary, err
	}

	now := s.now()
	var alerts []sla.Alert
	for i := range items {
		item := &items[i]
		summary.Checked++

		outcome := sla.Evaluate(&item.Rule, item.Log, &item.Ticket, now)
		if !outcome.Changed {
			continue
		}
		updated := outcome.Log
		if err := s.logs.UpdateIfVersion(ctx, &updated); err != nil {
			summary.Errors++
			s.logger.Error("persist sla log",
				zap.String("ticket_id", item.Ticket.ID),
				zap.Error(err))
			continue
		}
		for _, alert := range outcome.Alerts {
			switch alert.Kind {
			case sla.AlertResponseWarning, sla.AlertResolutionWarning:
				summary.Warnings++
			case sla.AlertResponseBreach, sla.AlertResolutionBreach:
				summary.Breaches++
			case sla.AlertEscalation:
				summary.Escalations++
			}
		}
		alerts = append(alerts, outcome.Alerts...)
	}

	s.dispatchAlerts(ctx, alerts)

	s.logger.Info("sla scan complete",
		zap.Int("checked", summary.Checked),
		zap.Int("warnings", summary.Warnings),
		zap.Int("breaches", summary.Breaches),
		zap.Int("escalations", summary.Escalations),
		zap.Int("errors", summary.Errors))
	return summary, nil
}

// EvaluateTicket runs one immediate evaluation outside the periodic scan,
// used when a lifecycle event (first response, resolve, close) lands so
// terminal tickets are settled without waiting for the next cycle. Untracked
// tickets are a no-op.
func (s *SLAService) EvaluateTicket(ctx context.Context, ticket *domain.Ticket) error {
	log, err := s.logs.GetByTicket(ctx, ticket.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}
	rule, err := s.rules.GetByID(ctx, log.RuleID)
	if err != nil {
		return err
	}

	outcome := sla.Evaluate(rule, *log, ticket, s.now())
	if !outcome.Changed {
		return nil
	}
	updated := outcome.Log
	if err := s.logs.UpdateIfVersion(ctx, &updated); err != nil {
		return err
	}
	s.dispatchAlerts(ctx, outcome.Alerts)
	return nil
}

// dispatchAlerts fans deliveries out concurrently; they are independent and
// best-effort, and the dispatcher swallows handler errors.
func (s *SLAService) dispatchAlerts(ctx context.Context, alerts []sla.Alert) {
	if s.dispatcher == nil || len(alerts) == 0 {
		return
	}
	var wg sync.WaitGroup
	for _, alert := range alerts {
		wg.Add(1)
		go func(a sla.Alert) {
			defer wg.Done()
			event := events.NewSLAAlertEvent(a)
			event.ID = uuid.NewString()
			event.Timestamp = s.now()
			_ = s.dispatcher.Publish(ctx, event)
		}(alert)
	}
	wg.Wait()
}
