package sla

import (
	"time"

	"github.com/PicoRmin/TicketingBot-sub000/internal/domain"
)

// AlertKind identifies the transition an alert reports.
type AlertKind string

const (
	AlertResponseWarning   AlertKind = "RESPONSE_WARNING"
	AlertResponseBreach    AlertKind = "RESPONSE_BREACH"
	AlertResolutionWarning AlertKind = "RESOLUTION_WARNING"
	AlertResolutionBreach  AlertKind = "RESOLUTION_BREACH"
	AlertEscalation        AlertKind = "ESCALATION"
)

// Alert is an ephemeral notification request produced by an evaluation. It is
// never persisted; delivery is best-effort.
type Alert struct {
	Kind     AlertKind
	TicketID string
	RuleID   string
	RuleName string
	// Remaining is the time left before the deadline (warning alerts).
	Remaining time.Duration
	// Overdue is the time elapsed past the deadline (breach alerts).
	Overdue time.Duration
	// Elapsed is the time the ticket has been open (escalation alerts).
	Elapsed time.Duration
}

// Outcome bundles the result of evaluating one log.
type Outcome struct {
	Log     domain.SLALog
	Changed bool
	Alerts  []Alert
}

// Evaluate runs the per-dimension SLA state machine for one ticket at the
// given instant and decides whether escalation fires. It is pure: the input
// log is not mutated, all effects are in the returned outcome. Alerts are
// emitted only when a stored status actually changes, so re-running against
// an unchanged ticket produces no duplicate alerts.
func Evaluate(rule *domain.SLARule, log domain.SLALog, ticket *domain.Ticket, now time.Time) Outcome {
	out := Outcome{Log: log}

	respActual := ticket.FirstResponseAt
	respStatus := advance(log.ResponseStatus, respActual, log.TargetResponseAt, rule.ResponseWarningWindow, now)
	if !equalTimePtr(out.Log.ActualResponseAt, respActual) {
		out.Log.ActualResponseAt = respActual
		out.Changed = true
	}
	if respStatus != log.ResponseStatus {
		out.Log.ResponseStatus = respStatus
		out.Changed = true
		if alert, ok := dimensionAlert(rule, ticket, respStatus, log.TargetResponseAt, respActual, now, AlertResponseWarning, AlertResponseBreach); ok {
			out.Alerts = append(out.Alerts, alert)
		}
	}

	resActual := ticket.ResolutionTime()
	resStatus := advance(log.ResolutionStatus, resActual, log.TargetResolutionAt, rule.ResolutionWarningWindow, now)
	if !equalTimePtr(out.Log.ActualResolutionAt, resActual) {
		out.Log.ActualResolutionAt = resActual
		out.Changed = true
	}
	if resStatus != log.ResolutionStatus {
		out.Log.ResolutionStatus = resStatus
		out.Changed = true
		if alert, ok := dimensionAlert(rule, ticket, resStatus, log.TargetResolutionAt, resActual, now, AlertResolutionWarning, AlertResolutionBreach); ok {
			out.Alerts = append(out.Alerts, alert)
		}
	}

	if !log.Escalated && rule.EscalationConfigured() {
		due := ticket.CreatedAt.Add(*rule.EscalationDelay)
		if !now.Before(due) {
			escalatedAt := now
			out.Log.Escalated = true
			out.Log.EscalatedAt = &escalatedAt
			out.Changed = true
			out.Alerts = append(out.Alerts, Alert{
				Kind:     AlertEscalation,
				TicketID: ticket.ID,
				RuleID:   rule.ID,
				RuleName: rule.Name,
				Elapsed:  now.Sub(ticket.CreatedAt),
			})
		}
	}

	return out
}

// advance computes the next status for one dimension. ON_TIME and BREACHED
// are absorbing. An observed actual timestamp settles the dimension for good,
// overriding a prior WARNING.
func advance(prev domain.SLAStatus, actual *time.Time, target time.Time, warningWindow time.Duration, now time.Time) domain.SLAStatus {
	if prev.IsTerminal() {
		return prev
	}
	if actual != nil {
		if actual.After(target) {
			return domain.SLAStatusBreached
		}
		return domain.SLAStatusOnTime
	}
	if !now.Before(target) {
		return domain.SLAStatusBreached
	}
	if !now.Before(target.Add(-warningWindow)) {
		return domain.SLAStatusWarning
	}
	return prev
}

// dimensionAlert maps a status transition to its alert, if the transition is
// alertable. Reaching ON_TIME changes the stored status but notifies nobody.
func dimensionAlert(rule *domain.SLARule, ticket *domain.Ticket, status domain.SLAStatus, target time.Time, actual *time.Time, now time.Time, warningKind, breachKind AlertKind) (Alert, bool) {
	alert := Alert{
		TicketID: ticket.ID,
		RuleID:   rule.ID,
		RuleName: rule.Name,
	}
	switch status {
	case domain.SLAStatusWarning:
		alert.Kind = warningKind
		alert.Remaining = target.Sub(now)
	case domain.SLAStatusBreached:
		alert.Kind = breachKind
		if actual != nil {
			alert.Overdue = actual.Sub(target)
		} else {
			alert.Overdue = now.Sub(target)
		}
	default:
		return Alert{}, false
	}
	return alert, true
}

func equalTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
