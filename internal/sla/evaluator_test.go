package sla

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PicoRmin/TicketingBot-sub000/internal/domain"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func timingRule() *domain.SLARule {
	return &domain.SLARule{
		ID:                      "rule-1",
		Name:                    "standard",
		ResponseTime:            60 * time.Minute,
		ResolutionTime:          240 * time.Minute,
		ResponseWarningWindow:   20 * time.Minute,
		ResolutionWarningWindow: 30 * time.Minute,
		IsActive:                true,
	}
}

func freshLog(rule *domain.SLARule, createdAt time.Time) domain.SLALog {
	return domain.SLALog{
		ID:                 "log-1",
		TicketID:           "ticket-1",
		RuleID:             rule.ID,
		TargetResponseAt:   createdAt.Add(rule.ResponseTime),
		TargetResolutionAt: createdAt.Add(rule.ResolutionTime),
		ResponseStatus:     domain.SLAStatusUnset,
		ResolutionStatus:   domain.SLAStatusUnset,
		Version:            1,
	}
}

func openTicket(createdAt time.Time) *domain.Ticket {
	return &domain.Ticket{
		ID:        "ticket-1",
		Status:    domain.TicketStatusOpen,
		Priority:  domain.TicketPriorityHigh,
		CreatedAt: createdAt,
	}
}

func alertKinds(alerts []Alert) []AlertKind {
	kinds := make([]AlertKind, 0, len(alerts))
	for _, a := range alerts {
		kinds = append(kinds, a.Kind)
	}
	return kinds
}

func TestEvaluate_WarningInsideWindow(t *testing.T) {
	rule := timingRule()
	ticket := openTicket(t0)
	log := freshLog(rule, t0)

	out := Evaluate(rule, log, ticket, t0.Add(45*time.Minute))

	assert.True(t, out.Changed)
	assert.Equal(t, domain.SLAStatusWarning, out.Log.ResponseStatus)
	assert.Equal(t, domain.SLAStatusUnset, out.Log.ResolutionStatus)
	require.Len(t, out.Alerts, 1)
	assert.Equal(t, AlertResponseWarning, out.Alerts[0].Kind)
	assert.Equal(t, 15*time.Minute, out.Alerts[0].Remaining)
}

func TestEvaluate_BreachAfterDeadline(t *testing.T) {
	rule := timingRule()
	ticket := openTicket(t0)
	log := freshLog(rule, t0)
	log.ResponseStatus = domain.SLAStatusWarning

	out := Evaluate(rule, log, ticket, t0.Add(61*time.Minute))

	assert.Equal(t, domain.SLAStatusBreached, out.Log.ResponseStatus)
	require.Len(t, out.Alerts, 1)
	assert.Equal(t, AlertResponseBreach, out.Alerts[0].Kind)
	assert.Equal(t, time.Minute, out.Alerts[0].Overdue)
}

func TestEvaluate_DirectUnsetToBreached(t *testing.T) {
	// A missed scan can jump past the warning window entirely.
	rule := timingRule()
	ticket := openTicket(t0)
	log := freshLog(rule, t0)

	out := Evaluate(rule, log, ticket, t0.Add(90*time.Minute))

	assert.Equal(t, domain.SLAStatusBreached, out.Log.ResponseStatus)
	assert.Equal(t, []AlertKind{AlertResponseBreach}, alertKinds(out.Alerts))
}

func TestEvaluate_ActualOverridesWarning(t *testing.T) {
	rule := timingRule()
	ticket := openTicket(t0)
	responded := t0.Add(50 * time.Minute)
	ticket.FirstResponseAt = &responded

	log := freshLog(rule, t0)
	log.ResponseStatus = domain.SLAStatusWarning

	out := Evaluate(rule, log, ticket, t0.Add(3*time.Hour))

	assert.True(t, out.Changed)
	assert.Equal(t, domain.SLAStatusOnTime, out.Log.ResponseStatus)
	require.NotNil(t, out.Log.ActualResponseAt)
	assert.True(t, out.Log.ActualResponseAt.Equal(responded))
	// Reaching on-time notifies nobody.
	for _, a := range out.Alerts {
		assert.NotEqual(t, AlertResponseWarning, a.Kind)
		assert.NotEqual(t, AlertResponseBreach, a.Kind)
	}
}

func TestEvaluate_LateActualBreaches(t *testing.T) {
	rule := timingRule()
	ticket := openTicket(t0)
	responded := t0.Add(75 * time.Minute)
	ticket.FirstResponseAt = &responded

	out := Evaluate(rule, freshLog(rule, t0), ticket, t0.Add(80*time.Minute))

	assert.Equal(t, domain.SLAStatusBreached, out.Log.ResponseStatus)
	require.Len(t, out.Alerts, 1)
	assert.Equal(t, AlertResponseBreach, out.Alerts[0].Kind)
	assert.Equal(t, 15*time.Minute, out.Alerts[0].Overdue)
}

func TestEvaluate_TerminalStatusIsIdempotent(t *testing.T) {
	rule := timingRule()
	ticket := openTicket(t0)
	responded := t0.Add(50 * time.Minute)
	ticket.FirstResponseAt = &responded

	first := Evaluate(rule, freshLog(rule, t0), ticket, t0.Add(55*time.Minute))
	require.Equal(t, domain.SLAStatusOnTime, first.Log.ResponseStatus)

	second := Evaluate(rule, first.Log, ticket, t0.Add(10*time.Hour))
	assert.Equal(t, domain.SLAStatusOnTime, second.Log.ResponseStatus)
	for _, a := range second.Alerts {
		assert.NotEqual(t, AlertResponseWarning, a.Kind)
		assert.NotEqual(t, AlertResponseBreach, a.Kind)
	}
}

func TestEvaluate_BreachedNeverReAlerts(t *testing.T) {
	rule := timingRule()
	ticket := openTicket(t0)
	log := freshLog(rule, t0)
	log.ResponseStatus = domain.SLAStatusBreached
	log.ResolutionStatus = domain.SLAStatusBreached

	out := Evaluate(rule, log, ticket, t0.Add(20*time.Hour))

	assert.False(t, out.Changed)
	assert.Empty(t, out.Alerts)
}

func TestEvaluate_ResolutionViaClosedAt(t *testing.T) {
	rule := timingRule()
	ticket := openTicket(t0)
	closed := t0.Add(2 * time.Hour)
	ticket.ClosedAt = &closed

	out := Evaluate(rule, freshLog(rule, t0), ticket, t0.Add(3*time.Hour))

	assert.Equal(t, domain.SLAStatusOnTime, out.Log.ResolutionStatus)
	require.NotNil(t, out.Log.ActualResolutionAt)
	assert.True(t, out.Log.ActualResolutionAt.Equal(closed))
}

func TestEvaluate_EscalationFiresExactlyOnce(t *testing.T) {
	rule := timingRule()
	delay := 180 * time.Minute
	rule.EscalationEnabled = true
	rule.EscalationDelay = &delay

	ticket := openTicket(t0)
	log := freshLog(rule, t0)

	out := Evaluate(rule, log, ticket, t0.Add(181*time.Minute))
	assert.True(t, out.Log.Escalated)
	require.NotNil(t, out.Log.EscalatedAt)
	assert.Contains(t, alertKinds(out.Alerts), AlertEscalation)

	// Re-evaluating any number of times never re-fires.
	for i := 0; i < 3; i++ {
		out = Evaluate(rule, out.Log, ticket, t0.Add(time.Duration(200+i)*time.Minute))
		assert.NotContains(t, alertKinds(out.Alerts), AlertEscalation)
		assert.True(t, out.Log.Escalated)
	}
}

func TestEvaluate_EscalationBeforeDelayDoesNotFire(t *testing.T) {
	rule := timingRule()
	delay := 180 * time.Minute
	rule.EscalationEnabled = true
	rule.EscalationDelay = &delay

	out := Evaluate(rule, freshLog(rule, t0), openTicket(t0), t0.Add(30*time.Minute))
	assert.False(t, out.Log.Escalated)
	assert.NotContains(t, alertKinds(out.Alerts), AlertEscalation)
}

func TestEvaluate_EscalationWithoutDelayIsDisabled(t *testing.T) {
	rule := timingRule()
	rule.EscalationEnabled = true
	rule.EscalationDelay = nil

	out := Evaluate(rule, freshLog(rule, t0), openTicket(t0), t0.Add(48*time.Hour))
	assert.False(t, out.Log.Escalated)
	assert.NotContains(t, alertKinds(out.Alerts), AlertEscalation)
}

func TestEvaluate_EndToEndScenario(t *testing.T) {
	rule := timingRule()
	delay := 180 * time.Minute
	rule.EscalationEnabled = true
	rule.EscalationDelay = &delay

	ticket := openTicket(t0)
	log := freshLog(rule, t0)

	// Scan at T0+50m: response in warning, resolution untouched.
	out := Evaluate(rule, log, ticket, t0.Add(50*time.Minute))
	assert.Equal(t, domain.SLAStatusWarning, out.Log.ResponseStatus)
	assert.Equal(t, domain.SLAStatusUnset, out.Log.ResolutionStatus)
	assert.Equal(t, []AlertKind{AlertResponseWarning}, alertKinds(out.Alerts))

	// Response observed at T0+55m.
	responded := t0.Add(55 * time.Minute)
	ticket.FirstResponseAt = &responded

	// Scan at T0+241m: response settles on-time, resolution breached,
	// escalation fires once.
	out = Evaluate(rule, out.Log, ticket, t0.Add(241*time.Minute))
	assert.Equal(t, domain.SLAStatusOnTime, out.Log.ResponseStatus)
	assert.Equal(t, domain.SLAStatusBreached, out.Log.ResolutionStatus)
	assert.True(t, out.Log.Escalated)
	assert.ElementsMatch(t, []AlertKind{AlertResolutionBreach, AlertEscalation}, alertKinds(out.Alerts))

	// Another scan changes nothing and stays silent on settled dimensions.
	again := Evaluate(rule, out.Log, ticket, t0.Add(300*time.Minute))
	assert.False(t, again.Changed)
	assert.Empty(t, again.Alerts)
}
