package domain

import "time"

// SLAStatus is the per-dimension compliance state tracked on an SLA log.
// UNSET may advance to WARNING; ON_TIME and BREACHED are terminal.
type SLAStatus string

const (
	SLAStatusUnset    SLAStatus = "UNSET"
	SLAStatusWarning  SLAStatus = "WARNING"
	SLAStatusOnTime   SLAStatus = "ON_TIME"
	SLAStatusBreached SLAStatus = "BREACHED"
)

// IsTerminal reports whether the status is absorbing.
func (s SLAStatus) IsTerminal() bool {
	return s == SLAStatusOnTime || s == SLAStatusBreached
}

// SLARule is a named timing policy. Priority, Category and DepartmentID are
// optional scope filters; a nil filter matches any ticket. Durations are
// wall-clock, business calendars are not supported.
type SLARule struct {
	ID                      string
	Name                    string
	Priority                *TicketPriority
	Category                *string
	DepartmentID            *string
	ResponseTime            time.Duration
	ResolutionTime          time.Duration
	ResponseWarningWindow   time.Duration
	ResolutionWarningWindow time.Duration
	EscalationEnabled       bool
	EscalationDelay         *time.Duration
	IsActive                bool
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// EscalationConfigured reports whether escalation is both enabled and has a
// usable delay. Enabled rules without a delay behave as disabled.
func (r *SLARule) EscalationConfigured() bool {
	return r.EscalationEnabled && r.EscalationDelay != nil && *r.EscalationDelay > 0
}

// SLALog tracks compliance for a single ticket against the rule resolved at
// ticket creation. Deadlines are computed once and never recomputed, even if
// the rule is edited later.
type SLALog struct {
	ID                 string
	TicketID           string
	RuleID             string
	TargetResponseAt   time.Time
	TargetResolutionAt time.Time
	ActualResponseAt   *time.Time
	ActualResolutionAt *time.Time
	ResponseStatus     SLAStatus
	ResolutionStatus   SLAStatus
	Escalated          bool
	EscalatedAt        *time.Time
	Version            int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
