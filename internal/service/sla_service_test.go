package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PicoRmin/TicketingBot-sub000/internal/domain"
	"github.com/PicoRmin/TicketingBot-sub000/internal/events"
	"github.com/PicoRmin/TicketingBot-sub000/internal/repository"
	"github.com/PicoRmin/TicketingBot-sub000/internal/sla"
)

var testBase = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// mockRuleRepo implements repository.SLARuleRepository.
type mockRuleRepo struct {
	rules   []domain.SLARule
	listErr error
}

func (m *mockRuleRepo) GetByID(_ context.Context, id string) (*domain.SLARule, error) {
	for i := range m.rules {
		if m.rules[i].ID == id {
			return &m.rules[i], nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockRuleRepo) List(_ context.Context) ([]domain.SLARule, error) {
	return m.rules, m.listErr
}

func (m *mockRuleRepo) ListActive(_ context.Context) ([]domain.SLARule, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var active []domain.SLARule
	for _, r := range m.rules {
		if r.IsActive {
			active = append(active, r)
		}
	}
	return active, nil
}

// mockLogRepo implements repository.SLALogRepository.
type mockLogRepo struct {
	byTicket  map[string]*domain.SLALog
	scanItems []repository.ScanItem
	created   []*domain.SLALog

	createErr    error
	scanErr      error
	updateErrFor map[string]error
	updated      []domain.SLALog

	counts       repository.ComplianceCounts
	countsErr    error
	priorityRows []repository.PriorityCompliance
}

func newMockLogRepo() *mockLogRepo {
	return &mockLogRepo{
		byTicket:     make(map[string]*domain.SLALog),
		updateErrFor: make(map[string]error),
	}
}

func (m *mockLogRepo) Create(_ context.Context, log *domain.SLALog) error {
	if m.createErr != nil {
		return m.createErr
	}
	log.ID = "log-" + log.TicketID
	log.Version = 1
	m.created = append(m.created, log)
	m.byTicket[log.TicketID] = log
	return nil
}

func (m *mockLogRepo) GetByTicket(_ context.Context, ticketID string) (*domain.SLALog, error) {
	if log, ok := m.byTicket[ticketID]; ok {
		return log, nil
	}
	return nil, pgx.ErrNoRows
}

func (m *mockLogRepo) UpdateIfVersion(_ context.Context, log *domain.SLALog) error {
	if err := m.updateErrFor[log.ID]; err != nil {
		return err
	}
	log.Version++
	m.updated = append(m.updated, *log)
	return nil
}

func (m *mockLogRepo) ListOpenForScan(_ context.Context, _ []domain.TicketStatus) ([]repository.ScanItem, error) {
	return m.scanItems, m.scanErr
}

func (m *mockLogRepo) CountStatuses(_ context.Context) (*repository.ComplianceCounts, error) {
	if m.countsErr != nil {
		return nil, m.countsErr
	}
	counts := m.counts
	return &counts, nil
}

func (m *mockLogRepo) CountByPriorityRule(_ context.Context) ([]repository.PriorityCompliance, error) {
	return m.priorityRows, nil
}

// captureDispatcher records published events; Publish is called from the
// alert fan-out goroutines.
type captureDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *captureDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *captureDispatcher) Subscribe(_ events.EventType, _ events.EventHandler) {}

func (d *captureDispatcher) alertKinds() []sla.AlertKind {
	d.mu.Lock()
	defer d.mu.Unlock()
	var kinds []sla.AlertKind
	for _, e := range d.events {
		if payload, ok := e.Payload.(events.SLAAlertPayload); ok {
			kinds = append(kinds, payload.Kind)
		}
	}
	return kinds
}

func standardRule() domain.SLARule {
	return domain.SLARule{
		ID:                    "rule-1",
		Name:                  "standard",
		ResponseTime:          60 * time.Minute,
		ResolutionTime:        240 * time.Minute,
		ResponseWarningWindow: 20 * time.Minute,
		IsActive:              true,
	}
}

func scanItem(ticketID string, rule domain.SLARule, createdAt time.Time) repository.ScanItem {
	return repository.ScanItem{
		Ticket: domain.Ticket{
			ID:        ticketID,
			Status:    domain.TicketStatusOpen,
			Priority:  domain.TicketPriorityHigh,
			CreatedAt: createdAt,
		},
		Log: domain.SLALog{
			ID:                 "log-" + ticketID,
			TicketID:           ticketID,
			RuleID:             rule.ID,
			TargetResponseAt:   createdAt.Add(rule.ResponseTime),
			TargetResolutionAt: createdAt.Add(rule.ResolutionTime),
			ResponseStatus:     domain.SLAStatusUnset,
			ResolutionStatus:   domain.SLAStatusUnset,
			Version:            1,
		},
		Rule: rule,
	}
}

func newTestSLAService(ruleRepo *mockRuleRepo, logRepo *mockLogRepo, dispatcher events.Dispatcher, now time.Time) *SLAService {
	return NewSLAService(SLADependencies{
		RuleRepo:   ruleRepo,
		LogRepo:    logRepo,
		Dispatcher: dispatcher,
		Now:        func() time.Time { return now },
	})
}

func TestTrackTicket_CreatesLogWithFixedDeadlines(t *testing.T) {
	rule := standardRule()
	ruleRepo := &mockRuleRepo{rules: []domain.SLARule{rule}}
	logRepo := newMockLogRepo()
	svc := newTestSLAService(ruleRepo, logRepo, &captureDispatcher{}, testBase)

	ticket := &domain.Ticket{
		ID:        "ticket-1",
		Priority:  domain.TicketPriorityHigh,
		CreatedAt: testBase,
	}
	log, err := svc.TrackTicket(context.Background(), ticket)
	require.NoError(t, err)
	require.NotNil(t, log)

	assert.Equal(t, rule.ID, log.RuleID)
	assert.True(t, log.TargetResponseAt.Equal(testBase.Add(60*time.Minute)))
	assert.True(t, log.TargetResolutionAt.Equal(testBase.Add(240*time.Minute)))
	assert.Equal(t, domain.SLAStatusUnset, log.ResponseStatus)
	assert.Equal(t, domain.SLAStatusUnset, log.ResolutionStatus)
	assert.Len(t, logRepo.created, 1)
}

func TestTrackTicket_NoMatchLeavesTicketUntracked(t *testing.T) {
	prio := domain.TicketPriorityUrgent
	scoped := standardRule()
	scoped.Priority = &prio

	ruleRepo := &mockRuleRepo{rules: []domain.SLARule{scoped}}
	logRepo := newMockLogRepo()
	svc := newTestSLAService(ruleRepo, logRepo, &captureDispatcher{}, testBase)

	log, err := svc.TrackTicket(context.Background(), &domain.Ticket{
		ID:        "ticket-1",
		Priority:  domain.TicketPriorityLow,
		CreatedAt: testBase,
	})
	require.NoError(t, err)
	assert.Nil(t, log)
	assert.Empty(t, logRepo.created)
}

func TestScan_CountsAndDispatches(t *testing.T) {
	rule := standardRule()
	logRepo := newMockLogRepo()
	// ticket-a is inside the response warning window, ticket-b breached its
	// response deadline, ticket-c has plenty of time left.
	logRepo.scanItems = []repository.ScanItem{
		scanItem("ticket-a", rule, testBase.Add(-45*time.Minute)),
		scanItem("ticket-b", rule, testBase.Add(-90*time.Minute)),
		scanItem("ticket-c", rule, testBase.Add(-5*time.Minute)),
	}
	dispatcher := &captureDispatcher{}
	svc := newTestSLAService(&mockRuleRepo{}, logRepo, dispatcher, testBase)

	summary, err := svc.Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Checked)
	assert.Equal(t, 1, summary.Warnings)
	assert.Equal(t, 1, summary.Breaches)
	assert.Equal(t, 0, summary.Escalations)
	assert.Equal(t, 0, summary.Errors)
	assert.Len(t, logRepo.updated, 2)
	assert.ElementsMatch(t, []sla.AlertKind{sla.AlertResponseWarning, sla.AlertResponseBreach}, dispatcher.alertKinds())
}

func TestScan_IsolatesPerTicketFailures(t *testing.T) {
	rule := standardRule()
	logRepo := newMockLogRepo()
	logRepo.scanItems = []repository.ScanItem{
		scanItem("ticket-a", rule, testBase.Add(-90*time.Minute)),
		scanItem("ticket-b", rule, testBase.Add(-90*time.Minute)),
	}
	logRepo.updateErrFor["log-ticket-a"] = errors.New("connection reset")
	dispatcher := &captureDispatcher{}
	svc := newTestSLAService(&mockRuleRepo{}, logRepo, dispatcher, testBase)

	summary, err := svc.Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Checked)
	assert.Equal(t, 1, summary.Errors)
	assert.Equal(t, 1, summary.Breaches)
	// The failed ticket's alert is never dispatched: status first, then notify.
	assert.Len(t, dispatcher.alertKinds(), 1)
}

func TestScan_VersionConflictCountedAsError(t *testing.T) {
	rule := standardRule()
	logRepo := newMockLogRepo()
	logRepo.scanItems = []repository.ScanItem{
		scanItem("ticket-a", rule, testBase.Add(-90*time.Minute)),
	}
	logRepo.updateErrFor["log-ticket-a"] = repository.ErrVersionConflict
	svc := newTestSLAService(&mockRuleRepo{}, logRepo, &captureDispatcher{}, testBase)

	summary, err := svc.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Errors)
	assert.Equal(t, 0, summary.Breaches)
}

func TestScan_EscalationCountedOnce(t *testing.T) {
	rule := standardRule()
	delay := 30 * time.Minute
	rule.EscalationEnabled = true
	rule.EscalationDelay = &delay

	logRepo := newMockLogRepo()
	logRepo.scanItems = []repository.ScanItem{
		scanItem("ticket-a", rule, testBase.Add(-45*time.Minute)),
	}
	dispatcher := &captureDispatcher{}
	svc := newTestSLAService(&mockRuleRepo{}, logRepo, dispatcher, testBase)

	summary, err := svc.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Escalations)
	assert.Contains(t, dispatcher.alertKinds(), sla.AlertEscalation)
	require.Len(t, logRepo.updated, 1)
	assert.True(t, logRepo.updated[0].Escalated)
}

func TestEvaluateTicket_UntrackedIsNoop(t *testing.T) {
	svc := newTestSLAService(&mockRuleRepo{}, newMockLogRepo(), &captureDispatcher{}, testBase)
	err := svc.EvaluateTicket(context.Background(), &domain.Ticket{ID: "ticket-x"})
	assert.NoError(t, err)
}

func TestEvaluateTicket_SettlesResolvedTicket(t *testing.T) {
	rule := standardRule()
	ruleRepo := &mockRuleRepo{rules: []domain.SLARule{rule}}
	logRepo := newMockLogRepo()

	createdAt := testBase.Add(-2 * time.Hour)
	log := &domain.SLALog{
		ID:                 "log-ticket-1",
		TicketID:           "ticket-1",
		RuleID:             rule.ID,
		TargetResponseAt:   createdAt.Add(rule.ResponseTime),
		TargetResolutionAt: createdAt.Add(rule.ResolutionTime),
		ResponseStatus:     domain.SLAStatusOnTime,
		ResolutionStatus:   domain.SLAStatusUnset,
		Version:            2,
	}
	logRepo.byTicket["ticket-1"] = log

	resolvedAt := testBase.Add(-time.Minute)
	ticket := &domain.Ticket{
		ID:         "ticket-1",
		Status:     domain.TicketStatusResolved,
		CreatedAt:  createdAt,
		ResolvedAt: &resolvedAt,
	}

	svc := newTestSLAService(ruleRepo, logRepo, &captureDispatcher{}, testBase)
	require.NoError(t, svc.EvaluateTicket(context.Background(), ticket))

	require.Len(t, logRepo.updated, 1)
	assert.Equal(t, domain.SLAStatusOnTime, logRepo.updated[0].ResolutionStatus)
}
