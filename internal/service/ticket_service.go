package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/PicoRmin/TicketingBot-sub000/internal/domain"
	"github.com/PicoRmin/TicketingBot-sub000/internal/events"
	"github.com/PicoRmin/TicketingBot-sub000/internal/repository"
	apperrors "github.com/PicoRmin/TicketingBot-sub000/pkg/util"
)

// SLATracker is the slice of the SLA engine the ticket workflow needs:
// start tracking at creation, nudge an evaluation when lifecycle timestamps
// land.
type SLATracker interface {
	TrackTicket(ctx context.Context, ticket *domain.Ticket) (*domain.SLALog, error)
	EvaluateTicket(ctx context.Context, ticket *domain.Ticket) error
}

// TicketService coordinates ticket workflows and feeds the SLA engine with
// lifecycle events.
type TicketService struct {
	tickets     repository.TicketRepository
	messages    repository.TicketMessageRepository
	departments repository.DepartmentRepository
	slaTracker  SLATracker
	dispatcher  events.Dispatcher
	logger      *zap.Logger
}

// TicketDependencies bundles collaborators for ticket service.
type TicketDependencies struct {
	TicketRepo     repository.TicketRepository
	MessageRepo    repository.TicketMessageRepository
	DepartmentRepo repository.DepartmentRepository
	SLATracker     SLATracker
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	DepartmentID string
	Category     string
	Title        string
	Description  string
	Priority     domain.TicketPriority
}

// TicketMessageInput describes a new thread message.
type TicketMessageInput struct {
	AuthorType  domain.MessageAuthorType
	AuthorID    *string
	MessageType domain.TicketMessageType
	Body        string
}

// TicketListFilter describes listing filters.
type TicketListFilter struct {
	RequesterID  *string
	DepartmentID *string
	Category     *string
	AssignedTo   *string
	Statuses     []domain.TicketStatus
	Priorities   []domain.TicketPriority
	SearchTerm   *string
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
	Limit        int
	Offset       int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:     deps.TicketRepo,
		messages:    deps.MessageRepo,
		departments: deps.DepartmentRepo,
		slaTracker:  deps.SLATracker,
		dispatcher:  deps.Dispatcher,
		logger:      logger,
	}
}

// CreateTicket creates a ticket for a requester and starts SLA tracking. A
// ticket with no matching rule stays untracked, which is not an error.
func (s *TicketService) CreateTicket(ctx context.Context, requesterID string, input TicketCreateInput) (*domain.Ticket, error) {
	dept, err := s.departments.GetByID(ctx, input.DepartmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("department", map[string]any{"department_id": input.DepartmentID})
		}
		return nil, err
	}
	if !dept.IsActive {
		return nil, apperrors.NewValidationError("department is inactive", map[string]any{"department_id": dept.ID})
	}

	ticket := &domain.Ticket{
		ExternalKey:  generateTicketKey(),
		RequesterID:  requesterID,
		DepartmentID: input.DepartmentID,
		Category:     strings.TrimSpace(input.Category),
		Title:        strings.TrimSpace(input.Title),
		Description:  strings.TrimSpace(input.Description),
		Status:       domain.TicketStatusOpen,
		Priority:     input.Priority,
	}
	if ticket.Priority == "" {
		ticket.Priority = domain.TicketPriorityMedium
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}

	if s.slaTracker != nil {
		if _, err := s.slaTracker.TrackTicket(ctx, ticket); err != nil {
			s.logger.Error("sla tracking failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
		}
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Payload: events.TicketCreatedPayload{
			DepartmentID: ticket.DepartmentID,
			Category:     ticket.Category,
			Priority:     ticket.Priority,
			Title:        ticket.Title,
		},
	})
	return ticket, nil
}

// ListDepartments returns the active department catalog, the set a requester
// may open tickets against.
func (s *TicketService) ListDepartments(ctx context.Context) ([]domain.Department, error) {
	return s.departments.ListActive(ctx)
}

// ListTickets returns tickets matching the filter.
func (s *TicketService) ListTickets(ctx context.Context, filter TicketListFilter) ([]domain.Ticket, error) {
	return s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		RequesterID:  filter.RequesterID,
		DepartmentID: filter.DepartmentID,
		Category:     filter.Category,
		AssignedTo:   filter.AssignedTo,
		Statuses:     filter.Statuses,
		Priorities:   filter.Priorities,
		SearchTerm:   filter.SearchTerm,
		CreatedFrom:  filter.CreatedFrom,
		CreatedTo:    filter.CreatedTo,
		Limit:        filter.Limit,
		Offset:       filter.Offset,
	})
}

// GetTicket fetches a ticket with its thread.
func (s *TicketService) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, []domain.TicketMessage, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, nil, err
	}
	msgs, err := s.messages.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, nil, err
	}
	return ticket, msgs, nil
}

// AddMessage appends a message to a ticket. The first public reply from an
// agent stamps the ticket's first response time, which settles the response
// SLA dimension.
func (s *TicketService) AddMessage(ctx context.Context, ticketID string, input TicketMessageInput) (*domain.TicketMessage, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status.IsTerminal() {
		return nil, apperrors.NewConflict("ticket thread is closed", nil)
	}
	if input.MessageType == "" {
		input.MessageType = domain.MessageTypePublicReply
	}
	if input.AuthorType == domain.AuthorTypeUser && input.MessageType != domain.MessageTypePublicReply {
		return nil, apperrors.NewValidationError("users can only post public replies", nil)
	}

	msg := &domain.TicketMessage{
		TicketID:    ticket.ID,
		AuthorType:  input.AuthorType,
		AuthorID:    input.AuthorID,
		MessageType: input.MessageType,
		Body:        strings.TrimSpace(input.Body),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}

	if input.AuthorType == domain.AuthorTypeAgent &&
		input.MessageType == domain.MessageTypePublicReply &&
		ticket.FirstResponseAt == nil {
		now := time.Now()
		ticket.FirstResponseAt = &now
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return nil, err
		}
		s.nudgeSLA(ctx, ticket)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketMessageAdded,
		TicketID: ticket.ID,
		Payload: events.TicketMessageAddedPayload{
			MessageID:   msg.ID,
			MessageType: msg.MessageType,
			AuthorType:  msg.AuthorType,
			AuthorID:    msg.AuthorID,
			BodyPreview: stringPreview(msg.Body, 120),
		},
	})
	return msg, nil
}

// UpdateStatus moves a ticket through its lifecycle. Resolving stamps
// resolved_at, closing stamps closed_at; both feed the resolution SLA
// dimension.
func (s *TicketService) UpdateStatus(ctx context.Context, ticketID string, newStatus domain.TicketStatus, comment string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !isValidTransition(ticket.Status, newStatus) {
		return nil, apperrors.NewConflict("invalid status transition", map[string]any{
			"from": ticket.Status,
			"to":   newStatus,
		})
	}
	oldStatus := ticket.Status
	now := time.Now()
	switch newStatus {
	case domain.TicketStatusResolved:
		if ticket.ResolvedAt == nil {
			ticket.ResolvedAt = &now
		}
	case domain.TicketStatusClosed:
		ticket.ClosedAt = &now
	default:
		if oldStatus == domain.TicketStatusResolved {
			ticket.ResolvedAt = nil
		}
	}
	ticket.Status = newStatus
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}

	if newStatus == domain.TicketStatusResolved || newStatus == domain.TicketStatusClosed {
		s.nudgeSLA(ctx, ticket)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: newStatus,
			Comment:   comment,
		},
	})
	return ticket, nil
}

// AssignTicket sets the handling agent.
func (s *TicketService) AssignTicket(ctx context.Context, ticketID, agentID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status.IsTerminal() {
		return nil, apperrors.NewConflict("ticket thread is closed", nil)
	}
	ticket.AssignedTo = &agentID
	if ticket.Status == domain.TicketStatusOpen {
		ticket.Status = domain.TicketStatusInProgress
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// nudgeSLA requests an immediate evaluation; failures only log, the next
// scan picks the ticket up anyway.
func (s *TicketService) nudgeSLA(ctx context.Context, ticket *domain.Ticket) {
	if s.slaTracker == nil {
		return
	}
	if err := s.slaTracker.EvaluateTicket(ctx, ticket); err != nil {
		s.logger.Error("sla evaluation failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
	}
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func generateTicketKey() string {
	return "TCK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}

var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpen:        {domain.TicketStatusInProgress, domain.TicketStatusResolved, domain.TicketStatusCancelled},
	domain.TicketStatusInProgress:  {domain.TicketStatusPendingUser, domain.TicketStatusResolved, domain.TicketStatusCancelled},
	domain.TicketStatusPendingUser: {domain.TicketStatusInProgress, domain.TicketStatusResolved, domain.TicketStatusCancelled},
	domain.TicketStatusResolved:    {domain.TicketStatusClosed, domain.TicketStatusInProgress},
	domain.TicketStatusClosed:      {},
	domain.TicketStatusCancelled:   {},
}

func isValidTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}
