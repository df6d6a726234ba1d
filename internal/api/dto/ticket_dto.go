package dto

import (
	"time"

	"github.com/PicoRmin/TicketingBot-sub000/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	RequesterID  string                `json:"requester_id"`
	DepartmentID string                `json:"department_id"`
	Category     string                `json:"category"`
	Title        string                `json:"title"`
	Description  string                `json:"description"`
	Priority     domain.TicketPriority `json:"priority"`
}

// TicketSummary response.
type TicketSummary struct {
	ID           string                `json:"id"`
	ExternalKey  string                `json:"external_key"`
	RequesterID  string                `json:"requester_id"`
	DepartmentID string                `json:"department_id"`
	Category     string                `json:"category"`
	AssignedTo   *string               `json:"assigned_to"`
	Title        string                `json:"title"`
	Status       domain.TicketStatus   `json:"status"`
	Priority     domain.TicketPriority `json:"priority"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketSummary
	Description     string                  `json:"description"`
	FirstResponseAt *time.Time              `json:"first_response_at"`
	ResolvedAt      *time.Time              `json:"resolved_at"`
	ClosedAt        *time.Time              `json:"closed_at"`
	Messages        []TicketMessageResponse `json:"messages"`
}

// TicketMessageResponse represents thread message.
type TicketMessageResponse struct {
	ID          string                   `json:"id"`
	MessageType domain.TicketMessageType `json:"message_type"`
	AuthorType  domain.MessageAuthorType `json:"author_type"`
	AuthorID    *string                  `json:"author_id"`
	Body        string                   `json:"body"`
	CreatedAt   time.Time                `json:"created_at"`
}

// CreateMessageRequest payload.
type CreateMessageRequest struct {
	AuthorType  domain.MessageAuthorType  `json:"author_type"`
	AuthorID    *string                   `json:"author_id"`
	MessageType *domain.TicketMessageType `json:"message_type,omitempty"`
	Body        string                    `json:"body"`
}

// DepartmentResponse represents a catalog entry.
type DepartmentResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status  domain.TicketStatus `json:"status"`
	Comment string              `json:"comment"`
}

// AssignTicketRequest payload.
type AssignTicketRequest struct {
	AgentID string `json:"agent_id"`
}
