package events

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketCommentAdded  EventType = "ticket_comment_added"
	EventTicketForwarded     EventType = "ticket_forwarded"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	ActorID   string      `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketNumber string                `json:"ticket_number"`
	Title        string                `json:"title"`
	Priority     domain.TicketPriority `json:"priority"`
	CompanyID    *string               `json:"company_id,omitempty"`
	CreatorName  string                `json:"creator_name"`
	CreatorEmail string                `json:"creator_email"`
}

// TicketStatusChangedPayload payload. CreatorEmail is the notification
// target; the dispatcher side never re-reads the ticket.
type TicketStatusChangedPayload struct {
	TicketNumber string              `json:"ticket_number"`
	OldStatus    domain.TicketStatus `json:"old_status"`
	NewStatus    domain.TicketStatus `json:"new_status"`
	CompanyID    *string             `json:"company_id,omitempty"`
	CreatorEmail string              `json:"creator_email"`
}

// TicketCommentAddedPayload payload. Recipients is the fully resolved,
// deduplicated address set; resolution happens before publication.
type TicketCommentAddedPayload struct {
	TicketNumber string   `json:"ticket_number"`
	Title        string   `json:"title"`
	CompanyID    *string  `json:"company_id,omitempty"`
	Recipients   []string `json:"recipients"`
	AuthorName   string   `json:"author_name"`
	BodyPreview  string   `json:"body_preview"`
}

// TicketForwardedPayload payload.
type TicketForwardedPayload struct {
	TicketNumber  string   `json:"ticket_number"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	CompanyID     *string  `json:"company_id,omitempty"`
	Recipients    []string `json:"recipients"`
	ForwarderName string   `json:"forwarder_name"`
	Note          string   `json:"note,omitempty"`
}
