package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets. No transition
// graph is enforced; any status may be set from any other.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusPending    TicketStatus = "pending"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// Ticket is the aggregate for support requests. CompanyID is a stable
// tenant reference; ResolvedAt is stamped once on the transition into
// resolved and never re-stamped.
type Ticket struct {
	ID           string
	TicketNumber string
	Title        string
	Description  string
	Status       TicketStatus
	Priority     TicketPriority
	CreatedBy    string
	AssignedTo   *string
	CompanyID    *string
	ResolvedAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ValidTicketStatus reports whether the value is a known status.
func ValidTicketStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusOpen, TicketStatusPending, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// ValidTicketPriority reports whether the value is a known priority.
func ValidTicketPriority(p TicketPriority) bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}
