package dto

import (
	"encoding/json"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TicketCreateRequest payload for opening a ticket.
type TicketCreateRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Priority    string  `json:"priority"`
	CompanyID   *string `json:"company_id"`
	AssignedTo  *string `json:"assigned_to"`
}

// TicketUpdateRequest payload for a full-field update; absent fields
// keep their stored values.
type TicketUpdateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Priority    *string `json:"priority"`
	AssignedTo  *string `json:"assigned_to"`
	CompanyID   *string `json:"company_id"`
}

// CommentRequest payload for thread entries. To and cc stay raw because
// clients send them as a JSON array, a JSON string, or a comma list.
type CommentRequest struct {
	Message    string          `json:"message"`
	IsInternal bool            `json:"is_internal"`
	To         json.RawMessage `json:"to"`
	CC         json.RawMessage `json:"cc"`
}

// ForwardRequest payload for forwarding a ticket.
type ForwardRequest struct {
	To   json.RawMessage `json:"to"`
	Note string          `json:"note"`
}

// TicketResponse is the public shape of a ticket.
type TicketResponse struct {
	ID           string                `json:"id"`
	TicketNumber string                `json:"ticket_number"`
	Title        string                `json:"title"`
	Description  string                `json:"description"`
	Status       domain.TicketStatus   `json:"status"`
	Priority     domain.TicketPriority `json:"priority"`
	CreatedBy    string                `json:"created_by"`
	AssignedTo   *string               `json:"assigned_to,omitempty"`
	CompanyID    *string               `json:"company_id,omitempty"`
	ResolvedAt   *time.Time            `json:"resolved_at,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:           ticket.ID,
		TicketNumber: ticket.TicketNumber,
		Title:        ticket.Title,
		Description:  ticket.Description,
		Status:       ticket.Status,
		Priority:     ticket.Priority,
		CreatedBy:    ticket.CreatedBy,
		AssignedTo:   ticket.AssignedTo,
		CompanyID:    ticket.CompanyID,
		ResolvedAt:   ticket.ResolvedAt,
		CreatedAt:    ticket.CreatedAt,
		UpdatedAt:    ticket.UpdatedAt,
	}
}

// NewTicketResponses maps a slice.
func NewTicketResponses(tickets []domain.Ticket) []TicketResponse {
	result := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		result = append(result, NewTicketResponse(&tickets[i]))
	}
	return result
}

// CommentResponse is the public shape of a thread entry.
type CommentResponse struct {
	ID         string    `json:"id"`
	TicketID   string    `json:"ticket_id"`
	AuthorID   string    `json:"author_id"`
	Message    string    `json:"message"`
	IsInternal bool      `json:"is_internal"`
	To         []string  `json:"to,omitempty"`
	CC         []string  `json:"cc,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewCommentResponse maps a domain comment.
func NewCommentResponse(comment *domain.Comment) CommentResponse {
	return CommentResponse{
		ID:         comment.ID,
		TicketID:   comment.TicketID,
		AuthorID:   comment.AuthorID,
		Message:    comment.Message,
		IsInternal: comment.IsInternal,
		To:         comment.To,
		CC:         comment.CC,
		CreatedAt:  comment.CreatedAt,
	}
}

// NewCommentResponses maps a slice.
func NewCommentResponses(comments []domain.Comment) []CommentResponse {
	result := make([]CommentResponse, 0, len(comments))
	for i := range comments {
		result = append(result, NewCommentResponse(&comments[i]))
	}
	return result
}

// AttachmentResponse is attachment metadata.
type AttachmentResponse struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	CommentID *string   `json:"comment_id,omitempty"`
	FileName  string    `json:"file_name"`
	MimeType  string    `json:"mime_type"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// NewAttachmentResponses maps a slice.
func NewAttachmentResponses(attachments []domain.Attachment) []AttachmentResponse {
	result := make([]AttachmentResponse, 0, len(attachments))
	for _, a := range attachments {
		result = append(result, AttachmentResponse{
			ID:        a.ID,
			TicketID:  a.TicketID,
			CommentID: a.CommentID,
			FileName:  a.FileName,
			MimeType:  a.MimeType,
			SizeBytes: a.SizeBytes,
			CreatedAt: a.CreatedAt,
		})
	}
	return result
}
