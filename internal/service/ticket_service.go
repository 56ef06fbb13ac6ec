package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/notify"
	"github.com/spec-kit/helpdesk-service/internal/policy"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// ScopeSource yields the company-id set a manager administers.
// Satisfied by policy.ScopeResolver.
type ScopeSource interface {
	ManagerCompanyIDs(ctx context.Context, p policy.Principal) ([]string, error)
}

// RecipientProvisioner ensures notified addresses map to user accounts.
// Satisfied by notify.Provisioner.
type RecipientProvisioner interface {
	EnsureRecipients(ctx context.Context, actorID string, emails []string)
}

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets     repository.TicketRepository
	comments    repository.CommentRepository
	attachments repository.AttachmentRepository
	users       repository.UserRepository
	scopes      ScopeSource
	provisioner RecipientProvisioner
	dispatcher  events.Dispatcher
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo     repository.TicketRepository
	CommentRepo    repository.CommentRepository
	AttachmentRepo repository.AttachmentRepository
	UserRepo       repository.UserRepository
	Scopes         ScopeSource
	Provisioner    RecipientProvisioner
	Dispatcher     events.Dispatcher
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:     deps.TicketRepo,
		comments:    deps.CommentRepo,
		attachments: deps.AttachmentRepo,
		users:       deps.UserRepo,
		scopes:      deps.Scopes,
		provisioner: deps.Provisioner,
		dispatcher:  deps.Dispatcher,
	}
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Priority    domain.TicketPriority
	CompanyID   *string
	AssignedTo  *string
}

// TicketUpdateInput carries a full-field update; nil fields keep their
// stored value.
type TicketUpdateInput struct {
	Title       *string
	Description *string
	Status      *domain.TicketStatus
	Priority    *domain.TicketPriority
	AssignedTo  *string
	CompanyID   *string
}

// TicketListFilter describes listing parameters on top of the caller's
// visibility scope.
type TicketListFilter struct {
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	AssignedTo  *string
	CompanyID   *string
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// CommentInput describes a ticket thread entry. To and CC are already
// parsed into address lists; normalization happens here.
type CommentInput struct {
	Message    string
	IsInternal bool
	To         []string
	CC         []string
}

// ForwardInput describes forwarding a ticket to external addresses.
type ForwardInput struct {
	To   []string
	Note string
}

// TicketStats aggregates counts within the caller's visibility.
type TicketStats struct {
	ByStatus   []repository.StatusCount
	ByPriority []repository.PriorityCount
}

// scopeFor resolves the caller's ticket visibility predicate.
func (s *TicketService) scopeFor(ctx context.Context, p policy.Principal) (policy.TicketScope, error) {
	managerCompanies, err := s.scopes.ManagerCompanyIDs(ctx, p)
	if err != nil {
		return policy.TicketScope{}, err
	}
	return policy.TicketsFor(p, managerCompanies), nil
}

// Create opens a ticket. Customer tickets always bind to the customer's
// own company regardless of the request payload.
func (s *TicketService) Create(ctx context.Context, actor *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	p := principalOf(actor)
	if !policy.CanCreateTicket(p) {
		return nil, apperrors.NewForbidden("role cannot create tickets")
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", nil)
	}

	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !domain.ValidTicketPriority(priority) {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": priority})
	}

	companyID := input.CompanyID
	if actor.Role == domain.RoleCustomer || companyID == nil {
		companyID = actor.CompanyID
	}

	number, err := s.tickets.NextTicketNumber(ctx)
	if err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		TicketNumber: number,
		Title:        title,
		Description:  strings.TrimSpace(input.Description),
		Status:       domain.TicketStatusOpen,
		Priority:     priority,
		CreatedBy:    actor.ID,
		AssignedTo:   input.AssignedTo,
		CompanyID:    companyID,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload: events.TicketCreatedPayload{
			TicketNumber: ticket.TicketNumber,
			Title:        ticket.Title,
			Priority:     ticket.Priority,
			CompanyID:    ticket.CompanyID,
			CreatorName:  actor.Name,
			CreatorEmail: actor.Email,
		},
	})
	return ticket, nil
}

// List returns tickets visible to the caller, narrowed by the filter.
func (s *TicketService) List(ctx context.Context, p policy.Principal, filter TicketListFilter) ([]domain.Ticket, error) {
	scope, err := s.scopeFor(ctx, p)
	if err != nil {
		return nil, err
	}
	return s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		Scope:       scope,
		Statuses:    filter.Statuses,
		Priorities:  filter.Priorities,
		AssignedTo:  filter.AssignedTo,
		CompanyID:   filter.CompanyID,
		SearchTerm:  filter.SearchTerm,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	})
}

// Get fetches one ticket with its thread. Customers never see internal
// comments. A ticket outside the caller's scope reads as not found.
func (s *TicketService) Get(ctx context.Context, p policy.Principal, ticketID string) (*domain.Ticket, []domain.Comment, []domain.Attachment, error) {
	ticket, err := s.loadScoped(ctx, p, ticketID)
	if err != nil {
		return nil, nil, nil, err
	}

	includeInternal := p.Role != domain.RoleCustomer
	comments, err := s.comments.ListByTicket(ctx, ticket.ID, includeInternal)
	if err != nil {
		return nil, nil, nil, err
	}
	attachments, err := s.attachments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, nil, nil, err
	}
	return ticket, comments, attachments, nil
}

// Update applies a full-field update within the caller's visibility.
// Entering resolved stamps resolved_at exactly once; later transitions
// in and out of resolved keep the original stamp.
func (s *TicketService) Update(ctx context.Context, p policy.Principal, ticketID string, input TicketUpdateInput) (*domain.Ticket, error) {
	ticket, err := s.loadScoped(ctx, p, ticketID)
	if err != nil {
		return nil, err
	}
	oldStatus := ticket.Status

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, apperrors.NewValidationError("title cannot be empty", nil)
		}
		ticket.Title = title
	}
	if input.Description != nil {
		ticket.Description = strings.TrimSpace(*input.Description)
	}
	if input.Priority != nil {
		if !domain.ValidTicketPriority(*input.Priority) {
			return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": *input.Priority})
		}
		ticket.Priority = *input.Priority
	}
	if input.Status != nil {
		if !domain.ValidTicketStatus(*input.Status) {
			return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": *input.Status})
		}
		ticket.Status = *input.Status
	}
	if input.AssignedTo != nil {
		if *input.AssignedTo == "" {
			ticket.AssignedTo = nil
		} else {
			ticket.AssignedTo = input.AssignedTo
		}
	}
	if input.CompanyID != nil {
		ticket.CompanyID = input.CompanyID
	}

	if ticket.Status == domain.TicketStatusResolved && ticket.ResolvedAt == nil {
		now := time.Now().UTC()
		ticket.ResolvedAt = &now
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}

	if ticket.Status != oldStatus {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: ticket.ID,
			ActorID:  p.UserID,
			Payload: events.TicketStatusChangedPayload{
				TicketNumber: ticket.TicketNumber,
				OldStatus:    oldStatus,
				NewStatus:    ticket.Status,
				CompanyID:    ticket.CompanyID,
				CreatorEmail: s.creatorEmail(ctx, ticket.CreatedBy),
			},
		})
	}
	return ticket, nil
}

// AddComment appends to the ticket thread. The first staff reply on an
// open ticket moves it to in_progress. Non-internal comments resolve and
// notify recipients; notification failures never fail the request.
func (s *TicketService) AddComment(ctx context.Context, actor *domain.User, ticketID string, input CommentInput) (*domain.Comment, error) {
	p := principalOf(actor)
	ticket, err := s.loadScoped(ctx, p, ticketID)
	if err != nil {
		return nil, err
	}

	message := strings.TrimSpace(input.Message)
	if message == "" {
		return nil, apperrors.NewValidationError("message is required", nil)
	}
	if input.IsInternal && actor.Role == domain.RoleCustomer {
		return nil, apperrors.NewForbidden("customers cannot post internal comments")
	}

	comment := &domain.Comment{
		TicketID:   ticket.ID,
		AuthorID:   actor.ID,
		Message:    message,
		IsInternal: input.IsInternal,
		To:         notify.Normalize(input.To),
		CC:         notify.Normalize(input.CC),
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}

	if actor.Role != domain.RoleCustomer && ticket.Status == domain.TicketStatusOpen {
		ticket.Status = domain.TicketStatusInProgress
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return nil, err
		}
	}

	recipients := notify.Resolve(comment.To, comment.CC, s.creatorEmail(ctx, ticket.CreatedBy), actor.Email, comment.IsInternal)
	if len(recipients) > 0 {
		s.provisioner.EnsureRecipients(ctx, actor.ID, recipients)
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketCommentAdded,
			TicketID: ticket.ID,
			ActorID:  actor.ID,
			Payload: events.TicketCommentAddedPayload{
				TicketNumber: ticket.TicketNumber,
				Title:        ticket.Title,
				CompanyID:    ticket.CompanyID,
				Recipients:   recipients,
				AuthorName:   actor.Name,
				BodyPreview:  bodyPreview(message),
			},
		})
	}
	return comment, nil
}

// Forward sends the ticket summary to external addresses and records an
// internal note in the thread.
func (s *TicketService) Forward(ctx context.Context, actor *domain.User, ticketID string, input ForwardInput) error {
	p := principalOf(actor)
	if actor.Role == domain.RoleCustomer {
		return apperrors.NewForbidden("customers cannot forward tickets")
	}
	ticket, err := s.loadScoped(ctx, p, ticketID)
	if err != nil {
		return err
	}

	recipients := notify.Normalize(input.To)
	if len(recipients) == 0 {
		return apperrors.NewValidationError("at least one recipient is required", nil)
	}
	s.provisioner.EnsureRecipients(ctx, actor.ID, recipients)

	note := &domain.Comment{
		TicketID:   ticket.ID,
		AuthorID:   actor.ID,
		Message:    "Forwarded to " + strings.Join(recipients, ", "),
		IsInternal: true,
		To:         recipients,
	}
	if input.Note != "" {
		note.Message += "\n\n" + strings.TrimSpace(input.Note)
	}
	if err := s.comments.Create(ctx, note); err != nil {
		return err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketForwarded,
		TicketID: ticket.ID,
		ActorID:  actor.ID,
		Payload: events.TicketForwardedPayload{
			TicketNumber:  ticket.TicketNumber,
			Title:         ticket.Title,
			Description:   ticket.Description,
			CompanyID:     ticket.CompanyID,
			Recipients:    recipients,
			ForwarderName: actor.Name,
			Note:          strings.TrimSpace(input.Note),
		},
	})
	return nil
}

// Delete removes a ticket permanently.
func (s *TicketService) Delete(ctx context.Context, p policy.Principal, ticketID string) error {
	if !policy.CanDeleteTicket(p) {
		return apperrors.NewForbidden("role cannot delete tickets")
	}
	ticket, err := s.loadScoped(ctx, p, ticketID)
	if err != nil {
		return err
	}
	return s.tickets.Delete(ctx, ticket.ID)
}

// Stats returns status and priority counts within the caller's scope.
func (s *TicketService) Stats(ctx context.Context, p policy.Principal) (*TicketStats, error) {
	scope, err := s.scopeFor(ctx, p)
	if err != nil {
		return nil, err
	}
	byStatus, err := s.tickets.CountByStatus(ctx, scope)
	if err != nil {
		return nil, err
	}
	byPriority, err := s.tickets.CountByPriority(ctx, scope)
	if err != nil {
		return nil, err
	}
	return &TicketStats{ByStatus: byStatus, ByPriority: byPriority}, nil
}

func (s *TicketService) loadScoped(ctx context.Context, p policy.Principal, ticketID string) (*domain.Ticket, error) {
	scope, err := s.scopeFor(ctx, p)
	if err != nil {
		return nil, err
	}
	ticket, err := s.tickets.GetByIDScoped(ctx, ticketID, scope)
	if err != nil {
		// out-of-scope and nonexistent are indistinguishable on purpose
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *TicketService) creatorEmail(ctx context.Context, userID string) string {
	creator, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return ""
	}
	return creator.Email
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	event.ID = uuid.NewString()
	event.Timestamp = time.Now().UTC()
	_ = s.dispatcher.Publish(ctx, event)
}

func principalOf(user *domain.User) policy.Principal {
	return policy.Principal{
		UserID:      user.ID,
		Role:        user.Role,
		CompanyID:   user.CompanyID,
		Permissions: user.Permissions,
	}
}

func bodyPreview(message string) string {
	const maxRunes = 200
	runes := []rune(message)
	if len(runes) <= maxRunes {
		return message
	}
	return string(runes[:maxRunes]) + "..."
}
