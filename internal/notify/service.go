package notify

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/mail"
	"github.com/spec-kit/helpdesk-service/internal/policy"
)

// Service turns ticket events into outbound email. Handlers are
// best-effort: delivery problems are logged and never surface to the
// operation that published the event.
type Service struct {
	dispatcher events.Dispatcher
	sender     mail.Sender
	companies  policy.CompanyReader
	logger     *zap.Logger
}

// NewService builds the notification service.
func NewService(dispatcher events.Dispatcher, sender mail.Sender, companies policy.CompanyReader, logger *zap.Logger) *Service {
	return &Service{
		dispatcher: dispatcher,
		sender:     sender,
		companies:  companies,
		logger:     logger,
	}
}

// RegisterHandlers subscribes the service to all ticket events.
func (s *Service) RegisterHandlers() {
	s.dispatcher.Subscribe(events.EventTicketCreated, s.handleTicketCreated)
	s.dispatcher.Subscribe(events.EventTicketStatusChanged, s.handleStatusChanged)
	s.dispatcher.Subscribe(events.EventTicketCommentAdded, s.handleCommentAdded)
	s.dispatcher.Subscribe(events.EventTicketForwarded, s.handleForwarded)
}

func (s *Service) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return nil
	}
	if payload.CreatorEmail == "" {
		return nil
	}

	subject := fmt.Sprintf("[%s] %s", payload.TicketNumber, payload.Title)
	body := fmt.Sprintf(`
		<p>Hi %s,</p>
		<p>Your ticket has been received and assigned number <strong>%s</strong>.</p>
		<div class="info-box">
			<strong>%s</strong><br>
			Priority: %s
		</div>
		<p>We will follow up on this address as the ticket progresses.</p>`,
		payload.CreatorName, payload.TicketNumber, payload.Title, payload.Priority)

	s.deliver(ctx, payload.CompanyID, []string{payload.CreatorEmail}, subject, "Ticket received", body)
	return nil
}

func (s *Service) handleStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return nil
	}
	if payload.CreatorEmail == "" {
		return nil
	}

	subject := fmt.Sprintf("[%s] status changed to %s", payload.TicketNumber, payload.NewStatus)
	body := fmt.Sprintf(`
		<p>Ticket <strong>%s</strong> moved from <strong>%s</strong> to <strong>%s</strong>.</p>`,
		payload.TicketNumber, payload.OldStatus, payload.NewStatus)

	s.deliver(ctx, payload.CompanyID, []string{payload.CreatorEmail}, subject, "Ticket status update", body)
	return nil
}

func (s *Service) handleCommentAdded(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCommentAddedPayload)
	if !ok {
		return nil
	}
	if len(payload.Recipients) == 0 {
		return nil
	}

	subject := fmt.Sprintf("[%s] new reply on %s", payload.TicketNumber, payload.Title)
	body := fmt.Sprintf(`
		<p><strong>%s</strong> replied on ticket <strong>%s</strong>:</p>
		<div class="info-box">%s</div>`,
		payload.AuthorName, payload.TicketNumber, payload.BodyPreview)

	s.deliver(ctx, payload.CompanyID, payload.Recipients, subject, "New reply", body)
	return nil
}

func (s *Service) handleForwarded(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketForwardedPayload)
	if !ok {
		return nil
	}
	if len(payload.Recipients) == 0 {
		return nil
	}

	var note string
	if payload.Note != "" {
		note = fmt.Sprintf("<p><em>%s</em></p>", payload.Note)
	}
	subject := fmt.Sprintf("[%s] forwarded: %s", payload.TicketNumber, payload.Title)
	body := fmt.Sprintf(`
		<p><strong>%s</strong> forwarded ticket <strong>%s</strong> to you.</p>
		%s
		<div class="info-box">
			<strong>%s</strong><br>
			%s
		</div>`,
		payload.ForwarderName, payload.TicketNumber, note, payload.Title, payload.Description)

	s.deliver(ctx, payload.CompanyID, payload.Recipients, subject, "Ticket forwarded", body)
	return nil
}

// deliver resolves the tenant transport and hands the message to the
// sender. Any error stops here.
func (s *Service) deliver(ctx context.Context, companyID *string, recipients []string, subject, title, body string) {
	msg := mail.Message{
		To:      recipients,
		Subject: subject,
		HTML:    mail.Template(title, body),
	}
	if err := s.sender.Send(ctx, s.tenantFor(ctx, companyID), msg); err != nil {
		s.logger.Warn("notification delivery failed",
			zap.String("subject", subject),
			zap.String("recipients", strings.Join(recipients, ",")),
			zap.Error(err))
	}
}

// tenantFor loads the company owning the ticket. A missing or unreadable
// company just means the fallback transport is used.
func (s *Service) tenantFor(ctx context.Context, companyID *string) *domain.Company {
	if companyID == nil || *companyID == "" {
		return nil
	}
	company, err := s.companies.GetByID(ctx, *companyID)
	if err != nil {
		s.logger.Warn("tenant lookup for notification failed",
			zap.String("company_id", *companyID),
			zap.Error(err))
		return nil
	}
	return company
}
