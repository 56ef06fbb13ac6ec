package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/notify"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// TicketsHandler exposes the ticket lifecycle endpoints.
type TicketsHandler struct {
	tickets *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets}
}

// Create handles POST /api/tickets.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	authCtx, ok := auth.FromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	var req dto.TicketCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	ticket, err := h.tickets.Create(c.UserContext(), authCtx.User, service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    domain.TicketPriority(req.Priority),
		CompanyID:   req.CompanyID,
		AssignedTo:  req.AssignedTo,
	})
	if err != nil {
		return err
	}
	return success(c, http.StatusCreated, dto.NewTicketResponse(ticket))
}

// List handles GET /api/tickets.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	authCtx, ok := auth.FromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	filter := service.TicketListFilter{
		Limit:  c.QueryInt("limit", 20),
		Offset: c.QueryInt("offset", 0),
	}
	for _, status := range splitQuery(c.Query("status")) {
		filter.Statuses = append(filter.Statuses, domain.TicketStatus(status))
	}
	for _, priority := range splitQuery(c.Query("priority")) {
		filter.Priorities = append(filter.Priorities, domain.TicketPriority(priority))
	}
	if v := c.Query("assigned_to"); v != "" {
		filter.AssignedTo = &v
	}
	if v := c.Query("company_id"); v != "" {
		filter.CompanyID = &v
	}
	if v := c.Query("q"); v != "" {
		filter.SearchTerm = &v
	}
	if t, ok := parseTimeQuery(c.Query("created_from")); ok {
		filter.CreatedFrom = &t
	}
	if t, ok := parseTimeQuery(c.Query("created_to")); ok {
		filter.CreatedTo = &t
	}

	tickets, err := h.tickets.List(c.UserContext(), authCtx.Principal, filter)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, dto.NewTicketResponses(tickets))
}

// Get handles GET /api/tickets/:id.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	authCtx, ok := auth.FromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	ticket, comments, attachments, err := h.tickets.Get(c.UserContext(), authCtx.Principal, c.Params("id"))
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, fiber.Map{
		"ticket":      dto.NewTicketResponse(ticket),
		"comments":    dto.NewCommentResponses(comments),
		"attachments": dto.NewAttachmentResponses(attachments),
	})
}

// Update handles PUT /api/tickets/:id.
func (h *TicketsHandler) Update(c *fiber.Ctx) error {
	authCtx, ok := auth.FromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	var req dto.TicketUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	input := service.TicketUpdateInput{
		Title:       req.Title,
		Description: req.Description,
		AssignedTo:  req.AssignedTo,
		CompanyID:   req.CompanyID,
	}
	if req.Status != nil {
		status := domain.TicketStatus(*req.Status)
		input.Status = &status
	}
	if req.Priority != nil {
		priority := domain.TicketPriority(*req.Priority)
		input.Priority = &priority
	}

	ticket, err := h.tickets.Update(c.UserContext(), authCtx.Principal, c.Params("id"), input)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, dto.NewTicketResponse(ticket))
}

// Delete handles DELETE /api/tickets/:id.
func (h *TicketsHandler) Delete(c *fiber.Ctx) error {
	authCtx, ok := auth.FromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}
	if err := h.tickets.Delete(c.UserContext(), authCtx.Principal, c.Params("id")); err != nil {
		return err
	}
	return success(c, http.StatusOK, fiber.Map{"deleted": true})
}

// AddComment handles POST /api/tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	authCtx, ok := auth.FromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	var req dto.CommentRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	comment, err := h.tickets.AddComment(c.UserContext(), authCtx.User, c.Params("id"), service.CommentInput{
		Message:    req.Message,
		IsInternal: req.IsInternal,
		To:         notify.ParseList(req.To),
		CC:         notify.ParseList(req.CC),
	})
	if err != nil {
		return err
	}
	return success(c, http.StatusCreated, dto.NewCommentResponse(comment))
}

// Forward handles POST /api/tickets/:id/forward.
func (h *TicketsHandler) Forward(c *fiber.Ctx) error {
	authCtx, ok := auth.FromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	var req dto.ForwardRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	err := h.tickets.Forward(c.UserContext(), authCtx.User, c.Params("id"), service.ForwardInput{
		To:   notify.ParseList(req.To),
		Note: req.Note,
	})
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, fiber.Map{"forwarded": true})
}

// Stats handles GET /api/tickets/stats.
func (h *TicketsHandler) Stats(c *fiber.Ctx) error {
	authCtx, ok := auth.FromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	stats, err := h.tickets.Stats(c.UserContext(), authCtx.Principal)
	if err != nil {
		return err
	}

	byStatus := fiber.Map{}
	for _, sc := range stats.ByStatus {
		byStatus[string(sc.Status)] = sc.Count
	}
	byPriority := fiber.Map{}
	for _, pc := range stats.ByPriority {
		byPriority[string(pc.Priority)] = pc.Count
	}
	return success(c, http.StatusOK, fiber.Map{
		"by_status":   byStatus,
		"by_priority": byPriority,
	})
}

func splitQuery(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func parseTimeQuery(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
