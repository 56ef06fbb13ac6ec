package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// CompaniesHandler exposes tenant management endpoints.
type CompaniesHandler struct {
	companies *service.CompanyService
}

// NewCompaniesHandler constructs handler.
func NewCompaniesHandler(companies *service.CompanyService) *CompaniesHandler {
	return &CompaniesHandler{companies: companies}
}

// Create handles POST /api/companies.
func (h *CompaniesHandler) Create(c *fiber.Ctx) error {
	authCtx, ok := auth.FromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	var req dto.CompanyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	company, err := h.companies.Create(c.UserContext(), authCtx.Principal, service.CompanyInput{
		Name:     req.Name,
		Domain:   req.Domain,
		Industry: req.Industry,
		Status:   domain.CompanyStatus(req.Status),
		Type:     domain.CompanyType(req.Type),
	})
	if err != nil {
		return err
	}
	return success(c, http.StatusCreated, dto.NewCompanyResponse(company))
}

// List handles GET /api/companies.
func (h *CompaniesHandler) List(c *fiber.Ctx) error {
	authCtx, ok := auth.FromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	var typeFilter *domain.CompanyType
	if v := c.Query("type"); v != "" {
		t := domain.CompanyType(v)
		typeFilter = &t
	}

	companies, err := h.companies.List(c.UserContext(), authCtx.Principal, typeFilter,
		c.QueryInt("limit", 50), c.QueryInt("offset", 0))
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, dto.NewCompanyResponses(companies))
}

// Get handles GET /api/companies/:id.
func (h *CompaniesHandler) Get(c *fiber.Ctx) error {
	authCtx, ok := auth.FromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	company, err := h.companies.Get(c.UserContext(), authCtx.Principal, c.Params("id"))
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, dto.NewCompanyResponse(company))
}

// Update handles PUT /api/companies/:id.
func (h *CompaniesHandler) Update(c *fiber.Ctx) error {
	authCtx, ok := auth.FromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	var req dto.CompanyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	company, err := h.companies.Update(c.UserContext(), authCtx.Principal, c.Params("id"), service.CompanyInput{
		Name:     req.Name,
		Domain:   req.Domain,
		Industry: req.Industry,
		Status:   domain.CompanyStatus(req.Status),
		Type:     domain.CompanyType(req.Type),
	})
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, dto.NewCompanyResponse(company))
}

// Delete handles DELETE /api/companies/:id.
func (h *CompaniesHandler) Delete(c *fiber.Ctx) error {
	authCtx, ok := auth.FromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}
	if err := h.companies.Delete(c.UserContext(), authCtx.Principal, c.Params("id")); err != nil {
		return err
	}
	return success(c, http.StatusOK, fiber.Map{"deleted": true})
}

// GetEmailConfig handles GET /api/companies/:id/email-config.
func (h *CompaniesHandler) GetEmailConfig(c *fiber.Ctx) error {
	authCtx, ok := auth.FromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	cfg, err := h.companies.GetEmailConfig(c.UserContext(), authCtx.Principal, c.Params("id"))
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, dto.NewEmailConfigResponse(cfg))
}

// UpdateEmailConfig handles PUT /api/companies/:id/email-config.
func (h *CompaniesHandler) UpdateEmailConfig(c *fiber.Ctx) error {
	authCtx, ok := auth.FromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	var req dto.EmailConfigRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	err := h.companies.UpdateEmailConfig(c.UserContext(), authCtx.Principal, c.Params("id"), service.EmailConfigInput{
		Enabled:  req.Enabled,
		Host:     req.Host,
		Port:     req.Port,
		Username: req.Username,
		Password: req.Password,
		From:     req.From,
	})
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, fiber.Map{"updated": true})
}

// TestEmail handles POST /api/companies/:id/test-email.
func (h *CompaniesHandler) TestEmail(c *fiber.Ctx) error {
	authCtx, ok := auth.FromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	var req dto.TestEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	result, err := h.companies.TestEmail(c.UserContext(), authCtx.Principal, c.Params("id"), req.Recipient)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, result)
}
