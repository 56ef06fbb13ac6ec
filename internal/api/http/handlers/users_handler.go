package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// UsersHandler exposes account management endpoints.
type UsersHandler struct {
	users *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(users *service.UserService) *UsersHandler {
	return &UsersHandler{users: users}
}

// Create handles POST /api/users.
func (h *UsersHandler) Create(c *fiber.Ctx) error {
	authCtx, ok := auth.FromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	var req dto.UserCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	user, err := h.users.Create(c.UserContext(), authCtx.Principal, service.UserCreateInput{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		Role:        domain.Role(req.Role),
		CompanyID:   req.CompanyID,
		Permissions: req.Permissions,
	})
	if err != nil {
		return err
	}
	return success(c, http.StatusCreated, dto.NewUserResponse(user))
}

// List handles GET /api/users.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	authCtx, ok := auth.FromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	var companyFilter *string
	if v := c.Query("company_id"); v != "" {
		companyFilter = &v
	}

	users, err := h.users.List(c.UserContext(), authCtx.Principal, companyFilter,
		c.QueryInt("limit", 50), c.QueryInt("offset", 0))
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, dto.NewUserResponses(users))
}

// Get handles GET /api/users/:id.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	authCtx, ok := auth.FromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	user, err := h.users.Get(c.UserContext(), authCtx.Principal, c.Params("id"))
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, dto.NewUserResponse(user))
}

// Update handles PUT /api/users/:id.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	authCtx, ok := auth.FromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	var req dto.UserUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	input := service.UserUpdateInput{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		CompanyID:   req.CompanyID,
		Permissions: req.Permissions,
		IsActive:    req.IsActive,
	}
	if req.Role != nil {
		role := domain.Role(*req.Role)
		input.Role = &role
	}

	user, err := h.users.Update(c.UserContext(), authCtx.Principal, c.Params("id"), input)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, dto.NewUserResponse(user))
}

// Delete handles DELETE /api/users/:id.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	authCtx, ok := auth.FromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}
	if err := h.users.Delete(c.UserContext(), authCtx.Principal, c.Params("id")); err != nil {
		return err
	}
	return success(c, http.StatusOK, fiber.Map{"deleted": true})
}
