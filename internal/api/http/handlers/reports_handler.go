package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// ReportsHandler exposes dashboard aggregates.
type ReportsHandler struct {
	reports *service.ReportService
}

// NewReportsHandler constructs handler.
func NewReportsHandler(reports *service.ReportService) *ReportsHandler {
	return &ReportsHandler{reports: reports}
}

// Dashboard handles GET /api/reports/dashboard?range=7d|30d|90d|1y.
func (h *ReportsHandler) Dashboard(c *fiber.Ctx) error {
	authCtx, ok := auth.FromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	dashboard, err := h.reports.Dashboard(c.UserContext(), authCtx.Principal, c.Query("range"))
	if err != nil {
		return err
	}

	byStatus := fiber.Map{}
	for _, sc := range dashboard.ByStatus {
		byStatus[string(sc.Status)] = sc.Count
	}
	byPriority := fiber.Map{}
	for _, pc := range dashboard.ByPriority {
		byPriority[string(pc.Priority)] = pc.Count
	}
	perDay := make([]fiber.Map, 0, len(dashboard.CreatedByDay))
	for _, dc := range dashboard.CreatedByDay {
		perDay = append(perDay, fiber.Map{"day": dc.Day, "count": dc.Count})
	}
	topCompanies := make([]fiber.Map, 0, len(dashboard.TopCompanies))
	for _, cc := range dashboard.TopCompanies {
		topCompanies = append(topCompanies, fiber.Map{"company_id": cc.CompanyID, "open_tickets": cc.Count})
	}

	return success(c, http.StatusOK, fiber.Map{
		"range":          dashboard.Range,
		"since":          dashboard.Since,
		"by_status":      byStatus,
		"by_priority":    byPriority,
		"created_by_day": perDay,
		"top_companies":  topCompanies,
	})
}
