package service

import (
	"context"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/policy"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// ReportService builds dashboard aggregates inside the caller's
// visibility scope.
type ReportService struct {
	tickets repository.TicketRepository
	scopes  ScopeSource
}

// NewReportService constructs the service.
func NewReportService(tickets repository.TicketRepository, scopes ScopeSource) *ReportService {
	return &ReportService{tickets: tickets, scopes: scopes}
}

// Dashboard aggregates ticket counts for one reporting range.
type Dashboard struct {
	Range        string
	Since        time.Time
	ByStatus     []repository.StatusCount
	ByPriority   []repository.PriorityCount
	CreatedByDay []repository.DayCount
	TopCompanies []repository.CompanyCount
}

var reportRanges = map[string]time.Duration{
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
	"90d": 90 * 24 * time.Hour,
	"1y":  365 * 24 * time.Hour,
}

// Dashboard computes the dashboard for the given range key.
func (s *ReportService) Dashboard(ctx context.Context, p policy.Principal, rangeKey string) (*Dashboard, error) {
	if rangeKey == "" {
		rangeKey = "30d"
	}
	window, ok := reportRanges[rangeKey]
	if !ok {
		return nil, apperrors.NewValidationError("range must be one of 7d, 30d, 90d, 1y", map[string]any{"range": rangeKey})
	}

	managerCompanies, err := s.scopes.ManagerCompanyIDs(ctx, p)
	if err != nil {
		return nil, err
	}
	scope := policy.TicketsFor(p, managerCompanies)
	since := time.Now().UTC().Add(-window)

	byStatus, err := s.tickets.CountByStatus(ctx, scope)
	if err != nil {
		return nil, err
	}
	byPriority, err := s.tickets.CountByPriority(ctx, scope)
	if err != nil {
		return nil, err
	}
	perDay, err := s.tickets.CountCreatedPerDay(ctx, scope, since)
	if err != nil {
		return nil, err
	}
	topCompanies, err := s.tickets.OpenCountByCompany(ctx, scope, 5)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		Range:        rangeKey,
		Since:        since,
		ByStatus:     byStatus,
		ByPriority:   byPriority,
		CreatedByDay: perDay,
		TopCompanies: topCompanies,
	}, nil
}
