package service

import (
	"context"
	"strings"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/mail"
	"github.com/spec-kit/helpdesk-service/internal/policy"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/pkg/crypto"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// ScopeInvalidator drops cached manager scopes after company mutations.
// Satisfied by policy.ScopeResolver.
type ScopeInvalidator interface {
	Invalidate(ctx context.Context, userID string)
}

// CompanyService coordinates tenant management.
type CompanyService struct {
	companies repository.CompanyRepository
	users     repository.UserRepository
	codec     *crypto.Codec
	mailer    mail.Sender
	scopes    ScopeInvalidator
}

// NewCompanyService constructs the service.
func NewCompanyService(companies repository.CompanyRepository, users repository.UserRepository, codec *crypto.Codec, mailer mail.Sender, scopes ScopeInvalidator) *CompanyService {
	return &CompanyService{
		companies: companies,
		users:     users,
		codec:     codec,
		mailer:    mailer,
		scopes:    scopes,
	}
}

// CompanyInput describes creation and update payloads.
type CompanyInput struct {
	Name     string
	Domain   string
	Industry string
	Status   domain.CompanyStatus
	Type     domain.CompanyType
}

// EmailConfigInput carries tenant SMTP settings. Password is plaintext
// here and encrypted before it reaches storage; an empty password keeps
// the stored one.
type EmailConfigInput struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// List returns companies visible to the caller.
func (s *CompanyService) List(ctx context.Context, p policy.Principal, typeFilter *domain.CompanyType, limit, offset int) ([]domain.Company, error) {
	scope := policy.CompaniesFor(p, typeFilter)
	return s.companies.ListWithScope(ctx, scope, limit, offset)
}

// Get fetches one company within the caller's visibility.
func (s *CompanyService) Get(ctx context.Context, p policy.Principal, id string) (*domain.Company, error) {
	return s.loadScoped(ctx, p, id)
}

// Create registers a company. Managers always create client companies
// attributed to themselves.
func (s *CompanyService) Create(ctx context.Context, p policy.Principal, input CompanyInput) (*domain.Company, error) {
	if !policy.CanMutateCompany(p) {
		return nil, apperrors.NewForbidden("role cannot manage companies")
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("company name is required", nil)
	}

	status := input.Status
	if status == "" {
		status = domain.CompanyStatusActive
	}
	companyType := input.Type
	if p.Role == domain.RoleManager || companyType == "" {
		companyType = domain.CompanyTypeClient
	}

	company := &domain.Company{
		Name:      name,
		Domain:    strings.TrimSpace(input.Domain),
		Industry:  strings.TrimSpace(input.Industry),
		Status:    status,
		Type:      companyType,
		CreatedBy: p.UserID,
	}
	if err := s.companies.Create(ctx, company); err != nil {
		return nil, err
	}
	s.scopes.Invalidate(ctx, p.UserID)
	return company, nil
}

// Update modifies a company within the caller's visibility.
func (s *CompanyService) Update(ctx context.Context, p policy.Principal, id string, input CompanyInput) (*domain.Company, error) {
	if !policy.CanMutateCompany(p) {
		return nil, apperrors.NewForbidden("role cannot manage companies")
	}
	company, err := s.loadScoped(ctx, p, id)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(input.Name); name != "" {
		company.Name = name
	}
	if input.Domain != "" {
		company.Domain = strings.TrimSpace(input.Domain)
	}
	if input.Industry != "" {
		company.Industry = strings.TrimSpace(input.Industry)
	}
	if input.Status != "" {
		company.Status = input.Status
	}
	if input.Type != "" && p.Role != domain.RoleManager {
		company.Type = input.Type
	}

	if err := s.companies.Update(ctx, company); err != nil {
		return nil, err
	}
	s.scopes.Invalidate(ctx, p.UserID)
	return company, nil
}

// Delete removes a company. Companies with members are kept so user
// records never dangle.
func (s *CompanyService) Delete(ctx context.Context, p policy.Principal, id string) error {
	if !policy.CanMutateCompany(p) {
		return apperrors.NewForbidden("role cannot manage companies")
	}
	company, err := s.loadScoped(ctx, p, id)
	if err != nil {
		return err
	}

	members, err := s.users.CountByCompany(ctx, company.ID)
	if err != nil {
		return err
	}
	if members > 0 {
		return apperrors.NewConflict("company has associated users", map[string]any{"users": members})
	}

	if err := s.companies.Delete(ctx, company.ID); err != nil {
		return err
	}
	s.scopes.Invalidate(ctx, p.UserID)
	return nil
}

// GetEmailConfig returns the tenant transport settings with the stored
// password redacted.
func (s *CompanyService) GetEmailConfig(ctx context.Context, p policy.Principal, id string) (*domain.EmailConfig, error) {
	if !policy.CanManageEmailConfig(p, id) {
		return nil, apperrors.NewForbidden("cannot manage this company's email settings")
	}
	company, err := s.companies.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	cfg := company.Email
	cfg.EncryptedPassword = ""
	return &cfg, nil
}

// UpdateEmailConfig stores tenant SMTP settings, encrypting the password
// at rest.
func (s *CompanyService) UpdateEmailConfig(ctx context.Context, p policy.Principal, id string, input EmailConfigInput) error {
	if !policy.CanManageEmailConfig(p, id) {
		return apperrors.NewForbidden("cannot manage this company's email settings")
	}
	company, err := s.companies.GetByID(ctx, id)
	if err != nil {
		return apperrors.MapError(err)
	}

	if input.Enabled && (strings.TrimSpace(input.Host) == "" || strings.TrimSpace(input.Username) == "") {
		return apperrors.NewValidationError("host and username are required to enable email", nil)
	}

	cfg := domain.EmailConfig{
		Enabled:           input.Enabled,
		Host:              strings.TrimSpace(input.Host),
		Port:              input.Port,
		Username:          strings.TrimSpace(input.Username),
		EncryptedPassword: company.Email.EncryptedPassword,
		From:              strings.TrimSpace(input.From),
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if input.Password != "" {
		encrypted, err := s.codec.EncryptString(input.Password)
		if err != nil {
			return err
		}
		cfg.EncryptedPassword = encrypted
	}

	return s.companies.UpdateEmailConfig(ctx, id, cfg)
}

// TestEmail verifies the stored tenant transport without sending mail.
func (s *CompanyService) TestEmail(ctx context.Context, p policy.Principal, id, recipient string) (*mail.TestResult, error) {
	if !policy.CanManageEmailConfig(p, id) {
		return nil, apperrors.NewForbidden("cannot manage this company's email settings")
	}
	company, err := s.companies.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	var password string
	if company.Email.EncryptedPassword != "" {
		password, err = s.codec.DecryptString(company.Email.EncryptedPassword)
		if err != nil {
			return nil, apperrors.NewConfigurationError("stored smtp password cannot be decrypted")
		}
	}

	result := s.mailer.TestTransport(mail.Transport{
		Host:     company.Email.Host,
		Port:     company.Email.Port,
		Username: company.Email.Username,
		Password: password,
		From:     company.Email.From,
	}, recipient)
	return &result, nil
}

func (s *CompanyService) loadScoped(ctx context.Context, p policy.Principal, id string) (*domain.Company, error) {
	scope := policy.CompaniesFor(p, nil)
	if scope.None {
		return nil, apperrors.NewNotFound("company", nil)
	}
	company, err := s.companies.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if scope.All {
		return company, nil
	}
	if scope.OwnID != nil && company.ID == *scope.OwnID {
		return company, nil
	}
	if scope.CreatedBy != "" && company.CreatedBy == scope.CreatedBy {
		return company, nil
	}
	// not visible reads the same as not existing
	return nil, apperrors.NewNotFound("company", nil)
}
