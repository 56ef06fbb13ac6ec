package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// RegisterInput describes a self-registration request. CompanyName is
// required for managers, whose employer company is created in the same
// flow.
type RegisterInput struct {
	Name        string
	Email       string
	Password    string
	Role        domain.Role
	CompanyName string
}

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	companies  repository.CompanyRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// NewAuthService builds the service.
func NewAuthService(cfg *config.Config, users repository.UserRepository, companies repository.CompanyRepository) *AuthService {
	return &AuthService{
		users:      users,
		companies:  companies,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// Register creates an account. Only customer and manager roles are open
// to self-registration; staff accounts are created through /api/users.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, string, time.Time, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))

	if name == "" || email == "" || input.Password == "" {
		return nil, "", time.Time{}, apperrors.NewValidationError("name, email and password are required", nil)
	}

	role := input.Role
	if role == "" {
		role = domain.RoleCustomer
	}
	if role != domain.RoleCustomer && role != domain.RoleManager {
		return nil, "", time.Time{}, apperrors.NewValidationError("only customer and manager accounts can self-register", nil)
	}
	if role == domain.RoleManager && strings.TrimSpace(input.CompanyName) == "" {
		return nil, "", time.Time{}, apperrors.NewValidationError("company name is required for manager registration", nil)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, "", time.Time{}, apperrors.NewConflict("email already registered", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, "", time.Time{}, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", time.Time{}, err
	}

	if role == domain.RoleManager {
		company := &domain.Company{
			Name:      strings.TrimSpace(input.CompanyName),
			Status:    domain.CompanyStatusActive,
			Type:      domain.CompanyTypeMain,
			CreatedBy: user.ID,
		}
		if err := s.companies.Create(ctx, company); err != nil {
			return nil, "", time.Time{}, err
		}
		user.CompanyID = &company.ID
		if err := s.users.Update(ctx, user); err != nil {
			return nil, "", time.Time{}, err
		}
	}

	token, exp, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, exp, nil
}

// Login authenticates a user. Credential misses and deactivated accounts
// report the same error so probing learns nothing.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	if !user.IsActive {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}

	token, exp, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, exp, nil
}
