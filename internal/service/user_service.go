package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/policy"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// UserService coordinates account management.
type UserService struct {
	users      repository.UserRepository
	scopes     ScopeSource
	bcryptCost int
}

// NewUserService constructs the service.
func NewUserService(users repository.UserRepository, scopes ScopeSource, bcryptCost int) *UserService {
	return &UserService{users: users, scopes: scopes, bcryptCost: bcryptCost}
}

// UserCreateInput describes staff-side account creation.
type UserCreateInput struct {
	Name        string
	Email       string
	Password    string
	Role        domain.Role
	CompanyID   *string
	Permissions []string
}

// UserUpdateInput carries a partial update; nil fields keep their stored
// value. Role, permissions and activation are privileged fields.
type UserUpdateInput struct {
	Name        *string
	Email       *string
	Password    *string
	Role        *domain.Role
	CompanyID   *string
	Permissions []string
	IsActive    *bool
}

// List returns users visible to the caller.
func (s *UserService) List(ctx context.Context, p policy.Principal, companyFilter *string, limit, offset int) ([]domain.User, error) {
	managerCompanies, err := s.scopes.ManagerCompanyIDs(ctx, p)
	if err != nil {
		return nil, err
	}
	scope := policy.UsersFor(p, managerCompanies, companyFilter)
	return s.users.ListWithScope(ctx, scope, p.UserID, limit, offset)
}

// Get fetches one user within the caller's visibility.
func (s *UserService) Get(ctx context.Context, p policy.Principal, id string) (*domain.User, error) {
	return s.loadScoped(ctx, p, id)
}

// Create registers an account on behalf of staff. Managers may only
// place users into companies they administer.
func (s *UserService) Create(ctx context.Context, p policy.Principal, input UserCreateInput) (*domain.User, error) {
	switch p.Role {
	case domain.RoleSuperAdmin, domain.RoleAdmin, domain.RoleManager:
	default:
		return nil, apperrors.NewForbidden("role cannot create users")
	}

	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if name == "" || email == "" || input.Password == "" {
		return nil, apperrors.NewValidationError("name, email and password are required", nil)
	}

	role := input.Role
	if role == "" {
		role = domain.RoleCustomer
	}
	if !domain.ValidRole(role) {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": role})
	}
	if role == domain.RoleSuperAdmin && p.Role != domain.RoleSuperAdmin {
		return nil, apperrors.NewForbidden("only a super admin can create super admins")
	}
	if p.Role == domain.RoleManager {
		if role == domain.RoleAdmin || role == domain.RoleSuperAdmin {
			return nil, apperrors.NewForbidden("managers cannot create admin accounts")
		}
		if input.CompanyID != nil {
			if ok, err := s.administers(ctx, p, *input.CompanyID); err != nil {
				return nil, err
			} else if !ok {
				return nil, apperrors.NewForbidden("company is outside your scope")
			}
		}
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email already registered", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CompanyID:    input.CompanyID,
		Permissions:  input.Permissions,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Update modifies an account. Users may edit their own name, email and
// password; role, permissions and activation need a privileged caller.
func (s *UserService) Update(ctx context.Context, p policy.Principal, id string, input UserUpdateInput) (*domain.User, error) {
	if !policy.CanUpdateUser(p, id) {
		return nil, apperrors.NewForbidden("cannot update this user")
	}
	user, err := s.loadScoped(ctx, p, id)
	if err != nil {
		return nil, err
	}

	privileged := p.Role == domain.RoleSuperAdmin || p.Role == domain.RoleAdmin || p.Role == domain.RoleManager
	touchesPrivileged := input.Role != nil || input.Permissions != nil || input.IsActive != nil || input.CompanyID != nil
	if touchesPrivileged && !privileged {
		return nil, apperrors.NewForbidden("cannot change role, permissions or activation")
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewValidationError("name cannot be empty", nil)
		}
		user.Name = name
	}
	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if email == "" {
			return nil, apperrors.NewValidationError("email cannot be empty", nil)
		}
		if email != user.Email {
			if _, err := s.users.GetByEmail(ctx, email); err == nil {
				return nil, apperrors.NewConflict("email already registered", nil)
			} else if !errors.Is(err, pgx.ErrNoRows) {
				return nil, err
			}
			user.Email = email
		}
	}
	if input.Password != nil && *input.Password != "" {
		hash, err := auth.HashPassword(*input.Password, s.bcryptCost)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	if input.Role != nil {
		if !domain.ValidRole(*input.Role) {
			return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": *input.Role})
		}
		if *input.Role == domain.RoleSuperAdmin && p.Role != domain.RoleSuperAdmin {
			return nil, apperrors.NewForbidden("only a super admin can grant super admin")
		}
		user.Role = *input.Role
	}
	if input.CompanyID != nil {
		if *input.CompanyID == "" {
			user.CompanyID = nil
		} else {
			user.CompanyID = input.CompanyID
		}
	}
	if input.Permissions != nil {
		user.Permissions = input.Permissions
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Delete removes an account permanently.
func (s *UserService) Delete(ctx context.Context, p policy.Principal, id string) error {
	switch p.Role {
	case domain.RoleSuperAdmin, domain.RoleAdmin:
	default:
		return apperrors.NewForbidden("role cannot delete users")
	}
	if p.UserID == id {
		return apperrors.NewValidationError("cannot delete your own account", nil)
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// loadScoped fetches a user only when the caller may see them; anything
// else reads as not found.
func (s *UserService) loadScoped(ctx context.Context, p policy.Principal, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if p.UserID == id {
		return user, nil
	}

	managerCompanies, err := s.scopes.ManagerCompanyIDs(ctx, p)
	if err != nil {
		return nil, err
	}
	scope := policy.UsersFor(p, managerCompanies, nil)
	switch {
	case scope.All:
		return user, nil
	case len(scope.CompanyIDs) > 0:
		if user.CompanyID != nil {
			for _, companyID := range scope.CompanyIDs {
				if companyID == *user.CompanyID {
					return user, nil
				}
			}
		}
	}
	return nil, apperrors.NewNotFound("user", nil)
}

func (s *UserService) administers(ctx context.Context, p policy.Principal, companyID string) (bool, error) {
	managerCompanies, err := s.scopes.ManagerCompanyIDs(ctx, p)
	if err != nil {
		return false, err
	}
	for _, id := range managerCompanies {
		if id == companyID {
			return true, nil
		}
	}
	return false, nil
}
