package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

func newAuthFixture(t *testing.T) (*AuthService, *fakeUserRepo, *fakeCompanyRepo) {
	t.Helper()
	cfg := &config.Config{}
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.AccessTokenTTLMinutes = 60
	cfg.Auth.BcryptCost = 4

	users := newFakeUserRepo()
	companies := newFakeCompanyRepo()
	return NewAuthService(cfg, users, companies), users, companies
}

func TestRegister_CustomerDefaultRole(t *testing.T) {
	svc, _, companies := newAuthFixture(t)

	user, token, _, err := svc.Register(context.Background(), RegisterInput{
		Name: "Alice", Email: "Alice@Example.com", Password: "pw",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCustomer, user.Role)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.NotEmpty(t, token)
	assert.Empty(t, companies.byID, "customer registration creates no company")
}

func TestRegister_ManagerCreatesEmployerCompany(t *testing.T) {
	svc, users, companies := newAuthFixture(t)

	user, _, _, err := svc.Register(context.Background(), RegisterInput{
		Name: "Mo", Email: "mo@example.com", Password: "pw",
		Role: domain.RoleManager, CompanyName: "Acme Corp",
	})
	require.NoError(t, err)

	require.Len(t, companies.byID, 1)
	var company *domain.Company
	for _, c := range companies.byID {
		company = c
	}
	assert.Equal(t, "Acme Corp", company.Name)
	assert.Equal(t, domain.CompanyTypeMain, company.Type)
	assert.Equal(t, user.ID, company.CreatedBy)

	require.NotNil(t, user.CompanyID)
	assert.Equal(t, company.ID, *user.CompanyID)

	stored, err := users.GetByEmail(context.Background(), "mo@example.com")
	require.NoError(t, err)
	require.NotNil(t, stored.CompanyID)
}

func TestRegister_ManagerWithoutCompanyNameRejected(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	_, _, _, err := svc.Register(context.Background(), RegisterInput{
		Name: "Mo", Email: "mo@example.com", Password: "pw", Role: domain.RoleManager,
	})
	require.Error(t, err)
	var de *apperrors.DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "VALIDATION_FAILED", de.Code)
}

func TestRegister_StaffRolesRejected(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	for _, role := range []domain.Role{domain.RoleAgent, domain.RoleAdmin, domain.RoleSuperAdmin} {
		_, _, _, err := svc.Register(context.Background(), RegisterInput{
			Name: "X", Email: "x@example.com", Password: "pw", Role: role,
		})
		require.Error(t, err, string(role))
	}
}

func TestRegister_DuplicateEmailConflicts(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	_, _, _, err := svc.Register(context.Background(), RegisterInput{Name: "A", Email: "a@x.com", Password: "pw"})
	require.NoError(t, err)

	_, _, _, err = svc.Register(context.Background(), RegisterInput{Name: "B", Email: "A@X.com", Password: "pw"})
	require.Error(t, err)
	var de *apperrors.DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "CONFLICT", de.Code)
}

func TestLogin_RejectsBadCredentialsAndInactive(t *testing.T) {
	svc, users, _ := newAuthFixture(t)
	_, _, _, err := svc.Register(context.Background(), RegisterInput{Name: "A", Email: "a@x.com", Password: "pw"})
	require.NoError(t, err)

	_, _, _, err = svc.Login(context.Background(), "a@x.com", "wrong")
	require.Error(t, err)

	_, _, _, err = svc.Login(context.Background(), "a@x.com", "pw")
	require.NoError(t, err)

	users.byEmail["a@x.com"].IsActive = false
	_, _, _, err = svc.Login(context.Background(), "a@x.com", "pw")
	require.Error(t, err)
	var de *apperrors.DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "UNAUTHORIZED", de.Code, "deactivation reads like any other credential failure")
}
