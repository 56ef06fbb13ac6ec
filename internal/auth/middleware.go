package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/policy"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

const principalKey = "auth_principal"

// AuthMiddleware validates bearer tokens and loads the caller.
type AuthMiddleware struct {
	tokens *TokenManager
	users  repository.UserRepository
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, users repository.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users}
}

// Handle enforces authentication for protected routes. The user record
// is reloaded on every request so deactivation and role changes take
// effect without waiting for token expiry.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	user, err := m.users.GetByID(c.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnauthorized("user not found")
		}
		return apperrors.MapError(err)
	}
	if !user.IsActive {
		return apperrors.NewUnauthorized("account is deactivated")
	}

	c.Locals(principalKey, &AuthContext{
		User: user,
		Principal: policy.Principal{
			UserID:      user.ID,
			Role:        user.Role,
			CompanyID:   user.CompanyID,
			Permissions: user.Permissions,
		},
	})
	return c.Next()
}

// AuthContext bundles the loaded user record with its policy principal.
type AuthContext struct {
	User      *domain.User
	Principal policy.Principal
}

// FromContext retrieves the authenticated caller.
func FromContext(c *fiber.Ctx) (*AuthContext, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	authCtx, ok := val.(*AuthContext)
	return authCtx, ok
}
