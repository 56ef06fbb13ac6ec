package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// RateLimiter bounds how many accounts a single actor may provision
// inside a window.
type RateLimiter interface {
	Allow(ctx context.Context, actorID string) (bool, error)
}

type redisRateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewRedisRateLimiter returns a fixed-window limiter keyed per actor.
func NewRedisRateLimiter(client *redis.Client, limit int, window time.Duration) RateLimiter {
	return &redisRateLimiter{client: client, limit: limit, window: window}
}

func (l *redisRateLimiter) Allow(ctx context.Context, actorID string) (bool, error) {
	key := "notify:provision:" + actorID
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		l.client.Expire(ctx, key, l.window)
	}
	return count <= int64(l.limit), nil
}

// Provisioner creates customer accounts for notified addresses that do
// not map to an existing user yet.
type Provisioner struct {
	users      repository.UserRepository
	limiter    RateLimiter
	enabled    bool
	bcryptCost int
	logger     *zap.Logger
}

// NewProvisioner wires the auto-provision side effect. With enabled
// false it only verifies which addresses are already known.
func NewProvisioner(users repository.UserRepository, limiter RateLimiter, enabled bool, bcryptCost int, logger *zap.Logger) *Provisioner {
	return &Provisioner{
		users:      users,
		limiter:    limiter,
		enabled:    enabled,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// EnsureRecipients makes sure every address maps to a user account.
// Known addresses pass through untouched, so the call is idempotent.
// Unknown ones become inactive-login customer accounts when the toggle
// is on and the actor is under the rate limit. Every failure is logged
// and skipped; delivery never depends on provisioning.
func (p *Provisioner) EnsureRecipients(ctx context.Context, actorID string, emails []string) {
	for _, email := range emails {
		_, err := p.users.GetByEmail(ctx, email)
		if err == nil {
			continue
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			p.logger.Warn("recipient lookup failed", zap.String("email", email), zap.Error(err))
			continue
		}

		if !p.enabled {
			continue
		}

		allowed, limitErr := p.limiter.Allow(ctx, actorID)
		if limitErr != nil {
			p.logger.Warn("provision rate limiter unavailable", zap.Error(limitErr))
			continue
		}
		if !allowed {
			p.logger.Warn("provision rate limit reached",
				zap.String("actor_id", actorID),
				zap.String("email", email))
			continue
		}

		// The placeholder password is unguessable and never shared; the
		// account only exists so the address shows up in user listings.
		hash, hashErr := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), p.bcryptCost)
		if hashErr != nil {
			p.logger.Error("provision password hash failed", zap.Error(hashErr))
			continue
		}

		user := &domain.User{
			Name:         DisplayName(email),
			Email:        email,
			PasswordHash: string(hash),
			Role:         domain.RoleCustomer,
			IsActive:     true,
		}
		if createErr := p.users.Create(ctx, user); createErr != nil {
			p.logger.Warn("recipient provisioning failed",
				zap.String("email", email),
				zap.Error(createErr))
			continue
		}
		p.logger.Info("provisioned customer account for recipient",
			zap.String("email", email),
			zap.String("actor_id", actorID))
	}
}
