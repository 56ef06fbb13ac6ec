package policy

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CompanyReader is the read surface the resolver needs; satisfied by
// repository.CompanyRepository.
type CompanyReader interface {
	GetByID(ctx context.Context, id string) (*domain.Company, error)
	ListCreatedBy(ctx context.Context, userID string) ([]domain.Company, error)
}

// ScopeResolver resolves the company-id set a manager administers: the
// employer company plus every company the manager created. The result is
// cached briefly in Redis since every ticket/user listing needs it.
type ScopeResolver struct {
	companies CompanyReader
	cache     *redis.Client
	ttl       time.Duration
	logger    *zap.Logger
}

// NewScopeResolver builds a resolver; cache may be nil.
func NewScopeResolver(companies CompanyReader, cache *redis.Client, ttl time.Duration, logger *zap.Logger) *ScopeResolver {
	return &ScopeResolver{companies: companies, cache: cache, ttl: ttl, logger: logger}
}

// ManagerCompanyIDs returns the id set for a manager principal. For any
// other role it returns nil without touching storage.
func (r *ScopeResolver) ManagerCompanyIDs(ctx context.Context, p Principal) ([]string, error) {
	if p.Role != domain.RoleManager {
		return nil, nil
	}

	cacheKey := "policy:manager-scope:" + p.UserID
	if ids, ok := r.fromCache(ctx, cacheKey); ok {
		return ids, nil
	}

	ids := make([]string, 0, 4)
	if p.CompanyID != nil {
		company, err := r.companies.GetByID(ctx, *p.CompanyID)
		if err == nil {
			ids = append(ids, company.ID)
		}
		// a dangling employer reference degrades the scope instead of
		// failing the request
	}

	created, err := r.companies.ListCreatedBy(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	for _, company := range created {
		if !containsString(ids, company.ID) {
			ids = append(ids, company.ID)
		}
	}

	r.toCache(ctx, cacheKey, ids)
	return ids, nil
}

func (r *ScopeResolver) fromCache(ctx context.Context, key string) ([]string, bool) {
	if r.cache == nil {
		return nil, false
	}
	raw, err := r.cache.Get(ctx, key).Result()
	if err != nil {
		return nil, false
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, false
	}
	return ids, true
}

func (r *ScopeResolver) toCache(ctx context.Context, key string, ids []string) {
	if r.cache == nil {
		return
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, key, raw, r.ttl).Err(); err != nil && r.logger != nil {
		r.logger.Debug("scope cache write failed", zap.Error(err))
	}
}

// Invalidate drops a cached manager scope, called after company mutations.
func (r *ScopeResolver) Invalidate(ctx context.Context, userID string) {
	if r.cache == nil {
		return
	}
	_ = r.cache.Del(ctx, "policy:manager-scope:"+userID).Err()
}
