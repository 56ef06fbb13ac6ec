package notify

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/policy"
)

type fakeUserRepo struct {
	byEmail map[string]*domain.User
	created []*domain.User
}

func newFakeUserRepo(known ...string) *fakeUserRepo {
	repo := &fakeUserRepo{byEmail: map[string]*domain.User{}}
	for _, email := range known {
		repo.byEmail[email] = &domain.User{ID: "u-" + email, Email: email}
	}
	return repo
}

func (f *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	user.ID = "u-" + user.Email
	f.byEmail[user.Email] = user
	f.created = append(f.created, user)
	return nil
}

func (f *fakeUserRepo) Update(context.Context, *domain.User) error { return nil }
func (f *fakeUserRepo) Delete(context.Context, string) error       { return nil }

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserRepo) ListWithScope(context.Context, policy.UserScope, string, int, int) ([]domain.User, error) {
	return nil, nil
}

func (f *fakeUserRepo) CountByCompany(context.Context, string) (int64, error) { return 0, nil }

type fakeLimiter struct {
	remaining int
	calls     int
}

func (f *fakeLimiter) Allow(context.Context, string) (bool, error) {
	f.calls++
	if f.remaining <= 0 {
		return false, nil
	}
	f.remaining--
	return true, nil
}

func TestEnsureRecipients_ProvisionsUnknown(t *testing.T) {
	repo := newFakeUserRepo("known@x.com")
	prov := NewProvisioner(repo, &fakeLimiter{remaining: 10}, true, 4, zap.NewNop())

	prov.EnsureRecipients(context.Background(), "actor-1", []string{"known@x.com", "new.person@x.com"})

	require.Len(t, repo.created, 1)
	created := repo.created[0]
	assert.Equal(t, "new.person@x.com", created.Email)
	assert.Equal(t, "New Person", created.Name)
	assert.Equal(t, domain.RoleCustomer, created.Role)
	assert.True(t, created.IsActive)
	assert.NotEmpty(t, created.PasswordHash)
}

func TestEnsureRecipients_IdempotentForKnown(t *testing.T) {
	repo := newFakeUserRepo("known@x.com")
	limiter := &fakeLimiter{remaining: 10}
	prov := NewProvisioner(repo, limiter, true, 4, zap.NewNop())

	prov.EnsureRecipients(context.Background(), "actor-1", []string{"known@x.com"})
	prov.EnsureRecipients(context.Background(), "actor-1", []string{"known@x.com"})

	assert.Empty(t, repo.created)
	assert.Zero(t, limiter.calls, "known addresses never touch the limiter")
}

func TestEnsureRecipients_DisabledTogglesOff(t *testing.T) {
	repo := newFakeUserRepo()
	prov := NewProvisioner(repo, &fakeLimiter{remaining: 10}, false, 4, zap.NewNop())

	prov.EnsureRecipients(context.Background(), "actor-1", []string{"new@x.com"})

	assert.Empty(t, repo.created)
}

func TestEnsureRecipients_RespectsRateLimit(t *testing.T) {
	repo := newFakeUserRepo()
	prov := NewProvisioner(repo, &fakeLimiter{remaining: 2}, true, 4, zap.NewNop())

	prov.EnsureRecipients(context.Background(), "actor-1",
		[]string{"a@x.com", "b@x.com", "c@x.com"})

	require.Len(t, repo.created, 2, "third address is over the limit")
	assert.Equal(t, "a@x.com", repo.created[0].Email)
	assert.Equal(t, "b@x.com", repo.created[1].Email)
}
