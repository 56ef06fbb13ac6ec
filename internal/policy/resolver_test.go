package policy

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

type fakeCompanyReader struct {
	byID    map[string]*domain.Company
	created map[string][]domain.Company
	err     error
}

func (f *fakeCompanyReader) GetByID(_ context.Context, id string) (*domain.Company, error) {
	if c, ok := f.byID[id]; ok {
		return c, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeCompanyReader) ListCreatedBy(_ context.Context, userID string) ([]domain.Company, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.created[userID], nil
}

func TestManagerCompanyIDs_EmployerAndCreated(t *testing.T) {
	reader := &fakeCompanyReader{
		byID: map[string]*domain.Company{
			"c1": {ID: "c1", Type: domain.CompanyTypeMain},
		},
		created: map[string][]domain.Company{
			"m1": {{ID: "c2"}, {ID: "c3"}},
		},
	}
	resolver := NewScopeResolver(reader, nil, 0, nil)

	companyID := "c1"
	ids, err := resolver.ManagerCompanyIDs(context.Background(), Principal{
		UserID: "m1", Role: domain.RoleManager, CompanyID: &companyID,
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"c1", "c2", "c3"}, ids)
}

func TestManagerCompanyIDs_DanglingEmployerDegrades(t *testing.T) {
	reader := &fakeCompanyReader{
		byID:    map[string]*domain.Company{},
		created: map[string][]domain.Company{"m1": {{ID: "c2"}}},
	}
	resolver := NewScopeResolver(reader, nil, 0, nil)

	companyID := "gone"
	ids, err := resolver.ManagerCompanyIDs(context.Background(), Principal{
		UserID: "m1", Role: domain.RoleManager, CompanyID: &companyID,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"c2"}, ids)
}

func TestManagerCompanyIDs_EmptySet(t *testing.T) {
	resolver := NewScopeResolver(&fakeCompanyReader{byID: map[string]*domain.Company{}}, nil, 0, nil)

	ids, err := resolver.ManagerCompanyIDs(context.Background(), Principal{
		UserID: "m1", Role: domain.RoleManager,
	})
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestManagerCompanyIDs_NonManagerSkipsReads(t *testing.T) {
	reader := &fakeCompanyReader{err: errors.New("must not be called")}
	resolver := NewScopeResolver(reader, nil, 0, nil)

	ids, err := resolver.ManagerCompanyIDs(context.Background(), Principal{
		UserID: "u1", Role: domain.RoleCustomer,
	})
	require.NoError(t, err)
	assert.Nil(t, ids)
}
