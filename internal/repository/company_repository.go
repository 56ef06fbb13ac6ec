package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/policy"
)

const companyColumns = `id, name, domain, industry, status, type, created_by,
    email_enabled, email_host, email_port, email_username, email_password_enc, email_from,
    created_at, updated_at`

// CompanyRepository encapsulates tenant persistence.
type CompanyRepository interface {
	Create(ctx context.Context, company *domain.Company) error
	Update(ctx context.Context, company *domain.Company) error
	UpdateEmailConfig(ctx context.Context, id string, cfg domain.EmailConfig) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Company, error)
	ListCreatedBy(ctx context.Context, userID string) ([]domain.Company, error)
	ListWithScope(ctx context.Context, scope policy.CompanyScope, limit, offset int) ([]domain.Company, error)
}

type companyRepository struct {
	pool *pgxpool.Pool
}

// NewCompanyRepository instantiates the repository.
func NewCompanyRepository(pool *pgxpool.Pool) CompanyRepository {
	return &companyRepository{pool: pool}
}

func (r *companyRepository) Create(ctx context.Context, company *domain.Company) error {
	const query = `
        INSERT INTO companies (name, domain, industry, status, type, created_by,
            email_enabled, email_host, email_port, email_username, email_password_enc, email_from)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		company.Name,
		company.Domain,
		company.Industry,
		company.Status,
		company.Type,
		company.CreatedBy,
		company.Email.Enabled,
		company.Email.Host,
		company.Email.Port,
		company.Email.Username,
		company.Email.EncryptedPassword,
		company.Email.From,
	).Scan(&company.ID, &company.CreatedAt, &company.UpdatedAt)
}

func (r *companyRepository) Update(ctx context.Context, company *domain.Company) error {
	const query = `
        UPDATE companies SET name=$1, domain=$2, industry=$3, status=$4, type=$5, updated_at=NOW()
        WHERE id=$6`

	cmd, err := r.pool.Exec(ctx, query,
		company.Name,
		company.Domain,
		company.Industry,
		company.Status,
		company.Type,
		company.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *companyRepository) UpdateEmailConfig(ctx context.Context, id string, cfg domain.EmailConfig) error {
	const query = `
        UPDATE companies SET email_enabled=$1, email_host=$2, email_port=$3,
            email_username=$4, email_password_enc=$5, email_from=$6, updated_at=NOW()
        WHERE id=$7`

	cmd, err := r.pool.Exec(ctx, query,
		cfg.Enabled,
		cfg.Host,
		cfg.Port,
		cfg.Username,
		cfg.EncryptedPassword,
		cfg.From,
		id,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *companyRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM companies WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *companyRepository) GetByID(ctx context.Context, id string) (*domain.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE id=$1`
	var company domain.Company
	if err := r.pool.QueryRow(ctx, query, id).Scan(companyFields(&company)...); err != nil {
		return nil, err
	}
	return &company, nil
}

func (r *companyRepository) ListCreatedBy(ctx context.Context, userID string) ([]domain.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE created_by=$1 ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCompanies(rows)
}

func (r *companyRepository) ListWithScope(ctx context.Context, scope policy.CompanyScope, limit, offset int) ([]domain.Company, error) {
	if scope.None {
		return []domain.Company{}, nil
	}

	clauses := []string{"1=1"}
	args := []any{}

	if !scope.All {
		ownClauses := []string{}
		if scope.OwnID != nil {
			args = append(args, *scope.OwnID)
			ownClauses = append(ownClauses, fmt.Sprintf("id=$%d", len(args)))
		}
		if scope.CreatedBy != "" {
			args = append(args, scope.CreatedBy)
			ownClauses = append(ownClauses, fmt.Sprintf("created_by=$%d", len(args)))
		}
		if len(ownClauses) == 0 {
			return []domain.Company{}, nil
		}
		clauses = append(clauses, "("+strings.Join(ownClauses, " OR ")+")")
	}

	if scope.Type != nil {
		args = append(args, *scope.Type)
		clauses = append(clauses, fmt.Sprintf("type=$%d", len(args)))
	}

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM companies WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		companyColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCompanies(rows)
}

func companyFields(c *domain.Company) []any {
	return []any{
		&c.ID,
		&c.Name,
		&c.Domain,
		&c.Industry,
		&c.Status,
		&c.Type,
		&c.CreatedBy,
		&c.Email.Enabled,
		&c.Email.Host,
		&c.Email.Port,
		&c.Email.Username,
		&c.Email.EncryptedPassword,
		&c.Email.From,
		&c.CreatedAt,
		&c.UpdatedAt,
	}
}

func scanCompanies(rows pgx.Rows) ([]domain.Company, error) {
	var result []domain.Company
	for rows.Next() {
		var company domain.Company
		if err := rows.Scan(companyFields(&company)...); err != nil {
			return nil, err
		}
		result = append(result, company)
	}
	return result, rows.Err()
}
