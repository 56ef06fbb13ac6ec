package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/policy"
)

const ticketColumns = `id, ticket_number, title, description, status, priority,
    created_by, assigned_to, company_id, resolved_at, created_at, updated_at`

// TicketFilter captures listing parameters; Scope carries the caller's
// visibility predicate and is always applied.
type TicketFilter struct {
	Scope       policy.TicketScope
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	AssignedTo  *string
	CompanyID   *string
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// StatusCount pairs a status with its ticket count.
type StatusCount struct {
	Status domain.TicketStatus
	Count  int64
}

// PriorityCount pairs a priority with its ticket count.
type PriorityCount struct {
	Priority domain.TicketPriority
	Count    int64
}

// DayCount is one bucket of the created-per-day series.
type DayCount struct {
	Day   time.Time
	Count int64
}

// CompanyCount pairs a company with its open ticket count.
type CompanyCount struct {
	CompanyID string
	Count     int64
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	NextTicketNumber(ctx context.Context) (string, error)
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	Delete(ctx context.Context, id string) error
	GetByIDScoped(ctx context.Context, id string, scope policy.TicketScope) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	CountByStatus(ctx context.Context, scope policy.TicketScope) ([]StatusCount, error)
	CountByPriority(ctx context.Context, scope policy.TicketScope) ([]PriorityCount, error)
	CountCreatedPerDay(ctx context.Context, scope policy.TicketScope, since time.Time) ([]DayCount, error)
	OpenCountByCompany(ctx context.Context, scope policy.TicketScope, limit int) ([]CompanyCount, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

// NextTicketNumber draws from a dedicated sequence so concurrent
// creations can never race to the same number.
func (r *ticketRepository) NextTicketNumber(ctx context.Context) (string, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT nextval('ticket_number_seq')`).Scan(&n); err != nil {
		return "", err
	}
	return fmt.Sprintf("TKT-%06d", n), nil
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (ticket_number, title, description, status, priority, created_by, assigned_to, company_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		ticket.TicketNumber,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.CreatedBy,
		ticket.AssignedTo,
		ticket.CompanyID,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET title=$1, description=$2, status=$3, priority=$4,
            assigned_to=$5, company_id=$6, resolved_at=$7, updated_at=NOW()
        WHERE id=$8`

	cmd, err := r.pool.Exec(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.AssignedTo,
		ticket.CompanyID,
		ticket.ResolvedAt,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// GetByIDScoped fetches a ticket only when the scope admits it; a miss is
// indistinguishable from a ticket that does not exist.
func (r *ticketRepository) GetByIDScoped(ctx context.Context, id string, scope policy.TicketScope) (*domain.Ticket, error) {
	args := []any{id}
	clauses := []string{"id=$1"}
	appendTicketScope(&clauses, &args, scope)

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s`, ticketColumns, strings.Join(clauses, " AND "))

	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, args...).Scan(ticketFields(&ticket)...); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	appendTicketScope(&clauses, &args, filter.Scope)

	if len(filter.Statuses) > 0 {
		args = append(args, filter.Statuses)
		clauses = append(clauses, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if len(filter.Priorities) > 0 {
		args = append(args, filter.Priorities)
		clauses = append(clauses, fmt.Sprintf("priority = ANY($%d)", len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("assigned_to=$%d", len(args)))
	}
	if filter.CompanyID != nil {
		args = append(args, *filter.CompanyID)
		clauses = append(clauses, fmt.Sprintf("company_id=$%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(description) LIKE %s OR LOWER(ticket_number) LIKE %s)", placeholder, placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) CountByStatus(ctx context.Context, scope policy.TicketScope) ([]StatusCount, error) {
	clauses := []string{"1=1"}
	args := []any{}
	appendTicketScope(&clauses, &args, scope)

	query := fmt.Sprintf(`SELECT status, COUNT(*) FROM tickets WHERE %s GROUP BY status`, strings.Join(clauses, " AND "))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []StatusCount
	for rows.Next() {
		var sc StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, err
		}
		result = append(result, sc)
	}
	return result, rows.Err()
}

func (r *ticketRepository) CountByPriority(ctx context.Context, scope policy.TicketScope) ([]PriorityCount, error) {
	clauses := []string{"1=1"}
	args := []any{}
	appendTicketScope(&clauses, &args, scope)

	query := fmt.Sprintf(`SELECT priority, COUNT(*) FROM tickets WHERE %s GROUP BY priority`, strings.Join(clauses, " AND "))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []PriorityCount
	for rows.Next() {
		var pc PriorityCount
		if err := rows.Scan(&pc.Priority, &pc.Count); err != nil {
			return nil, err
		}
		result = append(result, pc)
	}
	return result, rows.Err()
}

func (r *ticketRepository) CountCreatedPerDay(ctx context.Context, scope policy.TicketScope, since time.Time) ([]DayCount, error) {
	clauses := []string{"1=1"}
	args := []any{}
	appendTicketScope(&clauses, &args, scope)

	args = append(args, since)
	clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))

	query := fmt.Sprintf(`SELECT date_trunc('day', created_at) AS day, COUNT(*)
        FROM tickets WHERE %s GROUP BY day ORDER BY day`, strings.Join(clauses, " AND "))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []DayCount
	for rows.Next() {
		var dc DayCount
		if err := rows.Scan(&dc.Day, &dc.Count); err != nil {
			return nil, err
		}
		result = append(result, dc)
	}
	return result, rows.Err()
}

func (r *ticketRepository) OpenCountByCompany(ctx context.Context, scope policy.TicketScope, limit int) ([]CompanyCount, error) {
	clauses := []string{"company_id IS NOT NULL", "status NOT IN ('resolved','closed')"}
	args := []any{}
	appendTicketScope(&clauses, &args, scope)

	if limit <= 0 {
		limit = 5
	}

	query := fmt.Sprintf(`SELECT company_id, COUNT(*) AS open_count FROM tickets
        WHERE %s GROUP BY company_id ORDER BY open_count DESC LIMIT %d`,
		strings.Join(clauses, " AND "), limit)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []CompanyCount
	for rows.Next() {
		var cc CompanyCount
		if err := rows.Scan(&cc.CompanyID, &cc.Count); err != nil {
			return nil, err
		}
		result = append(result, cc)
	}
	return result, rows.Err()
}

// appendTicketScope translates a policy scope into WHERE clauses.
func appendTicketScope(clauses *[]string, args *[]any, scope policy.TicketScope) {
	switch {
	case scope.All:
	case len(scope.CompanyIDs) > 0:
		*args = append(*args, scope.CompanyIDs)
		clause := fmt.Sprintf("company_id = ANY($%d)", len(*args))
		if scope.OwnCreated && scope.CreatedBy != "" {
			*args = append(*args, scope.CreatedBy)
			clause = fmt.Sprintf("(%s OR created_by=$%d)", clause, len(*args))
		}
		*clauses = append(*clauses, clause)
	case scope.CreatedBy != "":
		*args = append(*args, scope.CreatedBy)
		*clauses = append(*clauses, fmt.Sprintf("created_by=$%d", len(*args)))
	case scope.AssignedTo != "":
		*args = append(*args, scope.AssignedTo)
		*clauses = append(*clauses, fmt.Sprintf("assigned_to=$%d", len(*args)))
	default:
		// an unshaped scope must not widen to everything
		*clauses = append(*clauses, "1=0")
	}
}

func ticketFields(t *domain.Ticket) []any {
	return []any{
		&t.ID,
		&t.TicketNumber,
		&t.Title,
		&t.Description,
		&t.Status,
		&t.Priority,
		&t.CreatedBy,
		&t.AssignedTo,
		&t.CompanyID,
		&t.ResolvedAt,
		&t.CreatedAt,
		&t.UpdatedAt,
	}
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(ticketFields(&ticket)...); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
