package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// UserFilter captures admin listing parameters. The tenant id is not a
// filter field; it is a mandatory parameter of every query function.
type UserFilter struct {
	Role   *domain.Role
	Active *bool
	Limit  int
	Offset int
}

// UserRepository defines persistence access for users. GetByID and
// GetByEmail are the only tenant-free lookups: the former resolves a
// session token to a live user before any tenant is known, the latter
// backs login against the globally unique email. Every other query takes
// the tenant id as a required parameter.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByIDInTenant(ctx context.Context, tenantID, id string) (*domain.User, error)
	List(ctx context.Context, tenantID string, filter UserFilter) ([]domain.User, error)
	UpdateProfile(ctx context.Context, tenantID, id string, name, email *string) (*domain.User, error)
	SetRole(ctx context.Context, tenantID, id string, role domain.Role) (*domain.User, error)
	SetActive(ctx context.Context, tenantID, id string, active bool) (*domain.User, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = "id, name, email, password_hash, role, tenant_id, is_active, created_at, updated_at"

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (name, email, password_hash, role, tenant_id, is_active)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.TenantID,
		user.IsActive,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id=$1`, userColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email=$1`, userColumns)
	return r.fetchSingle(ctx, query, email)
}

func (r *userRepository) GetByIDInTenant(ctx context.Context, tenantID, id string) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id=$1 AND tenant_id=$2`, userColumns)
	return r.fetchSingle(ctx, query, id, tenantID)
}

func (r *userRepository) List(ctx context.Context, tenantID string, filter UserFilter) ([]domain.User, error) {
	clauses := []string{"tenant_id=$1"}
	args := []any{tenantID}

	if filter.Role != nil {
		args = append(args, *filter.Role)
		clauses = append(clauses, fmt.Sprintf("role=$%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		clauses = append(clauses, fmt.Sprintf("is_active=$%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM users WHERE %s ORDER BY created_at ASC LIMIT %d OFFSET %d`,
		userColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

func (r *userRepository) UpdateProfile(ctx context.Context, tenantID, id string, name, email *string) (*domain.User, error) {
	query := fmt.Sprintf(`
        UPDATE users SET name=COALESCE($1, name), email=COALESCE($2, email), updated_at=NOW()
        WHERE id=$3 AND tenant_id=$4
        RETURNING %s`, userColumns)
	return r.fetchSingle(ctx, query, name, email, id, tenantID)
}

func (r *userRepository) SetRole(ctx context.Context, tenantID, id string, role domain.Role) (*domain.User, error) {
	query := fmt.Sprintf(`
        UPDATE users SET role=$1, updated_at=NOW()
        WHERE id=$2 AND tenant_id=$3
        RETURNING %s`, userColumns)
	return r.fetchSingle(ctx, query, role, id, tenantID)
}

func (r *userRepository) SetActive(ctx context.Context, tenantID, id string, active bool) (*domain.User, error) {
	query := fmt.Sprintf(`
        UPDATE users SET is_active=$1, updated_at=NOW()
        WHERE id=$2 AND tenant_id=$3
        RETURNING %s`, userColumns)
	return r.fetchSingle(ctx, query, active, id, tenantID)
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.User, error) {
	var user domain.User
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.TenantID,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

func scanUsers(rows pgx.Rows) ([]domain.User, error) {
	var result []domain.User
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(
			&user.ID,
			&user.Name,
			&user.Email,
			&user.PasswordHash,
			&user.Role,
			&user.TenantID,
			&user.IsActive,
			&user.CreatedAt,
			&user.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, user)
	}
	return result, rows.Err()
}

// IsUniqueViolation reports whether err is a Postgres unique constraint
// violation, used to surface duplicate emails as conflicts.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
