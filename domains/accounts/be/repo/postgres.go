package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zenGate-Global/palmyra-storefront/platform/go/identity"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/persistence"
)

// PostgresRepository implements Repository on the profiles table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository constructs a repository backed by the pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("pgx pool is required")
	}
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Create(ctx context.Context, p identity.Profile) (identity.Profile, error) {
	row := r.pool.QueryRow(ctx, `
        INSERT INTO profiles (id, email, role, tenant_id, created_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, email, role, tenant_id, created_at`,
		p.ID, p.Email, string(p.Role), p.TenantID, p.CreatedAt,
	)
	out, err := scanProfile(row)
	if err != nil {
		if persistence.IsUniqueViolation(err) {
			return identity.Profile{}, ErrConflict
		}
		return identity.Profile{}, err
	}
	return out, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (identity.Profile, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, email, role, tenant_id, created_at FROM profiles WHERE id = $1`, id)
	p, err := scanProfile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return identity.Profile{}, ErrNotFound
	}
	return p, err
}

func scanProfile(row pgx.Row) (identity.Profile, error) {
	var (
		p    identity.Profile
		role string
	)
	if err := row.Scan(&p.ID, &p.Email, &role, &p.TenantID, &p.CreatedAt); err != nil {
		return identity.Profile{}, err
	}
	parsed, err := identity.ParseRole(role)
	if err != nil {
		return identity.Profile{}, fmt.Errorf("profile %s: %w", p.ID, err)
	}
	p.Role = parsed
	return p, nil
}
