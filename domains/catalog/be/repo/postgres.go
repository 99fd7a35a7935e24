package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zenGate-Global/palmyra-storefront/domains/catalog/be/service"
)

const productColumns = `id, tenant_id, name, price, stock, weight, description, created_at, updated_at`

// PostgresRepository implements the product repository on the products table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

var _ service.Repository = (*PostgresRepository)(nil)

// NewPostgresRepository constructs a repository backed by the pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("pgx pool is required")
	}
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Create(ctx context.Context, p service.Product) (service.Product, error) {
	row := r.pool.QueryRow(ctx, `
        INSERT INTO products (`+productColumns+`)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING `+productColumns,
		p.ID, p.TenantID, p.Name, p.Price, p.Stock, p.Weight, p.Description, p.CreatedAt, p.UpdatedAt,
	)
	return scanProduct(row)
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (service.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return service.Product{}, service.ErrNotFound
	}
	return p, err
}

func (r *PostgresRepository) ListByTenant(ctx context.Context, tenantID string) ([]service.Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products
        WHERE tenant_id = $1 ORDER BY created_at DESC, id ASC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	out := make([]service.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Update(ctx context.Context, p service.Product) (service.Product, error) {
	row := r.pool.QueryRow(ctx, `
        UPDATE products SET name = $3, price = $4, stock = $5, weight = $6, description = $7, updated_at = $8
        WHERE id = $1 AND tenant_id = $2
        RETURNING `+productColumns,
		p.ID, p.TenantID, p.Name, p.Price, p.Stock, p.Weight, p.Description, p.UpdatedAt,
	)
	out, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return service.Product{}, service.ErrNotFound
	}
	return out, err
}

func (r *PostgresRepository) Delete(ctx context.Context, tenantID string, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrNotFound
	}
	return nil
}

func scanProduct(row pgx.Row) (service.Product, error) {
	var p service.Product
	err := row.Scan(&p.ID, &p.TenantID, &p.Name, &p.Price, &p.Stock, &p.Weight, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
