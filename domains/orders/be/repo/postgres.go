package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zenGate-Global/palmyra-storefront/domains/orders/be/service"
)

const orderColumns = `id, tenant_id, customer_id, customer_email, items, total_price, status, created_at, updated_at`

type itemDoc struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unitPrice"`
	Quantity  int    `json:"quantity"`
}

// PostgresRepository stores orders with their item snapshot in a JSONB column.
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

func (r *PostgresRepository) Create(ctx context.Context, o service.Order) (service.Order, error) {
	items, err := encodeItems(o.Items)
	if err != nil {
		return service.Order{}, err
	}
	row := r.pool.QueryRow(ctx, `
        INSERT INTO orders (`+orderColumns+`)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING `+orderColumns,
		o.ID, o.TenantID, o.CustomerID, o.CustomerEmail, items, o.TotalPrice, string(o.Status), o.CreatedAt, o.UpdatedAt,
	)
	return scanOrder(row)
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (service.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return service.Order{}, service.ErrNotFound
	}
	return o, err
}

func (r *PostgresRepository) ListByCustomer(ctx context.Context, customerID string) ([]service.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders
        WHERE customer_id = $1 ORDER BY created_at DESC, id ASC`, customerID)
}

func (r *PostgresRepository) ListByTenant(ctx context.Context, tenantID string, filter service.ListFilter) ([]service.Order, error) {
	var status *string
	if filter.Status != nil {
		s := string(*filter.Status)
		status = &s
	}
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders
        WHERE tenant_id = $1 AND ($2::text IS NULL OR status = $2)
        ORDER BY created_at DESC, id ASC`, tenantID, status)
}

// UpdateStatus writes only when the row still has change.From(). A zero-row update is
// either a missing order or a concurrent transition; a follow-up read tells them apart.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id uuid.UUID, change service.StatusChange, at time.Time) (service.Order, error) {
	row := r.pool.QueryRow(ctx, `
        UPDATE orders SET status = $3, updated_at = $4
        WHERE id = $1 AND status = $2
        RETURNING `+orderColumns,
		id, string(change.From()), string(change.To()), at,
	)
	o, err := scanOrder(row)
	if err == nil {
		return o, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return service.Order{}, fmt.Errorf("update order status: %w", err)
	}
	if _, getErr := r.Get(ctx, id); getErr != nil {
		return service.Order{}, getErr
	}
	return service.Order{}, service.ErrStatusChanged
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]service.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	out := make([]service.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func encodeItems(items []service.Item) ([]byte, error) {
	docs := make([]itemDoc, 0, len(items))
	for _, it := range items {
		docs = append(docs, itemDoc{ProductID: it.ProductID, Name: it.Name, UnitPrice: it.UnitPrice, Quantity: it.Quantity})
	}
	raw, err := json.Marshal(docs)
	if err != nil {
		return nil, fmt.Errorf("encode order items: %w", err)
	}
	return raw, nil
}

func scanOrder(row pgx.Row) (service.Order, error) {
	var (
		o      service.Order
		items  []byte
		status string
	)
	if err := row.Scan(&o.ID, &o.TenantID, &o.CustomerID, &o.CustomerEmail, &items, &o.TotalPrice, &status, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return service.Order{}, err
	}
	var docs []itemDoc
	if err := json.Unmarshal(items, &docs); err != nil {
		return service.Order{}, fmt.Errorf("decode order items: %w", err)
	}
	o.Items = make([]service.Item, 0, len(docs))
	for _, d := range docs {
		o.Items = append(o.Items, service.Item{ProductID: d.ProductID, Name: d.Name, UnitPrice: d.UnitPrice, Quantity: d.Quantity})
	}
	o.Status = service.Status(status)
	return o, nil
}
