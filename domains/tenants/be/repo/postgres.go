package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zenGate-Global/palmyra-storefront/domains/tenants/be/service"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/persistence"
)

const tenantColumns = `id, owner_id, name, whatsapp_contact, status, created_at, updated_at,
        expiry_date, theme_color, logo_ref, shipping_province_id, shipping_city_id`

// PostgresRepository implements the tenant repository on the tenants table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

var _ service.Repository = (*PostgresRepository)(nil)

// NewPostgresRepository constructs a repository; assumes the schema is applied.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("pgx pool is required")
	}
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Create(ctx context.Context, t service.Tenant) (service.Tenant, error) {
	province, city := originColumns(t.ShippingOrigin)
	query := `
        INSERT INTO tenants (` + tenantColumns + `)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        RETURNING ` + tenantColumns

	row := r.pool.QueryRow(ctx, query,
		t.ID, t.OwnerID, t.Name, t.WhatsAppContact, string(t.Status), t.CreatedAt, t.UpdatedAt,
		t.ExpiryDate, t.ThemeColor, t.LogoRef, province, city,
	)
	out, err := scanTenant(row)
	if err != nil {
		if persistence.IsUniqueViolation(err) {
			return service.Tenant{}, service.ErrConflict
		}
		return service.Tenant{}, err
	}
	return out, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (service.Tenant, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id)
	return mapNotFound(scanTenant(row))
}

func (r *PostgresRepository) List(ctx context.Context, opts service.ListOptions) (service.ListResult, error) {
	page := opts.Page
	if page < 1 {
		page = 1
	}
	size := opts.PageSize
	if size <= 0 {
		size = 20
	}
	offset := (page - 1) * size

	var status *string
	if opts.Status != nil {
		s := string(*opts.Status)
		status = &s
	}

	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM tenants WHERE ($1::text IS NULL OR status = $1)`, status,
	).Scan(&total); err != nil {
		return service.ListResult{}, fmt.Errorf("count tenants: %w", err)
	}

	rows, err := r.pool.Query(ctx, `SELECT `+tenantColumns+` FROM tenants
        WHERE ($1::text IS NULL OR status = $1)
        ORDER BY created_at ASC, id ASC
        LIMIT $2 OFFSET $3`, status, size, offset)
	if err != nil {
		return service.ListResult{}, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	tenants := make([]service.Tenant, 0, size)
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return service.ListResult{}, err
		}
		tenants = append(tenants, t)
	}
	if err := rows.Err(); err != nil {
		return service.ListResult{}, err
	}

	return service.ListResult{
		Tenants:    tenants,
		Page:       page,
		PageSize:   size,
		TotalItems: total,
		TotalPages: (total + size - 1) / size,
	}, nil
}

func (r *PostgresRepository) Update(ctx context.Context, t service.Tenant) (service.Tenant, error) {
	province, city := originColumns(t.ShippingOrigin)
	query := `
        UPDATE tenants SET
            name = $2, whatsapp_contact = $3, status = $4, updated_at = $5, expiry_date = $6,
            theme_color = $7, logo_ref = $8, shipping_province_id = $9, shipping_city_id = $10
        WHERE id = $1
        RETURNING ` + tenantColumns

	row := r.pool.QueryRow(ctx, query,
		t.ID, t.Name, t.WhatsAppContact, string(t.Status), t.UpdatedAt, t.ExpiryDate,
		t.ThemeColor, t.LogoRef, province, city,
	)
	return mapNotFound(scanTenant(row))
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tenants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete tenant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrNotFound
	}
	return nil
}

func originColumns(origin *service.ShippingOrigin) (*string, *string) {
	if origin == nil {
		return nil, nil
	}
	return &origin.ProvinceID, &origin.CityID
}

func scanTenant(row pgx.Row) (service.Tenant, error) {
	var (
		t        service.Tenant
		status   string
		province *string
		city     *string
	)
	if err := row.Scan(
		&t.ID, &t.OwnerID, &t.Name, &t.WhatsAppContact, &status, &t.CreatedAt, &t.UpdatedAt,
		&t.ExpiryDate, &t.ThemeColor, &t.LogoRef, &province, &city,
	); err != nil {
		return service.Tenant{}, err
	}
	parsed, err := service.ParseStatus(status)
	if err != nil {
		return service.Tenant{}, err
	}
	t.Status = parsed
	if province != nil && city != nil {
		t.ShippingOrigin = &service.ShippingOrigin{ProvinceID: *province, CityID: *city}
	}
	return t, nil
}

func mapNotFound(t service.Tenant, err error) (service.Tenant, error) {
	if errors.Is(err, pgx.ErrNoRows) {
		return service.Tenant{}, service.ErrNotFound
	}
	return t, err
}
