package repo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zenGate-Global/palmyra-storefront/domains/tenants/be/service"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/persistence/pgtest"
)

func TestPostgresRepositoryRoundTrip(t *testing.T) {
	pool := pgtest.NewPool(t)
	repo := NewPostgresRepository(pool)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	expiry := now.Add(7 * 24 * time.Hour)
	created, err := repo.Create(ctx, service.Tenant{
		ID: "owner-1", OwnerID: "owner-1", Name: "Toko Satu", Status: service.StatusTrial,
		CreatedAt: now, UpdatedAt: now, ExpiryDate: &expiry, ThemeColor: service.DefaultThemeColor,
	})
	require.NoError(t, err)
	require.Equal(t, service.StatusTrial, created.Status)

	_, err = repo.Create(ctx, created)
	require.ErrorIs(t, err, service.ErrConflict)

	created.Status = service.StatusActive
	created.ShippingOrigin = &service.ShippingOrigin{ProvinceID: "9", CityID: "23"}
	updated, err := repo.Update(ctx, created)
	require.NoError(t, err)
	require.Equal(t, "23", updated.ShippingOrigin.CityID)

	active := service.StatusActive
	list, err := repo.List(ctx, service.ListOptions{Status: &active})
	require.NoError(t, err)
	require.Equal(t, 1, list.TotalItems)

	_, err = repo.Get(ctx, "missing")
	require.ErrorIs(t, err, service.ErrNotFound)

	require.NoError(t, repo.Delete(ctx, "owner-1"))
	_, err = repo.Get(ctx, "owner-1")
	require.ErrorIs(t, err, service.ErrNotFound)
	require.ErrorIs(t, repo.Delete(ctx, "owner-1"), service.ErrNotFound)
}
