package persistence_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/zenGate-Global/palmyra-storefront/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/persistence/pgtest"
)

func TestNewPoolRequiresConnString(t *testing.T) {
	t.Parallel()

	_, err := persistence.NewPool(context.Background(), persistence.PoolConfig{})
	require.Error(t, err)
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("insert tenant: %w", &pgconn.PgError{Code: "23505"})
	require.True(t, persistence.IsUniqueViolation(wrapped))
	require.False(t, persistence.IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	require.False(t, persistence.IsUniqueViolation(nil))
}

func TestApplySchemaIsIdempotent(t *testing.T) {
	pool := pgtest.NewPool(t)
	ctx := context.Background()

	require.NoError(t, persistence.ApplySchema(ctx, pool))

	var tables int
	err := pool.QueryRow(ctx, `SELECT count(*) FROM information_schema.tables
		WHERE table_schema = 'public' AND table_name IN ('tenants', 'profiles', 'products', 'orders')`).Scan(&tables)
	require.NoError(t, err)
	require.Equal(t, 4, tables)
}
