package tenant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildBasePrefix(t *testing.T) {
	require.Equal(t, "dev/store-1/", BuildBasePrefix("dev", "store-1"))
	require.Equal(t, "prod/store-1/", BuildBasePrefix(" prod/ ", "/store-1/"))
}

func TestLogoKey(t *testing.T) {
	require.Equal(t, "logos/logo_1700000000000", LogoKey(1_700_000_000_000))
}

func TestSpaceContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	require.False(t, ok)

	ctx := WithSpace(context.Background(), Space{TenantID: "store-1"})
	space, ok := FromContext(ctx)
	require.True(t, ok)
	require.Equal(t, "store-1", space.TenantID)
}
