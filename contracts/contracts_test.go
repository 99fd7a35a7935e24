package contracts

import (
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/require"
)

func TestEveryContractLoads(t *testing.T) {
	t.Parallel()

	names := Names()
	require.Equal(t, []string{"auth", "carts", "orders", "reports", "shipping"}, names)
	for _, name := range names {
		doc, err := Load(name)
		require.NoError(t, err, name)
		require.NotEmpty(t, doc.Paths.Map(), name)
	}
}

func TestRebasePrefixesServerPath(t *testing.T) {
	t.Parallel()

	doc, err := Load("orders")
	require.NoError(t, err)

	rebased := Rebase(doc)
	require.Nil(t, rebased.Servers)
	require.NotNil(t, rebased.Paths.Value("/api/v1/orders/checkout"))
	require.NotNil(t, rebased.Paths.Value("/api/v1/admin/orders/{orderId}/status"))
	require.NotNil(t, doc.Paths.Value("/orders/checkout"))
}

func TestLoadUnknown(t *testing.T) {
	t.Parallel()

	_, err := Load("missing")
	require.Error(t, err)
}

func TestEveryContractDeclaresItsSecuritySchemes(t *testing.T) {
	t.Parallel()

	for _, name := range Names() {
		doc, err := Load(name)
		require.NoError(t, err, name)
		require.NotNil(t, doc.Components, name)
		require.NotNil(t, doc.Components.SecuritySchemes["bearerAuth"], name)
	}
}

func TestCheckSecuritySchemesRejectsUndeclaredScheme(t *testing.T) {
	t.Parallel()

	doc := &openapi3.T{
		Security: openapi3.SecurityRequirements{{"bearerAuth": []string{}}},
		Paths:    openapi3.NewPaths(),
	}
	require.ErrorContains(t, checkSecuritySchemes(doc), `"bearerAuth" is not declared`)

	doc.Components = &openapi3.Components{SecuritySchemes: openapi3.SecuritySchemes{
		"bearerAuth": &openapi3.SecuritySchemeRef{Value: openapi3.NewJWTSecurityScheme()},
	}}
	require.NoError(t, checkSecuritySchemes(doc))
}
