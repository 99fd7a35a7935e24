package sqlassets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatementsAreOrdered(t *testing.T) {
	stmts, err := Statements()
	require.NoError(t, err)
	require.NotEmpty(t, stmts)
	require.True(t, strings.HasPrefix(stmts[0], "CREATE TABLE IF NOT EXISTS tenants"))

	var sawOrders bool
	for _, s := range stmts {
		if strings.Contains(s, "TABLE IF NOT EXISTS orders") {
			sawOrders = true
		}
	}
	require.True(t, sawOrders)
}
