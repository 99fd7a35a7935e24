package tenant

import (
	"strconv"
	"strings"
)

// BuildBasePrefix returns `<envKey>/<tenantID>/`, the object storage root of a tenant.
func BuildBasePrefix(envKey, tenantID string) string {
	envKey = strings.Trim(strings.TrimSpace(envKey), "/")
	return envKey + "/" + strings.Trim(tenantID, "/") + "/"
}

// LogoKey is the tenant-relative object key for a logo uploaded at the given unix millis.
func LogoKey(unixMillis int64) string {
	return "logos/logo_" + strconv.FormatInt(unixMillis, 10)
}
