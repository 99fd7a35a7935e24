package root

import (
	"github.com/zenGate-Global/palmyra-storefront/apps/cli/cmd/auth"
	"github.com/zenGate-Global/palmyra-storefront/apps/cli/cmd/bootstrap"
	catalogcmd "github.com/zenGate-Global/palmyra-storefront/apps/cli/cmd/catalog"
	reportcmd "github.com/zenGate-Global/palmyra-storefront/apps/cli/cmd/report"
	tenantcmd "github.com/zenGate-Global/palmyra-storefront/apps/cli/cmd/tenant"
)

func init() {
	Root().AddCommand(auth.Command())
	Root().AddCommand(bootstrap.Command())
	Root().AddCommand(tenantcmd.Command())
	Root().AddCommand(catalogcmd.Command())
	Root().AddCommand(reportcmd.Command())
}
