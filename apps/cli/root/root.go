package root

import (
	"context"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "storefront",
	Short:         "Storefront operator CLI",
	Long:          "Operator utilities for the storefront platform: dev tokens, bootstrap, store lifecycle, catalog import and reports.",
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the CLI. Commands read ctx through cmd.Context(), so an interrupt aborts
// in-flight database work.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// Root returns the mutable root command for wiring from subpackages.
func Root() *cobra.Command {
	return rootCmd
}
