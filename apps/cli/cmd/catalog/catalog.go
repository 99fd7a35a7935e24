package catalogcmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	catalogrepo "github.com/zenGate-Global/palmyra-storefront/domains/catalog/be/repo"
	catalogservice "github.com/zenGate-Global/palmyra-storefront/domains/catalog/be/service"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/persistence"
)

// Command groups catalog helpers.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Catalog utilities",
	}
	cmd.AddCommand(importCommand())
	return cmd
}

func importCommand() *cobra.Command {
	var (
		databaseURL string
		tenantID    string
		dryRun      bool
	)

	c := &cobra.Command{
		Use:   "import <file.yaml|file.json>",
		Short: "Bulk-create products for a store from a YAML or JSON product list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			if dryRun {
				inputs, err := catalogservice.ParseImport(f)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d products are valid.\n", len(inputs))
				return nil
			}

			ctx := cmd.Context()
			pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: databaseURL})
			if err != nil {
				return fmt.Errorf("init pool: %w", err)
			}
			defer persistence.ClosePool(pool)

			svc := catalogservice.New(catalogrepo.NewPostgresRepository(pool))
			result, err := svc.Import(ctx, tenantID, f)
			if err != nil {
				return err
			}
			for _, p := range result.Created {
				fmt.Fprintf(cmd.OutOrStdout(), "created %s  %s\n", p.ID, p.Name)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d products imported.\n", len(result.Created))
			return nil
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	c.Flags().StringVar(&tenantID, "tenant", "", "store (tenant) id to import into")
	c.Flags().BoolVar(&dryRun, "dry-run", false, "validate the file without writing")
	_ = c.MarkFlagRequired("tenant")
	return c
}
