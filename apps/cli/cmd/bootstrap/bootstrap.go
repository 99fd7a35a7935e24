package bootstrap

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	accountsrepo "github.com/zenGate-Global/palmyra-storefront/domains/accounts/be/repo"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/identity"
	"github.com/zenGate-Global/palmyra-storefront/platform/go/persistence"
)

// Command groups bootstrap helpers.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Bootstrap platform resources (schema, first super admin)",
	}
	cmd.AddCommand(schemaCommand(), superAdminCommand())
	return cmd
}

func schemaCommand() *cobra.Command {
	var databaseURL string

	c := &cobra.Command{
		Use:   "schema",
		Short: "Apply the embedded DDL (idempotent)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: databaseURL})
			if err != nil {
				return fmt.Errorf("init pool: %w", err)
			}
			defer persistence.ClosePool(pool)

			if err := persistence.ApplySchema(ctx, pool); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schema applied.")
			return nil
		},
	}
	c.Flags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	return c
}

// superAdminCommand seeds a super admin profile for an existing identity principal. It is
// the only way to create one without the registration secret.
func superAdminCommand() *cobra.Command {
	var (
		databaseURL string
		principalID string
		email       string
	)

	c := &cobra.Command{
		Use:   "superadmin",
		Short: "Create the super admin profile for an existing principal",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: databaseURL})
			if err != nil {
				return fmt.Errorf("init pool: %w", err)
			}
			defer persistence.ClosePool(pool)

			profiles := accountsrepo.NewPostgresRepository(pool)
			profile, err := profiles.Create(ctx, identity.Profile{
				ID:        strings.TrimSpace(principalID),
				Email:     strings.ToLower(strings.TrimSpace(email)),
				Role:      identity.RoleSuperAdmin,
				CreatedAt: time.Now().UTC(),
			})
			if err != nil {
				if errors.Is(err, accountsrepo.ErrConflict) {
					fmt.Fprintf(cmd.OutOrStdout(), "Profile %s already exists; nothing to do.\n", principalID)
					return nil
				}
				return fmt.Errorf("create super admin profile: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Super admin ready: %s (%s)\n", profile.Email, profile.ID)
			return nil
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	c.Flags().StringVar(&principalID, "principal-id", "", "identity provider uid")
	c.Flags().StringVar(&email, "email", "", "account email")
	_ = c.MarkFlagRequired("principal-id")
	_ = c.MarkFlagRequired("email")
	return c
}
